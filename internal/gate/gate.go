// Package gate is a small Gate/Policy authorization layer. A gate resolves
// the acting user to a permission profile and checks "resource:action"
// grants, optionally consulting a resource-specific policy for ownership
// style rules. The package knows nothing about domain models.
package gate

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrUnauthorized is returned when the user is not allowed to perform the action.
	ErrUnauthorized = errors.New("unauthorized")
)

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionList    Action = "list"
	ActionSend    Action = "send"
	ActionApprove Action = "approve"
	ActionConvert Action = "convert"
)

// Permission is an allowed action on a resource type, in "resource:action"
// form (e.g. "quote:approve"). "quote:*" grants every quote action and "*:*"
// grants everything.
type Permission string

// NewPermission creates a permission from resource type and action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resourceType string, action Action) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], Action(parts[1])
}

const (
	wildcard                        = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// Matches checks if this granted permission satisfies a requested one,
// honoring the wildcard forms.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin {
		return true
	}
	if p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, _ := requested.Parse()
	return res == reqRes && string(act) == wildcard
}

// Policy defines resource-level rules (typically ownership) consulted after
// the profile permission check passes.
type Policy[U comparable] interface {
	Can(ctx context.Context, user U, action Action, resource any) bool
}

// Gate combines profile-based permissions with per-resource policies.
// U is the user/subject type, usually uint for user ids.
type Gate[U comparable] struct {
	resolver ProfileResolver[U]
	policies map[string]Policy[U]
}

// New creates a gate backed by the given profile resolver.
func New[U comparable](resolver ProfileResolver[U]) *Gate[U] {
	return &Gate[U]{resolver: resolver, policies: make(map[string]Policy[U])}
}

// Register adds a resource-specific policy for a resource type.
func (g *Gate[U]) Register(resourceType string, p Policy[U]) {
	g.policies[resourceType] = p
}

// Authorize checks, in order: the user is non-zero, the user's profile grants
// resource:action, and — when a policy is registered and a resource is given —
// the policy allows it.
func (g *Gate[U]) Authorize(ctx context.Context, user U, action Action, resourceType string, resource any) error {
	var zero U
	if user == zero {
		return ErrUnauthorized
	}
	profile, err := g.resolver.Resolve(ctx, user)
	if err != nil || profile == nil {
		return ErrUnauthorized
	}
	if !profile.HasPermission(NewPermission(resourceType, action)) {
		return ErrUnauthorized
	}
	if resource != nil {
		if policy, ok := g.policies[resourceType]; ok {
			if !policy.Can(ctx, user, action, resource) {
				return ErrUnauthorized
			}
		}
	}
	return nil
}

// Can is a convenience wrapper returning bool instead of error.
func (g *Gate[U]) Can(ctx context.Context, user U, action Action, resourceType string, resource any) bool {
	return g.Authorize(ctx, user, action, resourceType, resource) == nil
}
