// Package policy hosts the authorization collaborator consulted by the quote
// core. Role and permission data live outside the core; services only ask the
// Authorizer yes/no questions.
package policy

import (
	"context"
	"strings"
	"time"

	"github.com/partsdesk/procurement-app/internal/gate"
	"github.com/partsdesk/procurement-app/internal/models"
	"gorm.io/gorm"
)

// Authorizer answers the permission questions the quote lifecycle needs.
// The core never hard-codes role names; it only consults this interface.
type Authorizer interface {
	// HasApprovalAuthority reports whether the actor may approve or reject
	// quote requests (and edit items while a quote is under review).
	HasApprovalAuthority(ctx context.Context, actorID uint) bool
	// CanEditQuoteItems reports whether the actor may mutate the item list of
	// the given quote in its current status.
	CanEditQuoteItems(ctx context.Context, actorID uint, quote *models.QuoteRequest) bool
}

// GateAuthorizer implements Authorizer on top of the gate package with a
// cached, database-backed profile resolver.
type GateAuthorizer struct {
	gate *gate.Gate[uint]
}

// NewGateAuthorizer builds the default authorizer. cacheTTL bounds how long a
// role change can remain invisible to authorization checks.
func NewGateAuthorizer(db *gorm.DB, cacheTTL time.Duration) *GateAuthorizer {
	resolver := gate.NewCachedResolver[uint](NewDBProfileResolver(db), cacheTTL)
	g := gate.New[uint](resolver)
	g.Register("quote", CreatorPolicy{})
	return &GateAuthorizer{gate: g}
}

func (a *GateAuthorizer) HasApprovalAuthority(ctx context.Context, actorID uint) bool {
	return a.gate.Can(ctx, actorID, gate.ActionApprove, "quote", nil)
}

func (a *GateAuthorizer) CanEditQuoteItems(ctx context.Context, actorID uint, quote *models.QuoteRequest) bool {
	switch quote.Status {
	case models.QuoteStatusDraft:
		// Drafts are editable by their creator; approvers may also step in.
		if quote.CreatedBy == actorID {
			return a.gate.Can(ctx, actorID, gate.ActionUpdate, "quote", quote)
		}
		return a.HasApprovalAuthority(ctx, actorID)
	case models.QuoteStatusUnderReview:
		// Under review only approval-authorized actors may touch items.
		return a.HasApprovalAuthority(ctx, actorID)
	default:
		return false
	}
}

// CreatorPolicy allows a quote's creator to act on it; other actors fall back
// to their profile grants alone via a registered approve permission.
type CreatorPolicy struct{}

func (CreatorPolicy) Can(_ context.Context, userID uint, _ gate.Action, resource any) bool {
	q, ok := resource.(*models.QuoteRequest)
	if !ok {
		return false
	}
	return q.CreatedBy == userID
}

// DBProfileResolver fetches a user's role from the database and adapts it to
// a gate.Profile. Role.Permissions is a comma-separated grant list.
type DBProfileResolver struct {
	DB *gorm.DB
}

func NewDBProfileResolver(db *gorm.DB) *DBProfileResolver {
	return &DBProfileResolver{DB: db}
}

// Resolve returns nil (no profile) for unknown users or users without a role.
func (r *DBProfileResolver) Resolve(ctx context.Context, userID uint) (gate.Profile, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Role").First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	if user.Role.ID == 0 {
		return nil, nil
	}
	return &roleProfile{role: user.Role}, nil
}

type roleProfile struct {
	role models.Role
}

func (p *roleProfile) Name() string { return p.role.Name }

func (p *roleProfile) HasPermission(requested gate.Permission) bool {
	for _, raw := range strings.Split(p.role.Permissions, ",") {
		if raw = strings.TrimSpace(raw); raw == "" {
			continue
		}
		if gate.Permission(raw).Matches(requested) {
			return true
		}
	}
	return false
}
