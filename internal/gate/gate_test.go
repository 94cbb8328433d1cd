package gate_test

import (
	"context"
	"testing"
	"time"

	"github.com/partsdesk/procurement-app/internal/gate"
)

func TestPermissionMatching(t *testing.T) {
	perm := gate.Permission("quote:approve")
	if !perm.Matches("quote:approve") {
		t.Error("expected exact match to succeed")
	}
	if perm.Matches("quote:send") {
		t.Error("expected different action to fail")
	}
	if perm.Matches("order:approve") {
		t.Error("expected different resource to fail")
	}
	if !gate.Permission("quote:*").Matches("quote:approve") {
		t.Error("quote:* should match quote:approve")
	}
	if gate.Permission("quote:*").Matches("order:convert") {
		t.Error("quote:* should not match order:convert")
	}
	if !gate.PermissionSuperAdmin.Matches("order:convert") {
		t.Error("*:* should match everything")
	}
}

func TestPermissionParse(t *testing.T) {
	res, act := gate.Permission("quote:send").Parse()
	if res != "quote" || act != gate.ActionSend {
		t.Errorf("got %q %q", res, act)
	}
	res, act = gate.Permission("broken").Parse()
	if res != "" || act != "" {
		t.Errorf("expected empty parse, got %q %q", res, act)
	}
}

func TestGateAuthorize(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	resolver.Set(1, gate.NewStaticProfile("manager", "quote:*"))
	resolver.Set(2, gate.NewStaticProfile("requester", "quote:view", "quote:create"))
	g := gate.New[uint](resolver)

	if err := g.Authorize(context.Background(), 1, gate.ActionApprove, "quote", nil); err != nil {
		t.Fatalf("manager should approve: %v", err)
	}
	if err := g.Authorize(context.Background(), 2, gate.ActionApprove, "quote", nil); err == nil {
		t.Fatal("requester must not approve")
	}
	if err := g.Authorize(context.Background(), 0, gate.ActionView, "quote", nil); err == nil {
		t.Fatal("zero user must be rejected")
	}
	if err := g.Authorize(context.Background(), 99, gate.ActionView, "quote", nil); err == nil {
		t.Fatal("unknown user must be rejected")
	}
}

type denyAll struct{}

func (denyAll) Can(context.Context, uint, gate.Action, any) bool { return false }

func TestGatePolicyConsultedWithResource(t *testing.T) {
	resolver := gate.NewStaticResolver[uint]()
	resolver.Set(1, gate.NewStaticProfile("manager", gate.PermissionSuperAdmin))
	g := gate.New[uint](resolver)
	g.Register("quote", denyAll{})

	if err := g.Authorize(context.Background(), 1, gate.ActionUpdate, "quote", nil); err != nil {
		t.Fatalf("nil resource skips policy: %v", err)
	}
	if err := g.Authorize(context.Background(), 1, gate.ActionUpdate, "quote", struct{}{}); err == nil {
		t.Fatal("policy denial must propagate")
	}
}

func TestCachedResolver(t *testing.T) {
	inner := gate.NewStaticResolver[uint]()
	inner.Set(1, gate.NewStaticProfile("requester"))
	cached := gate.NewCachedResolver[uint](inner, 5*time.Minute)

	p1, err := cached.Resolve(context.Background(), 1)
	if err != nil || p1.Name() != "requester" {
		t.Fatalf("resolve: %v %v", p1, err)
	}

	// Role change is invisible until the cache entry is invalidated.
	inner.Set(1, gate.NewStaticProfile("manager"))
	p2, _ := cached.Resolve(context.Background(), 1)
	if p2.Name() != "requester" {
		t.Fatalf("expected cached profile, got %s", p2.Name())
	}
	cached.Invalidate(1)
	p3, _ := cached.Resolve(context.Background(), 1)
	if p3.Name() != "manager" {
		t.Fatalf("expected fresh profile, got %s", p3.Name())
	}
}
