// Package tenant holds the tenant (organization) domain types shared across
// the client.
package tenant

import (
	"errors"
	"time"
)

// PlanTier is the billing tier a tenant is subscribed to.
type PlanTier string

const (
	PlanFree    PlanTier = "free"
	PlanStarter PlanTier = "starter"
	PlanGrowth  PlanTier = "growth"
	PlanScale   PlanTier = "scale"
)

// Valid reports whether t is a known plan tier.
func (t PlanTier) Valid() bool {
	switch t {
	case PlanFree, PlanStarter, PlanGrowth, PlanScale:
		return true
	}
	return false
}

// Tenant represents an organization: a billing and data-isolation boundary.
// Exactly one tenant is "current" per session; the session record owns that
// pointer, there is no package-level current tenant.
type Tenant struct {
	ID         string
	Name       string
	Plan       PlanTier
	SeatsUsed  int
	SeatsTotal int
	CreatedAt  time.Time
}

// Membership ties a user to a tenant with a role.
type Membership struct {
	Tenant Tenant
	Role   Role
}

// Role is the member's role within a tenant.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Validate validates the tenant record. Returns an error describing the first
// validation failure.
func (t *Tenant) Validate() error {
	if t.ID == "" {
		return errors.New("id is required")
	}
	if t.Name == "" {
		return errors.New("name is required")
	}
	if t.Plan == "" {
		t.Plan = PlanFree
	}
	if !t.Plan.Valid() {
		return errors.New("unknown plan tier")
	}
	if t.SeatsUsed < 0 || t.SeatsTotal < 0 {
		return errors.New("seat counts must be non-negative")
	}
	return nil
}
