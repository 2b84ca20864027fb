// Package identity defines the boundary to the hosted identity provider:
// token issuance, tenant switching, and membership listing. The provider owns
// authentication (passwords, MFA); this client only consumes its sessions.
package identity

import (
	"context"
	"errors"

	"lynqio/client/internal/tenant"
)

// Sentinel errors; callers map them to user-facing behavior.
var (
	// ErrNoSession is returned when no provider session is available. This is a
	// hard stop for the affected operation: the caller aborts and reports an
	// authentication error rather than guessing.
	ErrNoSession = errors.New("no active session")
	// ErrProvider wraps provider-side failures (switch/token request errors).
	ErrProvider = errors.New("identity provider error")
)

// TokenOptions controls token issuance.
type TokenOptions struct {
	// SkipCache forces reissuance, bypassing any client-side token cache. The
	// activation loop uses this while waiting for a tenant claim to propagate.
	SkipCache bool
}

// Provider is the minimal identity-provider surface the client needs.
type Provider interface {
	// Token returns a tenant-scope token for the current session.
	Token(ctx context.Context, opts TokenOptions) (string, error)
	// SwitchTenant asks the provider to make orgID the session's active tenant.
	// Claim propagation into freshly issued tokens is asynchronous.
	SwitchTenant(ctx context.Context, orgID string) error
	// Memberships lists the tenants the session's user belongs to.
	Memberships(ctx context.Context) ([]tenant.Membership, error)
	// ActiveTenant returns the org id the provider currently reports as active.
	ActiveTenant(ctx context.Context) (string, error)
}
