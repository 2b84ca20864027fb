package identity

import (
	"context"
	"sync"

	"lynqio/client/internal/tenant"
)

// Session is the explicit per-session context: the provider handle, the token
// source, and the current tenant. It is constructed once and passed through
// constructors; there is no package-level current session, so tests can run
// several sessions side by side.
type Session struct {
	provider Provider
	tokens   *CachingTokenSource

	mu      sync.RWMutex
	current *tenant.Tenant
}

// NewSession returns a Session over the given provider.
func NewSession(provider Provider) *Session {
	return &Session{
		provider: provider,
		tokens:   NewCachingTokenSource(provider),
	}
}

// Provider returns the session's identity provider.
func (s *Session) Provider() Provider { return s.provider }

// Tokens returns the session's caching token source.
func (s *Session) Tokens() *CachingTokenSource { return s.tokens }

// Token returns a tenant-scope token through the caching source.
func (s *Session) Token(ctx context.Context, opts TokenOptions) (string, error) {
	return s.tokens.Token(ctx, opts)
}

// Current returns the current tenant, if one has been activated.
func (s *Session) Current() (tenant.Tenant, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return tenant.Tenant{}, false
	}
	return *s.current, true
}

// SetCurrent records t as the session's current tenant and drops the cached
// token, which is scoped to the previous tenant.
func (s *Session) SetCurrent(t tenant.Tenant) {
	s.mu.Lock()
	s.current = &t
	s.mu.Unlock()
	s.tokens.Invalidate()
}

// Clear destroys the session's tenant context (logout).
func (s *Session) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.tokens.Invalidate()
}
