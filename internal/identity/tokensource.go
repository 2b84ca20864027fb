package identity

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"lynqio/client/internal/token"
)

// expirySkew is how long before the exp claim a cached token is treated as stale.
const expirySkew = 30 * time.Second

// CachingTokenSource wraps a Provider and caches the last issued token until
// shortly before expiry. TokenOptions.SkipCache bypasses the cache; concurrent
// forced refreshes collapse into one provider call via singleflight.
type CachingTokenSource struct {
	provider Provider
	now      func() time.Time

	mu     sync.RWMutex
	cached *token.Claims

	group singleflight.Group
}

// NewCachingTokenSource returns a CachingTokenSource over provider.
func NewCachingTokenSource(provider Provider) *CachingTokenSource {
	return &CachingTokenSource{provider: provider, now: time.Now}
}

// Token returns a raw tenant-scope token, serving from cache when the cached
// token is still fresh and opts.SkipCache is false.
func (s *CachingTokenSource) Token(ctx context.Context, opts TokenOptions) (string, error) {
	if !opts.SkipCache {
		s.mu.RLock()
		cached := s.cached
		s.mu.RUnlock()
		if cached != nil && !cached.Expired(s.now().Add(expirySkew)) {
			return cached.Raw(), nil
		}
	}

	v, err, _ := s.group.Do("token", func() (interface{}, error) {
		raw, err := s.provider.Token(ctx, opts)
		if err != nil {
			return "", err
		}
		// Undecodable tokens are still returned to the caller; they just
		// cannot be cached or claim-matched.
		if claims, err := token.Decode(raw); err == nil {
			s.mu.Lock()
			s.cached = claims
			s.mu.Unlock()
		}
		return raw, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token so the next Token call hits the provider.
func (s *CachingTokenSource) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// CachedClaims returns the claims of the cached token, or nil when empty.
func (s *CachingTokenSource) CachedClaims() *token.Claims {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached
}
