package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"lynqio/client/internal/tenant"
)

// RESTProvider talks to the hosted identity provider over its REST API.
// A session key obtained from Login authenticates every call.
type RESTProvider struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger

	mu         sync.RWMutex
	sessionKey string
}

// NewRESTProvider returns a RESTProvider for the given base URL. timeout
// bounds each request; the zero value falls back to 30s.
func NewRESTProvider(baseURL string, timeout time.Duration, logger *zap.Logger) *RESTProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RESTProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Login authenticates with the provider and stores the returned session key.
func (p *RESTProvider) Login(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	var out struct {
		SessionKey string `json:"session_key"`
	}
	if err := p.do(ctx, http.MethodPost, "/v1/sessions", body, &out, false); err != nil {
		return err
	}
	if out.SessionKey == "" {
		return fmt.Errorf("%w: login returned no session key", ErrProvider)
	}
	p.mu.Lock()
	p.sessionKey = out.SessionKey
	p.mu.Unlock()
	return nil
}

// Logout drops the local session key. The provider session expires server-side.
func (p *RESTProvider) Logout() {
	p.mu.Lock()
	p.sessionKey = ""
	p.mu.Unlock()
}

// SessionKey returns the current session key, or "" when logged out.
func (p *RESTProvider) SessionKey() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sessionKey
}

// SetSessionKey restores a session key persisted by a previous process.
func (p *RESTProvider) SetSessionKey(key string) {
	p.mu.Lock()
	p.sessionKey = key
	p.mu.Unlock()
}

// Token implements Provider.
func (p *RESTProvider) Token(ctx context.Context, opts TokenOptions) (string, error) {
	path := "/v1/sessions/token"
	if opts.SkipCache {
		path += "?skip_cache=true"
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := p.do(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return "", err
	}
	return out.Token, nil
}

// SwitchTenant implements Provider.
func (p *RESTProvider) SwitchTenant(ctx context.Context, orgID string) error {
	body := map[string]string{"org_id": orgID}
	return p.do(ctx, http.MethodPost, "/v1/sessions/tenant", body, nil, true)
}

// ActiveTenant implements Provider.
func (p *RESTProvider) ActiveTenant(ctx context.Context) (string, error) {
	var out struct {
		OrgID string `json:"org_id"`
	}
	if err := p.do(ctx, http.MethodGet, "/v1/sessions/tenant", nil, &out, true); err != nil {
		return "", err
	}
	return out.OrgID, nil
}

// Memberships implements Provider.
func (p *RESTProvider) Memberships(ctx context.Context) ([]tenant.Membership, error) {
	var out struct {
		Memberships []struct {
			OrgID      string `json:"org_id"`
			Name       string `json:"name"`
			Plan       string `json:"plan"`
			SeatsUsed  int    `json:"seats_used"`
			SeatsTotal int    `json:"seats_total"`
			Role       string `json:"role"`
			CreatedAt  string `json:"created_at"`
		} `json:"memberships"`
	}
	if err := p.do(ctx, http.MethodGet, "/v1/memberships", nil, &out, true); err != nil {
		return nil, err
	}
	ms := make([]tenant.Membership, 0, len(out.Memberships))
	for _, m := range out.Memberships {
		t := tenant.Tenant{
			ID:         m.OrgID,
			Name:       m.Name,
			Plan:       tenant.PlanTier(m.Plan),
			SeatsUsed:  m.SeatsUsed,
			SeatsTotal: m.SeatsTotal,
		}
		if at, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
			t.CreatedAt = at
		}
		ms = append(ms, tenant.Membership{Tenant: t, Role: tenant.Role(m.Role)})
	}
	return ms, nil
}

func (p *RESTProvider) do(ctx context.Context, method, path string, in, out interface{}, authed bool) error {
	var key string
	if authed {
		p.mu.RLock()
		key = p.sessionKey
		p.mu.RUnlock()
		if key == "" {
			return ErrNoSession
		}
	}

	u, err := url.Parse(p.baseURL + path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", ErrProvider, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("Authorization", "Session "+key)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrNoSession
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		p.logger.Debug("provider call failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrProvider, method, path, resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}
	return nil
}
