// Package token inspects tenant-scope tokens issued by the hosted identity
// provider. The client never verifies signatures; the Lynqio backend does that
// on every request. This package only decodes the claim set so the activation
// loop can compare the org claim against the desired tenant.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed is returned when a token is not a decodable three-segment JWT.
	ErrMalformed = errors.New("malformed token")
)

// Claims holds the decoded claim set of a tenant-scope token.
type Claims struct {
	// OrgID is the active-tenant claim. A token is scoped to tenant T
	// only when OrgID equals T's identifier.
	OrgID     string
	Subject   string
	SessionID string
	IssuedAt  time.Time
	ExpiresAt time.Time

	raw string
}

type wireClaims struct {
	jwt.RegisteredClaims
	OrgID     string `json:"org_id"`
	SessionID string `json:"session_id"`
}

// Decode parses the token's middle segment without verifying the signature.
// Returns ErrMalformed for anything that is not three base64url segments
// carrying a JSON claim set. Unknown claim fields are ignored.
func Decode(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMalformed
	}
	parser := jwt.NewParser()
	var wc wireClaims
	if _, _, err := parser.ParseUnverified(raw, &wc); err != nil {
		return nil, ErrMalformed
	}
	c := &Claims{
		OrgID:     wc.OrgID,
		Subject:   wc.Subject,
		SessionID: wc.SessionID,
		raw:       raw,
	}
	if wc.IssuedAt != nil {
		c.IssuedAt = wc.IssuedAt.Time
	}
	if wc.ExpiresAt != nil {
		c.ExpiresAt = wc.ExpiresAt.Time
	}
	return c, nil
}

// MatchesTenant reports whether the token's org claim equals orgID.
// An empty org claim never matches.
func (c *Claims) MatchesTenant(orgID string) bool {
	if c == nil || c.OrgID == "" {
		return false
	}
	return c.OrgID == orgID
}

// Expired reports whether the token's exp claim is at or before now.
// Tokens without an exp claim are treated as unexpired.
func (c *Claims) Expired(now time.Time) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !c.ExpiresAt.After(now)
}

// Raw returns the token string the claims were decoded from.
func (c *Claims) Raw() string {
	if c == nil {
		return ""
	}
	return c.raw
}
