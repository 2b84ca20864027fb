package api

import (
	"context"
	"net/http"
	"time"

	"lynqio/client/internal/cache"
	"lynqio/client/internal/tenant"
)

// Member is a user inside an organization.
type Member struct {
	ID        string      `json:"id"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      tenant.Role `json:"role"`
	InvitedAt time.Time   `json:"invited_at"`
	Pending   bool        `json:"pending"`
}

// MemberService reads and mutates org members through the cache.
type MemberService struct {
	client  *Client
	store   *cache.Store
	mutator *cache.Mutator
}

// NewMemberService returns a MemberService.
func NewMemberService(client *Client, store *cache.Store, mutator *cache.Mutator) *MemberService {
	return &MemberService{client: client, store: store, mutator: mutator}
}

// List returns the org's members, reading through the cache.
func (s *MemberService) List(ctx context.Context, orgID string) ([]Member, error) {
	key := cache.Key{OrgID: orgID, Resource: cache.ResourceMembers}
	v, err := s.store.Fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		var out struct {
			Members []Member `json:"members"`
		}
		if err := s.client.do(ctx, http.MethodGet, "/v1/members", nil, nil, &out); err != nil {
			return nil, err
		}
		return out.Members, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Member), nil
}

// Invite adds a member optimistically as a pending entry.
func (s *MemberService) Invite(ctx context.Context, orgID, email string, role tenant.Role) error {
	provisional := Member{
		ID:        cache.TempID(),
		Email:     email,
		Role:      role,
		InvitedAt: time.Now().UTC(),
		Pending:   true,
	}
	return s.mutator.Run(ctx, cache.Mutation{
		Prefix: cache.Prefix{OrgID: orgID, Resource: cache.ResourceMembers},
		Apply: func(k cache.Key, cached interface{}) (interface{}, bool) {
			members, ok := cached.([]Member)
			if !ok {
				return nil, false
			}
			updated := make([]Member, 0, len(members)+1)
			updated = append(updated, members...)
			updated = append(updated, provisional)
			return updated, true
		},
		Call: func(ctx context.Context) error {
			body := map[string]string{"email": email, "role": string(role)}
			return s.client.do(ctx, http.MethodPost, "/v1/members/invites", nil, body, nil)
		},
		FailureMessage: "Invitation could not be sent.",
	})
}
