package api

import (
	"context"
	"net/http"

	"lynqio/client/internal/cache"
)

// Usage is the org's current consumption against its plan, used for billing
// gating decisions.
type Usage struct {
	OrgID      string `json:"org_id"`
	SeatsUsed  int    `json:"seats_used"`
	SeatsTotal int    `json:"seats_total"`
	RunsUsed   int    `json:"runs_used"`
	RunsQuota  int    `json:"runs_quota"`
}

// UsageService reads usage through the cache.
type UsageService struct {
	client *Client
	store  *cache.Store
}

// NewUsageService returns a UsageService.
func NewUsageService(client *Client, store *cache.Store) *UsageService {
	return &UsageService{client: client, store: store}
}

// Current returns the org's usage, reading through the cache.
func (s *UsageService) Current(ctx context.Context, orgID string) (*Usage, error) {
	key := cache.Key{OrgID: orgID, Resource: cache.ResourceUsage}
	v, err := s.store.Fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		var out Usage
		if err := s.client.do(ctx, http.MethodGet, "/v1/usage", nil, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Usage), nil
}
