package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"lynqio/client/internal/cache"
)

// RunStatus is an automation run's lifecycle state.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusPaused    RunStatus = "paused"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run is an outreach automation run.
type Run struct {
	ID            string    `json:"id"`
	OrgID         string    `json:"org_id"`
	Name          string    `json:"name"`
	Status        RunStatus `json:"status"`
	ProspectCount int       `json:"prospect_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// RunDraft is the payload for creating a run.
type RunDraft struct {
	Name       string   `json:"name"`
	ListIDs    []string `json:"list_ids,omitempty"`
	TemplateID string   `json:"template_id,omitempty"`
}

// RunService reads and mutates runs through the cache.
type RunService struct {
	client  *Client
	store   *cache.Store
	mutator *cache.Mutator
}

// NewRunService returns a RunService.
func NewRunService(client *Client, store *cache.Store, mutator *cache.Mutator) *RunService {
	return &RunService{client: client, store: store, mutator: mutator}
}

// List returns the run page for orgID, reading through the cache.
func (s *RunService) List(ctx context.Context, orgID, page string) ([]Run, error) {
	key := cache.Key{OrgID: orgID, Resource: cache.ResourceRuns, Page: page}
	v, err := s.store.Fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		q := url.Values{}
		if page != "" {
			q.Set("page", page)
		}
		var out struct {
			Runs []Run `json:"runs"`
		}
		if err := s.client.do(ctx, http.MethodGet, "/v1/runs", q, nil, &out); err != nil {
			return nil, err
		}
		return out.Runs, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Run), nil
}

// Create creates a run optimistically: a provisional run with a temporary id
// and queued status appears in the cached default page before the network
// round-trip; failure rolls every cached page back.
func (s *RunService) Create(ctx context.Context, orgID string, draft RunDraft) error {
	provisional := Run{
		ID:        cache.TempID(),
		OrgID:     orgID,
		Name:      draft.Name,
		Status:    RunStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	return s.mutator.Run(ctx, cache.Mutation{
		Prefix: cache.Prefix{OrgID: orgID, Resource: cache.ResourceRuns},
		Apply: func(k cache.Key, cached interface{}) (interface{}, bool) {
			if k.Page != "" {
				return nil, false
			}
			runs, ok := cached.([]Run)
			if !ok {
				return nil, false
			}
			updated := make([]Run, 0, len(runs)+1)
			updated = append(updated, provisional)
			updated = append(updated, runs...)
			return updated, true
		},
		Call: func(ctx context.Context) error {
			return s.client.do(ctx, http.MethodPost, "/v1/runs", nil, draft, nil)
		},
		FailureMessage: "Run could not be created.",
	})
}
