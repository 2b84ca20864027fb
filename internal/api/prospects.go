package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"lynqio/client/internal/cache"
)

// Stage is a prospect's pipeline stage.
type Stage string

const (
	StageNew       Stage = "new"
	StageContacted Stage = "contacted"
	StageReplied   Stage = "replied"
	StageQualified Stage = "qualified"
	StageClosed    Stage = "closed"
)

// Prospect is a LinkedIn contact in the outreach pipeline.
type Prospect struct {
	ID         string    `json:"id"`
	OrgID      string    `json:"org_id"`
	FullName   string    `json:"full_name"`
	Headline   string    `json:"headline"`
	ProfileURL string    `json:"profile_url"`
	Stage      Stage     `json:"stage"`
	RunID      string    `json:"run_id,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProspectService reads and mutates prospects through the cache.
type ProspectService struct {
	client  *Client
	store   *cache.Store
	mutator *cache.Mutator
}

// NewProspectService returns a ProspectService.
func NewProspectService(client *Client, store *cache.Store, mutator *cache.Mutator) *ProspectService {
	return &ProspectService{client: client, store: store, mutator: mutator}
}

// List returns the prospect page for orgID, reading through the cache.
func (s *ProspectService) List(ctx context.Context, orgID, page string) ([]Prospect, error) {
	key := cache.Key{OrgID: orgID, Resource: cache.ResourceProspects, Page: page}
	v, err := s.store.Fetch(ctx, key, func(ctx context.Context) (interface{}, error) {
		q := url.Values{}
		if page != "" {
			q.Set("page", page)
		}
		var out struct {
			Prospects []Prospect `json:"prospects"`
		}
		if err := s.client.do(ctx, http.MethodGet, "/v1/prospects", q, nil, &out); err != nil {
			return nil, err
		}
		return out.Prospects, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Prospect), nil
}

// Move changes a prospect's stage optimistically. The stage change is applied
// to every cached page the prospect appears on; a failed write restores all
// of them, not a subset.
func (s *ProspectService) Move(ctx context.Context, orgID, prospectID string, stage Stage) error {
	return s.mutator.Run(ctx, cache.Mutation{
		Prefix: cache.Prefix{OrgID: orgID, Resource: cache.ResourceProspects},
		Apply: func(k cache.Key, cached interface{}) (interface{}, bool) {
			prospects, ok := cached.([]Prospect)
			if !ok {
				return nil, false
			}
			changed := false
			updated := make([]Prospect, len(prospects))
			copy(updated, prospects)
			for i := range updated {
				if updated[i].ID == prospectID {
					updated[i].Stage = stage
					updated[i].UpdatedAt = time.Now().UTC()
					changed = true
				}
			}
			if !changed {
				return nil, false
			}
			return updated, true
		},
		Call: func(ctx context.Context) error {
			body := map[string]string{"stage": string(stage)}
			return s.client.do(ctx, http.MethodPatch, "/v1/prospects/"+url.PathEscape(prospectID), nil, body, nil)
		},
		FailureMessage: "Prospect stage could not be updated.",
	})
}
