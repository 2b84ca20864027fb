package gating

import (
	"context"
	"errors"
	"testing"

	"lynqio/client/internal/api"
	"lynqio/client/internal/tenant"
)

type fakeOverrides struct {
	policies []string
	err      error
}

func (f *fakeOverrides) PoliciesForOrg(ctx context.Context, orgID string) ([]string, error) {
	return f.policies, f.err
}

func TestEvaluator_HealthCheck(t *testing.T) {
	e := NewEvaluator(nil, nil)
	if err := e.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestEvaluate_TierFeatures(t *testing.T) {
	e := NewEvaluator(nil, nil)

	testCases := []struct {
		name    string
		plan    tenant.PlanTier
		feature Feature
		want    bool
	}{
		{"free gets runs", tenant.PlanFree, FeatureRuns, true},
		{"free gets prospects", tenant.PlanFree, FeatureProspects, true},
		{"free denied chat", tenant.PlanFree, FeatureChat, false},
		{"starter gets chat", tenant.PlanStarter, FeatureChat, true},
		{"starter denied analytics", tenant.PlanStarter, FeatureAnalytics, false},
		{"growth gets analytics", tenant.PlanGrowth, FeatureAnalytics, true},
		{"growth denied api access", tenant.PlanGrowth, FeatureAPIAccess, false},
		{"scale gets api access", tenant.PlanScale, FeatureAPIAccess, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := e.Evaluate(context.Background(),
				tenant.Tenant{ID: "org_1", Plan: tc.plan}, nil, tc.feature)
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if d.Allowed != tc.want {
				t.Errorf("Allowed = %v, want %v", d.Allowed, tc.want)
			}
			if !tc.want && d.Reason == "" {
				t.Error("denied decision carries no reason")
			}
		})
	}
}

func TestEvaluate_RunQuotaExhaustedBlocksRuns(t *testing.T) {
	e := NewEvaluator(nil, nil)
	usage := &api.Usage{OrgID: "org_1", RunsUsed: 10, RunsQuota: 10}

	d, err := e.Evaluate(context.Background(),
		tenant.Tenant{ID: "org_1", Plan: tenant.PlanGrowth}, usage, FeatureRuns)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Allowed {
		t.Error("runs should be blocked when the quota is exhausted")
	}

	// Other features are unaffected by the run quota.
	d, err = e.Evaluate(context.Background(),
		tenant.Tenant{ID: "org_1", Plan: tenant.PlanGrowth}, usage, FeatureChat)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed {
		t.Error("chat should not be blocked by the run quota")
	}
}

func TestEvaluate_ZeroQuotaMeansUnlimited(t *testing.T) {
	e := NewEvaluator(nil, nil)
	usage := &api.Usage{OrgID: "org_1", RunsUsed: 500, RunsQuota: 0}

	d, err := e.Evaluate(context.Background(),
		tenant.Tenant{ID: "org_1", Plan: tenant.PlanFree}, usage, FeatureRuns)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed {
		t.Error("a zero quota must not count as exhausted")
	}
}

func TestEvaluate_SeatLimitFlag(t *testing.T) {
	e := NewEvaluator(nil, nil)
	usage := &api.Usage{OrgID: "org_1", SeatsUsed: 5, SeatsTotal: 5}

	d, err := e.Evaluate(context.Background(),
		tenant.Tenant{ID: "org_1", Plan: tenant.PlanStarter}, usage, FeatureProspects)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.SeatLimitReached {
		t.Error("SeatLimitReached = false, want true at capacity")
	}
	if !d.Allowed {
		t.Error("seat limit must not block read features")
	}
}

func TestEvaluate_OverrideLoadFailureFallsBackToDefaultPolicy(t *testing.T) {
	e := NewEvaluator(&fakeOverrides{err: errors.New("store offline")}, nil)

	d, err := e.Evaluate(context.Background(),
		tenant.Tenant{ID: "org_1", Plan: tenant.PlanFree}, nil, FeatureRuns)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed {
		t.Error("default policy should still allow runs on free")
	}
}

func TestEvaluate_OverridePolicyReplacesDefault(t *testing.T) {
	permissive := `package lynqio.plan

default allowed = true
default seat_limit_reached = false
`
	e := NewEvaluator(&fakeOverrides{policies: []string{permissive}}, nil)

	d, err := e.Evaluate(context.Background(),
		tenant.Tenant{ID: "org_1", Plan: tenant.PlanFree}, nil, FeatureChat)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !d.Allowed {
		t.Error("permissive override should allow chat on free")
	}
}

func TestEvaluate_BrokenPolicyDegradesToDefaults(t *testing.T) {
	e := NewEvaluator(&fakeOverrides{policies: []string{"this is not rego"}}, nil)

	d, err := e.Evaluate(context.Background(),
		tenant.Tenant{ID: "org_1", Plan: tenant.PlanScale}, nil, FeatureRuns)
	if err != nil {
		t.Fatalf("Evaluate must not hard-fail on a broken policy: %v", err)
	}
	if !d.Allowed {
		t.Error("core feature runs must stay available when evaluation fails")
	}

	d, err = e.Evaluate(context.Background(),
		tenant.Tenant{ID: "org_1", Plan: tenant.PlanScale}, nil, FeatureAPIAccess)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if d.Allowed {
		t.Error("non-core features are denied when evaluation fails")
	}
	if d.Reason == "" {
		t.Error("fallback decision carries no reason")
	}
}
