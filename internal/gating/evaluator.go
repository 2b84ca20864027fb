// Package gating decides whether a feature is available to a tenant given
// its plan tier and current usage. Decisions come from OPA Rego policies: a
// compiled default policy plus optional per-tenant overrides.
package gating

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"

	"lynqio/client/internal/api"
	"lynqio/client/internal/tenant"
)

// Feature names the gated surfaces.
type Feature string

const (
	FeatureRuns      Feature = "runs"
	FeatureProspects Feature = "prospects"
	FeatureChat      Feature = "chat"
	FeatureAnalytics Feature = "analytics"
	FeatureAPIAccess Feature = "api_access"
)

// Default Rego policy: per-tier feature sets, seat limits, run quotas.
const defaultRegoPolicy = `package lynqio.plan

default allowed = false
default seat_limit_reached = false
default run_quota_exhausted = false

tier_features = {
	"free": {"runs", "prospects"},
	"starter": {"runs", "prospects", "chat"},
	"growth": {"runs", "prospects", "chat", "analytics"},
	"scale": {"runs", "prospects", "chat", "analytics", "api_access"},
}

seat_limit_reached if {
	input.usage.seats_total > 0
	input.usage.seats_used >= input.usage.seats_total
}

run_quota_exhausted if {
	input.usage.runs_quota > 0
	input.usage.runs_used >= input.usage.runs_quota
}

allowed if {
	tier_features[input.plan][input.feature]
	not blocked
}

blocked if {
	input.feature == "runs"
	run_quota_exhausted
}
`

// Decision is the gating outcome for one feature check.
type Decision struct {
	Allowed          bool
	SeatLimitReached bool
	Reason           string
}

// OverrideSource supplies per-tenant Rego override modules. May be nil.
type OverrideSource interface {
	PoliciesForOrg(ctx context.Context, orgID string) ([]string, error)
}

// Evaluator evaluates plan gating with OPA Rego.
type Evaluator struct {
	overrides OverrideSource
	logger    *zap.Logger
}

// NewEvaluator returns an Evaluator. overrides may be nil.
func NewEvaluator(overrides OverrideSource, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{overrides: overrides, logger: logger}
}

// HealthCheck verifies the in-process Rego engine can compile and evaluate
// the default policy. Returns nil on success.
func (e *Evaluator) HealthCheck(ctx context.Context) error {
	modules := map[string]string{"policy_0.rego": defaultRegoPolicy}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return fmt.Errorf("compile default policy: %w", err)
	}
	q := rego.New(
		rego.Query("data.lynqio.plan.allowed"),
		rego.Compiler(compiler),
		rego.Input(buildInput(tenant.PlanFree, nil, FeatureRuns)),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// Evaluate decides whether feature is available to t given usage. Evaluation
// failure degrades to the static defaults (core features allowed) and never
// hard-fails the calling flow.
func (e *Evaluator) Evaluate(ctx context.Context, t tenant.Tenant, usage *api.Usage, feature Feature) (Decision, error) {
	input := buildInput(t.Plan, usage, feature)

	var policies []string
	if e.overrides != nil {
		overrides, err := e.overrides.PoliciesForOrg(ctx, t.ID)
		if err != nil {
			e.logger.Warn("loading gating overrides failed",
				zap.String("org_id", t.ID), zap.Error(err))
		} else {
			for _, p := range overrides {
				if p != "" {
					policies = append(policies, p)
				}
			}
		}
	}
	if len(policies) == 0 {
		policies = []string{defaultRegoPolicy}
	}

	decision, err := e.evaluatePolicies(ctx, policies, input)
	if err != nil {
		e.logger.Warn("gating evaluation failed, using defaults",
			zap.String("org_id", t.ID), zap.Error(err))
		return defaultDecision(feature), nil
	}
	return decision, nil
}

func buildInput(plan tenant.PlanTier, usage *api.Usage, feature Feature) map[string]interface{} {
	u := map[string]interface{}{
		"seats_used":  0,
		"seats_total": 0,
		"runs_used":   0,
		"runs_quota":  0,
	}
	if usage != nil {
		u["seats_used"] = usage.SeatsUsed
		u["seats_total"] = usage.SeatsTotal
		u["runs_used"] = usage.RunsUsed
		u["runs_quota"] = usage.RunsQuota
	}
	return map[string]interface{}{
		"plan":    string(plan),
		"feature": string(feature),
		"usage":   u,
	}
}

func (e *Evaluator) evaluatePolicies(ctx context.Context, policies []string, input map[string]interface{}) (Decision, error) {
	modules := make(map[string]string)
	for i, policy := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = policy
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return Decision{}, fmt.Errorf("compile policies: %w", err)
	}

	out := Decision{}

	allowed, err := queryBool(ctx, compiler, input, "data.lynqio.plan.allowed")
	if err != nil {
		return Decision{}, err
	}
	out.Allowed = allowed

	seatLimit, err := queryBool(ctx, compiler, input, "data.lynqio.plan.seat_limit_reached")
	if err != nil {
		return Decision{}, err
	}
	out.SeatLimitReached = seatLimit

	if !out.Allowed {
		out.Reason = "not included in plan or quota exhausted"
	}
	return out, nil
}

func queryBool(ctx context.Context, compiler *ast.Compiler, input map[string]interface{}, query string) (bool, error) {
	q := rego.New(
		rego.Query(query),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return false, err
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, fmt.Errorf("query %s returned no result", query)
	}
	v, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("query %s returned non-boolean", query)
	}
	return v, nil
}

// defaultDecision is the static fallback when evaluation fails: core features
// stay available so a policy bug cannot lock users out of their data.
func defaultDecision(feature Feature) Decision {
	core := feature == FeatureRuns || feature == FeatureProspects
	return Decision{
		Allowed: core,
		Reason:  "policy evaluation failed; defaults applied",
	}
}
