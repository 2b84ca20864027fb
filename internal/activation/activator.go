package activation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"lynqio/client/internal/identity"
	"lynqio/client/internal/telemetry"
	"lynqio/client/internal/tenant"
	"lynqio/client/internal/token"
)

// Defaults for the polling loop: 20 attempts at 400ms gives an ~8s ceiling.
const (
	DefaultInterval    = 400 * time.Millisecond
	DefaultMaxAttempts = 20
)

// Store persists the last-activated org id for next-session restoration.
type Store interface {
	SetLastOrgID(ctx context.Context, orgID string) error
}

// Result is the outcome of one activation. There is no failure outcome for
// claim-propagation delay; Verified is false when the loop timed out and
// proceeded anyway.
type Result struct {
	OrgID     string
	Attempts  int
	Verified  bool
	LastClaim string
}

// Activator ensures the session's tokens carry the desired tenant claim
// before that tenant is treated as current. sleep is injected so tests run
// without real timers.
type Activator struct {
	session     *identity.Session
	store       Store
	interval    time.Duration
	maxAttempts int
	sleep       func(ctx context.Context, d time.Duration) error
	logger      *zap.Logger
	metrics     *telemetry.Metrics
}

// NewActivator returns an Activator for the session. store and metrics may be
// nil. Non-positive interval or maxAttempts fall back to the defaults.
func NewActivator(session *identity.Session, store Store, interval time.Duration, maxAttempts int, logger *zap.Logger, metrics *telemetry.Metrics) *Activator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activator{
		session:     session,
		store:       store,
		interval:    interval,
		maxAttempts: maxAttempts,
		sleep:       sleepContext,
		logger:      logger,
		metrics:     metrics,
	}
}

// Activate makes t the session's current tenant, polling the provider until a
// freshly issued token carries t's org claim or the attempt budget runs out.
// Only context cancellation and a missing session abort; every other failure
// degrades to a best-effort activation.
func (a *Activator) Activate(ctx context.Context, t tenant.Tenant) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Fast path: provider already reports the tenant active and the current
	// token's claim matches. Zero polling iterations.
	active, err := a.session.Provider().ActiveTenant(ctx)
	if err != nil {
		if errors.Is(err, identity.ErrNoSession) {
			return nil, err
		}
		a.logger.Warn("active-tenant lookup failed, proceeding to switch",
			zap.String("org_id", t.ID), zap.Error(err))
	}
	if err == nil && active == t.ID {
		raw, err := a.session.Token(ctx, identity.TokenOptions{})
		if errors.Is(err, identity.ErrNoSession) {
			return nil, err
		}
		if err == nil {
			if claims, derr := token.Decode(raw); derr == nil && claims.MatchesTenant(t.ID) {
				res := &Result{OrgID: t.ID, Attempts: 0, Verified: true, LastClaim: claims.OrgID}
				a.finish(ctx, t, res)
				return res, nil
			}
		}
	}

	if err := a.session.Provider().SwitchTenant(ctx, t.ID); err != nil {
		if errors.Is(err, identity.ErrNoSession) {
			return nil, err
		}
		// The switch call itself failed. Set the tenant locally anyway; the
		// handshake never surfaces a hard error to the user.
		a.logger.Warn("tenant switch call failed, activating unverified",
			zap.String("org_id", t.ID), zap.Error(err))
		res := &Result{OrgID: t.ID, Attempts: 0, Verified: false}
		a.metrics.RecordUnverifiedActivation(ctx, t.ID)
		a.finish(ctx, t, res)
		return res, nil
	}

	m := NewMachine(t.ID, a.maxAttempts)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := a.session.Token(ctx, identity.TokenOptions{SkipCache: true})
		if errors.Is(err, identity.ErrNoSession) {
			return nil, err
		}
		claim := ""
		if err != nil {
			a.logger.Debug("token fetch failed during activation",
				zap.String("org_id", t.ID), zap.Int("attempt", m.Attempts()+1), zap.Error(err))
		} else if claims, derr := token.Decode(raw); derr == nil {
			claim = claims.OrgID
		}

		switch m.Observe(claim) {
		case StateActivated:
			a.metrics.RecordActivationAttempts(ctx, t.ID, m.Attempts())
			res := &Result{OrgID: t.ID, Attempts: m.Attempts(), Verified: true, LastClaim: m.LastClaim()}
			a.finish(ctx, t, res)
			return res, nil
		case StateActivatedUnverified:
			a.metrics.RecordActivationAttempts(ctx, t.ID, m.Attempts())
			a.metrics.RecordUnverifiedActivation(ctx, t.ID)
			a.logger.Warn("activation retries exhausted, proceeding with unverified claim",
				zap.String("org_id", t.ID),
				zap.Int("attempts", m.Attempts()),
				zap.String("last_claim", m.LastClaim()))
			res := &Result{OrgID: t.ID, Attempts: m.Attempts(), Verified: false, LastClaim: m.LastClaim()}
			a.finish(ctx, t, res)
			return res, nil
		}

		if err := a.sleep(ctx, a.interval); err != nil {
			return nil, err
		}
	}
}

// finish records the tenant as current and persists its id. Persistence
// failures are logged, not propagated; activation already succeeded from the
// caller's point of view.
func (a *Activator) finish(ctx context.Context, t tenant.Tenant, res *Result) {
	a.session.SetCurrent(t)
	if a.store != nil {
		if err := a.store.SetLastOrgID(ctx, t.ID); err != nil {
			a.logger.Warn("persisting last org id failed",
				zap.String("org_id", t.ID), zap.Error(err))
		}
	}
	a.logger.Info("tenant activated",
		zap.String("org_id", t.ID),
		zap.Int("attempts", res.Attempts),
		zap.Bool("verified", res.Verified))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
