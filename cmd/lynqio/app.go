package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"lynqio/client/internal/activation"
	"lynqio/client/internal/api"
	"lynqio/client/internal/cache"
	"lynqio/client/internal/config"
	"lynqio/client/internal/gating"
	"lynqio/client/internal/identity"
	"lynqio/client/internal/logging"
	"lynqio/client/internal/state"
	statemigrate "lynqio/client/internal/state/migrate"
	"lynqio/client/internal/telemetry"
	"lynqio/client/internal/tenant"
)

// app holds the wired client for one command invocation.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	providers *telemetry.Providers
	metrics   *telemetry.Metrics

	provider  *identity.RESTProvider
	session   *identity.Session
	store     *state.Store
	cacheSt   *cache.Store
	activator *activation.Activator
	gate      *gating.Evaluator

	runs      *api.RunService
	prospects *api.ProspectService
	messages  *api.MessageService
	channels  *api.ChannelService
	members   *api.MemberService
	usage     *api.UsageService
}

// stderrNotifier is the CLI's toast analogue: failure notifications land on
// stderr without aborting the command output.
type stderrNotifier struct{}

func (stderrNotifier) Notify(_ context.Context, message string) {
	fmt.Fprintln(os.Stderr, message)
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		return nil, err
	}

	providers, err := telemetry.NewProviders(ctx, cfg.OTLPEndpoint, "lynqio-client", cfg.Env != "production")
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	metrics, err := telemetry.NewMetrics(providers.MeterProvider.Meter("lynqio/client"))
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	store, err := state.Open(cfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := statemigrate.Run(state.DBPath(cfg.StateDir), "up"); err != nil && !errors.Is(err, statemigrate.ErrNoChange) {
		_ = store.Close()
		return nil, fmt.Errorf("state migrate: %w", err)
	}

	provider := identity.NewRESTProvider(cfg.AuthURL, cfg.RequestTimeoutDuration(), logger)
	if key, err := store.SessionKey(ctx); err == nil && key != "" {
		provider.SetSessionKey(key)
	}
	session := identity.NewSession(provider)

	cacheStore := cache.NewStore()
	mutator := cache.NewMutator(cacheStore, stderrNotifier{}, logger, metrics)
	client := api.NewClient(cfg.APIURL, cfg.GatewayKey, session, cfg.RequestTimeoutDuration(), logger)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		providers: providers,
		metrics:   metrics,
		provider:  provider,
		session:   session,
		store:     store,
		cacheSt:   cacheStore,
		activator: activation.NewActivator(session, store,
			cfg.ActivationIntervalDuration(), cfg.ActivationMaxAttempts, logger, metrics),
		gate:      gating.NewEvaluator(nil, logger),
		runs:      api.NewRunService(client, cacheStore, mutator),
		prospects: api.NewProspectService(client, cacheStore, mutator),
		messages:  api.NewMessageService(client, cacheStore, mutator),
		channels:  api.NewChannelService(client, cacheStore),
		members:   api.NewMemberService(client, cacheStore, mutator),
		usage:     api.NewUsageService(client, cacheStore),
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing state store failed", zap.Error(err))
	}
	if err := a.providers.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// ensureActive makes sure the session has a current tenant, biasing toward
// the last-activated org id persisted locally. Falls back to the first
// membership when nothing is persisted.
func (a *app) ensureActive(ctx context.Context) (tenant.Tenant, error) {
	if t, ok := a.session.Current(); ok {
		return t, nil
	}

	ms, err := a.provider.Memberships(ctx)
	if err != nil {
		if errors.Is(err, identity.ErrNoSession) {
			return tenant.Tenant{}, fmt.Errorf("not logged in: run `lynqio login` first")
		}
		return tenant.Tenant{}, err
	}
	if len(ms) == 0 {
		return tenant.Tenant{}, errors.New("no organization memberships")
	}
	if err := a.store.SaveMemberships(ctx, ms); err != nil {
		a.logger.Warn("caching memberships failed", zap.Error(err))
	}

	target := ms[0].Tenant
	if lastID, err := a.store.LastOrgID(ctx); err == nil && lastID != "" {
		for _, m := range ms {
			if m.Tenant.ID == lastID {
				target = m.Tenant
				break
			}
		}
	}

	res, err := a.activator.Activate(ctx, target)
	if err != nil {
		return tenant.Tenant{}, err
	}
	if !res.Verified {
		fmt.Fprintf(os.Stderr, "warning: organization %s activated without a verified token claim\n", res.OrgID)
	}
	return target, nil
}

// findMembership resolves an org id or name against the provider's
// memberships, falling back to the local cache when offline.
func (a *app) findMembership(ctx context.Context, idOrName string) (tenant.Membership, error) {
	ms, err := a.provider.Memberships(ctx)
	if err != nil {
		if errors.Is(err, identity.ErrNoSession) {
			return tenant.Membership{}, fmt.Errorf("not logged in: run `lynqio login` first")
		}
		a.logger.Warn("membership lookup failed, trying local cache", zap.Error(err))
		ms, err = a.store.ListMemberships(ctx)
		if err != nil {
			return tenant.Membership{}, err
		}
	} else if err := a.store.SaveMemberships(ctx, ms); err != nil {
		a.logger.Warn("caching memberships failed", zap.Error(err))
	}

	for _, m := range ms {
		if m.Tenant.ID == idOrName || m.Tenant.Name == idOrName {
			return m, nil
		}
	}
	return tenant.Membership{}, fmt.Errorf("no membership matching %q", idOrName)
}
