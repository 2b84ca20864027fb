package cache

import (
	"context"

	"go.uber.org/zap"

	"lynqio/client/internal/telemetry"
)

// Notifier surfaces mutation failures to the user (the toast analogue).
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, string) {}

// Mutation describes one optimistic write.
type Mutation struct {
	// Prefix is the logical collection the write touches; every cached page
	// variant under it is snapshotted before the optimistic splice.
	Prefix Prefix
	// Apply splices the provisional entity into one cached page. It must
	// return a new value, never mutate cached in place; ok=false leaves the
	// page untouched.
	Apply func(k Key, cached interface{}) (updated interface{}, ok bool)
	// Call performs the network write. It is never retried automatically and,
	// once sent, never cancelled; rollback is the sole recovery action.
	Call func(ctx context.Context) error
	// FailureMessage is shown to the user when Call fails.
	FailureMessage string
}

// Mutator runs optimistic mutations against a Store.
type Mutator struct {
	store    *Store
	notifier Notifier
	logger   *zap.Logger
	metrics  *telemetry.Metrics
}

// NewMutator returns a Mutator. notifier may be nil; metrics may be nil.
func NewMutator(store *Store, notifier Notifier, logger *zap.Logger, metrics *telemetry.Metrics) *Mutator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mutator{store: store, notifier: notifier, logger: logger, metrics: metrics}
}

// Run executes the optimistic flow: cancel in-flight reads for the collection,
// snapshot every matching page, splice the provisional entity, then call the
// network. Success invalidates the collection so the next read pulls the
// authoritative state; failure restores every snapshotted page verbatim and
// notifies the user. The error is returned for callers that need it, but it
// never propagates past the hook boundary uncaught.
func (m *Mutator) Run(ctx context.Context, mut Mutation) error {
	m.store.CancelInflight(mut.Prefix)
	snap := m.store.Snapshot(mut.Prefix)

	if mut.Apply != nil {
		for _, k := range m.store.Keys(mut.Prefix) {
			v, ok := m.store.Get(k)
			if !ok {
				continue
			}
			if updated, ok := mut.Apply(k, v); ok {
				m.store.Set(k, updated)
			}
		}
	}

	if err := mut.Call(ctx); err != nil {
		m.store.Restore(snap)
		m.metrics.RecordRollback(ctx, string(mut.Prefix.Resource))
		m.logger.Warn("mutation failed, cache rolled back",
			zap.String("org_id", mut.Prefix.OrgID),
			zap.String("resource", string(mut.Prefix.Resource)),
			zap.Int("restored_keys", snap.Len()),
			zap.Error(err))
		msg := mut.FailureMessage
		if msg == "" {
			msg = "The change could not be saved. Please try again."
		}
		m.notifier.Notify(ctx, msg)
		return err
	}

	m.store.InvalidatePrefix(mut.Prefix)
	return nil
}
