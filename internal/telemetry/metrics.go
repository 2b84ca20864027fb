package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the client's instruments. A nil *Metrics is valid and records
// nothing, so packages can take it as an optional dependency.
type Metrics struct {
	activationAttempts    metric.Int64Counter
	unverifiedActivations metric.Int64Counter
	rollbacks             metric.Int64Counter
}

// NewMetrics creates the client instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	attempts, err := meter.Int64Counter("lynqio.activation.attempts",
		metric.WithDescription("Token polling attempts performed by the tenant activation loop"))
	if err != nil {
		return nil, err
	}
	unverified, err := meter.Int64Counter("lynqio.activation.unverified",
		metric.WithDescription("Activations completed without a verified tenant claim"))
	if err != nil {
		return nil, err
	}
	rollbacks, err := meter.Int64Counter("lynqio.mutation.rollbacks",
		metric.WithDescription("Optimistic mutations rolled back after a network failure"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		activationAttempts:    attempts,
		unverifiedActivations: unverified,
		rollbacks:             rollbacks,
	}, nil
}

// RecordActivationAttempts adds n polling attempts for the given org.
func (m *Metrics) RecordActivationAttempts(ctx context.Context, orgID string, n int) {
	if m == nil {
		return
	}
	m.activationAttempts.Add(ctx, int64(n), metric.WithAttributes(attribute.String("org_id", orgID)))
}

// RecordUnverifiedActivation counts an activation that timed out unverified.
func (m *Metrics) RecordUnverifiedActivation(ctx context.Context, orgID string) {
	if m == nil {
		return
	}
	m.unverifiedActivations.Add(ctx, 1, metric.WithAttributes(attribute.String("org_id", orgID)))
}

// RecordRollback counts an optimistic-mutation rollback for the resource kind.
func (m *Metrics) RecordRollback(ctx context.Context, resource string) {
	if m == nil {
		return
	}
	m.rollbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("resource", resource)))
}
