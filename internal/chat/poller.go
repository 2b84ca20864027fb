// Package chat approximates live updates for a conversation panel without a
// persistent connection: a fixed-interval poll of the authoritative message
// list, with change detection so unchanged fetches cause no redraw.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"lynqio/client/internal/api"
)

// Fetch returns the authoritative message list for the open channel.
type Fetch func(ctx context.Context) ([]api.Message, error)

// OnChange is invoked only when the fetched list differs from the previous
// one. The callback owns scroll/redraw behavior.
type OnChange func(messages []api.Message)

// Poller re-fetches the open channel's messages on a fixed interval. Delivery
// guarantee is "eventually visible within one polling interval"; ordering is
// whatever order the backend returns.
type Poller struct {
	interval time.Duration
	fetch    Fetch
	onChange OnChange
	logger   *zap.Logger

	lastSnapshot []byte
}

// NewPoller returns a Poller. interval <= 0 falls back to 5s.
func NewPoller(interval time.Duration, fetch Fetch, onChange OnChange, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		interval: interval,
		fetch:    fetch,
		onChange: onChange,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled. The first fetch always fires OnChange so
// the panel renders its initial state. Fetch errors are logged and the tick
// skipped; the next interval retries from scratch.
func (p *Poller) Run(ctx context.Context) error {
	p.pollOnce(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

// pollOnce fetches and fires OnChange when the serialized snapshot differs
// from the previous one. Two byte-identical consecutive lists never trigger
// a state replacement.
func (p *Poller) pollOnce(ctx context.Context) {
	msgs, err := p.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Debug("chat poll failed", zap.Error(err))
		}
		return
	}
	snap, err := snapshot(msgs)
	if err != nil {
		p.logger.Debug("chat snapshot failed", zap.Error(err))
		return
	}
	if bytes.Equal(snap, p.lastSnapshot) {
		return
	}
	p.lastSnapshot = snap
	if p.onChange != nil {
		p.onChange(msgs)
	}
}

// snapshot serializes the list deterministically; encoding/json marshals
// struct fields in declaration order, which is stable across calls.
func snapshot(msgs []api.Message) ([]byte, error) {
	return json.Marshal(msgs)
}
