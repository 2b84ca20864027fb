package cache

import (
	"context"
	"errors"
	"sync"
)

// ErrFetchCancelled is returned by Fetch when the read was cancelled by a
// competing mutation. The stale response is discarded, never written back.
var ErrFetchCancelled = errors.New("fetch cancelled by mutation")

// Store is the in-memory collection cache. Values are replaced wholesale, not
// mutated in place; under that discipline Snapshot/Restore are verbatim.
// A mutex guards the maps; flow-level ordering comes from the
// cancel-before-write discipline in Mutator.
type Store struct {
	mu       sync.Mutex
	entries  map[Key]interface{}
	inflight map[Key][]context.CancelFunc
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		entries:  make(map[Key]interface{}),
		inflight: make(map[Key][]context.CancelFunc),
	}
}

// Get returns the cached value for k.
func (s *Store) Get(k Key) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[k]
	return v, ok
}

// Set replaces the cached value for k.
func (s *Store) Set(k Key, v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[k] = v
}

// Invalidate drops the cached value for k.
func (s *Store) Invalidate(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, k)
}

// InvalidatePrefix drops every page variant under p, so the next read pulls
// authoritative server state.
func (s *Store) InvalidatePrefix(p Prefix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if p.Matches(k) {
			delete(s.entries, k)
		}
	}
}

// Keys returns every cached key under p.
func (s *Store) Keys(p Prefix) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []Key
	for k := range s.entries {
		if p.Matches(k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Snapshot captures every cached entry under p for rollback.
type Snapshot struct {
	prefix  Prefix
	entries map[Key]interface{}
}

// Len returns the number of snapshotted keys.
func (s *Snapshot) Len() int { return len(s.entries) }

// Snapshot captures all entries under p.
func (s *Store) Snapshot(p Prefix) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &Snapshot{prefix: p, entries: make(map[Key]interface{})}
	for k, v := range s.entries {
		if p.Matches(k) {
			snap.entries[k] = v
		}
	}
	return snap
}

// Restore puts every key under the snapshot's prefix back to its snapshotted
// state: snapshotted entries verbatim, entries created since then removed.
func (s *Store) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.entries {
		if snap.prefix.Matches(k) {
			delete(s.entries, k)
		}
	}
	for k, v := range snap.entries {
		s.entries[k] = v
	}
}

// Fetch reads through the cache: a hit returns immediately, a miss runs fetch
// under a cancellable context registered as in-flight for k. If a mutation
// cancels the read, the response is discarded and ErrFetchCancelled returned;
// the optimistic value wins over the stale refetch.
func (s *Store) Fetch(ctx context.Context, k Key, fetch func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if v, ok := s.Get(k); ok {
		return v, nil
	}

	fctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.registerInflight(k, cancel)
	defer s.unregisterInflight(k)

	v, err := fetch(fctx)
	if fctx.Err() != nil && ctx.Err() == nil {
		return nil, ErrFetchCancelled
	}
	if err != nil {
		return nil, err
	}
	s.Set(k, v)
	return v, nil
}

// CancelInflight cancels every registered in-flight read under p. Writes are
// never registered here; once a mutation's request is sent it runs to
// completion or failure.
func (s *Store) CancelInflight(p Prefix) {
	s.mu.Lock()
	var cancels []context.CancelFunc
	for k, fns := range s.inflight {
		if p.Matches(k) {
			cancels = append(cancels, fns...)
			delete(s.inflight, k)
		}
	}
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

func (s *Store) registerInflight(k Key, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight[k] = append(s.inflight[k], cancel)
}

// unregisterInflight drops one registration for k. Exact identity does not
// matter: cancel funcs are idempotent and registrations are per-call.
func (s *Store) unregisterInflight(k Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fns := s.inflight[k]
	if len(fns) == 0 {
		return
	}
	s.inflight[k] = fns[:len(fns)-1]
	if len(s.inflight[k]) == 0 {
		delete(s.inflight, k)
	}
}
