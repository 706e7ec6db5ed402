// Package store holds the authoritative per-patient state snapshot and
// persists it best-effort. Every change is a pure old-to-new snapshot
// transformation applied atomically; persistence failure never corrupts
// or blocks the in-memory state.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/curalink/patient-booking/pkg/logging"
)

// ErrNoSnapshot is returned by persisters when nothing has been saved
// under the storage key yet.
var ErrNoSnapshot = errors.New("no snapshot persisted")

// Persister reads and writes the serialized snapshot blob under one
// well-known storage key.
type Persister interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
	Delete(ctx context.Context) error
}

// MutateFunc transforms the previous snapshot into the next one. It
// receives a deep copy and must not retain references to it.
type MutateFunc func(Snapshot) Snapshot

type Store struct {
	mu        sync.Mutex
	snap      Snapshot
	persister Persister
	logger    *logging.Logger

	subMu sync.Mutex
	subs  []func(Snapshot)
}

func New(p Persister, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		snap:      initialSnapshot(),
		persister: p,
		logger:    logger,
	}
}

// Load replaces the in-memory state with the persisted snapshot. Any
// read or parse failure falls back to the initial state; Load never
// reports an error to the caller.
func (s *Store) Load(ctx context.Context) Snapshot {
	snap := initialSnapshot()

	blob, err := s.persister.Load(ctx)
	switch {
	case errors.Is(err, ErrNoSnapshot):
		// First run, nothing saved yet.
	case err != nil:
		s.logger.Warn("snapshot load failed, using initial state", "error", err)
	default:
		if err := json.Unmarshal(blob, &snap); err != nil {
			s.logger.Warn("snapshot corrupt, using initial state", "error", err)
			snap = initialSnapshot()
		}
	}

	s.mu.Lock()
	s.snap = snap
	out := s.snap.Clone()
	s.mu.Unlock()
	return out
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// Mutate applies fn to the current snapshot atomically, persists the
// result best-effort, notifies subscribers, and returns the new state.
func (s *Store) Mutate(ctx context.Context, fn MutateFunc) Snapshot {
	s.mu.Lock()
	next := fn(s.snap.Clone())
	s.snap = next
	out := next.Clone()
	s.mu.Unlock()

	s.persist(ctx, out)
	s.notify(out)
	return out
}

// Reset clears the persisted blob and restores the initial state.
func (s *Store) Reset(ctx context.Context) Snapshot {
	if err := s.persister.Delete(ctx); err != nil {
		s.logger.Warn("snapshot delete failed", "error", err)
	}

	s.mu.Lock()
	s.snap = initialSnapshot()
	out := s.snap.Clone()
	s.mu.Unlock()

	s.notify(out)
	return out
}

// Subscribe registers an observer invoked with every new snapshot. The
// callback runs outside the state lock.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) persist(ctx context.Context, snap Snapshot) {
	blob, err := json.Marshal(snap)
	if err != nil {
		s.logger.Warn("snapshot marshal failed, skipping save", "error", err)
		return
	}
	if err := s.persister.Save(ctx, blob); err != nil {
		s.logger.Warn("snapshot save failed", "error", err)
	}
}

func (s *Store) notify(snap Snapshot) {
	s.subMu.Lock()
	subs := make([]func(Snapshot), len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}
