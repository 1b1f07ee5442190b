package catalog

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	infralogger "github.com/jonesrussell/north-cloud/categorizer/infrastructure/logger"
)

// ReloadObserver is told about every reload attempt.
type ReloadObserver interface {
	RecordReload(snap *Snapshot, err error)
}

// Store holds the active Snapshot. Readers call Current once per request and
// keep using that snapshot; Reload never mutates a published snapshot.
type Store struct {
	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64

	// reloadMu serialises compile-and-swap so generations stay ordered.
	reloadMu sync.Mutex
	resolver PredicateResolver
	logger   infralogger.Logger
	observer ReloadObserver
}

// StoreOption customises a Store.
type StoreOption func(*Store)

// WithReloadObserver reports reloads to o.
func WithReloadObserver(o ReloadObserver) StoreOption {
	return func(s *Store) { s.observer = o }
}

// NewStore compiles cfg and publishes it as the first snapshot.
func NewStore(cfg *Configuration, resolver PredicateResolver, log infralogger.Logger, opts ...StoreOption) (*Store, error) {
	if log == nil {
		log = infralogger.NewNop()
	}
	s := &Store{resolver: resolver, logger: log}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.Reload(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active snapshot.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Reload compiles cfg and, only if it is valid, swaps it in. On error the
// previous snapshot stays active.
func (s *Store) Reload(cfg *Configuration) (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	snap, err := Compile(cfg, s.resolver)
	if err != nil {
		s.logger.Error("Configuration rejected", infralogger.Error(err))
		if s.observer != nil {
			s.observer.RecordReload(nil, err)
		}
		return nil, fmt.Errorf("compile configuration: %w", err)
	}

	snap.Generation = s.generation.Add(1)
	snap.LoadedAt = time.Now().UTC()
	s.current.Store(snap)

	s.logger.Info("Configuration snapshot published",
		infralogger.String("version", snap.Version),
		infralogger.Int64("generation", int64(snap.Generation)),
		infralogger.Int("categories", len(snap.Categories)),
		infralogger.Int("keywords", snap.Keywords.Size()),
		infralogger.Int("rule_sets", len(snap.RuleSets)),
	)
	if s.observer != nil {
		s.observer.RecordReload(snap, nil)
	}
	return snap, nil
}

// ReloadFrom fetches a configuration from load and reloads it.
func (s *Store) ReloadFrom(ctx context.Context, load Loader) (*Snapshot, error) {
	cfg, err := load(ctx)
	if err != nil {
		s.logger.Error("Configuration load failed", infralogger.Error(err))
		if s.observer != nil {
			s.observer.RecordReload(nil, err)
		}
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return s.Reload(cfg)
}
