package config

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

// Settings is the durable key/value overlay consumed by the Store. The HTTP
// layer writes it; the engine only reads and seeds it.
type Settings interface {
	GetAll(ctx context.Context) (map[string]string, error)
	EnsureDefault(ctx context.Context, key, value string) error
}

// Store publishes immutable Monitor snapshots. Current re-reads the overlay
// on every call, so each scheduling decision sees the latest settings while
// a tick that captured a snapshot keeps a stable view.
type Store struct {
	base     *Monitor
	defaults Defaults
	settings Settings
	log      *zap.Logger

	last atomic.Pointer[Monitor]
}

func NewStore(defaults Defaults, settings Settings, log *zap.Logger) (*Store, error) {
	base, err := defaults.Monitor()
	if err != nil {
		return nil, err
	}
	s := &Store{
		base:     base,
		defaults: defaults,
		settings: settings,
		log:      log.With(zap.String("component", "config.store")),
	}
	s.last.Store(base)
	return s, nil
}

// Seed writes the boot-time defaults into the overlay for keys that have no
// row yet.
func (s *Store) Seed(ctx context.Context) error {
	for key, value := range s.defaults.SeedValues() {
		if err := s.settings.EnsureDefault(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Current returns the effective configuration. On overlay read failure the
// previous snapshot is returned so the loops keep running.
func (s *Store) Current(ctx context.Context) *Monitor {
	rows, err := s.settings.GetAll(ctx)
	if err != nil {
		s.log.Warn("settings read failed, using previous snapshot", zap.Error(err))
		return s.last.Load()
	}

	m := *s.base
	for key, value := range rows {
		if err := m.apply(key, value); err != nil {
			s.log.Debug("ignoring malformed setting",
				zap.String("key", key), zap.String("value", value), zap.Error(err))
		}
	}
	m.clamp()

	s.last.Store(&m)
	return &m
}
