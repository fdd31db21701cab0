package connectivity

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/linkpulse/linkpulse/internal/domain/outage"
	"github.com/linkpulse/linkpulse/internal/domain/sample"
	"github.com/linkpulse/linkpulse/internal/obs/retry"
)

// Status is a consistent snapshot of the tracker state for readers outside
// the connectivity loop.
type Status struct {
	Up            bool
	LastSample    *sample.Sample
	CurrentOutage *outage.Interval
}

// Tracker is the UP/DOWN state machine. It opens an outage interval on the
// first down sample, closes it on the next up sample, and hands every closed
// interval to the OnClosed hook exactly once. Only the connectivity loop
// writes; other goroutines read snapshots.
type Tracker struct {
	log     *zap.Logger
	outages outage.Repo

	// OnClosed receives each closed interval once. Must not block for long;
	// the notifier hook dispatches to its own goroutine.
	OnClosed func(outage.Interval)

	mu          sync.RWMutex
	up          bool
	lastSample  *sample.Sample
	current     *outage.Interval
	pendingOpen bool
	unsaved     []outage.Interval // closed intervals whose persist failed
}

func NewTracker(outages outage.Repo, log *zap.Logger) *Tracker {
	return &Tracker{
		log:     log.With(zap.String("component", "connectivity.tracker")),
		outages: outages,
		up:      true, // optimistic until the first down sample
	}
}

// Restore adopts the open outage interval left behind by a previous run, so
// a restart mid-outage does not fabricate a recovery.
func (t *Tracker) Restore(ctx context.Context) error {
	cur, err := t.outages.Current(ctx)
	if err != nil {
		return err
	}
	if cur == nil {
		return nil
	}
	t.mu.Lock()
	t.up = false
	t.current = cur
	t.mu.Unlock()
	t.log.Info("resuming open outage", zap.Time("started_at", cur.StartedAt))
	return nil
}

func (t *Tracker) Up() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.up
}

func (t *Tracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st := Status{Up: t.up}
	if t.lastSample != nil {
		s := *t.lastSample
		st.LastSample = &s
	}
	if t.current != nil {
		c := *t.current
		st.CurrentOutage = &c
	}
	return st
}

// Observe feeds one probe outcome through the state machine.
func (t *Tracker) Observe(ctx context.Context, s sample.Sample) {
	t.mu.Lock()
	t.lastSample = &s
	wasUp := t.up

	switch {
	case wasUp && !s.Up:
		t.up = false
		t.current = &outage.Interval{StartedAt: s.Timestamp}
		t.pendingOpen = true
		t.mu.Unlock()
		t.log.Info("outage started", zap.Time("started_at", s.Timestamp), zap.String("error", s.Error))

	case !wasUp && s.Up:
		t.up = true
		closed := *t.current
		ended := s.Timestamp
		closed.EndedAt = &ended
		t.current = nil
		t.pendingOpen = false
		t.mu.Unlock()
		t.log.Info("outage ended",
			zap.Time("started_at", closed.StartedAt),
			zap.Time("ended_at", ended),
			zap.Duration("duration", closed.Duration()))
		t.persistClose(ctx, closed)
		if t.OnClosed != nil {
			t.OnClosed(closed)
		}

	default:
		t.mu.Unlock()
	}

	t.persistPending(ctx)
}

// persistPending retries outage writes that failed earlier. Called on every
// observed sample, so a recovered store catches up within one probe interval.
func (t *Tracker) persistPending(ctx context.Context) {
	t.mu.Lock()
	var open *outage.Interval
	if t.pendingOpen && t.current != nil {
		// Hand the repo a copy: it fills in the ID through the pointer,
		// and readers snapshot t.current concurrently under RLock.
		cp := *t.current
		open = &cp
	}
	unsaved := t.unsaved
	t.unsaved = nil
	t.mu.Unlock()

	if open != nil {
		if err := t.outages.Open(ctx, open); err != nil {
			t.log.Warn("persist open outage", zap.Error(err))
		} else {
			t.mu.Lock()
			if t.current != nil && t.current.StartedAt.Equal(open.StartedAt) {
				t.current.ID = open.ID
			}
			t.pendingOpen = false
			t.mu.Unlock()
		}
	}

	for i, iv := range unsaved {
		if err := t.saveClosed(ctx, iv); err != nil {
			t.mu.Lock()
			t.unsaved = append(t.unsaved, unsaved[i:]...)
			t.mu.Unlock()
			return
		}
	}
}

func (t *Tracker) persistClose(ctx context.Context, iv outage.Interval) {
	err := retry.Do(ctx, func() error { return t.saveClosed(ctx, iv) },
		retry.StoragePolicy("outage_close", t.log))
	if err != nil {
		t.mu.Lock()
		t.pendingOpen = false
		t.unsaved = append(t.unsaved, iv)
		t.mu.Unlock()
	}
}

// saveClosed persists a closed interval, opening it first if the open write
// never went through.
func (t *Tracker) saveClosed(ctx context.Context, iv outage.Interval) error {
	if iv.ID == 0 {
		open := outage.Interval{StartedAt: iv.StartedAt}
		if err := t.outages.Open(ctx, &open); err != nil {
			return err
		}
		iv.ID = open.ID
	}
	return t.outages.Close(ctx, iv.ID, *iv.EndedAt)
}
