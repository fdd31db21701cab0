package connectivity

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linkpulse/linkpulse/internal/domain/sample"
)

// Buffer accumulates probe outcomes and appends them to durable storage as a
// single batch once either the count threshold or the age threshold is hit.
// A failed write keeps every sample in place; the next tick retries. The
// buffer grows without bound under sustained storage failure — accepted
// trade-off, data loss is worse.
type Buffer struct {
	log  *zap.Logger
	repo sample.Repo

	mu        sync.Mutex
	pending   []sample.Sample
	lastFlush time.Time
}

func NewBuffer(repo sample.Repo, log *zap.Logger) *Buffer {
	return &Buffer{
		log:       log.With(zap.String("component", "connectivity.buffer")),
		repo:      repo,
		lastFlush: time.Now(),
	}
}

func (b *Buffer) Add(s sample.Sample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, s)
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

func (b *Buffer) due(now time.Time, max int, maxAge time.Duration) bool {
	if len(b.pending) == 0 {
		return false
	}
	if max < 1 {
		max = 1
	}
	if len(b.pending) >= max {
		return true
	}
	return maxAge >= 0 && now.Sub(b.lastFlush) >= maxAge
}

// FlushIfDue flushes when a threshold is hit and returns the number of
// samples written. On write failure nothing is cleared.
func (b *Buffer) FlushIfDue(ctx context.Context, now time.Time, max int, maxAge time.Duration) (int, error) {
	b.mu.Lock()
	if !b.due(now, max, maxAge) {
		b.mu.Unlock()
		return 0, nil
	}
	b.mu.Unlock()
	return b.Flush(ctx)
}

// Flush writes everything buffered so far. Samples added concurrently during
// the write stay buffered for the next flush.
func (b *Buffer) Flush(ctx context.Context) (int, error) {
	b.mu.Lock()
	n := len(b.pending)
	if n == 0 {
		b.mu.Unlock()
		return 0, nil
	}
	batch := make([]sample.Sample, n)
	copy(batch, b.pending[:n])
	b.mu.Unlock()

	if err := b.repo.AppendBatch(ctx, batch); err != nil {
		b.log.Warn("flush failed, keeping samples buffered",
			zap.Int("buffered", b.Len()), zap.Error(err))
		return 0, err
	}

	b.mu.Lock()
	b.pending = b.pending[n:]
	b.lastFlush = time.Now()
	b.mu.Unlock()
	return n, nil
}
