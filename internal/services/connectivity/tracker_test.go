package connectivity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/linkpulse/linkpulse/internal/domain/outage"
	"github.com/linkpulse/linkpulse/internal/domain/sample"
)

type fakeOutageRepo struct {
	mu        sync.Mutex
	nextID    int64
	intervals map[int64]outage.Interval
	current   *outage.Interval
	failAll   bool
}

func newFakeOutageRepo() *fakeOutageRepo {
	return &fakeOutageRepo{intervals: map[int64]outage.Interval{}}
}

func (f *fakeOutageRepo) Open(_ context.Context, i *outage.Interval) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("storage down")
	}
	f.nextID++
	i.ID = f.nextID
	f.intervals[i.ID] = *i
	return nil
}

func (f *fakeOutageRepo) Close(_ context.Context, id int64, endedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("storage down")
	}
	iv, ok := f.intervals[id]
	if !ok {
		return errors.New("not found")
	}
	iv.EndedAt = &endedAt
	f.intervals[id] = iv
	return nil
}

func (f *fakeOutageRepo) Current(context.Context) (*outage.Interval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current != nil {
		c := *f.current
		return &c, nil
	}
	return nil, nil
}

func (f *fakeOutageRepo) ListRange(context.Context, time.Time, time.Time) ([]outage.Interval, error) {
	return nil, nil
}

func (f *fakeOutageRepo) setFail(v bool) {
	f.mu.Lock()
	f.failAll = v
	f.mu.Unlock()
}

func (f *fakeOutageRepo) snapshot() []outage.Interval {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]outage.Interval, 0, len(f.intervals))
	for id := int64(1); id <= f.nextID; id++ {
		if iv, ok := f.intervals[id]; ok {
			out = append(out, iv)
		}
	}
	return out
}

func obs(up bool, at time.Time) sample.Sample {
	s := sample.Sample{Timestamp: at, Up: up}
	if !up {
		s.Error = "timeout"
	}
	return s
}

func TestTrackerOpensAndClosesOneInterval(t *testing.T) {
	repo := newFakeOutageRepo()
	tr := NewTracker(repo, zap.NewNop())

	var closedMu sync.Mutex
	var closed []outage.Interval
	tr.OnClosed = func(iv outage.Interval) {
		closedMu.Lock()
		closed = append(closed, iv)
		closedMu.Unlock()
	}

	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tr.Observe(ctx, obs(true, t0))
	assert.True(t, tr.Up())

	// Consecutive down samples open exactly one interval.
	tr.Observe(ctx, obs(false, t0.Add(time.Second)))
	tr.Observe(ctx, obs(false, t0.Add(2*time.Second)))
	assert.False(t, tr.Up())

	st := tr.Snapshot()
	require.NotNil(t, st.CurrentOutage)
	assert.Equal(t, t0.Add(time.Second), st.CurrentOutage.StartedAt)
	assert.True(t, st.CurrentOutage.Open())

	tr.Observe(ctx, obs(true, t0.Add(90*time.Second)))
	assert.True(t, tr.Up())
	assert.Nil(t, tr.Snapshot().CurrentOutage)

	closedMu.Lock()
	defer closedMu.Unlock()
	require.Len(t, closed, 1, "hook fires exactly once per outage")
	assert.Equal(t, t0.Add(time.Second), closed[0].StartedAt)
	require.NotNil(t, closed[0].EndedAt)
	assert.Equal(t, 89*time.Second, closed[0].Duration())

	ivs := repo.snapshot()
	require.Len(t, ivs, 1)
	assert.False(t, ivs[0].Open())
}

func TestTrackerNonOverlappingIntervals(t *testing.T) {
	repo := newFakeOutageRepo()
	tr := NewTracker(repo, zap.NewNop())
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	tr.Observe(ctx, obs(false, t0))
	tr.Observe(ctx, obs(true, t0.Add(10*time.Second)))
	tr.Observe(ctx, obs(false, t0.Add(20*time.Second)))
	tr.Observe(ctx, obs(true, t0.Add(30*time.Second)))

	ivs := repo.snapshot()
	require.Len(t, ivs, 2)
	for _, iv := range ivs {
		assert.False(t, iv.Open())
	}
	assert.True(t, ivs[0].EndedAt.Before(ivs[1].StartedAt) || ivs[0].EndedAt.Equal(ivs[1].StartedAt))
}

func TestTrackerRestoreAdoptsOpenOutage(t *testing.T) {
	repo := newFakeOutageRepo()
	started := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.current = &outage.Interval{ID: 7, StartedAt: started}

	tr := NewTracker(repo, zap.NewNop())
	require.NoError(t, tr.Restore(context.Background()))
	assert.False(t, tr.Up())

	// Recovery closes the adopted interval rather than opening a new one.
	repo.mu.Lock()
	repo.nextID = 7
	repo.intervals[7] = *repo.current
	repo.mu.Unlock()

	ended := started.Add(time.Minute)
	tr.Observe(context.Background(), obs(true, ended))

	ivs := repo.snapshot()
	require.Len(t, ivs, 1)
	require.NotNil(t, ivs[0].EndedAt)
	assert.Equal(t, ended, *ivs[0].EndedAt)
}

// slowOpenRepo holds the interval pointer for a while before filling in the
// ID, the way a loaded database would.
type slowOpenRepo struct {
	*fakeOutageRepo
	delay time.Duration
}

func (s *slowOpenRepo) Open(ctx context.Context, i *outage.Interval) error {
	time.Sleep(s.delay)
	return s.fakeOutageRepo.Open(ctx, i)
}

func TestTrackerSnapshotSafeDuringSlowOpen(t *testing.T) {
	repo := &slowOpenRepo{fakeOutageRepo: newFakeOutageRepo(), delay: 20 * time.Millisecond}
	tr := NewTracker(repo, zap.NewNop())
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	// Readers hammer Snapshot while the open write is in flight.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
				tr.Snapshot()
			}
		}
	}()

	tr.Observe(ctx, obs(false, t0))
	close(done)
	wg.Wait()

	st := tr.Snapshot()
	require.NotNil(t, st.CurrentOutage)
	assert.NotZero(t, st.CurrentOutage.ID, "assigned ID is visible once the write lands")
}

func TestTrackerRecoversFromStorageFailure(t *testing.T) {
	repo := newFakeOutageRepo()
	repo.setFail(true)
	tr := NewTracker(repo, zap.NewNop())
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	var hookCalls int
	tr.OnClosed = func(outage.Interval) { hookCalls++ }

	// Open and close while the store is down: state machine still advances,
	// the hook still fires, nothing is persisted yet.
	tr.Observe(ctx, obs(false, t0))
	tr.Observe(ctx, obs(true, t0.Add(5*time.Second)))
	assert.True(t, tr.Up())
	assert.Equal(t, 1, hookCalls)
	assert.Empty(t, repo.snapshot())

	// Store comes back; the next sample replays the unsaved interval.
	repo.setFail(false)
	tr.Observe(ctx, obs(true, t0.Add(6*time.Second)))

	ivs := repo.snapshot()
	require.Len(t, ivs, 1)
	assert.Equal(t, t0, ivs[0].StartedAt)
	require.NotNil(t, ivs[0].EndedAt)
	assert.Equal(t, t0.Add(5*time.Second), *ivs[0].EndedAt)
}
