package speedtest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/linkpulse/linkpulse/internal/config"
	"github.com/linkpulse/linkpulse/internal/domain/schedule"
	"github.com/linkpulse/linkpulse/internal/domain/speed"
	"github.com/linkpulse/linkpulse/internal/obs/retry"
)

// LinkStatus is the slice of the outage tracker the scheduler consults.
type LinkStatus interface {
	Up() bool
}

// Runner is the speed-test scheduler. Each poll tick it re-reads the
// configuration and decides whether a measurement is due; at most one
// measurement is in flight at any time. Measurements run on their own
// goroutine so a slow transfer never delays the next scheduling decision.
type Runner struct {
	Log      *zap.Logger
	Cfgs     *config.Store
	Results  speed.Repo
	Link     LinkStatus
	PollTick time.Duration

	manual   chan struct{}
	inFlight atomic.Bool

	mu           sync.Mutex
	lastStarted  time.Time
	runningSince time.Time
	unsaved      []*speed.Result

	mRuns           prometheus.Counter
	mErrors         prometheus.Counter
	mSkippedOffline prometheus.Counter
	mDuration       prometheus.Histogram
}

func New(log *zap.Logger, cfgs *config.Store, results speed.Repo, link LinkStatus, pollTick time.Duration) *Runner {
	if pollTick <= 0 {
		pollTick = 2 * time.Second
	}
	return &Runner{
		Log:      log.With(zap.String("component", "speedtest.runner")),
		Cfgs:     cfgs,
		Results:  results,
		Link:     link,
		PollTick: pollTick,
		manual:   make(chan struct{}, 1),
		mRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speedtest_runs_total", Help: "Speed test measurements started",
		}),
		mErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speedtest_errors_total", Help: "Speed test measurements that recorded an error",
		}),
		mSkippedOffline: promauto.NewCounter(prometheus.CounterOpts{
			Name: "speedtest_skipped_offline_total", Help: "Due measurements skipped because the link was down",
		}),
		mDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "speedtest_duration_seconds",
			Help:    "Wall time of one measurement",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}),
	}
}

// RequestRun asks for an immediate measurement, bypassing the interval
// check. The disable/blocked/offline/in-flight guards still apply; a request
// arriving while any guard holds is discarded, not queued.
func (r *Runner) RequestRun() {
	select {
	case r.manual <- struct{}{}:
	default:
	}
}

// Running reports whether a measurement is in flight and since when.
func (r *Runner) Running() (bool, time.Time) {
	if !r.inFlight.Load() {
		return false, time.Time{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return true, r.runningSince
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.PollTick)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	r.flushUnsaved(ctx)

	cfg := r.Cfgs.Current(ctx)
	now := time.Now()
	manual := r.consumeManual()

	if cfg.Blocked(schedule.TestSpeed, now) {
		if manual {
			r.Log.Info("manual run discarded, speed testing disabled or schedule-blocked")
		}
		return
	}
	if cfg.SpeedSkipIfOffline && !r.Link.Up() {
		if manual || r.due(now, cfg.SpeedInterval) {
			r.mSkippedOffline.Inc()
			r.Log.Debug("speed test skipped, link offline")
		}
		return
	}
	if !manual && !r.due(now, cfg.SpeedInterval) {
		return
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		return
	}

	r.mu.Lock()
	r.lastStarted = now
	r.runningSince = now
	r.mu.Unlock()

	go r.execute(ctx, cfg, now)
}

// due reports whether an interval boundary has passed since the last run.
// Boundaries are multiples of the interval counted from local midnight, so
// runs land on the same wall-clock grid across restarts.
func (r *Runner) due(now time.Time, interval time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastStarted.Before(schedule.LastAligned(now, interval))
}

func (r *Runner) consumeManual() bool {
	select {
	case <-r.manual:
		return true
	default:
		return false
	}
}

// execute performs one measurement and always persists its result, success
// or failure, before clearing the in-flight flag.
func (r *Runner) execute(ctx context.Context, cfg *config.Monitor, startedAt time.Time) {
	defer func() {
		r.mu.Lock()
		r.runningSince = time.Time{}
		r.mu.Unlock()
		r.inFlight.Store(false)
	}()

	r.mRuns.Inc()
	res := &speed.Result{
		StartedAt: startedAt.UTC(),
		Mode:      cfg.SpeedMode,
	}

	start := time.Now()
	switch cfg.SpeedMode {
	case speed.ModeSpeedtestNet, speed.ModeSpeedtestPL:
		octx, ocancel := context.WithTimeout(ctx, ooklaBudget(cfg.SpeedTimeout))
		measureOokla(octx, cfg.SpeedMode, res)
		ocancel()
	default:
		measureURL(ctx, cfg.SpeedURL, cfg.SpeedDuration, cfg.SpeedTimeout, res)
	}
	if res.Duration == 0 {
		res.Duration = time.Since(start)
	}
	r.mDuration.Observe(time.Since(start).Seconds())

	if res.OK() {
		r.Log.Info("speed test finished",
			zap.String("mode", string(res.Mode)),
			zap.Float64("download_mbps", res.DownloadMbps),
			zap.Duration("duration", res.Duration))
	} else {
		r.mErrors.Inc()
		r.Log.Warn("speed test failed",
			zap.String("mode", string(res.Mode)),
			zap.String("error", res.Error))
	}

	r.persist(ctx, res)
}

// ooklaBudget bounds a whole speedtest.net measurement. The configured
// timeout is per network phase (server list, ping, download, upload), so a
// run gets four of them, with a floor wide enough for slow transfers. A
// stalled transfer must release the in-flight slot eventually.
func ooklaBudget(perPhase time.Duration) time.Duration {
	b := 4 * perPhase
	if b < time.Minute {
		b = time.Minute
	}
	return b
}

func (r *Runner) persist(ctx context.Context, res *speed.Result) {
	err := retry.Do(ctx, func() error { return r.Results.Insert(ctx, res) },
		retry.StoragePolicy("speed_insert", r.Log))
	if err != nil {
		r.mu.Lock()
		r.unsaved = append(r.unsaved, res)
		r.mu.Unlock()
	}
}

// flushUnsaved retries results whose insert failed on an earlier tick.
func (r *Runner) flushUnsaved(ctx context.Context) {
	r.mu.Lock()
	pending := r.unsaved
	r.unsaved = nil
	r.mu.Unlock()

	for i, res := range pending {
		if err := r.Results.Insert(ctx, res); err != nil {
			r.mu.Lock()
			r.unsaved = append(pending[i:], r.unsaved...)
			r.mu.Unlock()
			return
		}
	}
}
