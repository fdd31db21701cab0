package connectivity

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/linkpulse/linkpulse/internal/config"
	"github.com/linkpulse/linkpulse/internal/domain/schedule"
)

// Runner drives the connectivity loop: probe, buffer, track, flush. Ticks
// are aligned to the probe interval counted from local midnight.
type Runner struct {
	Log     *zap.Logger
	Cfgs    *config.Store
	Probe   *Prober
	Buf     *Buffer
	Tracker *Tracker

	mProbes    prometheus.Counter
	mUp        prometheus.Counter
	mDown      prometheus.Counter
	mFlushes   prometheus.Counter
	mFlushErrs prometheus.Counter
	mLatency   prometheus.Histogram
}

func New(log *zap.Logger, cfgs *config.Store, probe *Prober, buf *Buffer, tracker *Tracker) *Runner {
	return &Runner{
		Log:     log.With(zap.String("component", "connectivity.runner")),
		Cfgs:    cfgs,
		Probe:   probe,
		Buf:     buf,
		Tracker: tracker,
		mProbes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connectivity_probes_total", Help: "TCP connect probes attempted",
		}),
		mUp: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connectivity_up_total", Help: "Probes that found the link up",
		}),
		mDown: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connectivity_down_total", Help: "Probes that found the link down",
		}),
		mFlushes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connectivity_buffer_flushes_total", Help: "Sample batches flushed to storage",
		}),
		mFlushErrs: promauto.NewCounter(prometheus.CounterOpts{
			Name: "connectivity_buffer_flush_errors_total", Help: "Failed sample batch flushes",
		}),
		mLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "connectivity_probe_latency_seconds",
			Help:    "TCP connect latency",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Runner) tick(ctx context.Context, cfg *config.Monitor) {
	now := time.Now()

	if !cfg.Blocked(schedule.TestPing, now) {
		s := r.Probe.Check(ctx, cfg.ConnectTarget, cfg.ConnectDefaultPort, cfg.ConnectTimeout)
		r.mProbes.Inc()
		r.mLatency.Observe(s.LatencyMS / 1000)
		if s.Up {
			r.mUp.Inc()
		} else {
			r.mDown.Inc()
		}
		r.Buf.Add(s)
		r.Tracker.Observe(ctx, s)
	}

	n, err := r.Buf.FlushIfDue(ctx, now, cfg.BufferMax, cfg.BufferMaxAge)
	if err != nil {
		r.mFlushErrs.Inc()
		return
	}
	if n > 0 {
		r.mFlushes.Inc()
		r.Log.Debug("flushed samples", zap.Int("count", n))
	}
}

func (r *Runner) Run(ctx context.Context) error {
	defer r.finalFlush()

	for {
		cfg := r.Cfgs.Current(ctx)
		r.tick(ctx, cfg)

		timer := time.NewTimer(schedule.AlignedDelay(time.Now(), cfg.ConnectInterval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// finalFlush drains the buffer on shutdown with a fresh short-lived context.
func (r *Runner) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := r.Buf.Flush(ctx); err != nil {
		r.Log.Warn("final flush failed", zap.Error(err))
	}
}
