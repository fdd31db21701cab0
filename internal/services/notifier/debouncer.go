package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/linkpulse/linkpulse/internal/domain/outage"
)

// OutageMailer is the collaborator that actually transmits the email.
type OutageMailer interface {
	NotifyOutageResolved(ctx context.Context, startedAt, endedAt time.Time, duration time.Duration) error
}

// Debouncer decides, once per closed outage, whether it was long enough to
// notify about. Mailer failures are logged and dropped; they never reach the
// tracking pipeline.
type Debouncer struct {
	log  *zap.Logger
	mail OutageMailer

	mu           sync.Mutex
	lastNotified time.Time // StartedAt of the last interval we notified for

	mSent    prometheus.Counter
	mSkipped prometheus.Counter
	mErrors  prometheus.Counter
}

// NewDebouncer accepts a nil mailer; decisions are still made and logged,
// nothing is sent.
func NewDebouncer(mail OutageMailer, log *zap.Logger) *Debouncer {
	return &Debouncer{
		log:  log.With(zap.String("component", "notifier.debouncer")),
		mail: mail,
		mSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notifier_emails_sent_total", Help: "Outage notifications sent",
		}),
		mSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notifier_outages_skipped_total", Help: "Closed outages below the notification threshold",
		}),
		mErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "notifier_errors_total", Help: "Failed notification sends",
		}),
	}
}

// OnOutageClosed runs the debounce decision for one closed interval.
func (d *Debouncer) OnOutageClosed(ctx context.Context, iv outage.Interval, minOutage time.Duration) {
	if iv.EndedAt == nil {
		return
	}
	duration := iv.Duration()
	log := d.log.With(
		zap.Time("started_at", iv.StartedAt),
		zap.Time("ended_at", *iv.EndedAt),
		zap.Duration("duration", duration),
	)

	if duration < minOutage {
		d.mSkipped.Inc()
		log.Info("outage below notification threshold", zap.Duration("min_outage", minOutage))
		return
	}

	d.mu.Lock()
	if iv.StartedAt.Equal(d.lastNotified) {
		d.mu.Unlock()
		return
	}
	d.lastNotified = iv.StartedAt
	d.mu.Unlock()

	if d.mail == nil {
		log.Info("notification suppressed, mailer disabled")
		return
	}
	if err := d.mail.NotifyOutageResolved(ctx, iv.StartedAt, *iv.EndedAt, duration); err != nil {
		d.mErrors.Inc()
		log.Warn("outage notification failed", zap.Error(err))
		return
	}
	d.mSent.Inc()
}
