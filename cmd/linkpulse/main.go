package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/linkpulse/linkpulse/internal/config"
	"github.com/linkpulse/linkpulse/internal/domain/outage"
	"github.com/linkpulse/linkpulse/internal/obs"
	pg "github.com/linkpulse/linkpulse/internal/repository/postgres"
	"github.com/linkpulse/linkpulse/internal/services/connectivity"
	"github.com/linkpulse/linkpulse/internal/services/notifier"
	"github.com/linkpulse/linkpulse/internal/services/speedtest"
	"github.com/linkpulse/linkpulse/internal/services/status"
)

func main() {
	root, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(obs.LogConfig{
		Level: cfg.LogLevel,
		App:   "linkpulse",
		Env:   os.Getenv("ENV"),
		Ver:   os.Getenv("APP_VERSION"),
	})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	db, err := pg.New(root, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	samples := pg.NewSampleRepo(db)
	outages := pg.NewOutageRepo(db)
	speeds := pg.NewSpeedRepo(db)
	settings := pg.NewSettingsRepo(db)

	store, err := config.NewStore(cfg.Monitor, settings, l)
	if err != nil {
		l.Fatal("config store", zap.Error(err))
	}
	if err := store.Seed(root); err != nil {
		l.Fatal("seed settings", zap.Error(err))
	}

	var mailer *notifier.Mailer
	if cfg.SMTP.Enabled {
		mailer = notifier.NewMailer(cfg.SMTP, l)
	}
	debouncer := notifier.NewDebouncer(mailerOrNil(mailer), l)

	tracker := connectivity.NewTracker(outages, l)
	if err := tracker.Restore(root); err != nil {
		l.Warn("restore outage state", zap.Error(err))
	}
	tracker.OnClosed = func(iv outage.Interval) {
		// The debounce decision reads the threshold in force at close time
		// and runs off the probe goroutine so SMTP latency never delays it.
		minOutage := store.Current(root).MinOutage
		go debouncer.OnOutageClosed(root, iv, minOutage)
	}

	connRunner := connectivity.New(l, store, connectivity.NewProber(), connectivity.NewBuffer(samples, l), tracker)
	speedRunner := speedtest.New(l, store, speeds, tracker, cfg.SpeedPollTick)

	statusProvider := &status.Provider{Tracker: tracker, Speed: speedRunner, Results: speeds}

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l, obs.Route{Pattern: "/statusz", Handler: statusHandler(statusProvider)})

	errCh := make(chan error, 2)
	go func() { errCh <- connRunner.Run(root) }()
	go func() { errCh <- speedRunner.Run(root) }()

	select {
	case <-root.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}

func mailerOrNil(m *notifier.Mailer) notifier.OutageMailer {
	if m == nil {
		return nil
	}
	return m
}

func statusHandler(p *status.Provider) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap, err := p.Snapshot(r.Context())
		if err != nil {
			http.Error(w, "status unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	})
}
