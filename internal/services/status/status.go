// Package status exposes read-only snapshots of the engine for the API
// layer: current connectivity, last speed-test results, and whether a
// measurement is running right now.
package status

import (
	"context"
	"errors"
	"time"

	"github.com/linkpulse/linkpulse/internal/domain/outage"
	"github.com/linkpulse/linkpulse/internal/domain/speed"
	"github.com/linkpulse/linkpulse/internal/repository/postgres"
	"github.com/linkpulse/linkpulse/internal/services/connectivity"
	"github.com/linkpulse/linkpulse/internal/services/speedtest"
)

type Snapshot struct {
	Now time.Time `json:"now"`

	Up            bool             `json:"is_up"`
	LastSampleAt  *time.Time       `json:"last_sample_at,omitempty"`
	CurrentOutage *outage.Interval `json:"current_outage,omitempty"`

	LastSpeed         *speed.Result `json:"last_speed_test,omitempty"`
	LastGoodSpeed     *speed.Result `json:"last_successful_speed_test,omitempty"`
	SpeedRunning      bool          `json:"speedtest_running"`
	SpeedRunningSince *time.Time    `json:"speedtest_running_since,omitempty"`
}

type Provider struct {
	Tracker *connectivity.Tracker
	Speed   *speedtest.Runner
	Results speed.Repo
}

func (p *Provider) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Now: time.Now().UTC()}

	st := p.Tracker.Snapshot()
	snap.Up = st.Up
	if st.LastSample != nil {
		t := st.LastSample.Timestamp
		snap.LastSampleAt = &t
	}
	snap.CurrentOutage = st.CurrentOutage

	last, err := p.Results.Last(ctx)
	if err != nil && !errors.Is(err, postgres.ErrNotFound) {
		return nil, err
	}
	snap.LastSpeed = last

	good, err := p.Results.LastSuccessful(ctx)
	if err != nil && !errors.Is(err, postgres.ErrNotFound) {
		return nil, err
	}
	snap.LastGoodSpeed = good

	running, since := p.Speed.Running()
	snap.SpeedRunning = running
	if running {
		snap.SpeedRunningSince = &since
	}
	return snap, nil
}
