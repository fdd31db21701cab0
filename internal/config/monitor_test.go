package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkpulse/linkpulse/internal/domain/schedule"
	"github.com/linkpulse/linkpulse/internal/domain/speed"
)

func testDefaults() Defaults {
	return Defaults{
		ConnectTarget:          "google.com",
		ConnectDefaultPort:     443,
		ConnectTimeoutSeconds:  1,
		ConnectIntervalSeconds: 1,
		BufferSeconds:          10,
		BufferMax:              30,
		PingEnabled:            true,
		SpeedEnabled:           true,
		SpeedMode:              "url",
		SpeedDurationSeconds:   30,
		SpeedIntervalSeconds:   900,
		SpeedTimeoutSeconds:    10,
		SpeedSkipIfOffline:     true,
		MinOutageSeconds:       60,
	}
}

func TestDefaultsMonitor(t *testing.T) {
	m, err := testDefaults().Monitor()
	require.NoError(t, err)

	assert.Equal(t, "google.com", m.ConnectTarget)
	assert.Equal(t, time.Second, m.ConnectInterval)
	assert.Equal(t, 10*time.Second, m.BufferMaxAge)
	assert.Equal(t, speed.ModeURL, m.SpeedMode)
	assert.Equal(t, 15*time.Minute, m.SpeedInterval)
	assert.Equal(t, time.Minute, m.MinOutage)
	assert.Empty(t, m.PingSchedules)
}

func TestDefaultsMonitorRejectsBadMode(t *testing.T) {
	d := testDefaults()
	d.SpeedMode = "carrier-pigeon"
	_, err := d.Monitor()
	assert.Error(t, err)
}

func TestMonitorApply(t *testing.T) {
	m, err := testDefaults().Monitor()
	require.NoError(t, err)

	require.NoError(t, m.apply("connect_target", "example.org:8080"))
	assert.Equal(t, "example.org:8080", m.ConnectTarget)

	require.NoError(t, m.apply("connect_interval_seconds", "0.5"))
	assert.Equal(t, 500*time.Millisecond, m.ConnectInterval)

	require.NoError(t, m.apply("speedtest_mode", "speedtest.pl"))
	assert.Equal(t, speed.ModeSpeedtestPL, m.SpeedMode)

	require.NoError(t, m.apply("ping_enabled", "false"))
	assert.False(t, m.PingEnabled)

	require.NoError(t, m.apply("smtp_min_outage_seconds", "120"))
	assert.Equal(t, 2*time.Minute, m.MinOutage)

	require.NoError(t, m.apply("ping_schedules", `[{"from":"01:00","to":"02:00"}]`))
	require.Len(t, m.PingSchedules, 1)

	// Malformed values error out and leave the previous value in place.
	assert.Error(t, m.apply("connect_interval_seconds", "fast"))
	assert.Equal(t, 500*time.Millisecond, m.ConnectInterval)
	assert.Error(t, m.apply("speedtest_mode", "bogus"))
	assert.Equal(t, speed.ModeSpeedtestPL, m.SpeedMode)

	// Unknown keys are ignored.
	assert.NoError(t, m.apply("future_knob", "1"))
}

func TestMonitorClamp(t *testing.T) {
	m := &Monitor{
		ConnectInterval: time.Millisecond,
		ConnectTimeout:  -time.Second,
		BufferMax:       0,
		BufferMaxAge:    -time.Minute,
		SpeedInterval:   time.Millisecond,
	}
	m.clamp()
	assert.Equal(t, 100*time.Millisecond, m.ConnectInterval)
	assert.Equal(t, time.Second, m.ConnectTimeout)
	assert.Equal(t, 1, m.BufferMax)
	assert.Equal(t, time.Duration(0), m.BufferMaxAge)
	assert.Equal(t, time.Second, m.SpeedInterval)
}

func TestMonitorBlocked(t *testing.T) {
	m, err := testDefaults().Monitor()
	require.NoError(t, err)
	now := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC) // Monday

	assert.False(t, m.Blocked(schedule.TestPing, now))
	assert.False(t, m.Blocked(schedule.TestSpeed, now))

	// Disabled wins over everything.
	m.SpeedEnabled = false
	assert.True(t, m.Blocked(schedule.TestSpeed, now))
	assert.False(t, m.Blocked(schedule.TestPing, now))

	// Inside a suppression window.
	m.PingSchedules = []schedule.Window{
		{From: schedule.NewTimeOfDay(22, 0), To: schedule.NewTimeOfDay(6, 0)},
	}
	assert.True(t, m.Blocked(schedule.TestPing, now))
	assert.False(t, m.Blocked(schedule.TestPing, now.Add(-12*time.Hour)))
}

func TestSeedValuesRoundTrip(t *testing.T) {
	d := testDefaults()
	vals := d.SeedValues()
	assert.Equal(t, "google.com", vals["connect_target"])
	assert.Equal(t, "true", vals["ping_enabled"])
	assert.Equal(t, "[]", vals["ping_schedules"], "empty schedule seeds as an empty list")

	// Applying every seeded value onto the base snapshot must be lossless.
	m, err := d.Monitor()
	require.NoError(t, err)
	before := *m
	for k, v := range vals {
		require.NoError(t, m.apply(k, v), "key %s", k)
	}
	assert.Equal(t, before, *m)
}
