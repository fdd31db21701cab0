package config

import (
	"fmt"
	"strconv"
	"time"

	"github.com/linkpulse/linkpulse/internal/domain/schedule"
	"github.com/linkpulse/linkpulse/internal/domain/speed"
)

// Monitor is the effective, immutable monitoring configuration. Loops take
// one snapshot per tick and never see a half-applied update.
type Monitor struct {
	ConnectTarget      string
	ConnectDefaultPort int
	ConnectTimeout     time.Duration
	ConnectInterval    time.Duration

	BufferMaxAge time.Duration
	BufferMax    int

	PingEnabled  bool
	SpeedEnabled bool

	SpeedMode          speed.Mode
	SpeedURL           string
	SpeedDuration      time.Duration
	SpeedInterval      time.Duration
	SpeedTimeout       time.Duration
	SpeedSkipIfOffline bool

	PingSchedules  []schedule.Window
	SpeedSchedules []schedule.Window

	MinOutage time.Duration
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// Monitor builds the base snapshot from the boot-time defaults.
func (d Defaults) Monitor() (*Monitor, error) {
	mode, err := speed.ParseMode(d.SpeedMode)
	if err != nil {
		return nil, err
	}
	pingWins, err := schedule.ParseWindows(d.PingSchedules)
	if err != nil {
		return nil, fmt.Errorf("ping_schedules: %w", err)
	}
	speedWins, err := schedule.ParseWindows(d.SpeedSchedules)
	if err != nil {
		return nil, fmt.Errorf("speed_schedules: %w", err)
	}

	m := &Monitor{
		ConnectTarget:      d.ConnectTarget,
		ConnectDefaultPort: d.ConnectDefaultPort,
		ConnectTimeout:     seconds(d.ConnectTimeoutSeconds),
		ConnectInterval:    seconds(d.ConnectIntervalSeconds),
		BufferMaxAge:       seconds(d.BufferSeconds),
		BufferMax:          d.BufferMax,
		PingEnabled:        d.PingEnabled,
		SpeedEnabled:       d.SpeedEnabled,
		SpeedMode:          mode,
		SpeedURL:           d.SpeedURL,
		SpeedDuration:      seconds(d.SpeedDurationSeconds),
		SpeedInterval:      seconds(d.SpeedIntervalSeconds),
		SpeedTimeout:       seconds(d.SpeedTimeoutSeconds),
		SpeedSkipIfOffline: d.SpeedSkipIfOffline,
		PingSchedules:      pingWins,
		SpeedSchedules:     speedWins,
		MinOutage:          seconds(d.MinOutageSeconds),
	}
	m.clamp()
	return m, nil
}

func (m *Monitor) clamp() {
	if m.ConnectInterval < 100*time.Millisecond {
		m.ConnectInterval = 100 * time.Millisecond
	}
	if m.ConnectTimeout <= 0 {
		m.ConnectTimeout = time.Second
	}
	if m.BufferMax < 1 {
		m.BufferMax = 1
	}
	if m.BufferMaxAge < 0 {
		m.BufferMaxAge = 0
	}
	if m.SpeedInterval < time.Second {
		m.SpeedInterval = time.Second
	}
}

// Schedules returns the suppression window list for a test type.
func (m *Monitor) Schedules(tt schedule.TestType) []schedule.Window {
	if tt == schedule.TestSpeed {
		return m.SpeedSchedules
	}
	return m.PingSchedules
}

// Enabled returns the top-level enable flag for a test type.
func (m *Monitor) Enabled(tt schedule.TestType) bool {
	if tt == schedule.TestSpeed {
		return m.SpeedEnabled
	}
	return m.PingEnabled
}

// Blocked reports whether the test type may not run at now: disabled
// entirely, or inside one of its suppression windows.
func (m *Monitor) Blocked(tt schedule.TestType, now time.Time) bool {
	if !m.Enabled(tt) {
		return true
	}
	return schedule.Blocked(m.Schedules(tt), now)
}

// apply overlays one settings-table entry onto the snapshot. Unknown keys
// are ignored, malformed values keep the previous value.
func (m *Monitor) apply(key, value string) error {
	switch key {
	case "connect_target":
		m.ConnectTarget = value
	case "connect_default_port":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		m.ConnectDefaultPort = n
	case "connect_timeout_seconds":
		return applySeconds(&m.ConnectTimeout, value)
	case "connect_interval_seconds":
		return applySeconds(&m.ConnectInterval, value)
	case "connectivity_check_buffer_seconds":
		return applySeconds(&m.BufferMaxAge, value)
	case "connectivity_check_buffer_max":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		m.BufferMax = n
	case "ping_enabled":
		return applyBool(&m.PingEnabled, value)
	case "speed_enabled":
		return applyBool(&m.SpeedEnabled, value)
	case "speedtest_mode":
		mode, err := speed.ParseMode(value)
		if err != nil {
			return err
		}
		m.SpeedMode = mode
	case "speedtest_url":
		m.SpeedURL = value
	case "speedtest_duration_seconds":
		return applySeconds(&m.SpeedDuration, value)
	case "speedtest_interval_seconds":
		return applySeconds(&m.SpeedInterval, value)
	case "speedtest_timeout_seconds":
		return applySeconds(&m.SpeedTimeout, value)
	case "speedtest_skip_if_offline":
		return applyBool(&m.SpeedSkipIfOffline, value)
	case "ping_schedules":
		wins, err := schedule.ParseWindows(value)
		if err != nil {
			return err
		}
		m.PingSchedules = wins
	case "speed_schedules":
		wins, err := schedule.ParseWindows(value)
		if err != nil {
			return err
		}
		m.SpeedSchedules = wins
	case "smtp_min_outage_seconds":
		return applySeconds(&m.MinOutage, value)
	}
	return nil
}

func applySeconds(dst *time.Duration, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	*dst = seconds(f)
	return nil
}

func applyBool(dst *bool, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

// SeedValues returns the settings rows to write at first start so the
// overlay is editable from day one.
func (d Defaults) SeedValues() map[string]string {
	fs := strconv.FormatFloat
	return map[string]string{
		"connect_target":                    d.ConnectTarget,
		"connect_default_port":              strconv.Itoa(d.ConnectDefaultPort),
		"connect_timeout_seconds":           fs(d.ConnectTimeoutSeconds, 'f', -1, 64),
		"connect_interval_seconds":          fs(d.ConnectIntervalSeconds, 'f', -1, 64),
		"connectivity_check_buffer_seconds": fs(d.BufferSeconds, 'f', -1, 64),
		"connectivity_check_buffer_max":     strconv.Itoa(d.BufferMax),
		"ping_enabled":                      strconv.FormatBool(d.PingEnabled),
		"speed_enabled":                     strconv.FormatBool(d.SpeedEnabled),
		"speedtest_mode":                    d.SpeedMode,
		"speedtest_url":                     d.SpeedURL,
		"speedtest_duration_seconds":        fs(d.SpeedDurationSeconds, 'f', -1, 64),
		"speedtest_interval_seconds":        fs(d.SpeedIntervalSeconds, 'f', -1, 64),
		"speedtest_timeout_seconds":         fs(d.SpeedTimeoutSeconds, 'f', -1, 64),
		"speedtest_skip_if_offline":         strconv.FormatBool(d.SpeedSkipIfOffline),
		"ping_schedules":                    emptyJSON(d.PingSchedules),
		"speed_schedules":                   emptyJSON(d.SpeedSchedules),
		"smtp_min_outage_seconds":           fs(d.MinOutageSeconds, 'f', -1, 64),
	}
}

func emptyJSON(s string) string {
	if s == "" {
		return "[]"
	}
	return s
}
