// Package schedule implements suppression windows: recurring time-of-day /
// day-of-week ranges during which a test type must not run.
package schedule

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type TestType string

const (
	TestPing  TestType = "ping"
	TestSpeed TestType = "speed"
)

// TimeOfDay is minutes since local midnight, marshalled as "HH:MM".
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay { return TimeOfDay(hour*60 + minute) }

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time of day %q out of range", s)
	}
	return NewTimeOfDay(h, m), nil
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60) }

func (t TimeOfDay) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Weekday marshals as a short lowercase day name ("mon".."sun").
type Weekday time.Weekday

var dayNames = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func (d Weekday) String() string { return dayNames[int(d)%7] }

func (d Weekday) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Weekday) UnmarshalText(b []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(b)))
	for i, n := range dayNames {
		if name == n || strings.HasPrefix(name, n) {
			*d = Weekday(i)
			return nil
		}
	}
	return fmt.Errorf("unknown weekday %q", string(b))
}

// Window suppresses a test type between From and To on the listed days.
// From > To means the window wraps past midnight; the post-midnight part is
// attributed to the listed day, i.e. a Monday 22:00-06:00 window also blocks
// Tuesday 02:00. An empty day list means every day.
type Window struct {
	From TimeOfDay `json:"from"`
	To   TimeOfDay `json:"to"`
	Days []Weekday `json:"days,omitempty"`
}

func (w Window) dayListed(d time.Weekday) bool {
	if len(w.Days) == 0 {
		return true
	}
	for _, wd := range w.Days {
		if time.Weekday(wd) == d {
			return true
		}
	}
	return false
}

// Matches reports whether now falls inside the window.
func (w Window) Matches(now time.Time) bool {
	m := TimeOfDay(now.Hour()*60 + now.Minute())
	if w.From <= w.To {
		return w.dayListed(now.Weekday()) && m >= w.From && m <= w.To
	}
	if m >= w.From {
		return w.dayListed(now.Weekday())
	}
	if m <= w.To {
		return w.dayListed(now.AddDate(0, 0, -1).Weekday())
	}
	return false
}

// Blocked reports whether any window in the list matches now.
// An empty list never blocks.
func Blocked(windows []Window, now time.Time) bool {
	for _, w := range windows {
		if w.Matches(now) {
			return true
		}
	}
	return false
}

// ParseWindows decodes a JSON window list as stored in the settings overlay,
// e.g. [{"from":"22:00","to":"06:00","days":["mon","tue"]}].
func ParseWindows(raw string) ([]Window, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" || raw == "null" {
		return nil, nil
	}
	var out []Window
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("parse schedule windows: %w", err)
	}
	return out, nil
}
