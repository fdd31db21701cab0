package outage

import "time"

// Interval is one contiguous down period. EndedAt == nil means the outage
// is still open; at most one open interval exists at any time.
type Interval struct {
	ID        int64      `json:"id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
}

func (i Interval) Open() bool { return i.EndedAt == nil }

func (i Interval) Duration() time.Duration {
	if i.EndedAt == nil {
		return 0
	}
	return i.EndedAt.Sub(i.StartedAt)
}

// Contains reports whether t falls inside the interval. An open interval
// contains every instant at or after its start.
func (i Interval) Contains(t time.Time) bool {
	if t.Before(i.StartedAt) {
		return false
	}
	return i.EndedAt == nil || !t.After(*i.EndedAt)
}
