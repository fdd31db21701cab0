package schedule

import "time"

// AlignedDelay returns how long to wait so the next tick lands on an
// interval boundary counted from local midnight. A tick that fires exactly
// on a boundary schedules the next one instead of firing again immediately.
func AlignedDelay(now time.Time, interval time.Duration) time.Duration {
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	elapsed := now.Sub(midnight)
	rem := elapsed % interval
	if rem < 10*time.Millisecond {
		return interval
	}
	return interval - rem
}

// LastAligned returns the most recent interval boundary at or before now,
// counted from local midnight. A 900s interval yields :00, :15, :30, :45
// regardless of when the process started.
func LastAligned(now time.Time, interval time.Duration) time.Time {
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	elapsed := now.Sub(midnight)
	return midnight.Add(elapsed - elapsed%interval)
}
