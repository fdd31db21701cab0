package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlignedDelay(t *testing.T) {
	midnight := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Mid-interval: wait for the remainder.
	d := AlignedDelay(midnight.Add(10*time.Second), time.Minute)
	assert.Equal(t, 50*time.Second, d)

	// Exactly on a boundary: schedule the next interval, not zero.
	d = AlignedDelay(midnight.Add(2*time.Minute), time.Minute)
	assert.Equal(t, time.Minute, d)

	// Just past a boundary: treat as on-boundary to avoid a double fire.
	d = AlignedDelay(midnight.Add(time.Minute+5*time.Millisecond), time.Minute)
	assert.Equal(t, time.Minute, d)

	// Intervals below the floor are clamped.
	d = AlignedDelay(midnight, 10*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, d)
}

func TestLastAligned(t *testing.T) {
	midnight := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// A 15-minute grid counted from midnight.
	got := LastAligned(midnight.Add(12*time.Hour+7*time.Minute), 15*time.Minute)
	assert.Equal(t, midnight.Add(12*time.Hour), got)

	got = LastAligned(midnight.Add(12*time.Hour+15*time.Minute), 15*time.Minute)
	assert.Equal(t, midnight.Add(12*time.Hour+15*time.Minute), got, "a boundary is its own last boundary")

	got = LastAligned(midnight.Add(30*time.Second), time.Minute)
	assert.Equal(t, midnight, got)
}
