package outage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInterval(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	open := Interval{StartedAt: start}

	assert.True(t, open.Open())
	assert.Zero(t, open.Duration())
	assert.True(t, open.Contains(start.Add(time.Hour)))
	assert.False(t, open.Contains(start.Add(-time.Second)))

	end := start.Add(90 * time.Second)
	closed := Interval{StartedAt: start, EndedAt: &end}
	assert.False(t, closed.Open())
	assert.Equal(t, 90*time.Second, closed.Duration())
	assert.True(t, closed.Contains(end))
	assert.False(t, closed.Contains(end.Add(time.Second)))
}
