package speed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for _, s := range []string{"url", "speedtest.net", "speedtest.pl"} {
		m, err := ParseMode(s)
		require.NoError(t, err)
		assert.Equal(t, Mode(s), m)
	}
	_, err := ParseMode("fast.com")
	assert.Error(t, err)
	_, err = ParseMode("")
	assert.Error(t, err)
}

func TestResultOK(t *testing.T) {
	assert.True(t, Result{DownloadMbps: 12.5}.OK())
	assert.False(t, Result{Error: "timeout"}.OK())
}
