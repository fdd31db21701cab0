package connectivity

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTarget(t *testing.T) {
	cases := []struct {
		in       string
		wantHost string
		wantPort int
	}{
		{"", "google.com", 443},
		{"example.com", "example.com", 443},
		{"  example.com  ", "example.com", 443},
		{"example.com:8080", "example.com", 8080},
		{"192.168.1.1", "192.168.1.1", 443},
		{"[::1]:8443", "::1", 8443},
		{"http://example.com", "example.com", 80},
		{"https://example.com", "example.com", 443},
		{"https://example.com:8443/some/path", "example.com", 8443},
		{"http://example.com/healthz?x=1", "example.com", 80},
		{"ftp://example.com", "example.com", 443},
	}
	for _, tc := range cases {
		host, port := ResolveTarget(tc.in, 443)
		assert.Equal(t, tc.wantHost, host, "target %q", tc.in)
		assert.Equal(t, tc.wantPort, port, "target %q", tc.in)
	}
}

func TestProberCheck_Up(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	s := NewProber().Check(context.Background(), ln.Addr().String(), 0, 2*time.Second)
	assert.True(t, s.Up)
	assert.Empty(t, s.Error)
	assert.GreaterOrEqual(t, s.LatencyMS, 0.0)
	assert.False(t, s.Timestamp.IsZero())
}

func TestProberCheck_Refused(t *testing.T) {
	// Grab a free port, then close the listener so the dial is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := NewProber().Check(context.Background(), addr, 0, 2*time.Second)
	assert.False(t, s.Up)
	assert.NotEmpty(t, s.Error)
}
