package connectivity

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/linkpulse/linkpulse/internal/domain/sample"
)

// ResolveTarget interprets the connect_target setting. It accepts a bare
// hostname or IP, a host:port pair, or an http(s) URL; the URL scheme picks
// 80/443 when no explicit port is given.
func ResolveTarget(target string, defaultPort int) (string, int) {
	t := strings.TrimSpace(target)
	if t == "" {
		return "google.com", defaultPort
	}

	if strings.Contains(t, "://") {
		u, err := url.Parse(t)
		if err != nil || u.Hostname() == "" {
			return t, defaultPort
		}
		if p := u.Port(); p != "" {
			if n, err := strconv.Atoi(p); err == nil {
				return u.Hostname(), n
			}
		}
		switch strings.ToLower(u.Scheme) {
		case "https":
			return u.Hostname(), 443
		case "http":
			return u.Hostname(), 80
		}
		return u.Hostname(), defaultPort
	}

	if host, p, err := net.SplitHostPort(t); err == nil {
		if n, err := strconv.Atoi(p); err == nil {
			return host, n
		}
	}
	return t, defaultPort
}

// Prober performs one TCP-connect reachability check per call. Every failure
// mode maps to a down sample; nothing escapes as an error.
type Prober struct {
	dialer *net.Dialer
}

func NewProber() *Prober {
	return &Prober{dialer: &net.Dialer{}}
}

func (p *Prober) Check(ctx context.Context, target string, defaultPort int, timeout time.Duration) sample.Sample {
	host, port := ResolveTarget(target, defaultPort)
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	conn, err := p.dialer.DialContext(dctx, "tcp", addr)
	latency := float64(time.Since(start)) / float64(time.Millisecond)

	s := sample.Sample{
		Timestamp: time.Now().UTC(),
		LatencyMS: latency,
	}
	if err != nil {
		s.Up = false
		s.Error = classifyDialError(err)
		return s
	}
	_ = conn.Close()
	s.Up = true
	return s
}

func classifyDialError(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns: " + dnsErr.Err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	return msg
}
