package speedtest

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"context"

	"github.com/linkpulse/linkpulse/internal/domain/speed"
)

// measureURL streams a download from rawURL for up to duration, computing
// achieved throughput from bytes received. Connect and header waits are
// bounded by timeout. Partial byte counts are kept even on failure.
func measureURL(ctx context.Context, rawURL string, duration, timeout time.Duration, res *speed.Result) {
	if rawURL == "" {
		res.Error = "speedtest_url not set (skipped)"
		return
	}

	start := time.Now()
	finish := func(total int64) {
		elapsed := time.Since(start)
		if elapsed < time.Millisecond {
			elapsed = time.Millisecond
		}
		res.BytesDownloaded = total
		res.Duration = elapsed
		res.DownloadMbps = mbps(total, elapsed)
	}

	rctx, cancel := context.WithTimeout(ctx, duration+timeout)
	defer cancel()

	tr := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	defer tr.CloseIdleConnections()
	client := &http.Client{Transport: tr}

	req, err := http.NewRequestWithContext(rctx, http.MethodGet, rawURL, nil)
	if err != nil {
		finish(0)
		res.Error = err.Error()
		return
	}

	resp, err := client.Do(req)
	if err != nil {
		finish(0)
		res.Error = err.Error()
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		finish(0)
		res.Error = fmt.Sprintf("unexpected status %s", resp.Status)
		return
	}

	var total int64
	buf := make([]byte, 64<<10)
	for time.Since(start) < duration {
		n, err := resp.Body.Read(buf)
		total += int64(n)
		if err != nil {
			if err != io.EOF && time.Since(start) < duration {
				finish(total)
				res.Error = err.Error()
				return
			}
			break
		}
	}
	finish(total)
}

func mbps(bytes int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(bytes) * 8 / elapsed.Seconds() / 1e6
}
