package speed

import (
	"fmt"
	"time"
)

type Mode string

const (
	ModeURL          Mode = "url"
	ModeSpeedtestNet Mode = "speedtest.net"
	ModeSpeedtestPL  Mode = "speedtest.pl"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeURL, ModeSpeedtestNet, ModeSpeedtestPL:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown speedtest mode %q", s)
}

// Result is one throughput measurement. Immutable once written; failed runs
// are recorded too, with Error set.
type Result struct {
	ID              int64         `json:"id"`
	StartedAt       time.Time     `json:"started_at"`
	Mode            Mode          `json:"mode"`
	Duration        time.Duration `json:"duration"`
	BytesDownloaded int64         `json:"bytes_downloaded"`
	DownloadMbps    float64       `json:"download_mbps"`
	UploadMbps      *float64      `json:"upload_mbps,omitempty"`
	PingMS          *float64      `json:"ping_ms,omitempty"`
	ServerName      string        `json:"server_name,omitempty"`
	ServerCountry   string        `json:"server_country,omitempty"`
	Error           string        `json:"error,omitempty"`
}

func (r Result) OK() bool { return r.Error == "" }
