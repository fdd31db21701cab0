package speedtest

import (
	"context"
	"fmt"
	"time"

	stgo "github.com/showwin/speedtest-go/speedtest"

	"github.com/linkpulse/linkpulse/internal/domain/speed"
)

// measureOokla runs a speedtest.net measurement against the best available
// server. Mode speedtest.pl restricts the candidate set to Polish servers
// before best-server selection. Upload is best-effort: a download-only
// result still counts as success.
func measureOokla(ctx context.Context, mode speed.Mode, res *speed.Result) {
	client := stgo.New()

	servers, err := client.FetchServerListContext(ctx)
	if err != nil {
		res.Error = fmt.Sprintf("fetch servers: %v", err)
		return
	}
	if mode == speed.ModeSpeedtestPL {
		var pl stgo.Servers
		for _, s := range servers {
			if s.Country == "Poland" || s.Country == "PL" {
				pl = append(pl, s)
			}
		}
		if len(pl) == 0 {
			res.Error = "no Polish speedtest servers available"
			return
		}
		servers = pl
	}

	targets, err := servers.FindServer(nil)
	if err != nil || len(targets) == 0 {
		res.Error = fmt.Sprintf("find server: %v", err)
		return
	}
	srv := targets[0]

	res.ServerName = srv.Sponsor
	if res.ServerName == "" {
		res.ServerName = srv.Name
	}
	res.ServerCountry = srv.Country

	if err := srv.PingTestContext(ctx, nil); err == nil {
		ping := float64(srv.Latency) / float64(time.Millisecond)
		res.PingMS = &ping
	}

	if err := srv.DownloadTestContext(ctx); err != nil {
		res.Error = fmt.Sprintf("download: %v", err)
		return
	}
	res.DownloadMbps = srv.DLSpeed.Mbps()

	if err := srv.UploadTestContext(ctx); err == nil {
		ul := srv.ULSpeed.Mbps()
		res.UploadMbps = &ul
	}
}
