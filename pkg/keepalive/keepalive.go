package keepalive

import (
	"context"
	"net/http"
	"strings"
	"time"

	"secure_chat_relay/pkg/logger"
)

const (
	pingPeriod  = 5 * time.Minute
	pingTimeout = 10 * time.Second
)

// Start begin the self ping loop against the public url, keeps free tier
// hosts from reaping an idle process. Does nothing when url is empty.
func Start(ctx context.Context, externalURL string) {
	if externalURL == "" {
		return
	}
	target := strings.TrimRight(externalURL, "/") + "/ping"

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		client := &http.Client{Timeout: pingTimeout}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				resp, err := client.Get(target)
				if err != nil {
					logger.Log.Warn("keepalive ping failed: " + err.Error())
					continue
				}
				resp.Body.Close()
				logger.Log.Debug("keepalive ping " + target + " " + resp.Status)
			}
		}
	}()
}
