package connectivity

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/safeworkpro/fieldsync/internal/core/ports/driven"
	"github.com/safeworkpro/fieldsync/internal/logger"
)

// Ensure Probe implements the interface.
var _ driven.ConnectivityProvider = (*Probe)(nil)

const (
	// DefaultProbeInterval is the health poll period.
	DefaultProbeInterval = 15 * time.Second

	// probeTimeout bounds a single health request.
	probeTimeout = 5 * time.Second
)

// Probe infers connectivity by polling the API health endpoint.
// Any HTTP response counts as online; only transport failures are offline.
type Probe struct {
	url      string
	interval time.Duration
	client   *http.Client
}

// NewProbe creates a probe against {baseURL}/health.
func NewProbe(baseURL string, interval time.Duration, client *http.Client) *Probe {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	if client == nil {
		client = &http.Client{Timeout: probeTimeout}
	}
	return &Probe{
		url:      strings.TrimRight(baseURL, "/") + "/health",
		interval: interval,
		client:   client,
	}
}

// Online performs one health request.
func (p *Probe) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		logger.Debug("connectivity: probe %s failed: %v", p.url, err)
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return true
}

// Watch polls at the probe interval and emits transitions.
func (p *Probe) Watch(ctx context.Context) <-chan bool {
	ch := make(chan bool, 1)

	go func() {
		defer close(ch)

		last := p.Online(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				state := p.Online(ctx)
				if ctx.Err() != nil {
					return
				}
				if state != last {
					last = state
					logger.Info("connectivity: %s", stateName(state))
					send(ch, state)
				}
			}
		}
	}()

	return ch
}

func stateName(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}
