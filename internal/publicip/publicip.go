// Package publicip looks up the machine's public IP address via
// external HTTP services.
package publicip

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// requestTimeout bounds each lookup so a dead service cannot stall the
// supervisor's tick-driven refresh.
const requestTimeout = 5 * time.Second

// maxBodySize caps how much of a response body is read; the services
// return a bare address, anything larger is garbage.
const maxBodySize = 256

// DefaultEndpoints lists interchangeable plain-text IP echo services,
// tried in order until one yields a non-empty body.
var DefaultEndpoints = []string{
	"https://api.ipify.org",
	"https://ifconfig.me/ip",
	"https://icanhazip.com",
}

// Fetcher queries public IP echo services with a bounded timeout.
type Fetcher struct {
	client    *http.Client
	endpoints []string
}

// NewFetcher creates a Fetcher over the default endpoints.
func NewFetcher() *Fetcher {
	return NewFetcherWithEndpoints(DefaultEndpoints)
}

// NewFetcherWithEndpoints creates a Fetcher querying the given
// endpoints in order. This is primarily used for testing.
func NewFetcherWithEndpoints(endpoints []string) *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: requestTimeout},
		endpoints: endpoints,
	}
}

// Fetch returns the public IP reported by the first endpoint that
// answers with a non-empty body. Absent when every endpoint fails;
// individual failures are expected and only logged at debug level.
func (f *Fetcher) Fetch(ctx context.Context) (string, bool) {
	for _, endpoint := range f.endpoints {
		ip, err := f.fetchOne(ctx, endpoint)
		if err != nil {
			slog.Debug("Public IP lookup failed", "endpoint", endpoint, "error", err)
			continue
		}
		if ip != "" {
			return ip, true
		}
	}
	return "", false
}

func (f *Fetcher) fetchOne(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(body)), nil
}
