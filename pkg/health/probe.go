package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deckhand-sh/deckhand/pkg/types"
)

// DefaultProbeTimeout bounds a single liveness call.
const DefaultProbeTimeout = 15 * time.Second

// Probe performs one liveness check against the service.
type Probe interface {
	Check(ctx context.Context) types.HealthCheckResult
}

// HTTPProbe checks the service's liveness endpoint over HTTP. Any
// transport error is reported identically to an unhealthy response.
type HTTPProbe struct {
	// URL is the full liveness endpoint, e.g. "http://127.0.0.1:8000/health"
	URL string

	// Client is the HTTP client to use (allows custom configuration)
	Client *http.Client
}

// NewHTTPProbe creates a probe with the default single-shot timeout.
func NewHTTPProbe(url string) *HTTPProbe {
	return &HTTPProbe{
		URL: url,
		Client: &http.Client{
			Timeout: DefaultProbeTimeout,
		},
	}
}

// WithTimeout sets the HTTP client timeout.
func (p *HTTPProbe) WithTimeout(timeout time.Duration) *HTTPProbe {
	p.Client.Timeout = timeout
	return p
}

// Check performs the liveness call. Only a 200 response counts as
// healthy.
func (p *HTTPProbe) Check(ctx context.Context) types.HealthCheckResult {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return types.HealthCheckResult{
			CheckedAt: start,
			Healthy:   false,
			Latency:   time.Since(start),
			Attempt:   1,
			Message:   fmt.Sprintf("failed to create request: %v", err),
		}
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return types.HealthCheckResult{
			CheckedAt: start,
			Healthy:   false,
			Latency:   time.Since(start),
			Attempt:   1,
			Message:   fmt.Sprintf("request failed: %v", err),
		}
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode == http.StatusOK
	message := fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))

	return types.HealthCheckResult{
		CheckedAt: start,
		Healthy:   healthy,
		Latency:   time.Since(start),
		Attempt:   1,
		Message:   message,
	}
}
