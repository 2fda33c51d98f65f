package status

import (
	"context"
	"crypto/tls"
	"net/http"
	"time"
)

// Result is a structured probe outcome. Code is the HTTP status when a
// response was received at all.
type Result struct {
	State State
	Code  int
	Err   error
}

// Prober issues liveness probes against service URLs. Self-hosted services
// commonly sit behind self-signed certificates, so TLS verification is
// skipped; a short timeout keeps a dead host from stalling a poll cycle.
type Prober struct {
	client *http.Client
}

// NewProber creates a Prober with the given per-probe timeout.
func NewProber(timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Prober{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// Ping probes the URL. Any response below 500 counts as online — an auth
// challenge still means the server is up. Transport failures of any kind are
// offline, never an error to the caller.
func (p *Prober) Ping(ctx context.Context, url string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{State: StateOffline, Err: err}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Result{State: StateOffline, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 500 {
		return Result{State: StateOnline, Code: resp.StatusCode}
	}
	return Result{State: StateOffline, Code: resp.StatusCode}
}
