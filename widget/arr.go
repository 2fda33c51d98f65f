package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/anshulsingh8326/FusionDash/domain"
)

// TypeArrQueue is the registry key for the *arr download-queue widget.
const TypeArrQueue = "arr_queue"

// ArrQueue reads the active download queue from Sonarr/Radarr style APIs.
type ArrQueue struct {
	client *http.Client
}

// NewArrQueue creates the fetcher with the given request timeout.
func NewArrQueue(timeout time.Duration) *ArrQueue {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ArrQueue{client: &http.Client{Timeout: timeout}}
}

// Count queries `{base}/api/v3/queue` with the given API key and returns the
// number of records in the queue.
func (a *ArrQueue) Count(ctx context.Context, baseURL, apiKey string) (int, error) {
	target := strings.TrimRight(baseURL, "/") + "/api/v3/queue"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("X-Api-Key", apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("arr queue: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		TotalRecords int `json:"totalRecords"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.TotalRecords, nil
}

// Fetch implements Fetcher. A populated queue draws attention, an empty one
// shows a neutral idle label, and any failure degrades to an Error label.
func (a *ArrQueue) Fetch(ctx context.Context, svc domain.Service) Result {
	count, err := a.Count(ctx, svc.Href, svc.APIKey)
	if err != nil {
		return Result{Label: "Error", Level: LevelError}
	}
	if count > 0 {
		return Result{Label: fmt.Sprintf("%d Downloading", count), Level: LevelActive}
	}
	return Result{Label: "Queue Idle", Level: LevelIdle}
}
