package api

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"

	"github.com/anshulsingh8326/FusionDash/status"
)

// keepaliveInterval spaces SSE comment lines so idle proxies keep the
// connection open between status transitions.
const keepaliveInterval = 25 * time.Second

type statusEvent struct {
	ID     string       `json:"id"`
	Status status.State `json:"status"`
}

// streamStatus pushes status transitions over server-sent events. The first
// message is a full snapshot so a late subscriber paints without waiting for
// the next transition; after that only changes are sent.
func streamStatus(tracker *status.Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}

		// A slow client drops transitions rather than blocking the tracker;
		// the next poll sweep re-converges it.
		events := make(chan statusEvent, 64)
		unsubscribe := tracker.Subscribe(func(id string, st status.State) {
			select {
			case events <- statusEvent{ID: id, Status: st}:
			default:
			}
		})
		defer unsubscribe()

		if err := writeSSE(c, "snapshot", tracker.Snapshot()); err != nil {
			return nil
		}
		flusher.Flush()

		ctx := c.Request().Context()
		ticker := time.NewTicker(keepaliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev := <-events:
				if err := writeSSE(c, "status", ev); err != nil {
					return nil
				}
				flusher.Flush()
			case <-ticker.C:
				if _, err := c.Response().Write([]byte(": keepalive\n\n")); err != nil {
					return nil
				}
				flusher.Flush()
			}
		}
	}
}

func writeSSE(c echo.Context, event string, payload interface{}) error {
	data, err := sonic.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := c.Response().Write([]byte("event: " + event + "\ndata: ")); err != nil {
		return err
	}
	if _, err := c.Response().Write(data); err != nil {
		return err
	}
	_, err = c.Response().Write([]byte("\n\n"))
	return err
}
