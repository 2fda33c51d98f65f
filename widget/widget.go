// Package widget provides pluggable per-service data panels fetched from
// integration endpoints and composited into cards.
package widget

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/anshulsingh8326/FusionDash/domain"
)

// Level drives the panel's visual treatment.
type Level string

const (
	LevelIdle   Level = "idle"
	LevelActive Level = "active"
	LevelError  Level = "error"
)

// Result is what a widget displays in its slot.
type Result struct {
	Label string `json:"label"`
	Level Level  `json:"level"`
}

// Fetcher fetches supplemental data for one service. Implementations must
// degrade to an error Result rather than failing; a broken integration never
// breaks the card it sits on.
type Fetcher interface {
	Fetch(ctx context.Context, svc domain.Service) Result
}

// Registry maps widget-type keys to fetchers.
type Registry struct {
	mu       sync.RWMutex
	fetchers map[string]Fetcher
	log      *log.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Registry{fetchers: map[string]Fetcher{}, log: logger}
}

// Register binds a widget type to its fetcher.
func (r *Registry) Register(widgetType string, f Fetcher) {
	r.mu.Lock()
	r.fetchers[widgetType] = f
	r.mu.Unlock()
}

// Supports reports whether the service carries a registered widget type.
func (r *Registry) Supports(svc domain.Service) bool {
	if svc.WidgetType == "" {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.fetchers[svc.WidgetType]
	return ok
}

// Fetch runs the service's widget. The second return is false when the
// service has no registered widget. Fetch never returns an error: failures
// surface as an "Error" result in the slot.
func (r *Registry) Fetch(ctx context.Context, svc domain.Service) (Result, bool) {
	r.mu.RLock()
	f, ok := r.fetchers[svc.WidgetType]
	r.mu.RUnlock()
	if svc.WidgetType == "" || !ok {
		return Result{}, false
	}

	res := r.safeFetch(ctx, f, svc)
	return res, true
}

func (r *Registry) safeFetch(ctx context.Context, f Fetcher, svc domain.Service) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithFields(log.Fields{"service": svc.ID, "widget": svc.WidgetType, "panic": rec}).
				Error("widget fetch panicked")
			res = Result{Label: "Error", Level: LevelError}
		}
	}()
	return f.Fetch(ctx, svc)
}
