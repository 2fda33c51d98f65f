package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "fusiondash/api"

// viewRequestMetrics collects stage timings for the board view request, the
// hottest read path: board resolution, projection and response encoding.
type viewRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	start  time.Time

	resolveDuration time.Duration
	renderDuration  time.Duration
	encodeDuration  time.Duration
	boardID         string
	cardsReturned   int
	searchActive    bool
	errorStage      string
}

func newViewRequestMetrics(ctx context.Context, logger *log.Logger) (*viewRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, "dashboard.view")
	return &viewRequestMetrics{logger: logger, span: span, start: time.Now()}, spanCtx
}

func (m *viewRequestMetrics) ObserveResolve(d time.Duration) {
	if d > 0 {
		m.resolveDuration = d
	}
}

func (m *viewRequestMetrics) ObserveRender(d time.Duration) {
	if d > 0 {
		m.renderDuration = d
	}
}

func (m *viewRequestMetrics) ObserveEncode(d time.Duration) {
	if d > 0 {
		m.encodeDuration = d
	}
}

func (m *viewRequestMetrics) SetBoard(id string) {
	m.boardID = id
}

func (m *viewRequestMetrics) SetCardsReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.cardsReturned = count
}

func (m *viewRequestMetrics) SetSearchActive(active bool) {
	m.searchActive = active
}

func (m *viewRequestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

// Log ends the span and emits one structured log line for the request.
func (m *viewRequestMetrics) Log(httpStatus int, err error) {
	if m == nil {
		return
	}

	if m.span != nil {
		m.span.SetAttributes(
			attribute.String("board.id", m.boardID),
			attribute.Int("cards.returned", m.cardsReturned),
			attribute.Bool("search.active", m.searchActive),
			attribute.Int("http.status", httpStatus),
		)
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("error.stage", m.errorStage))
		}
		if err != nil {
			m.span.RecordError(err)
			m.span.SetStatus(codes.Error, err.Error())
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"route":          "/api/view",
		"status":         httpStatus,
		"total_ms":       durationToMillis(time.Since(m.start)),
		"board":          m.boardID,
		"cards_returned": m.cardsReturned,
		"search_active":  m.searchActive,
	}
	if m.resolveDuration > 0 {
		fields["resolve_ms"] = durationToMillis(m.resolveDuration)
	}
	if m.renderDuration > 0 {
		fields["render_ms"] = durationToMillis(m.renderDuration)
	}
	if m.encodeDuration > 0 {
		fields["encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		fields["error_stage"] = m.errorStage
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	severity, _ := severityForStatus(httpStatus, err)
	entry := m.logger.WithFields(fields)
	switch severity {
	case "error":
		entry.Error("view.request.metrics")
	case "warn":
		entry.Warn("view.request.metrics")
	default:
		entry.Info("view.request.metrics")
	}
}

// severityForStatus maps a response outcome onto a log severity. Client
// errors are expected traffic and only warn; server errors and transport
// failures escalate.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case status >= 500 || (err != nil && status == 0):
		return "error", 3
	case status >= 400:
		return "warn", 2
	default:
		return "info", 1
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
