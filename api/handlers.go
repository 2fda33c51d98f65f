// Package api exposes the dashboard over HTTP: the catalog contract, the
// board engine, rendered views, widgets and the status stream.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/anshulsingh8326/FusionDash/board"
	"github.com/anshulsingh8326/FusionDash/catalog"
	"github.com/anshulsingh8326/FusionDash/domain"
	"github.com/anshulsingh8326/FusionDash/status"
	"github.com/anshulsingh8326/FusionDash/storage"
	"github.com/anshulsingh8326/FusionDash/view"
	"github.com/anshulsingh8326/FusionDash/widget"
)

// requestMaxSize bounds every decoded request body.
const requestMaxSize = 1 << 20

// Deps carries the wired components the handlers operate on.
type Deps struct {
	Store   *storage.Store
	Catalog *catalog.Catalog
	Boards  *board.Store
	Tracker *status.Tracker
	Prober  *status.Prober
	Poller  *status.Poller
	Widgets *widget.Registry
	Arr     *widget.ArrQueue
	Log     *log.Logger
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	if d.Log == nil {
		d.Log = log.StandardLogger()
	}

	e.GET("/healthz", healthz(d.Store))

	e.GET("/api/init", getInit(d))
	e.GET("/api/services", getServices(d.Catalog))
	e.POST("/api/services/add_manual", postAddManual(d))
	e.POST("/api/services/:id/update", postUpdateService(d.Catalog))
	e.POST("/api/services/:id/hide", postHideService(d))
	e.POST("/api/services/reorder", postReorderCatalog(d.Catalog))

	e.GET("/api/view", getView(d))
	e.GET("/api/library", getLibrary(d))

	e.GET("/api/boards", getBoards(d))
	e.POST("/api/boards", postCreateBoard(d.Boards))
	e.POST("/api/boards/:id/update", postUpdateBoard(d.Boards))
	e.POST("/api/boards/:id/delete", postDeleteBoard(d.Boards))
	e.POST("/api/boards/:id/activate", postActivateBoard(d.Boards))
	e.GET("/api/boards/:id/available", getAvailableServices(d))
	e.POST("/api/boards/:id/sections", postAddSection(d.Boards))
	e.POST("/api/boards/:id/sections/:sid/update", postUpdateSection(d.Boards))
	e.POST("/api/boards/:id/sections/:sid/delete", postDeleteSection(d.Boards))
	e.POST("/api/boards/:id/sections/:sid/items", postAddItem(d))
	e.POST("/api/boards/:id/sections/:sid/reorder", postReorderSection(d.Boards))
	e.POST("/api/boards/:id/items/:serviceId/remove", postRemoveItem(d.Boards))

	e.GET("/api/widget/:serviceId", getWidget(d))
	e.GET("/api/status", getStatus(d.Tracker))
	e.GET("/api/status/stream", streamStatus(d.Tracker))
	e.GET("/api/status/ping", getPing(d.Prober))
	e.GET("/api/integration/arr/queue", getArrQueue(d))

	e.POST("/api/settings/theme", postTheme(d.Store))
	e.POST("/api/settings/reset", postReset(d))
}

func decodeBody(c echo.Context, out interface{}) error {
	lr := io.LimitReader(c.Request().Body, requestMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

// statusForErr maps engine errors onto HTTP statuses.
func statusForErr(err error) int {
	switch {
	case errors.Is(err, board.ErrBoardNotFound),
		errors.Is(err, board.ErrSectionNotFound),
		errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, board.ErrLastBoard),
		errors.Is(err, board.ErrSummaryPlaced):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func engineError(c echo.Context, err error) error {
	code := statusForErr(err)
	if code == http.StatusInternalServerError {
		c.Logger().Error(err)
	}
	return c.String(code, err.Error())
}

func healthz(store *storage.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := store.Ping(c.Request().Context()); err != nil {
			return c.String(http.StatusServiceUnavailable, "storage unavailable")
		}
		return c.NoContent(http.StatusOK)
	}
}

type initResponse struct {
	Services []domain.Service   `json:"services"`
	Theme    domain.Preferences `json:"theme"`
}

// getInit serves the combined first-paint payload: the catalog plus theme
// preferences in one round trip.
func getInit(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		prefs, err := d.Store.LoadPreferences(c.Request().Context())
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, initResponse{Services: d.Catalog.Services(), Theme: prefs})
	}
}

func getServices(cat *catalog.Catalog) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, cat.Services())
	}
}

type addManualRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Href          string `json:"href"`
	Icon          string `json:"icon"`
	Group         string `json:"group"`
	DisplaySource string `json:"displaySource"`
	WidgetType    string `json:"widgetType"`
	APIKey        string `json:"apiKey"`
	Pinned        bool   `json:"pinned"`
}

func postAddManual(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req addManualRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if req.Name == "" || req.Href == "" {
			return c.String(http.StatusBadRequest, "name and href are required")
		}
		svc, err := d.Catalog.AddManual(c.Request().Context(), domain.Service{
			Name:          req.Name,
			Description:   req.Description,
			Href:          req.Href,
			Icon:          req.Icon,
			Group:         req.Group,
			DisplaySource: req.DisplaySource,
			WidgetType:    req.WidgetType,
			APIKey:        req.APIKey,
			Pinned:        req.Pinned,
		})
		if err != nil {
			return engineError(c, err)
		}
		// New services get probed right away instead of waiting a sweep.
		if d.Poller != nil {
			d.Poller.Kick(svc)
		}
		return c.JSON(http.StatusOK, svc)
	}
}

func postUpdateService(cat *catalog.Catalog) echo.HandlerFunc {
	return func(c echo.Context) error {
		var o domain.ServiceOverride
		if err := decodeBody(c, &o); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := cat.Update(c.Request().Context(), c.Param("id"), o); err != nil {
			return engineError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
	}
}

// postHideService uninstalls a service: its board placements are stripped
// first, then the catalog entry is hidden. The order matters — if the hide
// fails the service is still in the catalog and its dangling placements would
// merely render nothing.
func postHideService(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		id := c.Param("id")
		if _, ok := d.Catalog.ByID(id); !ok {
			return c.String(http.StatusNotFound, catalog.ErrNotFound.Error())
		}
		if err := d.Boards.RemoveItem(ctx, "", id, board.ScopeGlobal); err != nil {
			return engineError(c, err)
		}
		if err := d.Catalog.Hide(ctx, id); err != nil {
			return engineError(c, err)
		}
		d.Tracker.Forget(id)
		return c.JSON(http.StatusOK, echo.Map{"status": "hidden"})
	}
}

func postReorderCatalog(cat *catalog.Catalog) echo.HandlerFunc {
	return func(c echo.Context) error {
		var entries []catalog.OrderEntry
		if err := decodeBody(c, &entries); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := cat.SetOrder(c.Request().Context(), entries); err != nil {
			return engineError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "reordered"})
	}
}

type viewResponse struct {
	Board   view.BoardView   `json:"board"`
	Sidebar []view.BoardLink `json:"sidebar"`
}

// getView is the main read path: resolve the requested board, render it
// against the catalog, cached statuses and the search term.
func getView(d Deps) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newViewRequestMetrics(ctx, d.Log)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		term := c.QueryParam("q")
		metrics.SetSearchActive(term != "")

		resolveStart := time.Now()
		b, resolveErr := d.Boards.Resolve(ctx, c.QueryParam("board"))
		metrics.ObserveResolve(time.Since(resolveStart))
		if resolveErr != nil {
			metrics.SetErrorStage("resolve")
			err = engineError(c, resolveErr)
			return err
		}
		metrics.SetBoard(b.ID)

		renderStart := time.Now()
		bv := view.RenderBoard(b, d.Catalog.Services(), d.Tracker, d.Widgets, term)
		metrics.ObserveRender(time.Since(renderStart))

		cards := 0
		for _, sec := range bv.Sections {
			cards += len(sec.Cards)
		}
		metrics.SetCardsReturned(cards)

		resp := viewResponse{Board: bv, Sidebar: view.RenderSidebar(d.Boards.Boards(), b.ID)}
		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, resp)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getLibrary(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		cards := view.RenderLibrary(d.Catalog.Services(), d.Tracker, d.Widgets, c.QueryParam("q"))
		return c.JSON(http.StatusOK, echo.Map{"cards": cards})
	}
}

func getBoards(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, d.Boards.Boards())
	}
}

type createBoardRequest struct {
	Name string `json:"name"`
}

func postCreateBoard(boards *board.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createBoardRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		b, err := boards.CreateBoard(c.Request().Context(), req.Name)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(http.StatusOK, b)
	}
}

type updateBoardRequest struct {
	Name     string               `json:"name"`
	Settings domain.BoardSettings `json:"settings"`
}

func postUpdateBoard(boards *board.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateBoardRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := boards.UpdateBoard(c.Request().Context(), c.Param("id"), req.Name, req.Settings); err != nil {
			return engineError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
	}
}

func postDeleteBoard(boards *board.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := boards.DeleteBoard(c.Request().Context(), c.Param("id")); err != nil {
			return engineError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "deleted"})
	}
}

func postActivateBoard(boards *board.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := boards.SetActive(c.Request().Context(), c.Param("id")); err != nil {
			return engineError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "active"})
	}
}

func getAvailableServices(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		available := d.Boards.AvailableServices(c.Param("id"), d.Catalog.Services())
		if available == nil {
			return c.String(http.StatusNotFound, board.ErrBoardNotFound.Error())
		}
		return c.JSON(http.StatusOK, echo.Map{"services": available})
	}
}

type addSectionRequest struct {
	Title string `json:"title"`
}

func postAddSection(boards *board.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req addSectionRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		sec, err := boards.AddSection(c.Request().Context(), c.Param("id"), req.Title)
		if err != nil {
			return engineError(c, err)
		}
		return c.JSON(http.StatusOK, sec)
	}
}

type updateSectionRequest struct {
	Title    *string               `json:"title"`
	Settings *domain.BoardSettings `json:"settings"`
}

func postUpdateSection(boards *board.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req updateSectionRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		ctx := c.Request().Context()
		boardID, sectionID := c.Param("id"), c.Param("sid")
		if req.Title != nil {
			if err := boards.RenameSection(ctx, boardID, sectionID, *req.Title); err != nil {
				return engineError(c, err)
			}
		}
		if req.Settings != nil {
			if err := boards.UpdateSectionSettings(ctx, boardID, sectionID, *req.Settings); err != nil {
				return engineError(c, err)
			}
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "updated"})
	}
}

func postDeleteSection(boards *board.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := boards.DeleteSection(c.Request().Context(), c.Param("id"), c.Param("sid")); err != nil {
			return engineError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "deleted"})
	}
}

type addItemRequest struct {
	ServiceID string `json:"serviceId"`
	Summary   bool   `json:"summary"`
}

func postAddItem(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req addItemRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		ctx := c.Request().Context()
		boardID, sectionID := c.Param("id"), c.Param("sid")

		if req.Summary {
			if err := d.Boards.AddSummary(ctx, boardID, sectionID); err != nil {
				return engineError(c, err)
			}
			return c.JSON(http.StatusOK, echo.Map{"status": "added"})
		}
		if _, ok := d.Catalog.ByID(req.ServiceID); !ok {
			return c.String(http.StatusNotFound, catalog.ErrNotFound.Error())
		}
		if err := d.Boards.AddItem(ctx, boardID, sectionID, req.ServiceID); err != nil {
			return engineError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "added"})
	}
}

type reorderSectionRequest struct {
	Items []string `json:"items"`
}

func postReorderSection(boards *board.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req reorderSectionRequest
		if err := decodeBody(c, &req); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		if err := boards.ReorderSection(c.Request().Context(), c.Param("id"), c.Param("sid"), req.Items); err != nil {
			return engineError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "reordered"})
	}
}

func postRemoveItem(boards *board.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		scope := board.RemoveScope(c.QueryParam("scope"))
		if scope != board.ScopeGlobal {
			scope = board.ScopeBoard
		}
		if err := boards.RemoveItem(c.Request().Context(), c.Param("id"), c.Param("serviceId"), scope); err != nil {
			return engineError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "removed"})
	}
}

func getWidget(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		svc, ok := d.Catalog.ByID(c.Param("serviceId"))
		if !ok {
			return c.String(http.StatusNotFound, catalog.ErrNotFound.Error())
		}
		res, ok := d.Widgets.Fetch(c.Request().Context(), svc)
		if !ok {
			return c.String(http.StatusNotFound, "service has no widget")
		}
		return c.JSON(http.StatusOK, res)
	}
}

type statusResponse struct {
	Statuses map[string]status.State `json:"statuses"`
	Online   int                     `json:"online"`
	Total    int                     `json:"total"`
}

func getStatus(tracker *status.Tracker) echo.HandlerFunc {
	return func(c echo.Context) error {
		snap := tracker.Snapshot()
		return c.JSON(http.StatusOK, statusResponse{
			Statuses: snap,
			Online:   tracker.OnlineCount(),
			Total:    len(snap),
		})
	}
}

// getPing probes one URL on demand, for the add-service form's connectivity
// check. Any response counts as reachable; 5xx reports the code as an error.
func getPing(prober *status.Prober) echo.HandlerFunc {
	return func(c echo.Context) error {
		url := c.QueryParam("url")
		if url == "" {
			return c.String(http.StatusBadRequest, "url is required")
		}
		res := prober.Ping(c.Request().Context(), url)
		switch {
		case res.State == status.StateOnline:
			return c.JSON(http.StatusOK, echo.Map{"status": "online", "code": res.Code})
		case res.Code >= 500:
			return c.JSON(http.StatusOK, echo.Map{"status": "error", "code": res.Code})
		default:
			return c.JSON(http.StatusOK, echo.Map{"status": "offline"})
		}
	}
}

// getArrQueue proxies the *arr queue count so the browser never talks to the
// integration (or holds its API key) directly. Failures report a zero count.
func getArrQueue(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		url := c.QueryParam("url")
		if url == "" {
			return c.String(http.StatusBadRequest, "url is required")
		}
		count, err := d.Arr.Count(c.Request().Context(), url, c.QueryParam("api_key"))
		if err != nil {
			return c.JSON(http.StatusOK, echo.Map{"count": 0})
		}
		return c.JSON(http.StatusOK, echo.Map{"count": count})
	}
}

func postTheme(store *storage.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		var incoming domain.Preferences
		if err := decodeBody(c, &incoming); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		ctx := c.Request().Context()
		prefs, err := store.LoadPreferences(ctx)
		if err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		prefs.Merge(incoming)
		if err := store.SavePreferences(ctx, prefs); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, prefs)
	}
}

// postReset is the factory reset: every persisted document is deleted, then
// the default board is re-seeded and the catalog rebuilt so the next view
// request finds a coherent state.
func postReset(d Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if err := d.Store.Reset(ctx); err != nil {
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, err.Error())
		}
		if err := d.Boards.Load(ctx); err != nil {
			return engineError(c, err)
		}
		if err := d.Catalog.Rebuild(ctx); err != nil {
			return engineError(c, err)
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "reset"})
	}
}
