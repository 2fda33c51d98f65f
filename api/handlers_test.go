package api

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/anshulsingh8326/FusionDash/board"
	"github.com/anshulsingh8326/FusionDash/catalog"
	"github.com/anshulsingh8326/FusionDash/domain"
	"github.com/anshulsingh8326/FusionDash/status"
	"github.com/anshulsingh8326/FusionDash/storage"
	"github.com/anshulsingh8326/FusionDash/view"
	"github.com/anshulsingh8326/FusionDash/widget"
)

func testCatalogEntries() []domain.Service {
	return []domain.Service{
		{ID: "s1", Name: "Plex", Href: "http://plex.local", Source: "docker", State: "running"},
		{ID: "s2", Name: "Sonarr", Href: "http://sonarr.local", Source: "docker", State: "running"},
	}
}

func newTestServer(t *testing.T, discovered []domain.Service) (*echo.Echo, Deps) {
	t.Helper()

	mr := miniredis.RunT(t)
	store := storage.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	logger, _ := test.NewNullLogger()

	cat := catalog.New(store, catalog.DiscoverFunc(func() ([]domain.Service, error) {
		return discovered, nil
	}), logger)
	if err := cat.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild catalog: %v", err)
	}

	boards := board.NewStore(store, logger)
	if err := boards.Load(context.Background()); err != nil {
		t.Fatalf("load boards: %v", err)
	}

	arr := widget.NewArrQueue(time.Second)
	widgets := widget.NewRegistry(logger)
	widgets.Register(widget.TypeArrQueue, arr)

	d := Deps{
		Store:   store,
		Catalog: cat,
		Boards:  boards,
		Tracker: status.NewTracker(),
		Prober:  status.NewProber(time.Second),
		Widgets: widgets,
		Arr:     arr,
		Log:     logger,
	}
	e := echo.New()
	Register(e, d)
	return e, d
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func defaultBoardID(t *testing.T, d Deps) (boardID, sectionID string) {
	t.Helper()
	boards := d.Boards.Boards()
	if len(boards) == 0 || len(boards[0].Sections) == 0 {
		t.Fatal("expected seeded default board")
	}
	return boards[0].ID, boards[0].Sections[0].ID
}

func TestInitReturnsServicesAndTheme(t *testing.T) {
	e, _ := newTestServer(t, testCatalogEntries())

	rec := doRequest(e, http.MethodGet, "/api/init", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var resp initResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(resp.Services))
	}
	if resp.Theme.Accent != "#007cff" {
		t.Fatalf("expected stock accent, got %q", resp.Theme.Accent)
	}
}

func TestAddManualValidation(t *testing.T) {
	e, d := newTestServer(t, nil)

	rec := doRequest(e, http.MethodPost, "/api/services/add_manual", `{"name":"NoHref"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	rec = doRequest(e, http.MethodPost, "/api/services/add_manual", `{"name":"Jellyfin","href":"http://jf.local","unknown":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown fields must be rejected, got %d", rec.Code)
	}

	rec = doRequest(e, http.MethodPost, "/api/services/add_manual", `{"name":"Jellyfin","href":"http://jf.local"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var svc domain.Service
	if err := sonic.Unmarshal(rec.Body.Bytes(), &svc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if svc.ID == "" || svc.Source != "manual" {
		t.Fatalf("unexpected service: %#v", svc)
	}
	if _, ok := d.Catalog.ByID(svc.ID); !ok {
		t.Fatal("service missing from catalog after add")
	}
}

func TestUpdateUnknownServiceNotFound(t *testing.T) {
	e, _ := newTestServer(t, nil)
	rec := doRequest(e, http.MethodPost, "/api/services/nope/update", `{"name":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHideServiceStripsAllPlacements(t *testing.T) {
	e, d := newTestServer(t, testCatalogEntries())
	ctx := context.Background()
	boardID, sectionID := defaultBoardID(t, d)

	if err := d.Boards.AddItem(ctx, boardID, sectionID, "s1"); err != nil {
		t.Fatalf("add item: %v", err)
	}
	other, err := d.Boards.CreateBoard(ctx, "Second")
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	if err := d.Boards.AddItem(ctx, other.ID, other.Sections[0].ID, "s1"); err != nil {
		t.Fatalf("add item: %v", err)
	}
	d.Tracker.Set("s1", status.StateOnline)

	rec := doRequest(e, http.MethodPost, "/api/services/s1/hide", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}

	for _, b := range d.Boards.Boards() {
		for _, sec := range b.Sections {
			for _, id := range sec.Items {
				if id == "s1" {
					t.Fatalf("placement survived on board %s", b.ID)
				}
			}
		}
	}
	if _, ok := d.Catalog.ByID("s1"); ok {
		t.Fatal("hidden service still in catalog")
	}
	if d.Tracker.Get("s1") != status.StateUnknown {
		t.Fatal("tracker must forget hidden service")
	}
}

func TestHideUnknownServiceNotFound(t *testing.T) {
	e, _ := newTestServer(t, nil)
	if rec := doRequest(e, http.MethodPost, "/api/services/ghost/hide", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteLastBoardConflicts(t *testing.T) {
	e, d := newTestServer(t, nil)
	boardID, _ := defaultBoardID(t, d)

	rec := doRequest(e, http.MethodPost, "/api/boards/"+boardID+"/delete", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestBoardLifecycleOverHTTP(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec := doRequest(e, http.MethodPost, "/api/boards", `{"name":"Media"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	var b domain.Board
	if err := sonic.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	if b.Name != "Media" || len(b.Sections) != 1 {
		t.Fatalf("unexpected board: %#v", b)
	}

	if rec := doRequest(e, http.MethodPost, "/api/boards/"+b.ID+"/activate", ""); rec.Code != http.StatusOK {
		t.Fatalf("activate: %d", rec.Code)
	}
	if rec := doRequest(e, http.MethodPost, "/api/boards/ghost/activate", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("activating unknown board must 404, got %d", rec.Code)
	}
	if rec := doRequest(e, http.MethodPost, "/api/boards/"+b.ID+"/delete", ""); rec.Code != http.StatusOK {
		t.Fatalf("delete: %d", rec.Code)
	}
}

func TestReorderThenViewReflectsOrder(t *testing.T) {
	e, d := newTestServer(t, testCatalogEntries())
	boardID, sectionID := defaultBoardID(t, d)

	for _, payload := range []string{`{"serviceId":"s1"}`, `{"serviceId":"s2"}`} {
		rec := doRequest(e, http.MethodPost, "/api/boards/"+boardID+"/sections/"+sectionID+"/items", payload)
		if rec.Code != http.StatusOK {
			t.Fatalf("add item: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := doRequest(e, http.MethodPost, "/api/boards/"+boardID+"/sections/"+sectionID+"/reorder", `{"items":["s2","s1"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("reorder: %d %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(e, http.MethodGet, "/api/view?board="+boardID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("view: %d", rec.Code)
	}
	var resp viewResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	cards := resp.Board.Sections[0].Cards
	if len(cards) != 2 || cards[0].Name != "Sonarr" || cards[1].Name != "Plex" {
		t.Fatalf("view must follow stored order: %#v", cards)
	}
	if len(resp.Sidebar) != 1 || !resp.Sidebar[0].Active {
		t.Fatalf("unexpected sidebar: %#v", resp.Sidebar)
	}
}

func TestViewFallsBackToFirstBoard(t *testing.T) {
	e, d := newTestServer(t, nil)
	boardID, _ := defaultBoardID(t, d)

	rec := doRequest(e, http.MethodGet, "/api/view?board=stale-id", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("view: %d", rec.Code)
	}
	var resp viewResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode view: %v", err)
	}
	if resp.Board.BoardID != boardID {
		t.Fatalf("expected fallback to %s, got %s", boardID, resp.Board.BoardID)
	}
}

func TestSummaryCardConflictOnSecondPlacement(t *testing.T) {
	e, d := newTestServer(t, nil)
	boardID, sectionID := defaultBoardID(t, d)
	path := "/api/boards/" + boardID + "/sections/" + sectionID + "/items"

	if rec := doRequest(e, http.MethodPost, path, `{"summary":true}`); rec.Code != http.StatusOK {
		t.Fatalf("first summary placement: %d", rec.Code)
	}
	if rec := doRequest(e, http.MethodPost, path, `{"summary":true}`); rec.Code != http.StatusConflict {
		t.Fatalf("second summary placement must 409, got %d", rec.Code)
	}
}

func TestAvailableServicesExcludesPlaced(t *testing.T) {
	e, d := newTestServer(t, testCatalogEntries())
	boardID, sectionID := defaultBoardID(t, d)
	if err := d.Boards.AddItem(context.Background(), boardID, sectionID, "s1"); err != nil {
		t.Fatalf("add item: %v", err)
	}

	rec := doRequest(e, http.MethodGet, "/api/boards/"+boardID+"/available", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("available: %d", rec.Code)
	}
	var resp struct {
		Services []domain.Service `json:"services"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Services) != 1 || resp.Services[0].ID != "s2" {
		t.Fatalf("unexpected available services: %#v", resp.Services)
	}

	if rec := doRequest(e, http.MethodGet, "/api/boards/ghost/available", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown board must 404, got %d", rec.Code)
	}
}

func TestRemoveItemScopedToBoard(t *testing.T) {
	e, d := newTestServer(t, testCatalogEntries())
	ctx := context.Background()
	boardID, sectionID := defaultBoardID(t, d)

	if err := d.Boards.AddItem(ctx, boardID, sectionID, "s1"); err != nil {
		t.Fatalf("add item: %v", err)
	}
	other, err := d.Boards.CreateBoard(ctx, "Second")
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	if err := d.Boards.AddItem(ctx, other.ID, other.Sections[0].ID, "s1"); err != nil {
		t.Fatalf("add item: %v", err)
	}

	rec := doRequest(e, http.MethodPost, "/api/boards/"+boardID+"/items/s1/remove?scope=board", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: %d %s", rec.Code, rec.Body.String())
	}

	for _, b := range d.Boards.Boards() {
		placed := b.PlacedServiceIDs()
		_, ok := placed["s1"]
		if b.ID == boardID && ok {
			t.Fatal("board-scoped remove left the item in place")
		}
		if b.ID == other.ID && !ok {
			t.Fatal("board-scoped remove must not touch other boards")
		}
	}
}

func TestPingEndpoint(t *testing.T) {
	e, _ := newTestServer(t, nil)

	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer up.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer broken.Close()

	rec := doRequest(e, http.MethodGet, "/api/status/ping?url="+up.URL, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"online"`) {
		t.Fatalf("unexpected ping response: %d %s", rec.Code, rec.Body.String())
	}
	rec = doRequest(e, http.MethodGet, "/api/status/ping?url="+broken.URL, "")
	if !strings.Contains(rec.Body.String(), `"status":"error"`) {
		t.Fatalf("5xx must report error: %s", rec.Body.String())
	}
	rec = doRequest(e, http.MethodGet, "/api/status/ping?url=http://127.0.0.1:1", "")
	if !strings.Contains(rec.Body.String(), `"status":"offline"`) {
		t.Fatalf("unreachable must report offline: %s", rec.Body.String())
	}
	if rec := doRequest(e, http.MethodGet, "/api/status/ping", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing url must 400, got %d", rec.Code)
	}
}

func TestArrQueueProxy(t *testing.T) {
	e, _ := newTestServer(t, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"totalRecords": 4}`)
	}))
	defer srv.Close()

	rec := doRequest(e, http.MethodGet, "/api/integration/arr/queue?url="+srv.URL+"&api_key=k", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":4`) {
		t.Fatalf("unexpected proxy response: %d %s", rec.Code, rec.Body.String())
	}

	// An unreachable integration degrades to a zero count, never an error.
	rec = doRequest(e, http.MethodGet, "/api/integration/arr/queue?url=http://127.0.0.1:1", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"count":0`) {
		t.Fatalf("failure must degrade to zero: %d %s", rec.Code, rec.Body.String())
	}
}

func TestWidgetEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"totalRecords": 2}`)
	}))
	defer srv.Close()

	entries := []domain.Service{
		{ID: "s1", Name: "Plex", Href: "http://plex.local", Source: "docker", State: "running"},
		{ID: "s2", Name: "Sonarr", Href: srv.URL, Source: "docker", State: "running", WidgetType: widget.TypeArrQueue, APIKey: "k"},
	}
	e, _ := newTestServer(t, entries)

	rec := doRequest(e, http.MethodGet, "/api/widget/s2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("widget: %d %s", rec.Code, rec.Body.String())
	}
	var res widget.Result
	if err := sonic.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Label != "2 Downloading" || res.Level != widget.LevelActive {
		t.Fatalf("unexpected result: %#v", res)
	}

	if rec := doRequest(e, http.MethodGet, "/api/widget/s1", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("widget-less service must 404, got %d", rec.Code)
	}
	if rec := doRequest(e, http.MethodGet, "/api/widget/ghost", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown service must 404, got %d", rec.Code)
	}
}

func TestStatusSnapshotEndpoint(t *testing.T) {
	e, d := newTestServer(t, testCatalogEntries())
	d.Tracker.Set("s1", status.StateOnline)
	d.Tracker.Set("s2", status.StateOffline)

	rec := doRequest(e, http.MethodGet, "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d", rec.Code)
	}
	var resp statusResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Online != 1 || resp.Total != 2 {
		t.Fatalf("unexpected counts: %#v", resp)
	}
	if resp.Statuses["s1"] != status.StateOnline {
		t.Fatalf("unexpected snapshot: %#v", resp.Statuses)
	}
}

func TestThemeMergePreservesUnsetFields(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec := doRequest(e, http.MethodPost, "/api/settings/theme", `{"accent":"#ff0000"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("theme: %d %s", rec.Code, rec.Body.String())
	}
	var prefs domain.Preferences
	if err := sonic.Unmarshal(rec.Body.Bytes(), &prefs); err != nil {
		t.Fatalf("decode prefs: %v", err)
	}
	if prefs.Accent != "#ff0000" {
		t.Fatalf("accent not applied: %#v", prefs)
	}
	if prefs.SideOpacity != 0.85 {
		t.Fatalf("unset fields must keep their values: %#v", prefs)
	}
}

func TestResetReseedsDefaultState(t *testing.T) {
	e, d := newTestServer(t, nil)

	if _, err := d.Boards.CreateBoard(context.Background(), "Extra"); err != nil {
		t.Fatalf("create board: %v", err)
	}
	if rec := doRequest(e, http.MethodPost, "/api/settings/theme", `{"accent":"#123456"}`); rec.Code != http.StatusOK {
		t.Fatalf("theme: %d", rec.Code)
	}

	rec := doRequest(e, http.MethodPost, "/api/settings/reset", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset: %d %s", rec.Code, rec.Body.String())
	}

	boards := d.Boards.Boards()
	if len(boards) != 1 || boards[0].Name != "Home" {
		t.Fatalf("expected a single reseeded board, got %#v", boards)
	}
	rec = doRequest(e, http.MethodGet, "/api/init", "")
	var resp initResponse
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Theme.Accent != "#007cff" {
		t.Fatalf("theme must be back to stock, got %q", resp.Theme.Accent)
	}
}

func TestLibraryEndpointFilters(t *testing.T) {
	e, _ := newTestServer(t, testCatalogEntries())

	rec := doRequest(e, http.MethodGet, "/api/library?q=plex", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("library: %d", rec.Code)
	}
	var resp struct {
		Cards []view.Card `json:"cards"`
	}
	if err := sonic.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Cards) != 1 || resp.Cards[0].Name != "Plex" {
		t.Fatalf("unexpected library: %#v", resp.Cards)
	}
}

func TestHealthz(t *testing.T) {
	e, _ := newTestServer(t, nil)
	if rec := doRequest(e, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Fatalf("healthz: %d", rec.Code)
	}
}
