package storage

import (
	"context"
	"reflect"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/anshulsingh8326/FusionDash/domain"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client), mr
}

func TestLoadBoardsMissing(t *testing.T) {
	store, _ := newTestStore(t)
	boards, err := store.LoadBoards(context.Background())
	if err != nil {
		t.Fatalf("load boards: %v", err)
	}
	if boards != nil {
		t.Fatalf("expected nil boards for an empty store, got %#v", boards)
	}
}

func TestBoardsRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	in := []domain.Board{{
		ID:       "b1",
		Name:     "Home",
		Sections: []domain.Section{{ID: "s1", Title: "General", Items: []string{"svc"}}},
	}}
	if err := store.SaveBoards(ctx, in); err != nil {
		t.Fatalf("save boards: %v", err)
	}
	out, err := store.LoadBoards(ctx)
	if err != nil {
		t.Fatalf("load boards: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in: %#v\nout: %#v", in, out)
	}
}

func TestActiveBoard(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	id, err := store.ActiveBoard(ctx)
	if err != nil || id != "" {
		t.Fatalf("expected empty active board, got %q err %v", id, err)
	}
	if err := store.SetActiveBoard(ctx, "b2"); err != nil {
		t.Fatalf("set active board: %v", err)
	}
	id, err = store.ActiveBoard(ctx)
	if err != nil || id != "b2" {
		t.Fatalf("expected b2, got %q err %v", id, err)
	}
}

func TestPreferencesDefaults(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	prefs, err := store.LoadPreferences(ctx)
	if err != nil {
		t.Fatalf("load preferences: %v", err)
	}
	if prefs.Accent != "#007cff" || prefs.SideOpacity != 0.85 {
		t.Fatalf("unexpected defaults: %#v", prefs)
	}

	prefs.AppName = "Lab"
	prefs.AutoCollapse = true
	if err := store.SavePreferences(ctx, prefs); err != nil {
		t.Fatalf("save preferences: %v", err)
	}
	out, err := store.LoadPreferences(ctx)
	if err != nil {
		t.Fatalf("reload preferences: %v", err)
	}
	if out.AppName != "Lab" || !out.AutoCollapse {
		t.Fatalf("unexpected preferences: %#v", out)
	}
}

func TestCatalogSettingsDefaultsAndRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	settings, err := store.LoadCatalogSettings(ctx)
	if err != nil {
		t.Fatalf("load catalog settings: %v", err)
	}
	if settings.Manual == nil || settings.Overrides == nil || settings.Hidden == nil || settings.Order == nil {
		t.Fatalf("expected initialised collections, got %#v", settings)
	}

	settings.Manual = append(settings.Manual, domain.Service{ID: "m1", Name: "Wiki", Href: "http://wiki"})
	settings.Hidden = append(settings.Hidden, "gone")
	settings.Overrides["plex"] = domain.ServiceOverride{Icon: "plex"}
	if err := store.SaveCatalogSettings(ctx, settings); err != nil {
		t.Fatalf("save catalog settings: %v", err)
	}

	out, err := store.LoadCatalogSettings(ctx)
	if err != nil {
		t.Fatalf("reload catalog settings: %v", err)
	}
	if len(out.Manual) != 1 || out.Manual[0].Name != "Wiki" {
		t.Fatalf("manual entry lost: %#v", out.Manual)
	}
	if !out.IsHidden("gone") || out.IsHidden("still-here") {
		t.Fatalf("hidden set wrong: %#v", out.Hidden)
	}
	if out.Overrides["plex"].Icon != "plex" {
		t.Fatalf("override lost: %#v", out.Overrides)
	}
}

func TestReset(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveBoards(ctx, []domain.Board{{ID: "b"}}); err != nil {
		t.Fatalf("save boards: %v", err)
	}
	if err := store.SetActiveBoard(ctx, "b"); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if mr.Exists(boardsKey) || mr.Exists(activeBoardKey) {
		t.Fatal("expected all documents deleted")
	}
}
