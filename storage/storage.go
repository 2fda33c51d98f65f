package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/anshulsingh8326/FusionDash/domain"
)

// Redis keys for the persisted documents. Every value is a whole JSON
// document replaced on write; there are no partial updates and no version
// checks (last writer wins).
const (
	boardsKey      = "fusion:boards"
	activeBoardKey = "fusion:active_board"
	prefsKey       = "fusion:prefs"
	catalogKey     = "fusion:catalog"
)

// Store provides access to the persisted dashboard documents.
type Store struct {
	redis *redis.Client
}

// New creates a Store backed by the given Redis client.
func New(client *redis.Client) *Store {
	if client == nil {
		panic("storage.New: redis client is nil")
	}
	return &Store{redis: client}
}

// Ping verifies the backing connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

// LoadBoards returns the stored board collection, or nil when none has been
// persisted yet.
func (s *Store) LoadBoards(ctx context.Context) ([]domain.Board, error) {
	data, err := s.redis.Get(ctx, boardsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var boards []domain.Board
	if err := json.Unmarshal(data, &boards); err != nil {
		return nil, err
	}
	return boards, nil
}

// SaveBoards replaces the stored board collection.
func (s *Store) SaveBoards(ctx context.Context, boards []domain.Board) error {
	data, err := json.Marshal(boards)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, boardsKey, data, 0).Err()
}

// ActiveBoard returns the saved active board id, or "" when unset.
func (s *Store) ActiveBoard(ctx context.Context) (string, error) {
	id, err := s.redis.Get(ctx, activeBoardKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}

// SetActiveBoard persists the active board id.
func (s *Store) SetActiveBoard(ctx context.Context, id string) error {
	return s.redis.Set(ctx, activeBoardKey, id, 0).Err()
}

// LoadPreferences returns the stored preferences, falling back to defaults
// when nothing has been saved yet or the document cannot be decoded.
func (s *Store) LoadPreferences(ctx context.Context) (domain.Preferences, error) {
	data, err := s.redis.Get(ctx, prefsKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.DefaultPreferences(), nil
		}
		return domain.DefaultPreferences(), err
	}
	var prefs domain.Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return domain.DefaultPreferences(), nil
	}
	return prefs, nil
}

// SavePreferences replaces the stored preferences.
func (s *Store) SavePreferences(ctx context.Context, prefs domain.Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, prefsKey, data, 0).Err()
}

// LoadCatalogSettings returns the backend catalog document, with all
// collections initialised even when the document is missing or partial.
func (s *Store) LoadCatalogSettings(ctx context.Context) (domain.CatalogSettings, error) {
	settings := domain.DefaultCatalogSettings()
	data, err := s.redis.Get(ctx, catalogKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return settings, nil
		}
		return settings, err
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return domain.DefaultCatalogSettings(), err
	}
	if settings.Manual == nil {
		settings.Manual = []domain.Service{}
	}
	if settings.Overrides == nil {
		settings.Overrides = map[string]domain.ServiceOverride{}
	}
	if settings.Hidden == nil {
		settings.Hidden = []string{}
	}
	if settings.Order == nil {
		settings.Order = map[string]int{}
	}
	return settings, nil
}

// SaveCatalogSettings replaces the backend catalog document.
func (s *Store) SaveCatalogSettings(ctx context.Context, settings domain.CatalogSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, catalogKey, data, 0).Err()
}

// Reset deletes every persisted document. Used by the factory reset flow;
// callers must re-seed derived state afterwards.
func (s *Store) Reset(ctx context.Context) error {
	return s.redis.Del(ctx, boardsKey, activeBoardKey, prefsKey, catalogKey).Err()
}
