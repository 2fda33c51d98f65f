// Package board owns the user's board/section/item arrangement. It is the
// only writer of that structure: every mutation persists the full collection
// before returning, so a reload never loses a completed action.
package board

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/anshulsingh8326/FusionDash/domain"
	"github.com/anshulsingh8326/FusionDash/storage"
)

var (
	// ErrLastBoard rejects deleting the only remaining board.
	ErrLastBoard = errors.New("cannot delete the last board")
	// ErrBoardNotFound is returned for edits against an unknown board id.
	ErrBoardNotFound = errors.New("board not found")
	// ErrSectionNotFound is returned for edits against an unknown section id.
	ErrSectionNotFound = errors.New("section not found")
	// ErrSummaryPlaced rejects placing a second summary card on one board.
	ErrSummaryPlaced = errors.New("summary card already on this board")
)

// RemoveScope selects how far RemoveItem reaches.
type RemoveScope string

const (
	// ScopeBoard strips the service from one board only.
	ScopeBoard RemoveScope = "board"
	// ScopeGlobal strips the service from every board, used when a service
	// is uninstalled.
	ScopeGlobal RemoveScope = "global"
)

// Store is the board store. All exported methods are safe for concurrent
// use; mutations are serialised and written through before returning.
type Store struct {
	storage *storage.Store
	log     *log.Logger

	mu       sync.Mutex
	boards   []domain.Board
	seeded   bool
	onChange []func()
}

// NewStore creates a Store over the given persistence layer.
func NewStore(st *storage.Store, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Store{storage: st, log: logger}
}

// OnChange registers a listener invoked after every persisted mutation.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = append(s.onChange, fn)
	s.mu.Unlock()
}

// Load hydrates the store. Legacy flat-item boards are migrated in place and
// the migrated shape is persisted immediately, so later loads skip this
// path. When nothing is stored, a single default board is seeded.
func (s *Store) Load(ctx context.Context) error {
	boards, err := s.storage.LoadBoards(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for i := range boards {
		if boards[i].Migrate() {
			changed = true
		}
	}
	if len(boards) == 0 {
		boards = []domain.Board{domain.DefaultBoard()}
		s.seeded = true
		changed = true
		s.log.Info("no boards stored, seeding default board")
	}
	s.boards = boards

	if changed {
		return s.persistLocked(ctx)
	}
	return nil
}

// Seeded reports whether Load created the default board because nothing was
// stored. Used once at startup to adopt legacy pinned services.
func (s *Store) Seeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seeded
}

// AdoptPinned places legacy pinned services onto the freshly seeded default
// board. Schema generations before sections expressed board membership as a
// per-service flag; this folds that flag into explicit placement once.
func (s *Store) AdoptPinned(ctx context.Context, serviceIDs []string) error {
	if len(serviceIDs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.seeded || len(s.boards) == 0 || len(s.boards[0].Sections) == 0 {
		return nil
	}
	sec := &s.boards[0].Sections[0]
	placed := s.boards[0].PlacedServiceIDs()
	for _, id := range serviceIDs {
		if _, ok := placed[id]; ok {
			continue
		}
		sec.Items = append(sec.Items, id)
	}
	return s.persistLocked(ctx)
}

// Boards returns a copy of the collection, for the sidebar.
func (s *Store) Boards() []domain.Board {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyBoardsLocked()
}

// Resolve returns the board for the requested id. The fallback is total:
// an unknown or empty id falls back to the persisted active board, then to
// the first board, so the UI always has an active board.
func (s *Store) Resolve(ctx context.Context, id string) (domain.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.boards) == 0 {
		return domain.Board{}, ErrBoardNotFound
	}
	if b := s.findLocked(id); b != nil {
		return copyBoard(*b), nil
	}
	if saved, err := s.storage.ActiveBoard(ctx); err == nil {
		if b := s.findLocked(saved); b != nil {
			return copyBoard(*b), nil
		}
	}
	return copyBoard(s.boards[0]), nil
}

// SetActive persists the active board id for future loads. Unknown ids are
// rejected so the saved id always resolves.
func (s *Store) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(id) == nil {
		return ErrBoardNotFound
	}
	return s.storage.SetActiveBoard(ctx, id)
}

// CreateBoard appends a new board with one default section.
func (s *Store) CreateBoard(ctx context.Context, name string) (domain.Board, error) {
	if name == "" {
		name = "New Board"
	}
	b := domain.Board{
		ID:       uuid.NewString(),
		Name:     name,
		Settings: domain.BoardSettings{CardSize: "medium"},
		Sections: []domain.Section{{ID: uuid.NewString(), Title: "Main", Items: []string{}}},
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards = append(s.boards, b)
	if err := s.persistLocked(ctx); err != nil {
		return domain.Board{}, err
	}
	return copyBoard(b), nil
}

// UpdateBoard renames a board and replaces its settings.
func (s *Store) UpdateBoard(ctx context.Context, id, name string, settings domain.BoardSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.findLocked(id)
	if b == nil {
		return ErrBoardNotFound
	}
	if name != "" {
		b.Name = name
	}
	b.Settings = settings
	return s.persistLocked(ctx)
}

// DeleteBoard removes a board. Deleting the last remaining board is refused
// with ErrLastBoard so the collection never becomes empty through this path.
func (s *Store) DeleteBoard(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.boards) <= 1 {
		return ErrLastBoard
	}
	idx := -1
	for i := range s.boards {
		if s.boards[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrBoardNotFound
	}
	s.boards = append(s.boards[:idx], s.boards[idx+1:]...)
	return s.persistLocked(ctx)
}

// AddSection appends a section to a board.
func (s *Store) AddSection(ctx context.Context, boardID, title string) (domain.Section, error) {
	if title == "" {
		title = "New Section"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.findLocked(boardID)
	if b == nil {
		return domain.Section{}, ErrBoardNotFound
	}
	sec := domain.Section{ID: uuid.NewString(), Title: title, Items: []string{}}
	b.Sections = append(b.Sections, sec)
	if err := s.persistLocked(ctx); err != nil {
		return domain.Section{}, err
	}
	return sec, nil
}

// RenameSection retitles a section.
func (s *Store) RenameSection(ctx context.Context, boardID, sectionID, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, err := s.sectionLocked(boardID, sectionID)
	if err != nil {
		return err
	}
	sec.Title = title
	return s.persistLocked(ctx)
}

// UpdateSectionSettings replaces a section's layout settings.
func (s *Store) UpdateSectionSettings(ctx context.Context, boardID, sectionID string, settings domain.BoardSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, err := s.sectionLocked(boardID, sectionID)
	if err != nil {
		return err
	}
	sec.Settings = &settings
	return s.persistLocked(ctx)
}

// DeleteSection removes a section and all its placements.
func (s *Store) DeleteSection(ctx context.Context, boardID, sectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.findLocked(boardID)
	if b == nil {
		return ErrBoardNotFound
	}
	for i := range b.Sections {
		if b.Sections[i].ID == sectionID {
			b.Sections = append(b.Sections[:i], b.Sections[i+1:]...)
			return s.persistLocked(ctx)
		}
	}
	return ErrSectionNotFound
}

// AddItem appends a service reference to a section. The same service may be
// placed on any number of boards and sections; the catalog entity is shared,
// its placements are not.
func (s *Store) AddItem(ctx context.Context, boardID, sectionID, serviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, err := s.sectionLocked(boardID, sectionID)
	if err != nil {
		return err
	}
	sec.Items = append(sec.Items, serviceID)
	return s.persistLocked(ctx)
}

// AddSummary places the aggregate status card at the front of a section. A
// board holds at most one summary card.
func (s *Store) AddSummary(ctx context.Context, boardID, sectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.findLocked(boardID)
	if b == nil {
		return ErrBoardNotFound
	}
	if b.HasSummary() {
		return ErrSummaryPlaced
	}
	sec := b.Section(sectionID)
	if sec == nil {
		return ErrSectionNotFound
	}
	sec.Items = append([]string{domain.SummarySentinelID}, sec.Items...)
	return s.persistLocked(ctx)
}

// RemoveItem strips a service id (or the summary sentinel) from one board or
// from every board, depending on scope.
func (s *Store) RemoveItem(ctx context.Context, boardID, serviceID string, scope RemoveScope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch scope {
	case ScopeGlobal:
		for i := range s.boards {
			stripItem(&s.boards[i], serviceID)
		}
	default:
		b := s.findLocked(boardID)
		if b == nil {
			return ErrBoardNotFound
		}
		stripItem(b, serviceID)
	}
	return s.persistLocked(ctx)
}

// ReorderSection replaces a section's item order wholesale with the ordered
// id list produced by the drag-and-drop collaborator. This is the only path
// by which item order changes within a section.
func (s *Store) ReorderSection(ctx context.Context, boardID, sectionID string, orderedIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, err := s.sectionLocked(boardID, sectionID)
	if err != nil {
		return err
	}
	sec.Items = append([]string{}, orderedIDs...)
	return s.persistLocked(ctx)
}

// AvailableServices returns catalog services not yet placed on the board,
// for the picker's available-to-add list. The summary sentinel never counts
// as a placed service.
func (s *Store) AvailableServices(boardID string, services []domain.Service) []domain.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.findLocked(boardID)
	if b == nil {
		return nil
	}
	placed := b.PlacedServiceIDs()
	out := make([]domain.Service, 0, len(services))
	for _, svc := range services {
		if _, ok := placed[svc.ID]; ok {
			continue
		}
		out = append(out, svc)
	}
	return out
}

func (s *Store) findLocked(id string) *domain.Board {
	if id == "" {
		return nil
	}
	for i := range s.boards {
		if s.boards[i].ID == id {
			return &s.boards[i]
		}
	}
	return nil
}

func (s *Store) sectionLocked(boardID, sectionID string) (*domain.Section, error) {
	b := s.findLocked(boardID)
	if b == nil {
		return nil, ErrBoardNotFound
	}
	sec := b.Section(sectionID)
	if sec == nil {
		return nil, ErrSectionNotFound
	}
	return sec, nil
}

func (s *Store) persistLocked(ctx context.Context) error {
	if err := s.storage.SaveBoards(ctx, s.boards); err != nil {
		return err
	}
	for _, fn := range s.onChange {
		fn()
	}
	return nil
}

func (s *Store) copyBoardsLocked() []domain.Board {
	out := make([]domain.Board, len(s.boards))
	for i, b := range s.boards {
		out[i] = copyBoard(b)
	}
	return out
}

func copyBoard(b domain.Board) domain.Board {
	sections := make([]domain.Section, len(b.Sections))
	for i, sec := range b.Sections {
		items := append([]string{}, sec.Items...)
		sections[i] = domain.Section{ID: sec.ID, Title: sec.Title, Items: items}
		if sec.Settings != nil {
			settings := *sec.Settings
			sections[i].Settings = &settings
		}
	}
	b.Sections = sections
	return b
}

func stripItem(b *domain.Board, serviceID string) {
	for i := range b.Sections {
		items := b.Sections[i].Items[:0]
		for _, id := range b.Sections[i].Items {
			if id != serviceID {
				items = append(items, id)
			}
		}
		b.Sections[i].Items = items
	}
}
