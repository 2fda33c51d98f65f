package domain

// BoardSettings holds appearance settings. The same shape is used at board
// level (wallpaper, blur, overlay) and at section level (card size, style,
// alignment, fixed-grid columns); unused fields stay zero.
type BoardSettings struct {
	Wallpaper string  `json:"wallpaper,omitempty"`
	Blur      int     `json:"blur,omitempty"`
	Opacity   float64 `json:"opacity,omitempty"`
	Fit       string  `json:"fit,omitempty"`
	CardSize  string  `json:"cardSize,omitempty"`
	Style     string  `json:"style,omitempty"`
	Align     string  `json:"align,omitempty"`
	Columns   int     `json:"columns,omitempty"`
	Stretch   *bool   `json:"stretch,omitempty"`
}

// Section is an ordered, titled sub-list of item references within a board.
// Items hold service ids, or the summary sentinel.
type Section struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Items    []string       `json:"items"`
	Settings *BoardSettings `json:"settings,omitempty"`
}

// Board is a user-defined named view composed of sections.
//
// Items is the legacy flat shape kept only as a migration source; Migrate
// folds it into a single section and clears it.
type Board struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Settings BoardSettings `json:"settings"`
	Sections []Section     `json:"sections"`
	Items    []string      `json:"items,omitempty"`
}

// Migrate converts a legacy flat-item board to the section shape in place.
// It returns true when the board was changed, so callers can persist the
// migrated document once and skip this path on future loads. Already
// migrated boards are left untouched, making the migration idempotent.
func (b *Board) Migrate() bool {
	if b.Sections != nil {
		return false
	}
	b.Sections = []Section{}
	if len(b.Items) > 0 {
		b.Sections = append(b.Sections, Section{ID: "sec_def", Title: "Main", Items: b.Items})
	}
	b.Items = nil
	return true
}

// Section returns a pointer to the section with the given id, or nil.
func (b *Board) Section(id string) *Section {
	for i := range b.Sections {
		if b.Sections[i].ID == id {
			return &b.Sections[i]
		}
	}
	return nil
}

// PlacedServiceIDs returns the set of service ids referenced anywhere on the
// board. The summary sentinel is not a service and is excluded; use
// HasSummary to test for it.
func (b Board) PlacedServiceIDs() map[string]struct{} {
	placed := map[string]struct{}{}
	for _, sec := range b.Sections {
		for _, id := range sec.Items {
			if id == SummarySentinelID {
				continue
			}
			placed[id] = struct{}{}
		}
	}
	return placed
}

// HasSummary reports whether the summary card is placed on the board.
func (b Board) HasSummary() bool {
	for _, sec := range b.Sections {
		for _, id := range sec.Items {
			if id == SummarySentinelID {
				return true
			}
		}
	}
	return false
}

// DefaultBoard is the board seeded when no boards exist yet.
func DefaultBoard() Board {
	return Board{
		ID:       "default",
		Name:     "Home",
		Settings: BoardSettings{CardSize: "medium", Style: "standard"},
		Sections: []Section{{ID: "s1", Title: "General", Items: []string{}}},
	}
}
