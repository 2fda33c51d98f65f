// Package view projects (board × catalog × status × search) onto the card
// grid the frontend displays. Rendering is a pure function of its inputs:
// dangling references are dropped, never errors, and the worst case is an
// empty-looking grid.
package view

import (
	"strings"

	"github.com/anshulsingh8326/FusionDash/domain"
	"github.com/anshulsingh8326/FusionDash/status"
)

const (
	// iconCDNBase resolves bare icon names like "plex" to a shared icon set.
	iconCDNBase = "https://cdn.jsdelivr.net/gh/walkxcode/dashboard-icons/png"
	// iconFallback is shown when an icon is missing or fails to load.
	iconFallback = "https://unpkg.com/@phosphor-icons/core/assets/duotone/cube-duotone.svg"
)

// Card kinds.
const (
	CardApp     = "app"
	CardSummary = "summary"
)

// Empty-state kinds.
const (
	EmptyNoSections = "no-sections"
	EmptyNoResults  = "no-results"
)

// Card is the view-model for one grid tile.
type Card struct {
	Kind         string        `json:"kind"`
	ID           string        `json:"id"`
	Name         string        `json:"name,omitempty"`
	Description  string        `json:"description,omitempty"`
	Href         string        `json:"href,omitempty"`
	Icon         string        `json:"icon,omitempty"`
	IconFallback string        `json:"iconFallback,omitempty"`
	TypeLabel    string        `json:"typeLabel,omitempty"`
	Status       status.State  `json:"status"`
	HasWidget    bool          `json:"hasWidget,omitempty"`
	Summary      *SummaryStats `json:"summary,omitempty"`
}

// SummaryStats backs the synthetic aggregate status card. It always reflects
// the full catalog, not the filtered view.
type SummaryStats struct {
	Online   int            `json:"online"`
	Total    int            `json:"total"`
	BySource map[string]int `json:"bySource"`
}

// SectionView is a rendered section.
type SectionView struct {
	ID       string               `json:"id"`
	Title    string               `json:"title"`
	Settings domain.BoardSettings `json:"settings"`
	Cards    []Card               `json:"cards"`
}

// EmptyState replaces the grid when there is nothing to show.
type EmptyState struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// BoardView is the full rendered board.
type BoardView struct {
	BoardID    string               `json:"boardId"`
	Name       string               `json:"name"`
	Settings   domain.BoardSettings `json:"settings"`
	Sections   []SectionView        `json:"sections"`
	Empty      *EmptyState          `json:"empty,omitempty"`
	SearchTerm string               `json:"searchTerm,omitempty"`
}

// BoardLink is a sidebar entry.
type BoardLink struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// WidgetServices returns the ids of visible app cards carrying a widget
// slot, for the caller to refresh after mounting.
func (v BoardView) WidgetServices() []string {
	var ids []string
	for _, sec := range v.Sections {
		for _, c := range sec.Cards {
			if c.Kind == CardApp && c.HasWidget {
				ids = append(ids, c.ID)
			}
		}
	}
	return ids
}

// WidgetChecker reports whether a service renders a widget slot.
type WidgetChecker interface {
	Supports(svc domain.Service) bool
}

// StatusSource provides the renderer's read-only view of the tracker.
type StatusSource interface {
	Get(serviceID string) status.State
	OnlineCount() int
}

// RenderBoard projects one board. Known statuses are baked into the cards so
// a re-render paints from cached knowledge before the next poll tick.
func RenderBoard(b domain.Board, services []domain.Service, st StatusSource, widgets WidgetChecker, term string) BoardView {
	byID := make(map[string]domain.Service, len(services))
	for _, svc := range services {
		byID[svc.ID] = svc
	}
	term = strings.ToLower(strings.TrimSpace(term))
	searching := term != ""

	out := BoardView{
		BoardID:    b.ID,
		Name:       b.Name,
		Settings:   b.Settings,
		Sections:   []SectionView{},
		SearchTerm: term,
	}

	hasVisible := false
	for _, sec := range b.Sections {
		sv := SectionView{ID: sec.ID, Title: sec.Title, Cards: []Card{}}
		if sec.Settings != nil {
			sv.Settings = *sec.Settings
		} else {
			sv.Settings = domain.BoardSettings{CardSize: "medium", Style: "standard", Align: "left"}
		}

		for _, itemID := range sec.Items {
			if itemID == domain.SummarySentinelID {
				// The summary card ignores the search filter and counts the
				// whole catalog.
				sv.Cards = append(sv.Cards, summaryCard(services, st))
				continue
			}
			svc, ok := byID[itemID]
			if !ok {
				// Dangling reference: the service left the catalog but the
				// board still names it. Dropped silently.
				continue
			}
			if searching && !strings.Contains(strings.ToLower(svc.Name), term) {
				continue
			}
			sv.Cards = append(sv.Cards, appCard(svc, st, widgets))
		}

		// Empty sections stay visible while browsing so items can be added,
		// but a search hides sections with no matches.
		if len(sv.Cards) > 0 || !searching {
			out.Sections = append(out.Sections, sv)
			hasVisible = true
		}
	}

	if !hasVisible && searching {
		out.Sections = []SectionView{}
		out.Empty = &EmptyState{Kind: EmptyNoResults, Message: "No apps found matching \"" + term + "\""}
	} else if len(b.Sections) == 0 {
		out.Empty = &EmptyState{Kind: EmptyNoSections, Message: "Start by adding a section"}
	}
	return out
}

// RenderLibrary projects the full catalog as a flat filtered listing.
func RenderLibrary(services []domain.Service, st StatusSource, widgets WidgetChecker, term string) []Card {
	term = strings.ToLower(strings.TrimSpace(term))
	cards := []Card{}
	for _, svc := range services {
		if term != "" && !strings.Contains(strings.ToLower(svc.Name), term) {
			continue
		}
		cards = append(cards, appCard(svc, st, widgets))
	}
	return cards
}

// RenderSidebar projects the board list with the active board marked.
func RenderSidebar(boards []domain.Board, activeID string) []BoardLink {
	links := make([]BoardLink, len(boards))
	for i, b := range boards {
		links[i] = BoardLink{ID: b.ID, Name: b.Name, Active: b.ID == activeID}
	}
	return links
}

func appCard(svc domain.Service, st StatusSource, widgets WidgetChecker) Card {
	hasWidget := false
	if widgets != nil {
		hasWidget = widgets.Supports(svc)
	}
	return Card{
		Kind:         CardApp,
		ID:           svc.ID,
		Name:         svc.Name,
		Description:  strings.TrimSpace(svc.Description),
		Href:         svc.Href,
		Icon:         ResolveIcon(svc),
		IconFallback: iconFallback,
		TypeLabel:    svc.TypeLabel(),
		Status:       st.Get(svc.ID),
		HasWidget:    hasWidget,
	}
}

func summaryCard(services []domain.Service, st StatusSource) Card {
	stats := &SummaryStats{Total: len(services), BySource: map[string]int{}}
	for _, svc := range services {
		source := svc.Source
		if source == "" || source == domain.SourceManual {
			source = "web"
		}
		stats.BySource[source]++
	}
	stats.Online = st.OnlineCount()
	return Card{Kind: CardSummary, ID: domain.SummarySentinelID, Summary: stats}
}

// ResolveIcon turns the stored icon value into a displayable source. Full
// URLs and paths pass through; a bare symbolic name maps onto the icon CDN;
// no icon at all falls back to the placeholder.
func ResolveIcon(svc domain.Service) string {
	icon := strings.TrimSpace(svc.Icon)
	if icon == "" {
		return iconFallback
	}
	if strings.Contains(icon, "/") || strings.Contains(icon, ".") {
		return icon
	}
	return iconCDNBase + "/" + strings.ToLower(icon) + ".png"
}
