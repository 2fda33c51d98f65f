package domain

import "strings"

// Well-known service sources. Discovery may report others; anything that is
// not recognised renders with the generic WEB label.
const (
	SourceDocker = "docker"
	SourceManual = "manual"
)

// SummarySentinelID is the synthetic item id representing the aggregate
// status card. It never resolves to a catalog entry.
const SummarySentinelID = "builtin_status_summary"

// StateRunning is the lifecycle state reported for a healthy container.
const StateRunning = "running"

// defaultSortWeight is used for catalog entries without an explicit order.
const defaultSortWeight = 100

// Service is a catalog entry representing a linkable external application.
// The catalog is the sole owner; boards hold only id references.
type Service struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Href          string `json:"href"`
	Icon          string `json:"icon,omitempty"`
	Group         string `json:"group,omitempty"`
	Source        string `json:"source,omitempty"`
	DisplaySource string `json:"displaySource,omitempty"`
	Container     string `json:"container,omitempty"`
	Order         int    `json:"order,omitempty"`
	WidgetType    string `json:"widgetType,omitempty"`
	APIKey        string `json:"apiKey,omitempty"`
	Pinned        bool   `json:"pinned,omitempty"`
	State         string `json:"state,omitempty"`
}

// SortWeight returns the catalog sort key, defaulting entries without an
// explicit order behind explicitly ordered ones up to the default weight.
func (s Service) SortWeight() int {
	if s.Order == 0 {
		return defaultSortWeight
	}
	return s.Order
}

// TypeLabel derives the badge shown on a card. User overrides win over the
// discovery source; the legacy MANUAL value is normalised to WEB.
func (s Service) TypeLabel() string {
	label := s.DisplaySource
	if label == "" {
		label = s.Source
	}
	if label == "" {
		label = "WEB"
	}
	label = strings.ToUpper(label)
	if label == "MANUAL" {
		label = "WEB"
	}
	return label
}

// LifecycleDown reports whether the backend-reported container state already
// rules the service out, short-circuiting any network probe.
func (s Service) LifecycleDown() bool {
	return s.Source == SourceDocker && s.State != StateRunning
}

// ServiceOverride is a partial edit applied on top of a discovered service,
// or merged into a manual one. Zero-valued fields are left untouched.
type ServiceOverride struct {
	Name          string `json:"name,omitempty"`
	Description   string `json:"description,omitempty"`
	Href          string `json:"href,omitempty"`
	Icon          string `json:"icon,omitempty"`
	Group         string `json:"group,omitempty"`
	DisplaySource string `json:"displaySource,omitempty"`
	WidgetType    string `json:"widgetType,omitempty"`
	APIKey        string `json:"apiKey,omitempty"`
	Order         *int   `json:"order,omitempty"`
	Pinned        *bool  `json:"pinned,omitempty"`
}

// Apply merges the override into the service.
func (o ServiceOverride) Apply(s *Service) {
	if o.Name != "" {
		s.Name = o.Name
	}
	if o.Description != "" {
		s.Description = o.Description
	}
	if o.Href != "" {
		s.Href = o.Href
	}
	if o.Icon != "" {
		s.Icon = o.Icon
	}
	if o.Group != "" {
		s.Group = o.Group
	}
	if o.DisplaySource != "" {
		s.DisplaySource = o.DisplaySource
	}
	if o.WidgetType != "" {
		s.WidgetType = o.WidgetType
	}
	if o.APIKey != "" {
		s.APIKey = o.APIKey
	}
	if o.Order != nil {
		s.Order = *o.Order
	}
	if o.Pinned != nil {
		s.Pinned = *o.Pinned
	}
}

// CatalogSettings is the backend-owned document the assembled catalog is
// derived from: manually created services, per-name overrides for discovered
// ones, hidden ids and the catalog-level display order.
type CatalogSettings struct {
	Manual    []Service                  `json:"manual"`
	Overrides map[string]ServiceOverride `json:"overrides"`
	Hidden    []string                   `json:"hidden"`
	Order     map[string]int             `json:"order,omitempty"`
}

// DefaultCatalogSettings returns an empty settings document with all
// collections initialised.
func DefaultCatalogSettings() CatalogSettings {
	return CatalogSettings{
		Manual:    []Service{},
		Overrides: map[string]ServiceOverride{},
		Hidden:    []string{},
		Order:     map[string]int{},
	}
}

// IsHidden reports whether the given service id has been hidden.
func (c CatalogSettings) IsHidden(id string) bool {
	for _, h := range c.Hidden {
		if h == id {
			return true
		}
	}
	return false
}
