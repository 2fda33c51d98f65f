package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/anshulsingh8326/FusionDash/domain"
)

// inventoryOrderDefault matches the discovery default: unordered entries sort
// behind everything placed explicitly.
const inventoryOrderDefault = 999

type inventoryFile struct {
	Services []inventoryEntry `yaml:"services"`
}

type inventoryEntry struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Href        string `yaml:"href"`
	Icon        string `yaml:"icon"`
	Group       string `yaml:"group"`
	Source      string `yaml:"source"`
	Container   string `yaml:"container"`
	Order       int    `yaml:"order"`
	WidgetType  string `yaml:"widgetType"`
	APIKey      string `yaml:"apiKey"`
	Pinned      bool   `yaml:"pinned"`
	State       string `yaml:"state"`
}

// Inventory discovers services from a YAML file, the self-hosted stand-in
// for a live container scan: an agent (or the operator) keeps the file up to
// date and the watcher picks changes up.
type Inventory struct {
	path string
}

// NewInventory creates a file-backed discoverer.
func NewInventory(path string) *Inventory {
	return &Inventory{path: path}
}

// Path returns the watched file path.
func (inv *Inventory) Path() string { return inv.path }

// Discover parses the inventory file. A missing file is an empty inventory,
// not an error.
func (inv *Inventory) Discover() ([]domain.Service, error) {
	data, err := os.ReadFile(inv.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var file inventoryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", inv.path, err)
	}

	services := make([]domain.Service, 0, len(file.Services))
	for _, e := range file.Services {
		if e.Name == "" {
			continue
		}
		svc := domain.Service{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Href:        e.Href,
			Icon:        e.Icon,
			Group:       e.Group,
			Source:      e.Source,
			Container:   e.Container,
			Order:       e.Order,
			WidgetType:  e.WidgetType,
			APIKey:      e.APIKey,
			Pinned:      e.Pinned,
			State:       e.State,
		}
		if svc.ID == "" {
			svc.ID = slug(e.Name)
		}
		if svc.Source == "" {
			svc.Source = domain.SourceDocker
		}
		if svc.Group == "" {
			svc.Group = "Other"
		}
		if svc.Order == 0 {
			svc.Order = inventoryOrderDefault
		}
		if svc.Source == domain.SourceDocker && svc.State == "" {
			svc.State = domain.StateRunning
		}
		services = append(services, svc)
	}
	return services, nil
}

// slug derives a stable id from the entry name so the same inventory line
// keeps its board placements across reloads.
func slug(name string) string {
	return "inv_" + strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
