package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/anshulsingh8326/FusionDash/domain"
	"github.com/anshulsingh8326/FusionDash/storage"
)

// ErrNotFound is returned for lookups and edits against an unknown id.
var ErrNotFound = errors.New("catalog: service not found")

// Discoverer supplies externally discovered services (container scans, static
// inventories). A failing discoverer degrades the catalog to manual entries
// only; it never fails a rebuild.
type Discoverer interface {
	Discover() ([]domain.Service, error)
}

// DiscoverFunc adapts a plain function to the Discoverer interface.
type DiscoverFunc func() ([]domain.Service, error)

func (f DiscoverFunc) Discover() ([]domain.Service, error) { return f() }

// Catalog assembles and caches the service list: discovered entries with
// user overrides applied, plus manual entries, minus hidden ones, sorted by
// their catalog order. The assembled snapshot is read-mostly; every mutation
// persists the settings document and rebuilds the snapshot before returning.
type Catalog struct {
	store    *storage.Store
	discover Discoverer
	log      *log.Logger

	mu        sync.RWMutex
	services  []domain.Service
	listeners []func([]domain.Service)
}

// New creates a Catalog. The discoverer may be nil when no discovery source
// is configured.
func New(store *storage.Store, discover Discoverer, logger *log.Logger) *Catalog {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Catalog{store: store, discover: discover, log: logger}
}

// OnChange registers a listener invoked with the new snapshot after every
// rebuild.
func (c *Catalog) OnChange(fn func([]domain.Service)) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Rebuild reassembles the snapshot from discovery and the stored settings.
func (c *Catalog) Rebuild(ctx context.Context) error {
	settings, err := c.store.LoadCatalogSettings(ctx)
	if err != nil {
		return err
	}

	var discovered []domain.Service
	if c.discover != nil {
		discovered, err = c.discover.Discover()
		if err != nil {
			c.log.WithError(err).Warn("catalog: discovery failed, continuing with manual entries")
			discovered = nil
		}
	}

	assembled := make([]domain.Service, 0, len(discovered)+len(settings.Manual))
	for _, svc := range discovered {
		if settings.IsHidden(svc.ID) {
			continue
		}
		if o, ok := settings.Overrides[svc.Name]; ok {
			o.Apply(&svc)
		}
		if n, ok := settings.Order[svc.ID]; ok {
			svc.Order = n
		}
		assembled = append(assembled, svc)
	}
	for _, svc := range settings.Manual {
		if settings.IsHidden(svc.ID) {
			continue
		}
		if n, ok := settings.Order[svc.ID]; ok {
			svc.Order = n
		}
		assembled = append(assembled, svc)
	}
	sort.SliceStable(assembled, func(i, j int) bool {
		return assembled[i].SortWeight() < assembled[j].SortWeight()
	})

	c.mu.Lock()
	c.services = assembled
	listeners := append(([]func([]domain.Service))(nil), c.listeners...)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(assembled)
	}
	return nil
}

// Services returns a copy of the current snapshot.
func (c *Catalog) Services() []domain.Service {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Service, len(c.services))
	copy(out, c.services)
	return out
}

// ByID returns the snapshot entry with the given id.
func (c *Catalog) ByID(id string) (domain.Service, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, svc := range c.services {
		if svc.ID == id {
			return svc, true
		}
	}
	return domain.Service{}, false
}

// AddManual creates a manually defined service, assigns it a fresh id and
// rebuilds the snapshot so the caller sees the stored entry immediately.
func (c *Catalog) AddManual(ctx context.Context, svc domain.Service) (domain.Service, error) {
	settings, err := c.store.LoadCatalogSettings(ctx)
	if err != nil {
		return domain.Service{}, err
	}
	svc.ID = uuid.NewString()
	if svc.Source == "" {
		svc.Source = domain.SourceManual
	}
	settings.Manual = append(settings.Manual, svc)
	if err := c.store.SaveCatalogSettings(ctx, settings); err != nil {
		return domain.Service{}, err
	}
	return svc, c.Rebuild(ctx)
}

// Update applies a partial edit. Manual services are merged in place;
// discovered ones get an override stored under their current name, the way
// discovery keeps re-identifying them across restarts.
func (c *Catalog) Update(ctx context.Context, id string, o domain.ServiceOverride) error {
	settings, err := c.store.LoadCatalogSettings(ctx)
	if err != nil {
		return err
	}

	updated := false
	for i := range settings.Manual {
		if settings.Manual[i].ID == id {
			o.Apply(&settings.Manual[i])
			updated = true
			break
		}
	}
	if !updated {
		svc, ok := c.ByID(id)
		if !ok {
			return ErrNotFound
		}
		key := svc.Name
		if o.Name != "" {
			key = o.Name
		}
		settings.Overrides[key] = o
	}

	if err := c.store.SaveCatalogSettings(ctx, settings); err != nil {
		return err
	}
	return c.Rebuild(ctx)
}

// Hide removes a service from future catalog snapshots.
func (c *Catalog) Hide(ctx context.Context, id string) error {
	settings, err := c.store.LoadCatalogSettings(ctx)
	if err != nil {
		return err
	}
	if !settings.IsHidden(id) {
		settings.Hidden = append(settings.Hidden, id)
		if err := c.store.SaveCatalogSettings(ctx, settings); err != nil {
			return err
		}
	}
	return c.Rebuild(ctx)
}

// OrderEntry is one element of a catalog-level reorder request.
type OrderEntry struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
}

// SetOrder persists catalog-level display order. This is distinct from
// per-board item order, which the board store owns.
func (c *Catalog) SetOrder(ctx context.Context, entries []OrderEntry) error {
	settings, err := c.store.LoadCatalogSettings(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		settings.Order[e.ID] = e.Order
	}
	if err := c.store.SaveCatalogSettings(ctx, settings); err != nil {
		return err
	}
	return c.Rebuild(ctx)
}
