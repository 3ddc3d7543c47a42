package dashboard

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"
)

// CatalogHook lets packages register catalog entries or providers during
// init().
type CatalogHook func(c *Catalog) error

var (
	globalHookMu sync.Mutex
	globalHooks  []CatalogHook
)

// RegisterCatalogHook registers a hook executed against new catalogs.
func RegisterCatalogHook(h CatalogHook) {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	globalHooks = append(globalHooks, h)
}

// CatalogEntry is a static widget template: everything needed to instantiate
// and later re-bind a Widget. The catalog is a closed set; adding a chart type
// means adding an entry, not loading a plugin.
type CatalogEntry struct {
	BaseID        string
	Type          string
	Title         string
	DataSource    string
	DefaultConfig map[string]any
	DefaultW      int
	DefaultH      int
	Schema        map[string]any
}

// Catalog maps stable base ids to entries and their providers.
type Catalog struct {
	mu        sync.RWMutex
	entries   map[string]CatalogEntry
	providers map[string]Provider
	now       func() time.Time
}

// CatalogOption customizes catalog construction.
type CatalogOption func(*Catalog)

// WithClock overrides the timestamp source used for instance ids.
func WithClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) {
		c.now = now
	}
}

// NewCatalog builds a catalog pre-loaded with the default widget set and
// applies global hooks.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		entries:   map[string]CatalogEntry{},
		providers: map[string]Provider{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, entry := range DefaultCatalogEntries() {
		_ = c.Register(entry)
	}
	_ = c.ApplyHooks()
	return c
}

// ApplyHooks executes registered catalog hooks.
func (c *Catalog) ApplyHooks() error {
	globalHookMu.Lock()
	defer globalHookMu.Unlock()
	for _, hook := range globalHooks {
		if err := hook(c); err != nil {
			return err
		}
	}
	return nil
}

// Register stores a catalog entry, normalizing default sizes.
func (c *Catalog) Register(entry CatalogEntry) error {
	if entry.BaseID == "" {
		return fmt.Errorf("dashboard: catalog entry base id is required")
	}
	if entry.DefaultW <= 0 {
		entry.DefaultW = DefaultWidth
	}
	if entry.DefaultH <= 0 {
		entry.DefaultH = DefaultHeight
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.BaseID] = entry
	return nil
}

// BindProvider attaches a data provider to a registered entry.
func (c *Catalog) BindProvider(baseID string, provider Provider) error {
	if baseID == "" {
		return fmt.Errorf("dashboard: base id is required to bind provider")
	}
	if provider == nil {
		return fmt.Errorf("dashboard: provider cannot be nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[baseID]; !ok {
		return fmt.Errorf("dashboard: catalog entry %s not found", baseID)
	}
	c.providers[baseID] = provider
	return nil
}

// Resolve fetches a catalog entry by base id.
func (c *Catalog) Resolve(baseID string) (CatalogEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[baseID]
	return entry, ok
}

// Provider fetches the provider bound to a base id.
func (c *Catalog) Provider(baseID string) (Provider, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.providers[baseID]
	return p, ok
}

// Entries returns all registered entries sorted by base id.
func (c *Catalog) Entries() []CatalogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := make([]CatalogEntry, 0, len(c.entries))
	for _, entry := range c.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].BaseID < entries[j].BaseID })
	return entries
}

// Instantiate builds a fresh Widget from an entry. The instance id is the
// base id plus a millisecond timestamp so placed instances stay distinct yet
// traceable to their entry. Position is (0,0) until the layout engine places
// the widget.
func (c *Catalog) Instantiate(entry CatalogEntry) Widget {
	config := make(map[string]any, len(entry.DefaultConfig))
	for k, v := range entry.DefaultConfig {
		config[k] = v
	}
	provider, _ := c.Provider(entry.BaseID)
	return Widget{
		ID:         entry.BaseID + "_" + strconv.FormatInt(c.now().UnixMilli(), 10),
		BaseID:     entry.BaseID,
		Type:       entry.Type,
		Title:      entry.Title,
		DataSource: entry.DataSource,
		Config:     config,
		W:          entry.DefaultW,
		H:          entry.DefaultH,
		Provider:   provider,
	}
}

var instanceSuffix = regexp.MustCompile(`_\d+$`)

// BaseIDOf recovers the catalog base id for a widget. Stored widgets carry it
// explicitly; legacy payloads fall back to stripping the trailing timestamp
// suffix from the instance id.
func BaseIDOf(w Widget) string {
	if w.BaseID != "" {
		return w.BaseID
	}
	return instanceSuffix.ReplaceAllString(w.ID, "")
}
