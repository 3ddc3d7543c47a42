package dashboard

import (
	"encoding/json"
	"fmt"
)

// StorableWidget is the serialized shape of a placed widget. Runtime bindings
// (the provider) are dropped; everything needed to rebuild the widget against
// the catalog is kept.
type StorableWidget struct {
	ID         string         `json:"id"`
	BaseID     string         `json:"base_id,omitempty"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	DataSource string         `json:"data_source"`
	Config     map[string]any `json:"config,omitempty"`
	X          int            `json:"x"`
	Y          int            `json:"y"`
	W          int            `json:"w"`
	H          int            `json:"h"`
}

// StorableConfig is the persisted dashboard configuration.
type StorableConfig struct {
	Widgets []StorableWidget `json:"widgets"`
	Layout  GridLayout       `json:"layout"`
	Filters Filters          `json:"filters"`
}

// ToStorable strips runtime state from a dashboard configuration, leaving the
// JSON-safe shape stores persist.
func ToStorable(cfg DashboardConfig) StorableConfig {
	out := StorableConfig{
		Widgets: make([]StorableWidget, 0, len(cfg.Widgets)),
		Layout:  cfg.Layout,
		Filters: cfg.Filters,
	}
	for _, w := range cfg.Widgets {
		out.Widgets = append(out.Widgets, StorableWidget{
			ID:         w.ID,
			BaseID:     w.BaseID,
			Type:       w.Type,
			Title:      w.Title,
			DataSource: w.DataSource,
			Config:     w.Config,
			X:          w.X,
			Y:          w.Y,
			W:          w.W,
			H:          w.H,
		})
	}
	return out
}

// FromStorable rebuilds a runtime configuration from its stored shape,
// re-binding each widget to its catalog provider. Widgets whose base id no
// longer resolves stay in the list unbound; the render path shows a
// placeholder for them instead of failing the whole dashboard.
func FromStorable(stored StorableConfig, catalog CatalogSource) DashboardConfig {
	cfg := DashboardConfig{
		Widgets: make([]Widget, 0, len(stored.Widgets)),
		Layout:  stored.Layout,
		Filters: stored.Filters,
	}
	for _, sw := range stored.Widgets {
		w := Widget{
			ID:         sw.ID,
			BaseID:     sw.BaseID,
			Type:       sw.Type,
			Title:      sw.Title,
			DataSource: sw.DataSource,
			Config:     sw.Config,
			X:          sw.X,
			Y:          sw.Y,
			W:          sw.W,
			H:          sw.H,
		}
		if w.W <= 0 {
			w.W = DefaultWidth
		}
		if w.H <= 0 {
			w.H = DefaultHeight
		}
		baseID := BaseIDOf(w)
		if w.BaseID == "" {
			w.BaseID = baseID
		}
		if catalog != nil {
			if entry, ok := catalog.Resolve(baseID); ok {
				if binder, ok := catalog.(interface {
					Provider(string) (Provider, bool)
				}); ok {
					w.Provider, _ = binder.Provider(entry.BaseID)
				}
				if w.Title == "" {
					w.Title = entry.Title
				}
				if w.DataSource == "" {
					w.DataSource = entry.DataSource
				}
				if w.Type == "" {
					w.Type = entry.Type
				}
			}
		}
		cfg.Widgets = append(cfg.Widgets, w)
	}
	return cfg
}

// EncodeConfig marshals a dashboard configuration for storage.
func EncodeConfig(cfg DashboardConfig) ([]byte, error) {
	raw, err := json.Marshal(ToStorable(cfg))
	if err != nil {
		return nil, fmt.Errorf("dashboard: encoding config: %w", err)
	}
	return raw, nil
}

// DecodeConfig unmarshals a stored configuration and re-binds it against the
// catalog.
func DecodeConfig(raw []byte, catalog CatalogSource) (DashboardConfig, error) {
	if len(raw) == 0 {
		return DashboardConfig{}, nil
	}
	var stored StorableConfig
	if err := json.Unmarshal(raw, &stored); err != nil {
		return DashboardConfig{}, fmt.Errorf("dashboard: decoding config: %w", err)
	}
	return FromStorable(stored, catalog), nil
}
