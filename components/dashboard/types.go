package dashboard

import (
	"context"
	"errors"
	"time"
)

// Grid constants shared by the layout engine and the catalog. Every dashboard
// is positioned on a 12-column, row-growing surface; new widgets default to a
// half-width tile.
const (
	GridColumns   = 12
	DefaultWidth  = 6
	DefaultHeight = 4
)

// Widget types understood by the render path.
const (
	WidgetChart = "chart"
	WidgetCard  = "card"
	WidgetTable = "table"
)

var (
	// ErrDashboardNotFound is returned by stores when no dashboard matches.
	ErrDashboardNotFound = errors.New("dashboard: not found")
	// ErrNoDefaultDashboard signals that the user has not marked a default yet.
	// Callers treat this as "nothing to show", never as a hard failure.
	ErrNoDefaultDashboard = errors.New("dashboard: no default dashboard")
	// ErrNotShared is returned when a share token does not resolve.
	ErrNotShared = errors.New("dashboard: share token not recognized")
)

// Widget is a placed, configured instance of a catalog entry. BaseID links the
// instance back to the catalog row it was instantiated from; the provider
// binding is runtime-only and never serialized.
type Widget struct {
	ID         string         `json:"id"`
	BaseID     string         `json:"base_id"`
	Type       string         `json:"type"`
	Title      string         `json:"title"`
	DataSource string         `json:"data_source"`
	Config     map[string]any `json:"config,omitempty"`
	X          int            `json:"x"`
	Y          int            `json:"y"`
	W          int            `json:"w"`
	H          int            `json:"h"`

	Provider Provider `json:"-"`
}

// Bound reports whether the widget has a renderable provider attached.
func (w Widget) Bound() bool {
	return w.Provider != nil
}

// GridLayout carries advisory grid dimensions persisted with a dashboard.
type GridLayout struct {
	Columns int `json:"columns"`
	Rows    int `json:"rows"`
}

// LayoutItem is one entry of a drag/resize report from the grid surface.
type LayoutItem struct {
	ID string `json:"id"`
	X  int    `json:"x"`
	Y  int    `json:"y"`
	W  int    `json:"w"`
	H  int    `json:"h"`
}

// Filters holds the query constraints shared by every widget on a page.
// A nil/empty field means "no constraint"; there are no sentinel values.
type Filters struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	StoreID   *int   `json:"store_id,omitempty"`
	ChannelID *int   `json:"channel_id,omitempty"`
	DayOfWeek *int   `json:"day_of_week,omitempty"`
	HourStart *int   `json:"hour_start,omitempty"`
	HourEnd   *int   `json:"hour_end,omitempty"`
}

// Equal compares filters by value, not identity, so a rebuilt-but-identical
// filter set does not count as a change.
func (f Filters) Equal(other Filters) bool {
	return f.StartDate == other.StartDate &&
		f.EndDate == other.EndDate &&
		intPtrEqual(f.StoreID, other.StoreID) &&
		intPtrEqual(f.ChannelID, other.ChannelID) &&
		intPtrEqual(f.DayOfWeek, other.DayOfWeek) &&
		intPtrEqual(f.HourStart, other.HourStart) &&
		intPtrEqual(f.HourEnd, other.HourEnd)
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// DashboardConfig is the persisted arrangement: widgets, grid metadata, and
// the filter snapshot restored on load.
type DashboardConfig struct {
	Widgets []Widget   `json:"widgets"`
	Layout  GridLayout `json:"layout"`
	Filters Filters    `json:"filters"`
}

// Dashboard is a named, persisted collection of widgets. At most one dashboard
// per user carries IsDefault; stores enforce that at the write boundary.
type Dashboard struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Config      DashboardConfig `json:"config"`
	IsDefault   bool            `json:"is_default"`
	IsShared    bool            `json:"is_shared"`
	ShareToken  string          `json:"share_token,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at,omitempty"`
}

// DashboardStore persists dashboards. Implementations must be safe for
// concurrent use and must keep the at-most-one-default invariant: marking a
// dashboard default clears the flag from every other dashboard of that user
// in the same write.
type DashboardStore interface {
	Create(ctx context.Context, d Dashboard) (Dashboard, error)
	Update(ctx context.Context, d Dashboard) (Dashboard, error)
	Get(ctx context.Context, id string) (Dashboard, error)
	List(ctx context.Context, userID string) ([]Dashboard, error)
	Delete(ctx context.Context, id string) error
	Default(ctx context.Context, userID string) (Dashboard, error)
	SetDefault(ctx context.Context, userID, id string) error
	SetShareToken(ctx context.Context, id, token string) (Dashboard, error)
	ByShareToken(ctx context.Context, token string) (Dashboard, error)
}

// CatalogSource resolves catalog entries for instantiation and rebinding.
type CatalogSource interface {
	Resolve(baseID string) (CatalogEntry, bool)
	Entries() []CatalogEntry
}

// ConfigValidator validates a widget configuration bag against the schema of
// its catalog entry.
type ConfigValidator interface {
	Validate(entry CatalogEntry, config map[string]any) error
}

// RefreshHook notifies transports (WebSocket/SSE) about dashboard changes.
type RefreshHook interface {
	DashboardUpdated(ctx context.Context, event Event) error
}

// Event describes a dashboard change transports might care about.
type Event struct {
	DashboardID string `json:"dashboard_id,omitempty"`
	WidgetID    string `json:"widget_id,omitempty"`
	Reason      string `json:"reason"`
}

// ViewerContext identifies the user a page is rendered for. Shared views use
// a zero viewer and are rendered read-only.
type ViewerContext struct {
	UserID   string
	ReadOnly bool
}
