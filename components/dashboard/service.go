package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	errMissingStore     = errors.New("dashboard: store not configured")
	errInvalidName      = errors.New("dashboard: dashboard name is required")
	errInvalidBaseID    = errors.New("dashboard: widget base id is required")
	errInvalidWidgetID  = errors.New("dashboard: widget id is required")
	errUnknownBaseID    = errors.New("dashboard: unknown catalog entry")
	errNotOwner         = errors.New("dashboard: dashboard belongs to another user")
	errReadOnlyViewer   = errors.New("dashboard: shared views are read-only")
	errMissingDashboard = errors.New("dashboard: dashboard id is required")
)

// Options configures the dashboard Service. Every collaborator is provided
// via interface so applications can swap implementations without touching the
// service.
type Options struct {
	Store           DashboardStore
	Catalog         *Catalog
	ConfigValidator ConfigValidator
	RefreshHook     RefreshHook
	Telemetry       Telemetry

	// TokenGenerator mints share tokens. Defaults to random UUIDs.
	TokenGenerator func() string
}

// Service orchestrates dashboards: widget placement, persistence, defaults,
// and sharing.
type Service struct {
	opts Options
}

// NewService builds a Service instance with safe defaults.
func NewService(opts Options) *Service {
	if opts.Store == nil {
		opts.Store = NewMemoryStore()
	}
	if opts.Catalog == nil {
		opts.Catalog = NewCatalog()
	}
	if opts.ConfigValidator == nil {
		opts.ConfigValidator = NewJSONSchemaValidator()
	}
	if opts.RefreshHook == nil {
		opts.RefreshHook = noopRefreshHook{}
	}
	if opts.TokenGenerator == nil {
		opts.TokenGenerator = uuid.NewString
	}
	opts.Telemetry = normalizeTelemetry(opts.Telemetry)
	return &Service{opts: opts}
}

// Catalog exposes the widget catalog for transports and pages.
func (s *Service) Catalog() *Catalog {
	return s.opts.Catalog
}

// CreateDashboard persists a new, empty dashboard for the viewer.
func (s *Service) CreateDashboard(ctx context.Context, viewer ViewerContext, name, description string) (Dashboard, error) {
	if err := requireWriter(viewer); err != nil {
		return Dashboard{}, err
	}
	if name == "" {
		return Dashboard{}, errInvalidName
	}
	d := Dashboard{
		Name:        name,
		Description: description,
		UserID:      viewer.UserID,
		Config: DashboardConfig{
			Widgets: []Widget{},
			Layout:  GridLayout{Columns: GridColumns},
		},
	}
	created, err := s.opts.Store.Create(ctx, d)
	if err != nil {
		return Dashboard{}, err
	}
	s.record(ctx, "dashboard.create", map[string]any{"dashboard_id": created.ID})
	return created, nil
}

// SaveDashboard persists the full dashboard state, creating it when it has no
// id yet.
func (s *Service) SaveDashboard(ctx context.Context, viewer ViewerContext, d Dashboard) (Dashboard, error) {
	if err := requireWriter(viewer); err != nil {
		return Dashboard{}, err
	}
	if d.Name == "" {
		return Dashboard{}, errInvalidName
	}
	if d.UserID == "" {
		d.UserID = viewer.UserID
	}

	var (
		saved Dashboard
		err   error
	)
	if d.ID == "" {
		saved, err = s.opts.Store.Create(ctx, d)
	} else {
		if err := s.authorize(ctx, viewer, d.ID); err != nil {
			return Dashboard{}, err
		}
		saved, err = s.opts.Store.Update(ctx, d)
	}
	if err != nil {
		return Dashboard{}, err
	}
	s.notify(ctx, Event{DashboardID: saved.ID, Reason: "save"})
	s.record(ctx, "dashboard.save", map[string]any{
		"dashboard_id": saved.ID,
		"widget_count": len(saved.Config.Widgets),
	})
	return saved, nil
}

// GetDashboard loads one dashboard owned by the viewer and rebinds its
// widgets against the catalog.
func (s *Service) GetDashboard(ctx context.Context, viewer ViewerContext, id string) (Dashboard, error) {
	if id == "" {
		return Dashboard{}, errMissingDashboard
	}
	d, err := s.opts.Store.Get(ctx, id)
	if err != nil {
		return Dashboard{}, err
	}
	if viewer.UserID != "" && d.UserID != "" && d.UserID != viewer.UserID {
		return Dashboard{}, errNotOwner
	}
	return s.hydrate(d), nil
}

// ListDashboards returns every dashboard owned by the viewer.
func (s *Service) ListDashboards(ctx context.Context, viewer ViewerContext) ([]Dashboard, error) {
	list, err := s.opts.Store.List(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}
	out := make([]Dashboard, len(list))
	for i, d := range list {
		out[i] = s.hydrate(d)
	}
	return out, nil
}

// DeleteDashboard removes a dashboard owned by the viewer.
func (s *Service) DeleteDashboard(ctx context.Context, viewer ViewerContext, id string) error {
	if err := requireWriter(viewer); err != nil {
		return err
	}
	if id == "" {
		return errMissingDashboard
	}
	if err := s.authorize(ctx, viewer, id); err != nil {
		return err
	}
	if err := s.opts.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.notify(ctx, Event{DashboardID: id, Reason: "delete"})
	s.record(ctx, "dashboard.delete", map[string]any{"dashboard_id": id})
	return nil
}

// DefaultDashboard loads the viewer's default dashboard. Returns
// ErrNoDefaultDashboard when none is marked; callers treat that as an empty
// state, not a failure.
func (s *Service) DefaultDashboard(ctx context.Context, viewer ViewerContext) (Dashboard, error) {
	d, err := s.opts.Store.Default(ctx, viewer.UserID)
	if err != nil {
		return Dashboard{}, err
	}
	return s.hydrate(d), nil
}

// SetDefaultDashboard marks one dashboard as the viewer's default. The store
// clears the flag from every other dashboard in the same write.
func (s *Service) SetDefaultDashboard(ctx context.Context, viewer ViewerContext, id string) error {
	if err := requireWriter(viewer); err != nil {
		return err
	}
	if id == "" {
		return errMissingDashboard
	}
	if err := s.authorize(ctx, viewer, id); err != nil {
		return err
	}
	if err := s.opts.Store.SetDefault(ctx, viewer.UserID, id); err != nil {
		return err
	}
	s.record(ctx, "dashboard.set_default", map[string]any{"dashboard_id": id})
	return nil
}

// AddWidgetRequest captures the data required to add a widget instance.
type AddWidgetRequest struct {
	DashboardID string         `json:"dashboard_id"`
	BaseID      string         `json:"base_id"`
	Config      map[string]any `json:"config,omitempty"`
	Title       string         `json:"title,omitempty"`
}

// AddWidget instantiates a catalog entry, validates its configuration, places
// it on the grid, and persists the updated dashboard. The placed widget is
// returned with its assigned position.
func (s *Service) AddWidget(ctx context.Context, viewer ViewerContext, req AddWidgetRequest) (Widget, error) {
	if err := requireWriter(viewer); err != nil {
		return Widget{}, err
	}
	if req.DashboardID == "" {
		return Widget{}, errMissingDashboard
	}
	if req.BaseID == "" {
		return Widget{}, errInvalidBaseID
	}
	entry, ok := s.opts.Catalog.Resolve(req.BaseID)
	if !ok {
		return Widget{}, fmt.Errorf("%w: %s", errUnknownBaseID, req.BaseID)
	}

	if err := s.authorize(ctx, viewer, req.DashboardID); err != nil {
		return Widget{}, err
	}
	d, err := s.opts.Store.Get(ctx, req.DashboardID)
	if err != nil {
		return Widget{}, err
	}

	w := s.opts.Catalog.Instantiate(entry)
	for k, v := range req.Config {
		if w.Config == nil {
			w.Config = map[string]any{}
		}
		w.Config[k] = v
	}
	if req.Title != "" {
		w.Title = req.Title
	}
	if err := s.opts.ConfigValidator.Validate(entry, w.Config); err != nil {
		return Widget{}, err
	}

	w.X, w.Y = PlaceNewWidget(d.Config.Widgets)
	d.Config.Widgets = append(d.Config.Widgets, w)
	if _, err := s.opts.Store.Update(ctx, d); err != nil {
		return Widget{}, err
	}

	s.notify(ctx, Event{DashboardID: d.ID, WidgetID: w.ID, Reason: "widget_add"})
	s.record(ctx, "dashboard.widget.add", map[string]any{
		"dashboard_id": d.ID,
		"base_id":      req.BaseID,
		"x":            w.X,
		"y":            w.Y,
	})
	return w, nil
}

// RemoveWidget drops a widget from the dashboard without compacting the grid.
func (s *Service) RemoveWidget(ctx context.Context, viewer ViewerContext, dashboardID, widgetID string) error {
	if err := requireWriter(viewer); err != nil {
		return err
	}
	if dashboardID == "" {
		return errMissingDashboard
	}
	if widgetID == "" {
		return errInvalidWidgetID
	}
	if err := s.authorize(ctx, viewer, dashboardID); err != nil {
		return err
	}
	d, err := s.opts.Store.Get(ctx, dashboardID)
	if err != nil {
		return err
	}
	d.Config.Widgets = RemoveWidget(d.Config.Widgets, widgetID)
	if _, err := s.opts.Store.Update(ctx, d); err != nil {
		return err
	}
	s.notify(ctx, Event{DashboardID: dashboardID, WidgetID: widgetID, Reason: "widget_remove"})
	s.record(ctx, "dashboard.widget.remove", map[string]any{
		"dashboard_id": dashboardID,
		"widget_id":    widgetID,
	})
	return nil
}

// MoveWidgets reconciles a drag/resize report into the persisted dashboard.
func (s *Service) MoveWidgets(ctx context.Context, viewer ViewerContext, dashboardID string, items []LayoutItem) error {
	if err := requireWriter(viewer); err != nil {
		return err
	}
	if dashboardID == "" {
		return errMissingDashboard
	}
	if err := s.authorize(ctx, viewer, dashboardID); err != nil {
		return err
	}
	d, err := s.opts.Store.Get(ctx, dashboardID)
	if err != nil {
		return err
	}
	d.Config.Widgets = ApplyLayoutChange(d.Config.Widgets, items)
	if _, err := s.opts.Store.Update(ctx, d); err != nil {
		return err
	}
	s.notify(ctx, Event{DashboardID: dashboardID, Reason: "layout_change"})
	s.record(ctx, "dashboard.widget.move", map[string]any{
		"dashboard_id": dashboardID,
		"count":        len(items),
	})
	return nil
}

// SetFilters persists a new filter snapshot on the dashboard.
func (s *Service) SetFilters(ctx context.Context, viewer ViewerContext, dashboardID string, filters Filters) error {
	if err := requireWriter(viewer); err != nil {
		return err
	}
	if dashboardID == "" {
		return errMissingDashboard
	}
	if err := s.authorize(ctx, viewer, dashboardID); err != nil {
		return err
	}
	d, err := s.opts.Store.Get(ctx, dashboardID)
	if err != nil {
		return err
	}
	if d.Config.Filters.Equal(filters) {
		return nil
	}
	d.Config.Filters = filters
	if _, err := s.opts.Store.Update(ctx, d); err != nil {
		return err
	}
	s.notify(ctx, Event{DashboardID: dashboardID, Reason: "filters_change"})
	return nil
}

// EnableSharing mints a share token for the dashboard and returns the updated
// record. Calling it again keeps the existing token.
func (s *Service) EnableSharing(ctx context.Context, viewer ViewerContext, id string) (Dashboard, error) {
	if err := requireWriter(viewer); err != nil {
		return Dashboard{}, err
	}
	if id == "" {
		return Dashboard{}, errMissingDashboard
	}
	if err := s.authorize(ctx, viewer, id); err != nil {
		return Dashboard{}, err
	}
	d, err := s.opts.Store.Get(ctx, id)
	if err != nil {
		return Dashboard{}, err
	}
	if d.IsShared && d.ShareToken != "" {
		return d, nil
	}
	updated, err := s.opts.Store.SetShareToken(ctx, id, s.opts.TokenGenerator())
	if err != nil {
		return Dashboard{}, err
	}
	s.record(ctx, "dashboard.share.enable", map[string]any{"dashboard_id": id})
	return updated, nil
}

// DisableSharing revokes the dashboard's share token.
func (s *Service) DisableSharing(ctx context.Context, viewer ViewerContext, id string) (Dashboard, error) {
	if err := requireWriter(viewer); err != nil {
		return Dashboard{}, err
	}
	if id == "" {
		return Dashboard{}, errMissingDashboard
	}
	if err := s.authorize(ctx, viewer, id); err != nil {
		return Dashboard{}, err
	}
	updated, err := s.opts.Store.SetShareToken(ctx, id, "")
	if err != nil {
		return Dashboard{}, err
	}
	s.record(ctx, "dashboard.share.disable", map[string]any{"dashboard_id": id})
	return updated, nil
}

// SharedDashboard resolves a share token to its dashboard. The result is
// rendered read-only, without exposing owner identity to the visitor.
func (s *Service) SharedDashboard(ctx context.Context, token string) (Dashboard, error) {
	if token == "" {
		return Dashboard{}, ErrNotShared
	}
	d, err := s.opts.Store.ByShareToken(ctx, token)
	if err != nil {
		return Dashboard{}, err
	}
	s.record(ctx, "dashboard.share.view", map[string]any{"dashboard_id": d.ID})
	return s.hydrate(d), nil
}

// FetchWidgetData runs the widget's provider with the dashboard filters.
// Unbound widgets return nil data; the render path shows a placeholder.
func (s *Service) FetchWidgetData(ctx context.Context, viewer ViewerContext, filters Filters, w Widget) (WidgetData, error) {
	if !w.Bound() {
		return nil, nil
	}
	data, err := w.Provider.Fetch(ctx, WidgetContext{
		Widget:  w,
		Filters: filters,
		Viewer:  viewer,
	})
	if err != nil {
		s.record(ctx, "dashboard.widget.provider_error", map[string]any{
			"widget_id": w.ID,
			"base_id":   BaseIDOf(w),
			"error":     err.Error(),
		})
		return nil, err
	}
	return data, nil
}

// NotifyDashboardUpdated exposes refresh hook invocation for commands and
// transports.
func (s *Service) NotifyDashboardUpdated(ctx context.Context, event Event) error {
	if err := s.opts.RefreshHook.DashboardUpdated(ctx, event); err != nil {
		return err
	}
	s.record(ctx, "dashboard.event", map[string]any{
		"dashboard_id": event.DashboardID,
		"widget_id":    event.WidgetID,
		"reason":       event.Reason,
	})
	return nil
}

// hydrate rebinds stored widgets to their catalog providers and normalizes
// sizes. It round-trips through the storable shape so load behavior is the
// same regardless of which store produced the dashboard.
func (s *Service) hydrate(d Dashboard) Dashboard {
	d.Config = FromStorable(ToStorable(d.Config), s.opts.Catalog)
	return d
}

func (s *Service) authorize(ctx context.Context, viewer ViewerContext, id string) error {
	if viewer.UserID == "" {
		return nil
	}
	d, err := s.opts.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if d.UserID != "" && d.UserID != viewer.UserID {
		return errNotOwner
	}
	return nil
}

func (s *Service) notify(ctx context.Context, event Event) {
	if err := s.opts.RefreshHook.DashboardUpdated(ctx, event); err != nil {
		s.record(ctx, "dashboard.refresh_hook_error", map[string]any{
			"dashboard_id": event.DashboardID,
			"error":        err.Error(),
		})
	}
}

func (s *Service) record(ctx context.Context, event string, payload map[string]any) {
	s.opts.Telemetry.Record(ctx, event, payload)
}

func requireWriter(viewer ViewerContext) error {
	if viewer.ReadOnly {
		return errReadOnlyViewer
	}
	return nil
}

type noopRefreshHook struct{}

func (noopRefreshHook) DashboardUpdated(context.Context, Event) error {
	return nil
}
