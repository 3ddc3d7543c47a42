package dashboard

import (
	"context"
	"errors"
	"io"
)

// Controller renders dashboard pages on top of the Service.
type Controller struct {
	service  *Service
	renderer Renderer
}

// NewController wires the service and template renderer into a controller.
func NewController(service *Service, renderer Renderer) *Controller {
	return &Controller{service: service, renderer: renderer}
}

// WidgetView is one widget prepared for rendering: the instance, its fetched
// data, and whether the render path should show a placeholder instead.
type WidgetView struct {
	Widget      Widget
	Data        WidgetData
	Placeholder bool
	Error       string
}

// PageView is the full render model for a dashboard page.
type PageView struct {
	Dashboard Dashboard
	Widgets   []WidgetView
	ReadOnly  bool
	Empty     bool
}

// RenderDashboard renders the viewer's dashboard as HTML. An empty id loads
// the viewer's default dashboard; having none renders the empty state rather
// than failing.
func (c *Controller) RenderDashboard(ctx context.Context, viewer ViewerContext, id string, out io.Writer) error {
	view, err := c.DashboardView(ctx, viewer, id)
	if err != nil {
		return err
	}
	return c.render("dashboard", view, out)
}

// RenderShared renders a shared dashboard for an anonymous visitor.
func (c *Controller) RenderShared(ctx context.Context, token string, out io.Writer) error {
	d, err := c.service.SharedDashboard(ctx, token)
	if err != nil {
		return err
	}
	viewer := ViewerContext{ReadOnly: true}
	view := PageView{
		Dashboard: d,
		Widgets:   c.widgetViews(ctx, viewer, d),
		ReadOnly:  true,
	}
	return c.render("share", view, out)
}

// DashboardView builds the render model without writing markup, for JSON
// transports and tests.
func (c *Controller) DashboardView(ctx context.Context, viewer ViewerContext, id string) (PageView, error) {
	var (
		d   Dashboard
		err error
	)
	if id == "" {
		d, err = c.service.DefaultDashboard(ctx, viewer)
		if errors.Is(err, ErrNoDefaultDashboard) {
			return PageView{Empty: true, ReadOnly: viewer.ReadOnly}, nil
		}
	} else {
		d, err = c.service.GetDashboard(ctx, viewer, id)
	}
	if err != nil {
		return PageView{}, err
	}
	return PageView{
		Dashboard: d,
		Widgets:   c.widgetViews(ctx, viewer, d),
		ReadOnly:  viewer.ReadOnly,
	}, nil
}

// widgetViews fetches data for every bound widget in render order. Provider
// failures degrade to a per-widget error; one bad data source never takes the
// whole page down.
func (c *Controller) widgetViews(ctx context.Context, viewer ViewerContext, d Dashboard) []WidgetView {
	ordered := SortForRender(d.Config.Widgets)
	views := make([]WidgetView, 0, len(ordered))
	for _, w := range ordered {
		view := WidgetView{Widget: w}
		if !w.Bound() {
			view.Placeholder = true
			views = append(views, view)
			continue
		}
		data, err := c.service.FetchWidgetData(ctx, viewer, d.Config.Filters, w)
		if err != nil {
			view.Error = err.Error()
		} else {
			view.Data = data
		}
		views = append(views, view)
	}
	return views
}

func (c *Controller) render(name string, view PageView, out io.Writer) error {
	if c.renderer == nil {
		return errors.New("dashboard: renderer not configured")
	}
	_, err := c.renderer.Render(name, map[string]any{
		"dashboard": view.Dashboard,
		"widgets":   view.Widgets,
		"read_only": view.ReadOnly,
		"empty":     view.Empty,
		"columns":   GridColumns,
	}, out)
	return err
}
