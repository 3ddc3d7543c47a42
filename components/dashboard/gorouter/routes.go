package gorouter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	router "github.com/goliatone/go-router"

	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
	"github.com/tavolahq/go-salesboard/components/dashboard/commands"
	"github.com/tavolahq/go-salesboard/components/dashboard/httpapi"
)

// ViewerResolver converts a router.Context into a dashboard.ViewerContext.
type ViewerResolver func(router.Context) dashboard.ViewerContext

// Config wires go-router with the dashboard controller, service, API
// executor, and broadcast hook.
type Config[T any] struct {
	Router         router.Router[T]
	Controller     *dashboard.Controller
	Service        *dashboard.Service
	API            httpapi.Executor
	Broadcast      *dashboard.BroadcastHook
	ViewerResolver ViewerResolver
	BasePath       string
	Routes         RouteConfig
}

// RouteConfig customizes the relative paths used for dashboard endpoints.
type RouteConfig struct {
	HTML        string
	Shared      string
	Dashboards  string
	DashboardID string
	Default     string
	SetDefault  string
	Share       string
	Unshare     string
	Widgets     string
	WidgetID    string
	Layout      string
	Catalog     string
	WebSocket   string
}

// Register mounts dashboard routes (HTML, REST, WebSocket) on a go-router
// router.
func Register[T any](cfg Config[T]) error {
	if cfg.Router == nil {
		return errors.New("gorouter: router is required")
	}
	if cfg.Controller == nil {
		return errors.New("gorouter: controller is required")
	}
	routes := defaultRouteConfig(cfg.Routes)
	viewerResolver := cfg.ViewerResolver
	if viewerResolver == nil {
		viewerResolver = defaultViewerResolver
	}

	base := cfg.Router.Group(cfg.BasePath)

	base.Get(routes.HTML, router.WrapHandler(func(ctx router.Context) error {
		viewer := viewerResolver(ctx)
		id := ctx.Query("dashboard_id")
		var buf bytes.Buffer
		if err := cfg.Controller.RenderDashboard(ctx.Context(), viewer, id, &buf); err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send(buf.Bytes())
	}))

	base.Get(routes.Shared, router.WrapHandler(func(ctx router.Context) error {
		token := ctx.Param("token")
		var buf bytes.Buffer
		if err := cfg.Controller.RenderShared(ctx.Context(), token, &buf); err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		ctx.SetHeader("Content-Type", "text/html; charset=utf-8")
		return ctx.Send(buf.Bytes())
	}))

	if cfg.Service != nil && cfg.API != nil {
		registerAPI(base, cfg.Service, cfg.API, viewerResolver, routes)
	}

	if cfg.Broadcast != nil {
		registerWebSocket(base, cfg.Broadcast, routes.WebSocket)
	}

	return nil
}

func registerAPI[T any](r router.Router[T], service *dashboard.Service, api httpapi.Executor, resolver ViewerResolver, routes RouteConfig) {
	r.Get(routes.Dashboards, router.WrapHandler(func(ctx router.Context) error {
		list, err := service.ListDashboards(ctx.Context(), resolver(ctx))
		if err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, map[string]any{"data": list})
	}))

	r.Post(routes.Dashboards, router.WrapHandler(func(ctx router.Context) error {
		var payload dashboard.Dashboard
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		viewer := resolver(ctx)
		saved, err := service.SaveDashboard(ctx.Context(), viewer, payload)
		if err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusCreated, saved)
	}))

	// The default route must be mounted before the :id route so "default" is
	// not captured as an id.
	r.Get(routes.Default, router.WrapHandler(func(ctx router.Context) error {
		d, err := service.DefaultDashboard(ctx.Context(), resolver(ctx))
		if err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, d)
	}))

	r.Get(routes.DashboardID, router.WrapHandler(func(ctx router.Context) error {
		d, err := service.GetDashboard(ctx.Context(), resolver(ctx), ctx.Param("id"))
		if err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, d)
	}))

	r.Post(routes.DashboardID, router.WrapHandler(func(ctx router.Context) error {
		var payload dashboard.Dashboard
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		payload.ID = ctx.Param("id")
		saved, err := service.SaveDashboard(ctx.Context(), resolver(ctx), payload)
		if err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, saved)
	}))

	r.Delete(routes.DashboardID, router.WrapHandler(func(ctx router.Context) error {
		if err := api.Delete(ctx.Context(), commands.DeleteDashboardInput{
			Viewer:      resolver(ctx),
			DashboardID: ctx.Param("id"),
		}); err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusNoContent, map[string]string{"status": "deleted"})
	}))

	r.Post(routes.SetDefault, router.WrapHandler(func(ctx router.Context) error {
		if err := api.SetDefault(ctx.Context(), commands.SetDefaultInput{
			Viewer:      resolver(ctx),
			DashboardID: ctx.Param("id"),
		}); err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "default"})
	}))

	r.Post(routes.Share, router.WrapHandler(func(ctx router.Context) error {
		viewer := resolver(ctx)
		id := ctx.Param("id")
		if err := api.Share(ctx.Context(), commands.ShareDashboardInput{
			Viewer:      viewer,
			DashboardID: id,
			Enable:      true,
		}); err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		d, err := service.GetDashboard(ctx.Context(), viewer, id)
		if err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"share_token": d.ShareToken})
	}))

	r.Delete(routes.Unshare, router.WrapHandler(func(ctx router.Context) error {
		if err := api.Share(ctx.Context(), commands.ShareDashboardInput{
			Viewer:      resolver(ctx),
			DashboardID: ctx.Param("id"),
			Enable:      false,
		}); err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "unshared"})
	}))

	r.Post(routes.Widgets, router.WrapHandler(func(ctx router.Context) error {
		var payload dashboard.AddWidgetRequest
		if err := json.Unmarshal(ctx.Body(), &payload); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		payload.DashboardID = ctx.Param("id")
		if err := api.AddWidget(ctx.Context(), commands.AddWidgetInput{
			Viewer:  resolver(ctx),
			Request: payload,
		}); err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusCreated, map[string]string{"status": "created"})
	}))

	r.Delete(routes.WidgetID, router.WrapHandler(func(ctx router.Context) error {
		if err := api.RemoveWidget(ctx.Context(), commands.RemoveWidgetInput{
			Viewer:      resolver(ctx),
			DashboardID: ctx.Param("id"),
			WidgetID:    ctx.Param("widget_id"),
		}); err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusNoContent, map[string]string{"status": "removed"})
	}))

	r.Post(routes.Layout, router.WrapHandler(func(ctx router.Context) error {
		var items []dashboard.LayoutItem
		if err := json.Unmarshal(ctx.Body(), &items); err != nil {
			return respondError(ctx, http.StatusBadRequest, err)
		}
		if err := api.MoveWidgets(ctx.Context(), commands.MoveWidgetsInput{
			Viewer:      resolver(ctx),
			DashboardID: ctx.Param("id"),
			Items:       items,
		}); err != nil {
			return respondError(ctx, statusFor(err), err)
		}
		return ctx.JSON(http.StatusOK, map[string]string{"status": "moved"})
	}))

	r.Get(routes.Catalog, router.WrapHandler(func(ctx router.Context) error {
		return ctx.JSON(http.StatusOK, map[string]any{"data": service.Catalog().Entries()})
	}))
}

func registerWebSocket[T any](r router.Router[T], hook *dashboard.BroadcastHook, path string) {
	cfg := router.DefaultWebSocketConfig()
	r.WebSocket(path, cfg, func(ws router.WebSocketContext) error {
		events, cancel := hook.Subscribe()
		defer cancel()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := ws.WriteJSON(event); err != nil {
					return err
				}
			case <-ws.Context().Done():
				return ws.Close()
			}
		}
	})
}

func defaultViewerResolver(ctx router.Context) dashboard.ViewerContext {
	var viewer dashboard.ViewerContext
	if v, ok := ctx.Locals("user_id").(string); ok {
		viewer.UserID = v
	}
	if ro, ok := ctx.Locals("read_only").(bool); ok {
		viewer.ReadOnly = ro
	}
	return viewer
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrDashboardNotFound),
		errors.Is(err, dashboard.ErrNoDefaultDashboard),
		errors.Is(err, dashboard.ErrNotShared):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx router.Context, status int, err error) error {
	return ctx.JSON(status, map[string]string{"error": err.Error()})
}

func defaultRouteConfig(routes RouteConfig) RouteConfig {
	if routes.HTML == "" {
		routes.HTML = "/"
	}
	if routes.Shared == "" {
		routes.Shared = "/share/:token"
	}
	if routes.Dashboards == "" {
		routes.Dashboards = "/api/v1/dashboards"
	}
	if routes.DashboardID == "" {
		routes.DashboardID = "/api/v1/dashboards/:id"
	}
	if routes.Default == "" {
		routes.Default = "/api/v1/dashboards/default"
	}
	if routes.SetDefault == "" {
		routes.SetDefault = "/api/v1/dashboards/:id/default"
	}
	if routes.Share == "" {
		routes.Share = "/api/v1/dashboards/:id/share"
	}
	if routes.Unshare == "" {
		routes.Unshare = "/api/v1/dashboards/:id/share"
	}
	if routes.Widgets == "" {
		routes.Widgets = "/api/v1/dashboards/:id/widgets"
	}
	if routes.WidgetID == "" {
		routes.WidgetID = "/api/v1/dashboards/:id/widgets/:widget_id"
	}
	if routes.Layout == "" {
		routes.Layout = "/api/v1/dashboards/:id/layout"
	}
	if routes.Catalog == "" {
		routes.Catalog = "/api/v1/widgets/catalog"
	}
	if routes.WebSocket == "" {
		routes.WebSocket = "/ws"
	}
	return routes
}
