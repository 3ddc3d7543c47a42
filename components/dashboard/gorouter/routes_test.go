package gorouter

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	router "github.com/goliatone/go-router"

	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
	"github.com/tavolahq/go-salesboard/components/dashboard/commands"
)

func TestRegisterValidatesConfig(t *testing.T) {
	if err := Register(Config[struct{}]{}); err == nil {
		t.Fatalf("expected error when router/controller missing")
	}
}

func TestRegisterHTMLRoute(t *testing.T) {
	mock := newMockRouter()
	cfg, service := newRouteFixture(t, mock)

	viewer := dashboard.ViewerContext{UserID: "user-1"}
	d, err := service.CreateDashboard(context.Background(), viewer, "Sales", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := Register(cfg); err != nil {
		t.Fatalf("register: %v", err)
	}

	h, ok := mock.routes["GET:/"]
	if !ok {
		t.Fatalf("dashboard page route not registered")
	}

	ctx := newMockContext()
	ctx.locals["user_id"] = "user-1"
	ctx.query["dashboard_id"] = d.ID
	if err := h(ctx); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(ctx.body) == 0 {
		t.Fatalf("expected response body")
	}
	if ctx.headers["Content-Type"] != "text/html; charset=utf-8" {
		t.Fatalf("wrong content type %q", ctx.headers["Content-Type"])
	}
}

func TestRegisterMountsDefaultBeforeID(t *testing.T) {
	mock := newMockRouter()
	cfg, _ := newRouteFixture(t, mock)

	if err := Register(cfg); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, ok := mock.routes["GET:/api/v1/dashboards/default"]; !ok {
		t.Fatalf("default route not registered")
	}
	if _, ok := mock.routes["GET:/api/v1/dashboards/:id"]; !ok {
		t.Fatalf("id route not registered")
	}
	defaultIdx, idIdx := -1, -1
	for i, key := range *mock.order {
		switch key {
		case "GET:/api/v1/dashboards/default":
			defaultIdx = i
		case "GET:/api/v1/dashboards/:id":
			idIdx = i
		}
	}
	if defaultIdx == -1 || idIdx == -1 || defaultIdx > idIdx {
		t.Fatalf("default route must be mounted before :id, got order %v", *mock.order)
	}
}

func TestListDashboardsRoute(t *testing.T) {
	mock := newMockRouter()
	cfg, service := newRouteFixture(t, mock)

	viewer := dashboard.ViewerContext{UserID: "user-1"}
	if _, err := service.CreateDashboard(context.Background(), viewer, "Sales", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := Register(cfg); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx := newMockContext()
	ctx.locals["user_id"] = "user-1"
	if err := mock.routes["GET:/api/v1/dashboards"](ctx); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if ctx.status != 200 {
		t.Fatalf("expected 200, got %d", ctx.status)
	}
	var payload struct {
		Data []dashboard.Dashboard `json:"data"`
	}
	if err := json.Unmarshal(ctx.body, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Data) != 1 {
		t.Fatalf("expected 1 dashboard, got %d", len(payload.Data))
	}
}

func TestSharedRouteUnknownToken(t *testing.T) {
	mock := newMockRouter()
	cfg, _ := newRouteFixture(t, mock)
	if err := Register(cfg); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx := newMockContext()
	ctx.params["token"] = "bogus"
	if err := mock.routes["GET:/share/:token"](ctx); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if ctx.status != 404 {
		t.Fatalf("expected 404 for unknown token, got %d", ctx.status)
	}
}

func TestWidgetRouteDispatchesCommand(t *testing.T) {
	mock := newMockRouter()
	cfg, _ := newRouteFixture(t, mock)
	exec := &recordingExecutor{}
	cfg.API = exec
	if err := Register(cfg); err != nil {
		t.Fatalf("register: %v", err)
	}

	ctx := newMockContext()
	ctx.locals["user_id"] = "user-1"
	ctx.params["id"] = "d1"
	ctx.body = []byte(`{"base_id":"widget_revenue"}`)
	if err := mock.routes["POST:/api/v1/dashboards/:id/widgets"](ctx); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if ctx.status != 201 {
		t.Fatalf("expected 201, got %d", ctx.status)
	}
	if len(exec.added) != 1 || exec.added[0].Request.DashboardID != "d1" {
		t.Fatalf("command not dispatched: %#v", exec.added)
	}
}

// --- Test helpers ---

func newRouteFixture(t *testing.T, mock *mockRouter) (Config[struct{}], *dashboard.Service) {
	t.Helper()
	catalog := dashboard.NewCatalog(dashboard.WithClock(func() time.Time {
		return time.UnixMilli(1700000000000)
	}))
	service := dashboard.NewService(dashboard.Options{
		Store:   dashboard.NewMemoryStore(),
		Catalog: catalog,
	})
	controller := dashboard.NewController(service, &stubRenderer{})
	return Config[struct{}]{
		Router:     mock,
		Controller: controller,
		Service:    service,
		API:        &recordingExecutor{},
	}, service
}

type embeddedRouter = router.Router[struct{}]

type mockRouter struct {
	embeddedRouter
	prefix string
	routes map[string]router.HandlerFunc
	order  *[]string
	ws     map[string]func(router.WebSocketContext) error
}

func newMockRouter() *mockRouter {
	return &mockRouter{
		routes: map[string]router.HandlerFunc{},
		order:  &[]string{},
		ws:     map[string]func(router.WebSocketContext) error{},
	}
}

func (m *mockRouter) Group(prefix string) router.Router[struct{}] {
	return &mockRouter{
		prefix: m.prefix + prefix,
		routes: m.routes,
		order:  m.order,
		ws:     m.ws,
	}
}

func (m *mockRouter) record(method, path string, handler router.HandlerFunc) {
	full := method + ":" + m.prefix + path
	m.routes[full] = handler
	*m.order = append(*m.order, full)
}

func (m *mockRouter) Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.GET), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.POST), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	m.record(string(router.DELETE), path, handler)
	return mockRouteInfo{}
}

func (m *mockRouter) WebSocket(path string, cfg router.WebSocketConfig, handler func(router.WebSocketContext) error) router.RouteInfo {
	m.ws[m.prefix+path] = handler
	return mockRouteInfo{}
}

type mockRouteInfo struct {
	router.RouteInfo
}

func (mockRouteInfo) SetName(string) router.RouteInfo { return mockRouteInfo{} }

type embeddedRouterContext = router.Context

type mockContext struct {
	embeddedRouterContext
	ctx     context.Context
	headers map[string]string
	body    []byte
	locals  map[any]any
	params  map[string]string
	query   map[string]string
	status  int
}

func newMockContext() *mockContext {
	return &mockContext{
		ctx:     context.Background(),
		headers: map[string]string{},
		locals:  map[any]any{},
		params:  map[string]string{},
		query:   map[string]string{},
	}
}

func (m *mockContext) Context() context.Context {
	return m.ctx
}

func (m *mockContext) SetHeader(k, v string) router.Context {
	m.headers[k] = v
	return m
}

func (m *mockContext) Send(b []byte) error {
	m.body = append([]byte{}, b...)
	return nil
}

func (m *mockContext) JSON(code int, v any) error {
	m.status = code
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.body = data
	return nil
}

func (m *mockContext) Body() []byte { return m.body }

func (m *mockContext) Param(name string, defaultValue ...string) string {
	if v, ok := m.params[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockContext) Query(name string, defaultValue ...string) string {
	if v, ok := m.query[name]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *mockContext) Locals(key any, value ...any) any {
	if len(value) == 0 {
		return m.locals[key]
	}
	m.locals[key] = value[0]
	return value[0]
}

type stubRenderer struct{}

func (stubRenderer) Render(name string, data any, out ...io.Writer) (string, error) {
	if len(out) > 0 && out[0] != nil {
		_, _ = out[0].Write([]byte("<html>" + name + "</html>"))
	}
	return "<html>" + name + "</html>", nil
}

type recordingExecutor struct {
	added   []commands.AddWidgetInput
	removed []commands.RemoveWidgetInput
}

func (e *recordingExecutor) Save(context.Context, commands.SaveDashboardInput) error     { return nil }
func (e *recordingExecutor) Delete(context.Context, commands.DeleteDashboardInput) error { return nil }
func (e *recordingExecutor) AddWidget(_ context.Context, msg commands.AddWidgetInput) error {
	e.added = append(e.added, msg)
	return nil
}
func (e *recordingExecutor) RemoveWidget(_ context.Context, msg commands.RemoveWidgetInput) error {
	e.removed = append(e.removed, msg)
	return nil
}
func (e *recordingExecutor) MoveWidgets(context.Context, commands.MoveWidgetsInput) error { return nil }
func (e *recordingExecutor) Share(context.Context, commands.ShareDashboardInput) error    { return nil }
func (e *recordingExecutor) SetDefault(context.Context, commands.SetDefaultInput) error   { return nil }
func (e *recordingExecutor) Refresh(context.Context, commands.RefreshDashboardInput) error {
	return nil
}
