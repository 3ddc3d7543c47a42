package commands

import (
	"context"
	"errors"
	"testing"

	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

// fakeService records the calls commands delegate to it.
type fakeService struct {
	added       []dashboard.AddWidgetRequest
	removed     []string
	moved       [][]dashboard.LayoutItem
	created     []string
	defaults    []string
	shareCalls  []bool
	deleted     []string
	saved       []dashboard.Dashboard
	notified    []dashboard.Event
	err         error
	nextCreated dashboard.Dashboard
}

func (s *fakeService) AddWidget(_ context.Context, _ dashboard.ViewerContext, req dashboard.AddWidgetRequest) (dashboard.Widget, error) {
	s.added = append(s.added, req)
	return dashboard.Widget{ID: req.BaseID + "_1"}, s.err
}

func (s *fakeService) RemoveWidget(_ context.Context, _ dashboard.ViewerContext, dashboardID, widgetID string) error {
	s.removed = append(s.removed, widgetID)
	return s.err
}

func (s *fakeService) MoveWidgets(_ context.Context, _ dashboard.ViewerContext, dashboardID string, items []dashboard.LayoutItem) error {
	s.moved = append(s.moved, items)
	return s.err
}

func (s *fakeService) CreateDashboard(_ context.Context, _ dashboard.ViewerContext, name, _ string) (dashboard.Dashboard, error) {
	s.created = append(s.created, name)
	d := s.nextCreated
	if d.ID == "" {
		d.ID = "d1"
	}
	d.Name = name
	return d, s.err
}

func (s *fakeService) SetDefaultDashboard(_ context.Context, _ dashboard.ViewerContext, id string) error {
	s.defaults = append(s.defaults, id)
	return s.err
}

func (s *fakeService) EnableSharing(_ context.Context, _ dashboard.ViewerContext, id string) (dashboard.Dashboard, error) {
	s.shareCalls = append(s.shareCalls, true)
	return dashboard.Dashboard{ID: id, IsShared: true, ShareToken: "tok"}, s.err
}

func (s *fakeService) DisableSharing(_ context.Context, _ dashboard.ViewerContext, id string) (dashboard.Dashboard, error) {
	s.shareCalls = append(s.shareCalls, false)
	return dashboard.Dashboard{ID: id}, s.err
}

func (s *fakeService) DeleteDashboard(_ context.Context, _ dashboard.ViewerContext, id string) error {
	s.deleted = append(s.deleted, id)
	return s.err
}

func (s *fakeService) SaveDashboard(_ context.Context, _ dashboard.ViewerContext, d dashboard.Dashboard) (dashboard.Dashboard, error) {
	s.saved = append(s.saved, d)
	return d, s.err
}

func (s *fakeService) NotifyDashboardUpdated(_ context.Context, event dashboard.Event) error {
	s.notified = append(s.notified, event)
	return s.err
}

func TestAddWidgetCommand(t *testing.T) {
	service := &fakeService{}
	cmd := NewAddWidgetCommand(service, nil)

	err := cmd.Execute(context.Background(), AddWidgetInput{
		Request: dashboard.AddWidgetRequest{DashboardID: "d1", BaseID: "widget_revenue"},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(service.added) != 1 || service.added[0].BaseID != "widget_revenue" {
		t.Fatalf("service not invoked: %#v", service.added)
	}
}

func TestAddWidgetCommandRequiresService(t *testing.T) {
	cmd := NewAddWidgetCommand(nil, nil)
	if err := cmd.Execute(context.Background(), AddWidgetInput{}); err == nil {
		t.Fatalf("expected error without service")
	}
}

func TestAddWidgetCommandPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	cmd := NewAddWidgetCommand(&fakeService{err: wantErr}, nil)
	if err := cmd.Execute(context.Background(), AddWidgetInput{}); !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped service error, got %v", err)
	}
}

func TestRemoveWidgetCommand(t *testing.T) {
	service := &fakeService{}
	cmd := NewRemoveWidgetCommand(service, nil)
	if err := cmd.Execute(context.Background(), RemoveWidgetInput{DashboardID: "d1", WidgetID: "w1"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(service.removed) != 1 || service.removed[0] != "w1" {
		t.Fatalf("remove not delegated: %#v", service.removed)
	}
}

func TestMoveWidgetsCommand(t *testing.T) {
	service := &fakeService{}
	cmd := NewMoveWidgetsCommand(service, nil)
	items := []dashboard.LayoutItem{{ID: "w1", X: 6, Y: 0, W: 6, H: 4}}
	if err := cmd.Execute(context.Background(), MoveWidgetsInput{DashboardID: "d1", Items: items}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(service.moved) != 1 || len(service.moved[0]) != 1 {
		t.Fatalf("move not delegated: %#v", service.moved)
	}
}

func TestShareDashboardCommandEnableDisable(t *testing.T) {
	service := &fakeService{}
	cmd := NewShareDashboardCommand(service, nil)

	if err := cmd.Execute(context.Background(), ShareDashboardInput{DashboardID: "d1", Enable: true}); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := cmd.Execute(context.Background(), ShareDashboardInput{DashboardID: "d1", Enable: false}); err != nil {
		t.Fatalf("disable: %v", err)
	}
	if len(service.shareCalls) != 2 || !service.shareCalls[0] || service.shareCalls[1] {
		t.Fatalf("share calls wrong: %#v", service.shareCalls)
	}
}

func TestSetDefaultCommand(t *testing.T) {
	service := &fakeService{}
	cmd := NewSetDefaultCommand(service, nil)
	if err := cmd.Execute(context.Background(), SetDefaultInput{DashboardID: "d2"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(service.defaults) != 1 || service.defaults[0] != "d2" {
		t.Fatalf("set default not delegated: %#v", service.defaults)
	}
}

func TestDeleteDashboardCommand(t *testing.T) {
	service := &fakeService{}
	cmd := NewDeleteDashboardCommand(service, nil)
	if err := cmd.Execute(context.Background(), DeleteDashboardInput{DashboardID: "d3"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(service.deleted) != 1 || service.deleted[0] != "d3" {
		t.Fatalf("delete not delegated: %#v", service.deleted)
	}
}

func TestSaveDashboardCommand(t *testing.T) {
	service := &fakeService{}
	cmd := NewSaveDashboardCommand(service, nil)
	if err := cmd.Execute(context.Background(), SaveDashboardInput{
		Dashboard: dashboard.Dashboard{Name: "Sales"},
	}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(service.saved) != 1 || service.saved[0].Name != "Sales" {
		t.Fatalf("save not delegated: %#v", service.saved)
	}
}

func TestRefreshDashboardCommand(t *testing.T) {
	service := &fakeService{}
	cmd := NewRefreshDashboardCommand(service, nil)
	if err := cmd.Execute(context.Background(), RefreshDashboardInput{DashboardID: "d1", WidgetID: "w1"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(service.notified) != 1 || service.notified[0].WidgetID != "w1" {
		t.Fatalf("notify not delegated: %#v", service.notified)
	}
}

func TestSeedDashboardCommand(t *testing.T) {
	service := &fakeService{}
	cmd := NewSeedDashboardCommand(service, nil)

	if err := cmd.Execute(context.Background(), SeedDashboardInput{SetDefault: true}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(service.created) != 1 || service.created[0] != "Sales Overview" {
		t.Fatalf("starter dashboard not created: %#v", service.created)
	}
	if len(service.added) != len(seedWidgets) {
		t.Fatalf("expected %d seed widgets, got %d", len(seedWidgets), len(service.added))
	}
	if len(service.defaults) != 1 {
		t.Fatalf("starter dashboard not marked default")
	}
}
