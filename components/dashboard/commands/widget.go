package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

// AddWidgetInput carries a catalog instantiation request.
type AddWidgetInput struct {
	Viewer  dashboard.ViewerContext
	Request dashboard.AddWidgetRequest
}

type addWidgetService interface {
	AddWidget(ctx context.Context, viewer dashboard.ViewerContext, req dashboard.AddWidgetRequest) (dashboard.Widget, error)
}

// AddWidgetCommand places a new widget instance on a dashboard.
type AddWidgetCommand struct {
	service   addWidgetService
	telemetry Telemetry
}

// NewAddWidgetCommand creates a command instance.
func NewAddWidgetCommand(service addWidgetService, telemetry Telemetry) *AddWidgetCommand {
	return &AddWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[AddWidgetInput] = (*AddWidgetCommand)(nil)

// Execute delegates to the dashboard service.
func (c *AddWidgetCommand) Execute(ctx context.Context, msg AddWidgetInput) error {
	if c.service == nil {
		return errors.New("add widget command requires service")
	}
	w, err := c.service.AddWidget(ctx, msg.Viewer, msg.Request)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.widget_add", map[string]any{
		"dashboard_id": msg.Request.DashboardID,
		"base_id":      msg.Request.BaseID,
		"widget_id":    w.ID,
	})
	return nil
}

// RemoveWidgetInput identifies the widget instance to drop.
type RemoveWidgetInput struct {
	Viewer      dashboard.ViewerContext
	DashboardID string
	WidgetID    string
}

type removeWidgetService interface {
	RemoveWidget(ctx context.Context, viewer dashboard.ViewerContext, dashboardID, widgetID string) error
}

// RemoveWidgetCommand drops a widget without compacting the grid.
type RemoveWidgetCommand struct {
	service   removeWidgetService
	telemetry Telemetry
}

// NewRemoveWidgetCommand creates a command instance.
func NewRemoveWidgetCommand(service removeWidgetService, telemetry Telemetry) *RemoveWidgetCommand {
	return &RemoveWidgetCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RemoveWidgetInput] = (*RemoveWidgetCommand)(nil)

// Execute delegates to the dashboard service.
func (c *RemoveWidgetCommand) Execute(ctx context.Context, msg RemoveWidgetInput) error {
	if c.service == nil {
		return errors.New("remove widget command requires service")
	}
	if err := c.service.RemoveWidget(ctx, msg.Viewer, msg.DashboardID, msg.WidgetID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.widget_remove", map[string]any{
		"dashboard_id": msg.DashboardID,
		"widget_id":    msg.WidgetID,
	})
	return nil
}

// MoveWidgetsInput carries a drag/resize report from the grid surface.
type MoveWidgetsInput struct {
	Viewer      dashboard.ViewerContext
	DashboardID string
	Items       []dashboard.LayoutItem
}

type moveWidgetsService interface {
	MoveWidgets(ctx context.Context, viewer dashboard.ViewerContext, dashboardID string, items []dashboard.LayoutItem) error
}

// MoveWidgetsCommand reconciles layout changes into the stored dashboard.
type MoveWidgetsCommand struct {
	service   moveWidgetsService
	telemetry Telemetry
}

// NewMoveWidgetsCommand creates a command instance.
func NewMoveWidgetsCommand(service moveWidgetsService, telemetry Telemetry) *MoveWidgetsCommand {
	return &MoveWidgetsCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[MoveWidgetsInput] = (*MoveWidgetsCommand)(nil)

// Execute delegates to the dashboard service.
func (c *MoveWidgetsCommand) Execute(ctx context.Context, msg MoveWidgetsInput) error {
	if c.service == nil {
		return errors.New("move widgets command requires service")
	}
	if err := c.service.MoveWidgets(ctx, msg.Viewer, msg.DashboardID, msg.Items); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.widget_move", map[string]any{
		"dashboard_id": msg.DashboardID,
		"count":        len(msg.Items),
	})
	return nil
}
