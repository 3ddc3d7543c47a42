package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

// RefreshDashboardInput asks connected clients to reload a dashboard.
type RefreshDashboardInput struct {
	DashboardID string
	WidgetID    string
}

type refreshService interface {
	NotifyDashboardUpdated(ctx context.Context, event dashboard.Event) error
}

// RefreshDashboardCommand pushes a refresh event through the broadcast hook.
type RefreshDashboardCommand struct {
	service   refreshService
	telemetry Telemetry
}

// NewRefreshDashboardCommand creates a command instance.
func NewRefreshDashboardCommand(service refreshService, telemetry Telemetry) *RefreshDashboardCommand {
	return &RefreshDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[RefreshDashboardInput] = (*RefreshDashboardCommand)(nil)

// Execute delegates to the dashboard service.
func (c *RefreshDashboardCommand) Execute(ctx context.Context, msg RefreshDashboardInput) error {
	if c.service == nil {
		return errors.New("refresh command requires service")
	}
	if err := c.service.NotifyDashboardUpdated(ctx, dashboard.Event{
		DashboardID: msg.DashboardID,
		WidgetID:    msg.WidgetID,
		Reason:      "refresh",
	}); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.refresh", map[string]any{
		"dashboard_id": msg.DashboardID,
		"widget_id":    msg.WidgetID,
	})
	return nil
}
