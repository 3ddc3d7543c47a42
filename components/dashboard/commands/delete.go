package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

// DeleteDashboardInput identifies the dashboard to remove.
type DeleteDashboardInput struct {
	Viewer      dashboard.ViewerContext
	DashboardID string
}

type deleteService interface {
	DeleteDashboard(ctx context.Context, viewer dashboard.ViewerContext, id string) error
}

// DeleteDashboardCommand removes a dashboard.
type DeleteDashboardCommand struct {
	service   deleteService
	telemetry Telemetry
}

// NewDeleteDashboardCommand creates a command instance.
func NewDeleteDashboardCommand(service deleteService, telemetry Telemetry) *DeleteDashboardCommand {
	return &DeleteDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[DeleteDashboardInput] = (*DeleteDashboardCommand)(nil)

// Execute delegates to the dashboard service.
func (c *DeleteDashboardCommand) Execute(ctx context.Context, msg DeleteDashboardInput) error {
	if c.service == nil {
		return errors.New("delete command requires service")
	}
	if err := c.service.DeleteDashboard(ctx, msg.Viewer, msg.DashboardID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.delete", map[string]any{
		"dashboard_id": msg.DashboardID,
	})
	return nil
}
