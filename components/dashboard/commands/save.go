package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

// SaveDashboardInput carries a full dashboard state to persist.
type SaveDashboardInput struct {
	Viewer    dashboard.ViewerContext
	Dashboard dashboard.Dashboard
}

type saveService interface {
	SaveDashboard(ctx context.Context, viewer dashboard.ViewerContext, d dashboard.Dashboard) (dashboard.Dashboard, error)
}

// SaveDashboardCommand persists dashboard snapshots coming from transports.
type SaveDashboardCommand struct {
	service   saveService
	telemetry Telemetry
}

// NewSaveDashboardCommand creates a command instance.
func NewSaveDashboardCommand(service saveService, telemetry Telemetry) *SaveDashboardCommand {
	return &SaveDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SaveDashboardInput] = (*SaveDashboardCommand)(nil)

// Execute delegates to the dashboard service.
func (c *SaveDashboardCommand) Execute(ctx context.Context, msg SaveDashboardInput) error {
	if c.service == nil {
		return errors.New("save command requires service")
	}
	saved, err := c.service.SaveDashboard(ctx, msg.Viewer, msg.Dashboard)
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.save", map[string]any{
		"dashboard_id": saved.ID,
		"widget_count": len(saved.Config.Widgets),
	})
	return nil
}
