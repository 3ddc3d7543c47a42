package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

// SeedDashboardInput controls bootstrap behavior.
type SeedDashboardInput struct {
	Viewer     dashboard.ViewerContext
	Name       string
	SetDefault bool
}

// seedWidgets is the starter layout: revenue chart plus the three stat cards.
var seedWidgets = []string{
	"widget_revenue",
	"widget_stats_revenue",
	"widget_stats_sales",
	"widget_stats_avg_ticket",
}

type seedService interface {
	CreateDashboard(ctx context.Context, viewer dashboard.ViewerContext, name, description string) (dashboard.Dashboard, error)
	AddWidget(ctx context.Context, viewer dashboard.ViewerContext, req dashboard.AddWidgetRequest) (dashboard.Widget, error)
	SetDefaultDashboard(ctx context.Context, viewer dashboard.ViewerContext, id string) error
}

// SeedDashboardCommand creates a starter dashboard for new users.
type SeedDashboardCommand struct {
	service   seedService
	telemetry Telemetry
}

// NewSeedDashboardCommand wires dependencies.
func NewSeedDashboardCommand(service seedService, telemetry Telemetry) *SeedDashboardCommand {
	return &SeedDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SeedDashboardInput] = (*SeedDashboardCommand)(nil)

// Execute runs the bootstrap pipeline.
func (c *SeedDashboardCommand) Execute(ctx context.Context, msg SeedDashboardInput) error {
	if c.service == nil {
		return errors.New("seed command requires service")
	}
	name := msg.Name
	if name == "" {
		name = "Sales Overview"
	}
	d, err := c.service.CreateDashboard(ctx, msg.Viewer, name, "Starter dashboard")
	if err != nil {
		return err
	}
	for _, baseID := range seedWidgets {
		if _, err := c.service.AddWidget(ctx, msg.Viewer, dashboard.AddWidgetRequest{
			DashboardID: d.ID,
			BaseID:      baseID,
		}); err != nil {
			return err
		}
	}
	if msg.SetDefault {
		if err := c.service.SetDefaultDashboard(ctx, msg.Viewer, d.ID); err != nil {
			return err
		}
	}
	c.telemetry.Record(ctx, "dashboard.seed", map[string]any{
		"dashboard_id": d.ID,
		"set_default":  msg.SetDefault,
	})
	return nil
}
