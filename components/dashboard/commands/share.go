package commands

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

// ShareDashboardInput toggles sharing for one dashboard.
type ShareDashboardInput struct {
	Viewer      dashboard.ViewerContext
	DashboardID string
	Enable      bool
}

type shareService interface {
	EnableSharing(ctx context.Context, viewer dashboard.ViewerContext, id string) (dashboard.Dashboard, error)
	DisableSharing(ctx context.Context, viewer dashboard.ViewerContext, id string) (dashboard.Dashboard, error)
}

// ShareDashboardCommand mints or revokes share tokens.
type ShareDashboardCommand struct {
	service   shareService
	telemetry Telemetry
}

// NewShareDashboardCommand creates a command instance.
func NewShareDashboardCommand(service shareService, telemetry Telemetry) *ShareDashboardCommand {
	return &ShareDashboardCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[ShareDashboardInput] = (*ShareDashboardCommand)(nil)

// Execute delegates to the dashboard service.
func (c *ShareDashboardCommand) Execute(ctx context.Context, msg ShareDashboardInput) error {
	if c.service == nil {
		return errors.New("share command requires service")
	}
	var err error
	if msg.Enable {
		_, err = c.service.EnableSharing(ctx, msg.Viewer, msg.DashboardID)
	} else {
		_, err = c.service.DisableSharing(ctx, msg.Viewer, msg.DashboardID)
	}
	if err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.share", map[string]any{
		"dashboard_id": msg.DashboardID,
		"enable":       msg.Enable,
	})
	return nil
}

// SetDefaultInput marks one dashboard as the viewer's default.
type SetDefaultInput struct {
	Viewer      dashboard.ViewerContext
	DashboardID string
}

type setDefaultService interface {
	SetDefaultDashboard(ctx context.Context, viewer dashboard.ViewerContext, id string) error
}

// SetDefaultCommand switches the viewer's default dashboard.
type SetDefaultCommand struct {
	service   setDefaultService
	telemetry Telemetry
}

// NewSetDefaultCommand creates a command instance.
func NewSetDefaultCommand(service setDefaultService, telemetry Telemetry) *SetDefaultCommand {
	return &SetDefaultCommand{service: service, telemetry: normalizeTelemetry(telemetry)}
}

var _ gocommand.Commander[SetDefaultInput] = (*SetDefaultCommand)(nil)

// Execute delegates to the dashboard service.
func (c *SetDefaultCommand) Execute(ctx context.Context, msg SetDefaultInput) error {
	if c.service == nil {
		return errors.New("set default command requires service")
	}
	if err := c.service.SetDefaultDashboard(ctx, msg.Viewer, msg.DashboardID); err != nil {
		return err
	}
	c.telemetry.Record(ctx, "dashboard.command.set_default", map[string]any{
		"dashboard_id": msg.DashboardID,
	})
	return nil
}
