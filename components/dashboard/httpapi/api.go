package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
	"github.com/tavolahq/go-salesboard/components/dashboard/commands"
)

// Executor is the command surface transports invoke. Transports stay thin;
// every mutation funnels through the shared commands.
type Executor interface {
	Save(ctx context.Context, msg commands.SaveDashboardInput) error
	Delete(ctx context.Context, msg commands.DeleteDashboardInput) error
	AddWidget(ctx context.Context, msg commands.AddWidgetInput) error
	RemoveWidget(ctx context.Context, msg commands.RemoveWidgetInput) error
	MoveWidgets(ctx context.Context, msg commands.MoveWidgetsInput) error
	Share(ctx context.Context, msg commands.ShareDashboardInput) error
	SetDefault(ctx context.Context, msg commands.SetDefaultInput) error
	Refresh(ctx context.Context, msg commands.RefreshDashboardInput) error
}

// CommandExecutor binds each Executor operation to a command instance.
type CommandExecutor struct {
	SaveCmd       gocommand.Commander[commands.SaveDashboardInput]
	DeleteCmd     gocommand.Commander[commands.DeleteDashboardInput]
	AddWidgetCmd  gocommand.Commander[commands.AddWidgetInput]
	RemoveCmd     gocommand.Commander[commands.RemoveWidgetInput]
	MoveCmd       gocommand.Commander[commands.MoveWidgetsInput]
	ShareCmd      gocommand.Commander[commands.ShareDashboardInput]
	SetDefaultCmd gocommand.Commander[commands.SetDefaultInput]
	RefreshCmd    gocommand.Commander[commands.RefreshDashboardInput]
}

var errCommandNotConfigured = errors.New("httpapi: command not configured")

// NewCommandExecutor wires every command against the service in one call.
func NewCommandExecutor(service *dashboard.Service, telemetry commands.Telemetry) *CommandExecutor {
	return &CommandExecutor{
		SaveCmd:       commands.NewSaveDashboardCommand(service, telemetry),
		DeleteCmd:     commands.NewDeleteDashboardCommand(service, telemetry),
		AddWidgetCmd:  commands.NewAddWidgetCommand(service, telemetry),
		RemoveCmd:     commands.NewRemoveWidgetCommand(service, telemetry),
		MoveCmd:       commands.NewMoveWidgetsCommand(service, telemetry),
		ShareCmd:      commands.NewShareDashboardCommand(service, telemetry),
		SetDefaultCmd: commands.NewSetDefaultCommand(service, telemetry),
		RefreshCmd:    commands.NewRefreshDashboardCommand(service, telemetry),
	}
}

func (e *CommandExecutor) Save(ctx context.Context, msg commands.SaveDashboardInput) error {
	if e.SaveCmd == nil {
		return errCommandNotConfigured
	}
	return e.SaveCmd.Execute(ctx, msg)
}

func (e *CommandExecutor) Delete(ctx context.Context, msg commands.DeleteDashboardInput) error {
	if e.DeleteCmd == nil {
		return errCommandNotConfigured
	}
	return e.DeleteCmd.Execute(ctx, msg)
}

func (e *CommandExecutor) AddWidget(ctx context.Context, msg commands.AddWidgetInput) error {
	if e.AddWidgetCmd == nil {
		return errCommandNotConfigured
	}
	return e.AddWidgetCmd.Execute(ctx, msg)
}

func (e *CommandExecutor) RemoveWidget(ctx context.Context, msg commands.RemoveWidgetInput) error {
	if e.RemoveCmd == nil {
		return errCommandNotConfigured
	}
	return e.RemoveCmd.Execute(ctx, msg)
}

func (e *CommandExecutor) MoveWidgets(ctx context.Context, msg commands.MoveWidgetsInput) error {
	if e.MoveCmd == nil {
		return errCommandNotConfigured
	}
	return e.MoveCmd.Execute(ctx, msg)
}

func (e *CommandExecutor) Share(ctx context.Context, msg commands.ShareDashboardInput) error {
	if e.ShareCmd == nil {
		return errCommandNotConfigured
	}
	return e.ShareCmd.Execute(ctx, msg)
}

func (e *CommandExecutor) SetDefault(ctx context.Context, msg commands.SetDefaultInput) error {
	if e.SetDefaultCmd == nil {
		return errCommandNotConfigured
	}
	return e.SetDefaultCmd.Execute(ctx, msg)
}

func (e *CommandExecutor) Refresh(ctx context.Context, msg commands.RefreshDashboardInput) error {
	if e.RefreshCmd == nil {
		return errCommandNotConfigured
	}
	return e.RefreshCmd.Execute(ctx, msg)
}

var _ Executor = (*CommandExecutor)(nil)

// ViewerResolver extracts the viewer from a plain HTTP request.
type ViewerResolver func(*http.Request) dashboard.ViewerContext

// Handlers exposes HTTP endpoints backed by shared commands, for applications
// mounting the API on a plain net/http mux instead of go-router.
type Handlers struct {
	Exec   Executor
	Viewer ViewerResolver
}

func (h *Handlers) viewer(r *http.Request) dashboard.ViewerContext {
	if h.Viewer == nil {
		return dashboard.ViewerContext{}
	}
	return h.Viewer(r)
}

func (h *Handlers) HandleSaveDashboard(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.Dashboard
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Exec.Save(r.Context(), commands.SaveDashboardInput{
		Viewer:    h.viewer(r),
		Dashboard: payload,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handlers) HandleDeleteDashboard(w http.ResponseWriter, r *http.Request, dashboardID string) {
	if err := h.Exec.Delete(r.Context(), commands.DeleteDashboardInput{
		Viewer:      h.viewer(r),
		DashboardID: dashboardID,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleAddWidget(w http.ResponseWriter, r *http.Request) {
	var payload dashboard.AddWidgetRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Exec.AddWidget(r.Context(), commands.AddWidgetInput{
		Viewer:  h.viewer(r),
		Request: payload,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *Handlers) HandleRemoveWidget(w http.ResponseWriter, r *http.Request, dashboardID, widgetID string) {
	if err := h.Exec.RemoveWidget(r.Context(), commands.RemoveWidgetInput{
		Viewer:      h.viewer(r),
		DashboardID: dashboardID,
		WidgetID:    widgetID,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) HandleMoveWidgets(w http.ResponseWriter, r *http.Request, dashboardID string) {
	var items []dashboard.LayoutItem
	if err := json.NewDecoder(r.Body).Decode(&items); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Exec.MoveWidgets(r.Context(), commands.MoveWidgetsInput{
		Viewer:      h.viewer(r),
		DashboardID: dashboardID,
		Items:       items,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleShare(w http.ResponseWriter, r *http.Request, dashboardID string, enable bool) {
	if err := h.Exec.Share(r.Context(), commands.ShareDashboardInput{
		Viewer:      h.viewer(r),
		DashboardID: dashboardID,
		Enable:      enable,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleSetDefault(w http.ResponseWriter, r *http.Request, dashboardID string) {
	if err := h.Exec.SetDefault(r.Context(), commands.SetDefaultInput{
		Viewer:      h.viewer(r),
		DashboardID: dashboardID,
	}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var payload commands.RefreshDashboardInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Exec.Refresh(r.Context(), payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
