package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

// GetDashboardInput identifies one dashboard for a viewer.
type GetDashboardInput struct {
	Viewer      dashboard.ViewerContext
	DashboardID string
}

type getService interface {
	GetDashboard(ctx context.Context, viewer dashboard.ViewerContext, id string) (dashboard.Dashboard, error)
}

// GetDashboardQuery loads a single dashboard with providers rebound.
type GetDashboardQuery struct {
	service getService
}

// NewGetDashboardQuery builds the query.
func NewGetDashboardQuery(service getService) *GetDashboardQuery {
	return &GetDashboardQuery{service: service}
}

var _ gocommand.Querier[GetDashboardInput, dashboard.Dashboard] = (*GetDashboardQuery)(nil)

// Query resolves the dashboard.
func (q *GetDashboardQuery) Query(ctx context.Context, msg GetDashboardInput) (dashboard.Dashboard, error) {
	return q.service.GetDashboard(ctx, msg.Viewer, msg.DashboardID)
}

type listService interface {
	ListDashboards(ctx context.Context, viewer dashboard.ViewerContext) ([]dashboard.Dashboard, error)
}

// ListDashboardsQuery returns every dashboard owned by the viewer.
type ListDashboardsQuery struct {
	service listService
}

// NewListDashboardsQuery builds the query.
func NewListDashboardsQuery(service listService) *ListDashboardsQuery {
	return &ListDashboardsQuery{service: service}
}

var _ gocommand.Querier[dashboard.ViewerContext, []dashboard.Dashboard] = (*ListDashboardsQuery)(nil)

// Query resolves the viewer's dashboards.
func (q *ListDashboardsQuery) Query(ctx context.Context, viewer dashboard.ViewerContext) ([]dashboard.Dashboard, error) {
	return q.service.ListDashboards(ctx, viewer)
}

type defaultService interface {
	DefaultDashboard(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Dashboard, error)
}

// DefaultDashboardQuery loads the viewer's default dashboard.
type DefaultDashboardQuery struct {
	service defaultService
}

// NewDefaultDashboardQuery builds the query.
func NewDefaultDashboardQuery(service defaultService) *DefaultDashboardQuery {
	return &DefaultDashboardQuery{service: service}
}

var _ gocommand.Querier[dashboard.ViewerContext, dashboard.Dashboard] = (*DefaultDashboardQuery)(nil)

// Query resolves the default dashboard; ErrNoDefaultDashboard when unset.
func (q *DefaultDashboardQuery) Query(ctx context.Context, viewer dashboard.ViewerContext) (dashboard.Dashboard, error) {
	return q.service.DefaultDashboard(ctx, viewer)
}

type sharedService interface {
	SharedDashboard(ctx context.Context, token string) (dashboard.Dashboard, error)
}

// SharedDashboardQuery resolves a share token for anonymous visitors.
type SharedDashboardQuery struct {
	service sharedService
}

// NewSharedDashboardQuery builds the query.
func NewSharedDashboardQuery(service sharedService) *SharedDashboardQuery {
	return &SharedDashboardQuery{service: service}
}

var _ gocommand.Querier[string, dashboard.Dashboard] = (*SharedDashboardQuery)(nil)

// Query resolves the shared dashboard.
func (q *SharedDashboardQuery) Query(ctx context.Context, token string) (dashboard.Dashboard, error) {
	return q.service.SharedDashboard(ctx, token)
}
