package queries

import (
	"context"
	"errors"
	"testing"

	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

type fakeQueryService struct {
	dashboards map[string]dashboard.Dashboard
	byToken    map[string]dashboard.Dashboard
	list       []dashboard.Dashboard
	def        dashboard.Dashboard
	defErr     error
	catalog    *dashboard.Catalog
}

func (s *fakeQueryService) GetDashboard(_ context.Context, _ dashboard.ViewerContext, id string) (dashboard.Dashboard, error) {
	d, ok := s.dashboards[id]
	if !ok {
		return dashboard.Dashboard{}, dashboard.ErrDashboardNotFound
	}
	return d, nil
}

func (s *fakeQueryService) ListDashboards(context.Context, dashboard.ViewerContext) ([]dashboard.Dashboard, error) {
	return s.list, nil
}

func (s *fakeQueryService) DefaultDashboard(context.Context, dashboard.ViewerContext) (dashboard.Dashboard, error) {
	return s.def, s.defErr
}

func (s *fakeQueryService) SharedDashboard(_ context.Context, token string) (dashboard.Dashboard, error) {
	d, ok := s.byToken[token]
	if !ok {
		return dashboard.Dashboard{}, dashboard.ErrNotShared
	}
	return d, nil
}

func (s *fakeQueryService) Catalog() *dashboard.Catalog {
	return s.catalog
}

func TestGetDashboardQuery(t *testing.T) {
	service := &fakeQueryService{dashboards: map[string]dashboard.Dashboard{
		"d1": {ID: "d1", Name: "Sales"},
	}}
	query := NewGetDashboardQuery(service)

	d, err := query.Query(context.Background(), GetDashboardInput{DashboardID: "d1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if d.Name != "Sales" {
		t.Fatalf("unexpected dashboard %#v", d)
	}

	if _, err := query.Query(context.Background(), GetDashboardInput{DashboardID: "nope"}); !errors.Is(err, dashboard.ErrDashboardNotFound) {
		t.Fatalf("expected ErrDashboardNotFound, got %v", err)
	}
}

func TestListDashboardsQuery(t *testing.T) {
	service := &fakeQueryService{list: []dashboard.Dashboard{{ID: "d1"}, {ID: "d2"}}}
	query := NewListDashboardsQuery(service)

	list, err := query.Query(context.Background(), dashboard.ViewerContext{UserID: "user-1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 dashboards, got %d", len(list))
	}
}

func TestDefaultDashboardQueryPropagatesSentinel(t *testing.T) {
	service := &fakeQueryService{defErr: dashboard.ErrNoDefaultDashboard}
	query := NewDefaultDashboardQuery(service)

	if _, err := query.Query(context.Background(), dashboard.ViewerContext{UserID: "user-1"}); !errors.Is(err, dashboard.ErrNoDefaultDashboard) {
		t.Fatalf("expected ErrNoDefaultDashboard, got %v", err)
	}
}

func TestSharedDashboardQuery(t *testing.T) {
	service := &fakeQueryService{byToken: map[string]dashboard.Dashboard{
		"tok-1": {ID: "d1", IsShared: true, ShareToken: "tok-1"},
	}}
	query := NewSharedDashboardQuery(service)

	d, err := query.Query(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !d.IsShared {
		t.Fatalf("expected shared dashboard, got %#v", d)
	}

	if _, err := query.Query(context.Background(), "bogus"); !errors.Is(err, dashboard.ErrNotShared) {
		t.Fatalf("expected ErrNotShared, got %v", err)
	}
}

func TestCatalogQueryListsEntries(t *testing.T) {
	service := &fakeQueryService{catalog: dashboard.NewCatalog()}
	query := NewCatalogQuery(service)

	entries, err := query.Query(context.Background(), CatalogInput{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(entries) == 0 {
		t.Fatalf("expected default catalog entries")
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].BaseID > entries[i].BaseID {
			t.Fatalf("entries not sorted: %s before %s", entries[i-1].BaseID, entries[i].BaseID)
		}
	}
}
