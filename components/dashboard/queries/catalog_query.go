package queries

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

// CatalogInput is a placeholder message; the catalog has no parameters.
type CatalogInput struct{}

type catalogService interface {
	Catalog() *dashboard.Catalog
}

// CatalogQuery lists the registered widget catalog entries.
type CatalogQuery struct {
	service catalogService
}

// NewCatalogQuery builds the query.
func NewCatalogQuery(service catalogService) *CatalogQuery {
	return &CatalogQuery{service: service}
}

var _ gocommand.Querier[CatalogInput, []dashboard.CatalogEntry] = (*CatalogQuery)(nil)

// Query returns all catalog entries sorted by base id.
func (q *CatalogQuery) Query(ctx context.Context, _ CatalogInput) ([]dashboard.CatalogEntry, error) {
	return q.service.Catalog().Entries(), nil
}
