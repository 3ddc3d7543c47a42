package metrics

import (
	"context"
	"sync"

	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

// MockData seeds deterministic metric responses for tests or local demos.
type MockData struct {
	Revenue        []dashboard.RevenuePoint
	Summary        dashboard.Summary
	Margins        []dashboard.ProductMargin
	Delivery       []dashboard.DeliveryBucket
	Customers      dashboard.CustomerInsights
	Heatmap        []dashboard.HeatmapCell
	Alerts         []dashboard.Alert
	Items          []dashboard.ItemStat
	Customizations []dashboard.CustomizationStat
	Payments       []dashboard.PaymentMixRow
	Regions        []dashboard.RegionStat
}

// MockClient implements Backend using in-memory fixtures, ignoring filters.
type MockClient struct {
	mu   sync.RWMutex
	data MockData
}

// NewMockClient builds a mock metrics client from the provided fixtures.
func NewMockClient(data MockData) *MockClient {
	return &MockClient{data: data}
}

var _ Backend = (*MockClient)(nil)

// SetData swaps the fixture set, for tests that mutate state mid-flight.
func (c *MockClient) SetData(data MockData) {
	c.mu.Lock()
	c.data = data
	c.mu.Unlock()
}

func (c *MockClient) FetchRevenue(context.Context, dashboard.RevenueQuery) ([]dashboard.RevenuePoint, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dashboard.RevenuePoint(nil), c.data.Revenue...), nil
}

func (c *MockClient) FetchSummary(context.Context, dashboard.Filters) (dashboard.Summary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Summary, nil
}

func (c *MockClient) FetchProductMargins(_ context.Context, _ dashboard.Filters, limit int) ([]dashboard.ProductMargin, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dashboard.ProductMargin(nil), capped(c.data.Margins, limit)...), nil
}

func (c *MockClient) FetchDeliveryPerformance(context.Context, dashboard.Filters, string) ([]dashboard.DeliveryBucket, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dashboard.DeliveryBucket(nil), c.data.Delivery...), nil
}

func (c *MockClient) FetchCustomerInsights(context.Context, dashboard.Filters) (dashboard.CustomerInsights, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.data.Customers, nil
}

func (c *MockClient) FetchPeakHours(context.Context, dashboard.Filters) ([]dashboard.HeatmapCell, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dashboard.HeatmapCell(nil), c.data.Heatmap...), nil
}

func (c *MockClient) FetchAlerts(context.Context, dashboard.Filters) ([]dashboard.Alert, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dashboard.Alert(nil), c.data.Alerts...), nil
}

func (c *MockClient) FetchTopItems(_ context.Context, _ dashboard.Filters, limit int) ([]dashboard.ItemStat, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dashboard.ItemStat(nil), capped(c.data.Items, limit)...), nil
}

func (c *MockClient) FetchCustomizations(_ context.Context, _ dashboard.Filters, limit int) ([]dashboard.CustomizationStat, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dashboard.CustomizationStat(nil), capped(c.data.Customizations, limit)...), nil
}

func (c *MockClient) FetchPaymentMix(context.Context, dashboard.Filters) ([]dashboard.PaymentMixRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dashboard.PaymentMixRow(nil), c.data.Payments...), nil
}

func (c *MockClient) FetchDeliveryRegions(_ context.Context, _ dashboard.Filters, limit int) ([]dashboard.RegionStat, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dashboard.RegionStat(nil), capped(c.data.Regions, limit)...), nil
}

func capped[T any](items []T, limit int) []T {
	if limit <= 0 || limit >= len(items) {
		return items
	}
	return items[:limit]
}
