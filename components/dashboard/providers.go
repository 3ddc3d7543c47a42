package dashboard

import (
	"context"
	"fmt"
	"time"
)

// RevenueQuery selects the revenue time series.
type RevenueQuery struct {
	Filters Filters
	GroupBy string
}

// RevenuePoint is one bucket of the revenue series.
type RevenuePoint struct {
	Period     string
	Revenue    float64
	SalesCount int
	AvgTicket  float64
}

// Summary carries the headline metrics for a period.
type Summary struct {
	TotalRevenue float64
	SalesCount   int
	AvgTicket    float64
	FirstSale    string
	LastSale     string
}

// ProductMargin describes one product's margin profile.
type ProductMargin struct {
	ProductID        int
	ProductName      string
	AvgPrice         float64
	AvgCost          float64
	Margin           float64
	MarginPercentage float64
	TotalQuantity    float64
	TotalRevenue     float64
}

// DeliveryBucket aggregates delivery times for one period.
type DeliveryBucket struct {
	Period          string
	TotalDeliveries int
	AvgDeliveryTime float64
	MinDeliveryTime float64
	MaxDeliveryTime float64
}

// CustomerInsights summarizes purchase frequency and churn.
type CustomerInsights struct {
	TotalCustomers             int
	FrequentCustomers          int
	InactiveCustomers          int
	AvgPurchasesPerCustomer    float64
	FrequentCustomerPercentage float64
	InactiveCustomerPercentage float64
}

// HeatmapCell is one (day of week, hour) bucket.
type HeatmapCell struct {
	Day          int
	DayName      string
	Hour         int
	SalesCount   int
	TotalRevenue float64
}

// Alert is one anomaly detected against the previous period.
type Alert struct {
	ID        string
	Type      string
	Title     string
	Message   string
	Severity  string
	Timestamp time.Time
}

// ItemStat describes one complement/extra item.
type ItemStat struct {
	ItemName         string
	TimesAdded       int
	RevenueGenerated float64
	AvgPrice         float64
	UniqueProducts   int
}

// CustomizationStat describes how often a product gets customized.
type CustomizationStat struct {
	ProductName             string
	TotalCustomizations     int
	SalesWithCustomizations int
	TotalSales              int
	CustomizationRate       float64
}

// PaymentMixRow is one (channel, payment type) slice.
type PaymentMixRow struct {
	ChannelName  string
	PaymentType  string
	PaymentCount int
	TotalValue   float64
	Percentage   float64
}

// RegionStat aggregates delivery performance for one neighborhood.
type RegionStat struct {
	Neighborhood    string
	City            string
	State           string
	DeliveryCount   int
	AvgDeliveryTime float64
	MinDeliveryTime float64
	MaxDeliveryTime float64
	TotalRevenue    float64
}

// RevenueRepository loads the revenue time series.
type RevenueRepository interface {
	FetchRevenue(ctx context.Context, query RevenueQuery) ([]RevenuePoint, error)
}

// SummaryRepository loads headline metrics.
type SummaryRepository interface {
	FetchSummary(ctx context.Context, filters Filters) (Summary, error)
}

// MarginRepository loads the lowest-margin products.
type MarginRepository interface {
	FetchProductMargins(ctx context.Context, filters Filters, limit int) ([]ProductMargin, error)
}

// DeliveryRepository loads delivery performance buckets.
type DeliveryRepository interface {
	FetchDeliveryPerformance(ctx context.Context, filters Filters, groupBy string) ([]DeliveryBucket, error)
}

// CustomerRepository loads customer insight metrics.
type CustomerRepository interface {
	FetchCustomerInsights(ctx context.Context, filters Filters) (CustomerInsights, error)
}

// HeatmapRepository loads the peak-hours grid.
type HeatmapRepository interface {
	FetchPeakHours(ctx context.Context, filters Filters) ([]HeatmapCell, error)
}

// AlertRepository loads anomaly alerts.
type AlertRepository interface {
	FetchAlerts(ctx context.Context, filters Filters) ([]Alert, error)
}

// ItemsRepository loads top complement items.
type ItemsRepository interface {
	FetchTopItems(ctx context.Context, filters Filters, limit int) ([]ItemStat, error)
}

// CustomizationsRepository loads the most-customized products.
type CustomizationsRepository interface {
	FetchCustomizations(ctx context.Context, filters Filters, limit int) ([]CustomizationStat, error)
}

// PaymentsRepository loads the payment mix per channel.
type PaymentsRepository interface {
	FetchPaymentMix(ctx context.Context, filters Filters) ([]PaymentMixRow, error)
}

// RegionsRepository loads delivery performance per region.
type RegionsRepository interface {
	FetchDeliveryRegions(ctx context.Context, filters Filters, limit int) ([]RegionStat, error)
}

// MetricsBackend is the full surface the default catalog needs. The HTTP
// client in pkg/metrics satisfies it; tests swap in fakes for the slice of
// repositories a provider actually touches.
type MetricsBackend interface {
	RevenueRepository
	SummaryRepository
	MarginRepository
	DeliveryRepository
	CustomerRepository
	HeatmapRepository
	AlertRepository
	ItemsRepository
	CustomizationsRepository
	PaymentsRepository
	RegionsRepository
}

type summaryCardProvider struct {
	repo SummaryRepository
}

// NewSummaryCardProvider builds a provider for a single-metric stat card. The
// metric key in the widget config selects which summary field the card shows.
func NewSummaryCardProvider(repo SummaryRepository) Provider {
	return &summaryCardProvider{repo: repo}
}

func (p *summaryCardProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	summary, err := p.repo.FetchSummary(ctx, meta.Filters)
	if err != nil {
		return nil, err
	}

	metric := stringOr(meta.Widget.Config["metric"], "total_revenue")
	var value float64
	var format string
	switch metric {
	case "total_revenue":
		value = summary.TotalRevenue
		format = "currency"
	case "sales_count":
		value = float64(summary.SalesCount)
		format = "count"
	case "avg_ticket":
		value = summary.AvgTicket
		format = "currency"
	default:
		return nil, fmt.Errorf("dashboard: unknown summary metric %q", metric)
	}

	return WidgetData{
		"metric":     metric,
		"value":      value,
		"format":     format,
		"title":      stringOr(meta.Widget.Config["title"], meta.Widget.Title),
		"first_sale": summary.FirstSale,
		"last_sale":  summary.LastSale,
	}, nil
}

type customerInsightsProvider struct {
	repo CustomerRepository
}

// NewCustomerInsightsProvider wires customer metrics into a card provider.
func NewCustomerInsightsProvider(repo CustomerRepository) Provider {
	return &customerInsightsProvider{repo: repo}
}

func (p *customerInsightsProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	insights, err := p.repo.FetchCustomerInsights(ctx, meta.Filters)
	if err != nil {
		return nil, err
	}
	return WidgetData{
		"total_customers":              insights.TotalCustomers,
		"frequent_customers":           insights.FrequentCustomers,
		"inactive_customers":           insights.InactiveCustomers,
		"avg_purchases_per_customer":   insights.AvgPurchasesPerCustomer,
		"frequent_customer_percentage": insights.FrequentCustomerPercentage,
		"inactive_customer_percentage": insights.InactiveCustomerPercentage,
	}, nil
}

type alertsProvider struct {
	repo AlertRepository
}

// NewAlertsProvider wires anomaly alerts into a card provider.
func NewAlertsProvider(repo AlertRepository) Provider {
	return &alertsProvider{repo: repo}
}

func (p *alertsProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	alerts, err := p.repo.FetchAlerts(ctx, meta.Filters)
	if err != nil {
		return nil, err
	}
	rows := make([]map[string]any, 0, len(alerts))
	for _, alert := range alerts {
		rows = append(rows, map[string]any{
			"id":        alert.ID,
			"type":      alert.Type,
			"title":     alert.Title,
			"message":   alert.Message,
			"severity":  alert.Severity,
			"timestamp": alert.Timestamp.Format(time.RFC3339),
		})
	}
	return WidgetData{
		"alerts": rows,
		"count":  len(rows),
	}, nil
}

// BindDefaultProviders attaches providers for every built-in catalog entry to
// the given backend. Call it once during bootstrap; entries added by hooks
// bind their own providers.
func BindDefaultProviders(c *Catalog, backend MetricsBackend) error {
	bindings := map[string]Provider{
		"widget_revenue":          NewRevenueChartProvider(backend),
		"widget_stats_revenue":    NewSummaryCardProvider(backend),
		"widget_stats_sales":      NewSummaryCardProvider(backend),
		"widget_stats_avg_ticket": NewSummaryCardProvider(backend),
		"widget_margin":           NewMarginChartProvider(backend),
		"widget_delivery":         NewDeliveryChartProvider(backend),
		"widget_customers":        NewCustomerInsightsProvider(backend),
		"widget_heatmap":          NewHeatmapChartProvider(backend),
		"widget_alerts":           NewAlertsProvider(backend),
		"widget_items":            NewItemsChartProvider(backend),
		"widget_customizations":   NewCustomizationsChartProvider(backend),
		"widget_payments":         NewPaymentsChartProvider(backend),
		"widget_delivery_regions": NewRegionsChartProvider(backend),
	}
	for baseID, provider := range bindings {
		if err := c.BindProvider(baseID, provider); err != nil {
			return err
		}
	}
	return nil
}

func stringOr(value any, fallback string) string {
	if v, ok := value.(string); ok && v != "" {
		return v
	}
	return fallback
}

func intOr(value any, fallback int) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func floatOr(value any, fallback float64) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return fallback
}
