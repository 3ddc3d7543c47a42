package dashboard

// Data source keys matching the analytics backend endpoints each widget feeds
// from.
const (
	SourceRevenue         = "revenue"
	SourceSummary         = "summary"
	SourceMargin          = "margin"
	SourceDelivery        = "delivery"
	SourceCustomers       = "customers"
	SourceHeatmap         = "heatmap"
	SourceAlerts          = "alerts"
	SourceItems           = "items"
	SourceCustomizations  = "customizations"
	SourcePayments        = "payments"
	SourceDeliveryRegions = "delivery_regions"
)

var limitSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"limit": map[string]any{"type": "integer", "minimum": 1, "maximum": 100},
	},
}

var groupBySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"group_by": map[string]any{"type": "string", "enum": []any{"day", "week", "month"}},
	},
}

var metricCardSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"metric": map[string]any{
			"type": "string",
			"enum": []any{"total_revenue", "sales_count", "avg_ticket"},
		},
		"title": map[string]any{"type": "string"},
	},
	"required": []any{"metric"},
}

// DefaultCatalogEntries returns the built-in widget set of the sales board.
func DefaultCatalogEntries() []CatalogEntry {
	return []CatalogEntry{
		{
			BaseID:        "widget_revenue",
			Type:          WidgetChart,
			Title:         "Revenue Over Time",
			DataSource:    SourceRevenue,
			DefaultConfig: map[string]any{"group_by": "day"},
			Schema:        groupBySchema,
		},
		{
			BaseID:        "widget_stats_revenue",
			Type:          WidgetCard,
			Title:         "Total Revenue",
			DataSource:    SourceSummary,
			DefaultConfig: map[string]any{"metric": "total_revenue", "title": "Total Revenue"},
			Schema:        metricCardSchema,
		},
		{
			BaseID:        "widget_stats_sales",
			Type:          WidgetCard,
			Title:         "Sales Count",
			DataSource:    SourceSummary,
			DefaultConfig: map[string]any{"metric": "sales_count", "title": "Sales Count"},
			Schema:        metricCardSchema,
		},
		{
			BaseID:        "widget_stats_avg_ticket",
			Type:          WidgetCard,
			Title:         "Average Ticket",
			DataSource:    SourceSummary,
			DefaultConfig: map[string]any{"metric": "avg_ticket", "title": "Average Ticket"},
			Schema:        metricCardSchema,
		},
		{
			BaseID:        "widget_margin",
			Type:          WidgetChart,
			Title:         "Lowest Margin Products",
			DataSource:    SourceMargin,
			DefaultConfig: map[string]any{"limit": 10},
			Schema:        limitSchema,
		},
		{
			BaseID:        "widget_delivery",
			Type:          WidgetChart,
			Title:         "Delivery Performance",
			DataSource:    SourceDelivery,
			DefaultConfig: map[string]any{"group_by": "day"},
			Schema:        groupBySchema,
		},
		{
			BaseID:     "widget_customers",
			Type:       WidgetCard,
			Title:      "Customer Insights",
			DataSource: SourceCustomers,
		},
		{
			BaseID:     "widget_heatmap",
			Type:       WidgetChart,
			Title:      "Peak Hours",
			DataSource: SourceHeatmap,
		},
		{
			BaseID:     "widget_alerts",
			Type:       WidgetCard,
			Title:      "Anomaly Alerts",
			DataSource: SourceAlerts,
		},
		{
			BaseID:        "widget_items",
			Type:          WidgetChart,
			Title:         "Top Selling Items",
			DataSource:    SourceItems,
			DefaultConfig: map[string]any{"limit": 20},
			Schema:        limitSchema,
		},
		{
			BaseID:        "widget_customizations",
			Type:          WidgetChart,
			Title:         "Most Customized Products",
			DataSource:    SourceCustomizations,
			DefaultConfig: map[string]any{"limit": 20},
			Schema:        limitSchema,
		},
		{
			BaseID:     "widget_payments",
			Type:       WidgetChart,
			Title:      "Payment Mix",
			DataSource: SourcePayments,
		},
		{
			BaseID:        "widget_delivery_regions",
			Type:          WidgetChart,
			Title:         "Delivery by Region",
			DataSource:    SourceDeliveryRegions,
			DefaultConfig: map[string]any{"limit": 50},
			Schema:        limitSchema,
		},
	}
}
