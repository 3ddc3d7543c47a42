package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const defaultChartHeight = "360px"

var sharedChartCache = NewChartCache(5 * time.Minute)

// ChartOption customizes how chart providers render markup.
type ChartOption func(*chartRenderer)

// WithRenderCache injects a render cache shared across providers.
func WithRenderCache(cache RenderCache) ChartOption {
	return func(r *chartRenderer) {
		r.cache = cache
	}
}

// WithChartTheme sets the ECharts theme (defaults to Westeros).
func WithChartTheme(theme string) ChartOption {
	return func(r *chartRenderer) {
		r.theme = theme
	}
}

// WithChartAssetsHost rewrites the assets host so ECharts JS loads from a CDN.
func WithChartAssetsHost(host string) ChartOption {
	return func(r *chartRenderer) {
		r.assetsHost = host
	}
}

// chartRenderer holds the rendering knobs shared by every chart provider.
type chartRenderer struct {
	cache      RenderCache
	theme      string
	assetsHost string
}

func newChartRenderer(options []ChartOption) chartRenderer {
	r := chartRenderer{
		cache: sharedChartCache,
		theme: types.ThemeWesteros,
	}
	for _, opt := range options {
		opt(&r)
	}
	return r
}

func (r chartRenderer) cached(w Widget, filters Filters, render func() (string, error)) (string, error) {
	if r.cache == nil {
		return render()
	}
	return r.cache.GetOrRender(renderKey(w, filters), render)
}

func (r chartRenderer) globalOptions(title string) []charts.GlobalOpts {
	initOpts := opts.Initialization{
		Theme:  r.theme,
		Width:  "100%",
		Height: defaultChartHeight,
	}
	if r.assetsHost != "" {
		initOpts.AssetsHost = r.assetsHost
	}
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithInitializationOpts(initOpts),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	}
}

func renderChart(renderable interface{ Render(io.Writer) error }) (string, error) {
	var buf bytes.Buffer
	if err := renderable.Render(&buf); err != nil {
		return "", fmt.Errorf("dashboard: rendering chart: %w", err)
	}
	return buf.String(), nil
}

func chartPayload(html, chartType, title string) WidgetData {
	return WidgetData{
		"chart_html": html,
		"chart_type": chartType,
		"title":      title,
	}
}

type revenueChartProvider struct {
	chartRenderer
	repo RevenueRepository
}

// NewRevenueChartProvider renders the revenue time series as a smoothed line
// chart. The group_by config key selects day/week/month bucketing.
func NewRevenueChartProvider(repo RevenueRepository, options ...ChartOption) Provider {
	return &revenueChartProvider{chartRenderer: newChartRenderer(options), repo: repo}
}

func (p *revenueChartProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	query := RevenueQuery{
		Filters: meta.Filters,
		GroupBy: stringOr(meta.Widget.Config["group_by"], "day"),
	}
	points, err := p.repo.FetchRevenue(ctx, query)
	if err != nil {
		return nil, err
	}

	html, err := p.cached(meta.Widget, meta.Filters, func() (string, error) {
		periods := make([]string, len(points))
		revenue := make([]opts.LineData, len(points))
		tickets := make([]opts.LineData, len(points))
		for i, pt := range points {
			periods[i] = pt.Period
			revenue[i] = opts.LineData{Value: pt.Revenue}
			tickets[i] = opts.LineData{Value: pt.AvgTicket}
		}
		line := charts.NewLine()
		line.SetGlobalOptions(p.globalOptions(meta.Widget.Title)...)
		line.SetXAxis(periods)
		line.AddSeries("Revenue", revenue)
		line.AddSeries("Avg Ticket", tickets)
		line.SetSeriesOptions(charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
		return renderChart(line)
	})
	if err != nil {
		return nil, err
	}

	data := chartPayload(html, "line", meta.Widget.Title)
	data["group_by"] = query.GroupBy
	data["point_count"] = len(points)
	return data, nil
}

type marginChartProvider struct {
	chartRenderer
	repo MarginRepository
}

// NewMarginChartProvider renders the lowest-margin products as a bar chart.
func NewMarginChartProvider(repo MarginRepository, options ...ChartOption) Provider {
	return &marginChartProvider{chartRenderer: newChartRenderer(options), repo: repo}
}

func (p *marginChartProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	limit := intOr(meta.Widget.Config["limit"], 10)
	products, err := p.repo.FetchProductMargins(ctx, meta.Filters, limit)
	if err != nil {
		return nil, err
	}

	html, err := p.cached(meta.Widget, meta.Filters, func() (string, error) {
		names := make([]string, len(products))
		margins := make([]opts.BarData, len(products))
		for i, product := range products {
			names[i] = truncateLabel(product.ProductName, 20)
			margins[i] = opts.BarData{Name: product.ProductName, Value: product.Margin}
		}
		bar := charts.NewBar()
		bar.SetGlobalOptions(p.globalOptions(meta.Widget.Title)...)
		bar.SetXAxis(names)
		bar.AddSeries("Margin", margins)
		return renderChart(bar)
	})
	if err != nil {
		return nil, err
	}

	data := chartPayload(html, "bar", meta.Widget.Title)
	data["limit"] = limit
	data["product_count"] = len(products)
	return data, nil
}

type deliveryChartProvider struct {
	chartRenderer
	repo DeliveryRepository
}

// NewDeliveryChartProvider renders delivery times per period as a line chart.
func NewDeliveryChartProvider(repo DeliveryRepository, options ...ChartOption) Provider {
	return &deliveryChartProvider{chartRenderer: newChartRenderer(options), repo: repo}
}

func (p *deliveryChartProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	groupBy := stringOr(meta.Widget.Config["group_by"], "day")
	buckets, err := p.repo.FetchDeliveryPerformance(ctx, meta.Filters, groupBy)
	if err != nil {
		return nil, err
	}

	html, err := p.cached(meta.Widget, meta.Filters, func() (string, error) {
		periods := make([]string, len(buckets))
		avg := make([]opts.LineData, len(buckets))
		worst := make([]opts.LineData, len(buckets))
		for i, bucket := range buckets {
			periods[i] = bucket.Period
			avg[i] = opts.LineData{Value: bucket.AvgDeliveryTime}
			worst[i] = opts.LineData{Value: bucket.MaxDeliveryTime}
		}
		line := charts.NewLine()
		line.SetGlobalOptions(p.globalOptions(meta.Widget.Title)...)
		line.SetXAxis(periods)
		line.AddSeries("Avg Minutes", avg)
		line.AddSeries("Max Minutes", worst)
		return renderChart(line)
	})
	if err != nil {
		return nil, err
	}

	totalDeliveries := 0
	for _, bucket := range buckets {
		totalDeliveries += bucket.TotalDeliveries
	}
	data := chartPayload(html, "line", meta.Widget.Title)
	data["group_by"] = groupBy
	data["total_deliveries"] = totalDeliveries
	return data, nil
}

var heatmapDayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

type heatmapChartProvider struct {
	chartRenderer
	repo HeatmapRepository
}

// NewHeatmapChartProvider renders the hour-by-weekday sales grid.
func NewHeatmapChartProvider(repo HeatmapRepository, options ...ChartOption) Provider {
	return &heatmapChartProvider{chartRenderer: newChartRenderer(options), repo: repo}
}

func (p *heatmapChartProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	cells, err := p.repo.FetchPeakHours(ctx, meta.Filters)
	if err != nil {
		return nil, err
	}

	html, err := p.cached(meta.Widget, meta.Filters, func() (string, error) {
		hours := make([]string, 24)
		for h := range hours {
			hours[h] = fmt.Sprintf("%02dh", h)
		}
		points := make([]opts.HeatMapData, 0, len(cells))
		maxCount := 0
		for _, cell := range cells {
			if cell.Day < 0 || cell.Day > 6 || cell.Hour < 0 || cell.Hour > 23 {
				continue
			}
			if cell.SalesCount > maxCount {
				maxCount = cell.SalesCount
			}
			points = append(points, opts.HeatMapData{
				Value: [3]any{cell.Hour, cell.Day, cell.SalesCount},
			})
		}

		hm := charts.NewHeatMap()
		initOpts := opts.Initialization{
			Theme:  p.theme,
			Width:  "100%",
			Height: defaultChartHeight,
		}
		if p.assetsHost != "" {
			initOpts.AssetsHost = p.assetsHost
		}
		hm.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: meta.Widget.Title}),
			charts.WithInitializationOpts(initOpts),
			charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
			charts.WithXAxisOpts(opts.XAxis{
				Type:      "category",
				Data:      hours,
				SplitArea: &opts.SplitArea{Show: opts.Bool(true)},
			}),
			charts.WithYAxisOpts(opts.YAxis{
				Type:      "category",
				Data:      heatmapDayNames,
				SplitArea: &opts.SplitArea{Show: opts.Bool(true)},
			}),
			charts.WithVisualMapOpts(opts.VisualMap{
				Calculable: opts.Bool(true),
				Min:        0,
				Max:        float32(maxCount),
				Orient:     "horizontal",
				Left:       "center",
			}),
		)
		hm.AddSeries("Sales", points)
		return renderChart(hm)
	})
	if err != nil {
		return nil, err
	}

	data := chartPayload(html, "heatmap", meta.Widget.Title)
	data["cell_count"] = len(cells)
	return data, nil
}

type itemsChartProvider struct {
	chartRenderer
	repo ItemsRepository
}

// NewItemsChartProvider renders top complement items as a bar chart.
func NewItemsChartProvider(repo ItemsRepository, options ...ChartOption) Provider {
	return &itemsChartProvider{chartRenderer: newChartRenderer(options), repo: repo}
}

func (p *itemsChartProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	limit := intOr(meta.Widget.Config["limit"], 20)
	items, err := p.repo.FetchTopItems(ctx, meta.Filters, limit)
	if err != nil {
		return nil, err
	}

	html, err := p.cached(meta.Widget, meta.Filters, func() (string, error) {
		names := make([]string, len(items))
		added := make([]opts.BarData, len(items))
		revenue := make([]opts.BarData, len(items))
		for i, item := range items {
			names[i] = truncateLabel(item.ItemName, 20)
			added[i] = opts.BarData{Name: item.ItemName, Value: item.TimesAdded}
			revenue[i] = opts.BarData{Name: item.ItemName, Value: item.RevenueGenerated}
		}
		bar := charts.NewBar()
		bar.SetGlobalOptions(p.globalOptions(meta.Widget.Title)...)
		bar.SetXAxis(names)
		bar.AddSeries("Times Added", added)
		bar.AddSeries("Revenue", revenue)
		return renderChart(bar)
	})
	if err != nil {
		return nil, err
	}

	data := chartPayload(html, "bar", meta.Widget.Title)
	data["limit"] = limit
	data["item_count"] = len(items)
	return data, nil
}

type customizationsChartProvider struct {
	chartRenderer
	repo CustomizationsRepository
}

// NewCustomizationsChartProvider renders customization rates per product.
func NewCustomizationsChartProvider(repo CustomizationsRepository, options ...ChartOption) Provider {
	return &customizationsChartProvider{chartRenderer: newChartRenderer(options), repo: repo}
}

func (p *customizationsChartProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	limit := intOr(meta.Widget.Config["limit"], 20)
	stats, err := p.repo.FetchCustomizations(ctx, meta.Filters, limit)
	if err != nil {
		return nil, err
	}

	html, err := p.cached(meta.Widget, meta.Filters, func() (string, error) {
		names := make([]string, len(stats))
		rates := make([]opts.BarData, len(stats))
		for i, stat := range stats {
			names[i] = truncateLabel(stat.ProductName, 20)
			rates[i] = opts.BarData{Name: stat.ProductName, Value: stat.CustomizationRate}
		}
		bar := charts.NewBar()
		bar.SetGlobalOptions(p.globalOptions(meta.Widget.Title)...)
		bar.SetXAxis(names)
		bar.AddSeries("Customization %", rates)
		return renderChart(bar)
	})
	if err != nil {
		return nil, err
	}

	data := chartPayload(html, "bar", meta.Widget.Title)
	data["limit"] = limit
	data["product_count"] = len(stats)
	return data, nil
}

type paymentsChartProvider struct {
	chartRenderer
	repo PaymentsRepository
}

// NewPaymentsChartProvider renders the payment mix as a pie chart, collapsing
// channels so each slice is one payment type.
func NewPaymentsChartProvider(repo PaymentsRepository, options ...ChartOption) Provider {
	return &paymentsChartProvider{chartRenderer: newChartRenderer(options), repo: repo}
}

func (p *paymentsChartProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	rows, err := p.repo.FetchPaymentMix(ctx, meta.Filters)
	if err != nil {
		return nil, err
	}

	html, err := p.cached(meta.Widget, meta.Filters, func() (string, error) {
		totals := map[string]float64{}
		order := []string{}
		for _, row := range rows {
			if _, seen := totals[row.PaymentType]; !seen {
				order = append(order, row.PaymentType)
			}
			totals[row.PaymentType] += row.TotalValue
		}
		slices := make([]opts.PieData, 0, len(order))
		for _, paymentType := range order {
			slices = append(slices, opts.PieData{Name: paymentType, Value: totals[paymentType]})
		}
		pie := charts.NewPie()
		pie.SetGlobalOptions(p.globalOptions(meta.Widget.Title)...)
		pie.AddSeries("Payments", slices)
		return renderChart(pie)
	})
	if err != nil {
		return nil, err
	}

	data := chartPayload(html, "pie", meta.Widget.Title)
	data["row_count"] = len(rows)
	return data, nil
}

type regionsChartProvider struct {
	chartRenderer
	repo RegionsRepository
}

// NewRegionsChartProvider renders delivery volume per neighborhood.
func NewRegionsChartProvider(repo RegionsRepository, options ...ChartOption) Provider {
	return &regionsChartProvider{chartRenderer: newChartRenderer(options), repo: repo}
}

func (p *regionsChartProvider) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	limit := intOr(meta.Widget.Config["limit"], 50)
	regions, err := p.repo.FetchDeliveryRegions(ctx, meta.Filters, limit)
	if err != nil {
		return nil, err
	}

	html, err := p.cached(meta.Widget, meta.Filters, func() (string, error) {
		names := make([]string, len(regions))
		counts := make([]opts.BarData, len(regions))
		avg := make([]opts.BarData, len(regions))
		for i, region := range regions {
			names[i] = truncateLabel(region.Neighborhood, 20)
			counts[i] = opts.BarData{Name: region.Neighborhood, Value: region.DeliveryCount}
			avg[i] = opts.BarData{Name: region.Neighborhood, Value: region.AvgDeliveryTime}
		}
		bar := charts.NewBar()
		bar.SetGlobalOptions(p.globalOptions(meta.Widget.Title)...)
		bar.SetXAxis(names)
		bar.AddSeries("Deliveries", counts)
		bar.AddSeries("Avg Minutes", avg)
		return renderChart(bar)
	})
	if err != nil {
		return nil, err
	}

	data := chartPayload(html, "bar", meta.Widget.Title)
	data["limit"] = limit
	data["region_count"] = len(regions)
	return data, nil
}

func truncateLabel(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
