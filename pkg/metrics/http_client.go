package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
)

const defaultTimeout = 30 * time.Second

// HTTPConfig configures the HTTP metrics client.
type HTTPConfig struct {
	BaseURL     string
	TokenSource TokenSource
	HTTPClient  *http.Client

	// OnUnauthorized runs when the backend returns 401, before the error is
	// surfaced. Used to drop stale sessions.
	OnUnauthorized func()
}

// HTTPClient talks to the sales analytics backend via its REST endpoints.
type HTTPClient struct {
	baseURL        string
	tokenSource    TokenSource
	client         *http.Client
	onUnauthorized func()
}

// NewHTTPClient builds a client for the analytics backend.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("metrics: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &HTTPClient{
		baseURL:        cfg.BaseURL,
		tokenSource:    cfg.TokenSource,
		client:         httpClient,
		onUnauthorized: cfg.OnUnauthorized,
	}, nil
}

var _ Backend = (*HTTPClient)(nil)

// FetchRevenue implements dashboard.RevenueRepository.
func (c *HTTPClient) FetchRevenue(ctx context.Context, query dashboard.RevenueQuery) ([]dashboard.RevenuePoint, error) {
	params := filterParams(query.Filters)
	groupBy := query.GroupBy
	if groupBy == "" {
		groupBy = "day"
	}
	params.Set("group_by", groupBy)

	var resp struct {
		Data []revenuePoint `json:"data"`
	}
	if err := c.get(ctx, "/api/v1/analytics/revenue", params, &resp); err != nil {
		return nil, err
	}
	points := make([]dashboard.RevenuePoint, len(resp.Data))
	for i, p := range resp.Data {
		points[i] = p.toPoint()
	}
	return points, nil
}

// FetchSummary implements dashboard.SummaryRepository.
func (c *HTTPClient) FetchSummary(ctx context.Context, filters dashboard.Filters) (dashboard.Summary, error) {
	var resp summaryResponse
	if err := c.get(ctx, "/api/v1/analytics/summary", filterParams(filters), &resp); err != nil {
		return dashboard.Summary{}, err
	}
	return resp.toSummary(), nil
}

// FetchProductMargins implements dashboard.MarginRepository.
func (c *HTTPClient) FetchProductMargins(ctx context.Context, filters dashboard.Filters, limit int) ([]dashboard.ProductMargin, error) {
	params := filterParams(filters)
	setLimit(params, limit)
	var resp []productMargin
	if err := c.get(ctx, "/api/v1/analytics/products-margin", params, &resp); err != nil {
		return nil, err
	}
	out := make([]dashboard.ProductMargin, len(resp))
	for i, m := range resp {
		out[i] = m.toMargin()
	}
	return out, nil
}

// FetchDeliveryPerformance implements dashboard.DeliveryRepository.
func (c *HTTPClient) FetchDeliveryPerformance(ctx context.Context, filters dashboard.Filters, groupBy string) ([]dashboard.DeliveryBucket, error) {
	params := filterParams(filters)
	if groupBy == "" {
		groupBy = "day"
	}
	params.Set("group_by", groupBy)
	var resp []deliveryBucket
	if err := c.get(ctx, "/api/v1/analytics/delivery-performance", params, &resp); err != nil {
		return nil, err
	}
	out := make([]dashboard.DeliveryBucket, len(resp))
	for i, b := range resp {
		out[i] = b.toBucket()
	}
	return out, nil
}

// FetchCustomerInsights implements dashboard.CustomerRepository.
func (c *HTTPClient) FetchCustomerInsights(ctx context.Context, filters dashboard.Filters) (dashboard.CustomerInsights, error) {
	var resp customerInsights
	if err := c.get(ctx, "/api/v1/analytics/customer-insights", filterParams(filters), &resp); err != nil {
		return dashboard.CustomerInsights{}, err
	}
	return resp.toInsights(), nil
}

// FetchPeakHours implements dashboard.HeatmapRepository.
func (c *HTTPClient) FetchPeakHours(ctx context.Context, filters dashboard.Filters) ([]dashboard.HeatmapCell, error) {
	var resp []heatmapCell
	if err := c.get(ctx, "/api/v1/analytics/peak-hours-heatmap", filterParams(filters), &resp); err != nil {
		return nil, err
	}
	out := make([]dashboard.HeatmapCell, len(resp))
	for i, cell := range resp {
		out[i] = cell.toCell()
	}
	return out, nil
}

// FetchAlerts implements dashboard.AlertRepository.
func (c *HTTPClient) FetchAlerts(ctx context.Context, filters dashboard.Filters) ([]dashboard.Alert, error) {
	var resp []alert
	if err := c.get(ctx, "/api/v1/analytics/anomaly-alerts", filterParams(filters), &resp); err != nil {
		return nil, err
	}
	out := make([]dashboard.Alert, len(resp))
	for i, a := range resp {
		out[i] = a.toAlert()
	}
	return out, nil
}

// FetchTopItems implements dashboard.ItemsRepository.
func (c *HTTPClient) FetchTopItems(ctx context.Context, filters dashboard.Filters, limit int) ([]dashboard.ItemStat, error) {
	params := filterParams(filters)
	setLimit(params, limit)
	var resp []itemStat
	if err := c.get(ctx, "/api/v1/analytics/top-items", params, &resp); err != nil {
		return nil, err
	}
	out := make([]dashboard.ItemStat, len(resp))
	for i, item := range resp {
		out[i] = item.toStat()
	}
	return out, nil
}

// FetchCustomizations implements dashboard.CustomizationsRepository.
func (c *HTTPClient) FetchCustomizations(ctx context.Context, filters dashboard.Filters, limit int) ([]dashboard.CustomizationStat, error) {
	params := filterParams(filters)
	setLimit(params, limit)
	var resp []customizationStat
	if err := c.get(ctx, "/api/v1/analytics/products-customizations", params, &resp); err != nil {
		return nil, err
	}
	out := make([]dashboard.CustomizationStat, len(resp))
	for i, stat := range resp {
		out[i] = stat.toStat()
	}
	return out, nil
}

// FetchPaymentMix implements dashboard.PaymentsRepository.
func (c *HTTPClient) FetchPaymentMix(ctx context.Context, filters dashboard.Filters) ([]dashboard.PaymentMixRow, error) {
	var resp []paymentMixRow
	if err := c.get(ctx, "/api/v1/analytics/payment-mix", filterParams(filters), &resp); err != nil {
		return nil, err
	}
	out := make([]dashboard.PaymentMixRow, len(resp))
	for i, row := range resp {
		out[i] = row.toRow()
	}
	return out, nil
}

// FetchDeliveryRegions implements dashboard.RegionsRepository.
func (c *HTTPClient) FetchDeliveryRegions(ctx context.Context, filters dashboard.Filters, limit int) ([]dashboard.RegionStat, error) {
	params := filterParams(filters)
	setLimit(params, limit)
	var resp []regionStat
	if err := c.get(ctx, "/api/v1/analytics/delivery-regions", params, &resp); err != nil {
		return nil, err
	}
	out := make([]dashboard.RegionStat, len(resp))
	for i, region := range resp {
		out[i] = region.toStat()
	}
	return out, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, target any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("metrics: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.tokenSource != nil {
		token, err := c.tokenSource(ctx)
		if err != nil {
			return fmt.Errorf("metrics: resolve token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("metrics: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return fmt.Errorf("%w: %s", ErrUnauthorized, path)
	}
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("metrics: remote error %d: %s", resp.StatusCode, buf.String())
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("metrics: decode response: %w", err)
	}
	return nil
}

// filterParams converts filters into the query parameters the backend
// expects. Nil fields are simply omitted.
func filterParams(f dashboard.Filters) url.Values {
	params := url.Values{}
	if f.StartDate != "" {
		params.Set("start_date", f.StartDate)
	}
	if f.EndDate != "" {
		params.Set("end_date", f.EndDate)
	}
	setIntParam(params, "store_id", f.StoreID)
	setIntParam(params, "channel_id", f.ChannelID)
	setIntParam(params, "day_of_week", f.DayOfWeek)
	setIntParam(params, "hour_start", f.HourStart)
	setIntParam(params, "hour_end", f.HourEnd)
	return params
}

func setIntParam(params url.Values, key string, value *int) {
	if value != nil {
		params.Set(key, strconv.Itoa(*value))
	}
}

func setLimit(params url.Values, limit int) {
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
}

type revenuePoint struct {
	Period     string  `json:"period"`
	Revenue    float64 `json:"revenue"`
	SalesCount int     `json:"sales_count"`
	AvgTicket  float64 `json:"avg_ticket"`
}

func (p revenuePoint) toPoint() dashboard.RevenuePoint {
	return dashboard.RevenuePoint{
		Period:     p.Period,
		Revenue:    p.Revenue,
		SalesCount: p.SalesCount,
		AvgTicket:  p.AvgTicket,
	}
}

type summaryResponse struct {
	TotalRevenue float64 `json:"total_revenue"`
	SalesCount   int     `json:"sales_count"`
	AvgTicket    float64 `json:"avg_ticket"`
	FirstSale    string  `json:"first_sale,omitempty"`
	LastSale     string  `json:"last_sale,omitempty"`
}

func (r summaryResponse) toSummary() dashboard.Summary {
	return dashboard.Summary{
		TotalRevenue: r.TotalRevenue,
		SalesCount:   r.SalesCount,
		AvgTicket:    r.AvgTicket,
		FirstSale:    r.FirstSale,
		LastSale:     r.LastSale,
	}
}

type productMargin struct {
	ProductID        int     `json:"product_id"`
	ProductName      string  `json:"product_name"`
	AvgPrice         float64 `json:"avg_price"`
	AvgCost          float64 `json:"avg_cost"`
	Margin           float64 `json:"margin"`
	MarginPercentage float64 `json:"margin_percentage"`
	TotalQuantity    float64 `json:"total_quantity"`
	TotalRevenue     float64 `json:"total_revenue"`
}

func (m productMargin) toMargin() dashboard.ProductMargin {
	return dashboard.ProductMargin{
		ProductID:        m.ProductID,
		ProductName:      m.ProductName,
		AvgPrice:         m.AvgPrice,
		AvgCost:          m.AvgCost,
		Margin:           m.Margin,
		MarginPercentage: m.MarginPercentage,
		TotalQuantity:    m.TotalQuantity,
		TotalRevenue:     m.TotalRevenue,
	}
}

type deliveryBucket struct {
	Period          string  `json:"period"`
	TotalDeliveries int     `json:"total_deliveries"`
	AvgDeliveryTime float64 `json:"avg_delivery_time"`
	MinDeliveryTime float64 `json:"min_delivery_time"`
	MaxDeliveryTime float64 `json:"max_delivery_time"`
}

func (b deliveryBucket) toBucket() dashboard.DeliveryBucket {
	return dashboard.DeliveryBucket{
		Period:          b.Period,
		TotalDeliveries: b.TotalDeliveries,
		AvgDeliveryTime: b.AvgDeliveryTime,
		MinDeliveryTime: b.MinDeliveryTime,
		MaxDeliveryTime: b.MaxDeliveryTime,
	}
}

type customerInsights struct {
	TotalCustomers             int     `json:"total_customers"`
	FrequentCustomers          int     `json:"frequent_customers"`
	InactiveCustomers          int     `json:"inactive_customers"`
	AvgPurchasesPerCustomer    float64 `json:"avg_purchases_per_customer"`
	FrequentCustomerPercentage float64 `json:"frequent_customer_percentage"`
	InactiveCustomerPercentage float64 `json:"inactive_customer_percentage"`
}

func (c customerInsights) toInsights() dashboard.CustomerInsights {
	return dashboard.CustomerInsights{
		TotalCustomers:             c.TotalCustomers,
		FrequentCustomers:          c.FrequentCustomers,
		InactiveCustomers:          c.InactiveCustomers,
		AvgPurchasesPerCustomer:    c.AvgPurchasesPerCustomer,
		FrequentCustomerPercentage: c.FrequentCustomerPercentage,
		InactiveCustomerPercentage: c.InactiveCustomerPercentage,
	}
}

type heatmapCell struct {
	Day          int     `json:"day"`
	DayName      string  `json:"day_name"`
	Hour         int     `json:"hour"`
	SalesCount   int     `json:"sales_count"`
	TotalRevenue float64 `json:"total_revenue"`
}

func (c heatmapCell) toCell() dashboard.HeatmapCell {
	return dashboard.HeatmapCell{
		Day:          c.Day,
		DayName:      c.DayName,
		Hour:         c.Hour,
		SalesCount:   c.SalesCount,
		TotalRevenue: c.TotalRevenue,
	}
}

type alert struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
	Timestamp string `json:"timestamp"`
}

// alertTimeLayouts covers the timestamp shapes the backend emits: RFC3339
// and ISO timestamps without a zone.
var alertTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func (a alert) toAlert() dashboard.Alert {
	var ts time.Time
	for _, layout := range alertTimeLayouts {
		if parsed, err := time.Parse(layout, a.Timestamp); err == nil {
			ts = parsed
			break
		}
	}
	return dashboard.Alert{
		ID:        a.ID,
		Type:      a.Type,
		Title:     a.Title,
		Message:   a.Message,
		Severity:  a.Severity,
		Timestamp: ts,
	}
}

type itemStat struct {
	ItemName         string  `json:"item_name"`
	TimesAdded       int     `json:"times_added"`
	RevenueGenerated float64 `json:"revenue_generated"`
	AvgPrice         float64 `json:"avg_price"`
	UniqueProducts   int     `json:"unique_products"`
}

func (s itemStat) toStat() dashboard.ItemStat {
	return dashboard.ItemStat{
		ItemName:         s.ItemName,
		TimesAdded:       s.TimesAdded,
		RevenueGenerated: s.RevenueGenerated,
		AvgPrice:         s.AvgPrice,
		UniqueProducts:   s.UniqueProducts,
	}
}

type customizationStat struct {
	ProductName             string  `json:"product_name"`
	TotalCustomizations     int     `json:"total_customizations"`
	SalesWithCustomizations int     `json:"sales_with_customizations"`
	TotalSales              int     `json:"total_sales"`
	CustomizationRate       float64 `json:"customization_rate"`
}

func (s customizationStat) toStat() dashboard.CustomizationStat {
	return dashboard.CustomizationStat{
		ProductName:             s.ProductName,
		TotalCustomizations:     s.TotalCustomizations,
		SalesWithCustomizations: s.SalesWithCustomizations,
		TotalSales:              s.TotalSales,
		CustomizationRate:       s.CustomizationRate,
	}
}

type paymentMixRow struct {
	ChannelName  string  `json:"channel_name"`
	PaymentType  string  `json:"payment_type"`
	PaymentCount int     `json:"payment_count"`
	TotalValue   float64 `json:"total_value"`
	Percentage   float64 `json:"percentage"`
}

func (r paymentMixRow) toRow() dashboard.PaymentMixRow {
	return dashboard.PaymentMixRow{
		ChannelName:  r.ChannelName,
		PaymentType:  r.PaymentType,
		PaymentCount: r.PaymentCount,
		TotalValue:   r.TotalValue,
		Percentage:   r.Percentage,
	}
}

type regionStat struct {
	Neighborhood    string  `json:"neighborhood"`
	City            string  `json:"city"`
	State           string  `json:"state"`
	DeliveryCount   int     `json:"delivery_count"`
	AvgDeliveryTime float64 `json:"avg_delivery_time"`
	MinDeliveryTime float64 `json:"min_delivery_time"`
	MaxDeliveryTime float64 `json:"max_delivery_time"`
	TotalRevenue    float64 `json:"total_revenue"`
}

func (s regionStat) toStat() dashboard.RegionStat {
	return dashboard.RegionStat{
		Neighborhood:    s.Neighborhood,
		City:            s.City,
		State:           s.State,
		DeliveryCount:   s.DeliveryCount,
		AvgDeliveryTime: s.AvgDeliveryTime,
		MinDeliveryTime: s.MinDeliveryTime,
		MaxDeliveryTime: s.MaxDeliveryTime,
		TotalRevenue:    s.TotalRevenue,
	}
}
