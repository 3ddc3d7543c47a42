package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/ettle/strcase"
	"github.com/gofiber/fiber/v2"
	router "github.com/goliatone/go-router"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	dashboard "github.com/tavolahq/go-salesboard/components/dashboard"
	"github.com/tavolahq/go-salesboard/components/dashboard/commands"
	"github.com/tavolahq/go-salesboard/components/dashboard/gorouter"
	"github.com/tavolahq/go-salesboard/components/dashboard/httpapi"
	"github.com/tavolahq/go-salesboard/pkg/metrics"
	"github.com/tavolahq/go-salesboard/pkg/session"
	"github.com/tavolahq/go-salesboard/pkg/sqlitestore"
)

type cli struct {
	Serve    serveCmd    `cmd:"" help:"Run the sales dashboard server."`
	Seed     seedCmd     `cmd:"" help:"Create a starter dashboard for a user."`
	Scaffold scaffoldCmd `cmd:"" help:"Add a widget entry to a catalog manifest."`
}

func main() {
	// Missing .env is fine, the flags have env fallbacks anyway.
	_ = godotenv.Load()

	ctx := kong.Parse(&cli{},
		kong.Description("Sales analytics dashboard server and tooling."),
		kong.UsageOnError(),
	)
	err := ctx.Run(context.Background())
	ctx.FatalIfErrorf(err)
}

type serveCmd struct {
	Addr        string `default:":8080" env:"SALESBOARD_ADDR" help:"Listen address."`
	BackendURL  string `env:"BACKEND_URL" help:"Sales analytics backend base URL."`
	DBPath      string `env:"SQLITE_PATH" help:"SQLite database path. Empty runs with an in-memory store."`
	Manifest    string `env:"CATALOG_MANIFEST" type:"path" help:"Optional catalog manifest extending the built-in widgets."`
	SessionFile string `env:"SESSION_FILE" help:"Token persistence path (defaults to ~/.salesboard/session.json)."`
	Username    string `env:"BACKEND_USERNAME" help:"Backend login user; logs in on startup when set."`
	Password    string `env:"BACKEND_PASSWORD" help:"Backend login password."`
	Mock        bool   `help:"Serve canned demo data instead of calling the backend."`
	Debug       bool   `env:"SALESBOARD_DEBUG" help:"Verbose logging."`
}

func (cmd *serveCmd) Run(ctx context.Context) error {
	logger, err := newLogger(cmd.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	backend, sess, err := cmd.buildBackend(ctx, logger)
	if err != nil {
		return err
	}

	catalog := dashboard.NewCatalog()
	if err := dashboard.BindDefaultProviders(catalog, backend); err != nil {
		return fmt.Errorf("bind providers: %w", err)
	}
	if cmd.Manifest != "" {
		doc, err := catalog.LoadManifestFile(cmd.Manifest)
		if err != nil {
			return err
		}
		logger.Info("catalog manifest loaded",
			zap.String("path", cmd.Manifest),
			zap.Int("widgets", len(doc.Widgets)))
	}

	store, closeStore, err := cmd.buildStore(catalog, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	hook := dashboard.NewBroadcastHook()
	service := dashboard.NewService(dashboard.Options{
		Store:       store,
		Catalog:     catalog,
		RefreshHook: hook,
		Telemetry:   dashboard.NewZapTelemetry(logger),
	})

	renderer, err := dashboard.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("init renderer: %w", err)
	}
	controller := dashboard.NewController(service, renderer)
	executor := httpapi.NewCommandExecutor(service, nil)

	server := router.NewFiberAdapter()
	if err := gorouter.Register(gorouter.Config[*fiber.App]{
		Router:         server.Router(),
		Controller:     controller,
		Service:        service,
		API:            executor,
		Broadcast:      hook,
		ViewerResolver: viewerResolver(sess),
	}); err != nil {
		return fmt.Errorf("register routes: %w", err)
	}

	logger.Info("salesboard listening", zap.String("addr", cmd.Addr))
	return server.Serve(cmd.Addr)
}

// buildBackend picks the metrics source: canned fixtures in mock mode, the
// real HTTP backend otherwise. The returned session is nil in mock mode.
func (cmd *serveCmd) buildBackend(ctx context.Context, logger *zap.Logger) (metrics.Backend, *session.Session, error) {
	if cmd.Mock {
		logger.Info("serving mock analytics data")
		return metrics.NewMockClient(demoData()), nil, nil
	}
	if cmd.BackendURL == "" {
		return nil, nil, fmt.Errorf("backend url is required (set --backend-url or BACKEND_URL, or pass --mock)")
	}

	sess, err := session.New(session.Config{
		BaseURL: cmd.BackendURL,
		Store:   session.NewFileStore(cmd.sessionPath()),
	})
	if err != nil {
		return nil, nil, err
	}
	if cmd.Username != "" {
		user, err := sess.Login(ctx, cmd.Username, cmd.Password)
		if err != nil {
			return nil, nil, fmt.Errorf("backend login: %w", err)
		}
		logger.Info("authenticated with backend", zap.String("username", user.Username))
	}

	client, err := metrics.NewHTTPClient(metrics.HTTPConfig{
		BaseURL: cmd.BackendURL,
		TokenSource: func(ctx context.Context) (string, error) {
			token, err := sess.Token(ctx)
			if err != nil {
				// Unauthenticated requests still go out; the backend decides.
				return "", nil
			}
			return token, nil
		},
		OnUnauthorized: func() {
			logger.Warn("backend rejected token, clearing session")
			sess.Logout()
		},
	})
	if err != nil {
		return nil, nil, err
	}
	return client, sess, nil
}

func (cmd *serveCmd) buildStore(catalog dashboard.CatalogSource, logger *zap.Logger) (dashboard.DashboardStore, func(), error) {
	if cmd.DBPath == "" {
		logger.Info("using in-memory dashboard store")
		return dashboard.NewMemoryStore(), func() {}, nil
	}
	store, err := sqlitestore.Open(cmd.DBPath, catalog)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using sqlite dashboard store", zap.String("path", cmd.DBPath))
	return store, func() { _ = store.Close() }, nil
}

func (cmd *serveCmd) sessionPath() string {
	if cmd.SessionFile != "" {
		return cmd.SessionFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".salesboard-session.json"
	}
	return filepath.Join(home, ".salesboard", "session.json")
}

// viewerResolver identifies the page viewer. With a live session every
// request acts as the logged-in backend user; otherwise requests fall back
// to router locals set by upstream middleware.
func viewerResolver(sess *session.Session) gorouter.ViewerResolver {
	return func(ctx router.Context) dashboard.ViewerContext {
		if sess != nil {
			if user, ok := sess.User(); ok {
				return dashboard.ViewerContext{UserID: fmt.Sprintf("%d", user.UserID)}
			}
		}
		var viewer dashboard.ViewerContext
		if v, ok := ctx.Locals("user_id").(string); ok {
			viewer.UserID = v
		}
		if ro, ok := ctx.Locals("read_only").(bool); ok {
			viewer.ReadOnly = ro
		}
		return viewer
	}
}

type seedCmd struct {
	DBPath     string `env:"SQLITE_PATH" required:"" help:"SQLite database path."`
	UserID     string `required:"" help:"User to create the starter dashboard for."`
	Name       string `help:"Dashboard name (defaults to Sales Overview)."`
	SetDefault bool   `default:"true" negatable:"" help:"Mark the new dashboard as the user's default."`
}

func (cmd *seedCmd) Run(ctx context.Context) error {
	catalog := dashboard.NewCatalog()
	store, err := sqlitestore.Open(cmd.DBPath, catalog)
	if err != nil {
		return err
	}
	defer store.Close()

	service := dashboard.NewService(dashboard.Options{Store: store, Catalog: catalog})
	seed := commands.NewSeedDashboardCommand(service, nil)
	if err := seed.Execute(ctx, commands.SeedDashboardInput{
		Viewer:     dashboard.ViewerContext{UserID: cmd.UserID},
		Name:       cmd.Name,
		SetDefault: cmd.SetDefault,
	}); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "✓ Seeded starter dashboard for user %s\n", cmd.UserID)
	return nil
}

type scaffoldCmd struct {
	BaseID       string   `required:"" help:"Widget base id (e.g. widget_refunds)."`
	Title        string   `required:"" help:"Display title for the widget."`
	Type         string   `default:"chart" enum:"chart,card,table" help:"Widget type."`
	DataSource   string   `help:"Data source key (defaults to the base id without its widget_ prefix)."`
	ManifestPath string   `required:"" type:"path" help:"Catalog manifest YAML file to update."`
	Width        int      `name:"width" help:"Default grid width."`
	Height       int      `name:"height" help:"Default grid height."`
	Tag          []string `help:"Tags to record in the manifest (repeat --tag)."`
	Overwrite    bool     `help:"Replace an existing entry with the same base id."`
}

func (cmd *scaffoldCmd) Run(_ context.Context) error {
	if !strings.HasPrefix(cmd.BaseID, "widget_") {
		return fmt.Errorf("scaffold: base id %s must start with widget_", cmd.BaseID)
	}
	manifestPath, err := filepath.Abs(cmd.ManifestPath)
	if err != nil {
		return fmt.Errorf("scaffold: resolve manifest path: %w", err)
	}
	doc, err := loadOrInitManifest(manifestPath)
	if err != nil {
		return err
	}

	dataSource := cmd.DataSource
	if dataSource == "" {
		dataSource = strings.TrimPrefix(cmd.BaseID, "widget_")
	}
	entry := dashboard.ManifestWidget{
		BaseID:     cmd.BaseID,
		Type:       cmd.Type,
		Title:      cmd.Title,
		DataSource: dataSource,
		DefaultW:   cmd.Width,
		DefaultH:   cmd.Height,
		Tags:       cmd.Tag,
	}

	replaced := false
	for idx := range doc.Widgets {
		if doc.Widgets[idx].BaseID == cmd.BaseID {
			if !cmd.Overwrite {
				return fmt.Errorf("scaffold: manifest already defines %s (use --overwrite)", cmd.BaseID)
			}
			doc.Widgets[idx] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Widgets = append(doc.Widgets, entry)
	}
	sort.Slice(doc.Widgets, func(i, j int) bool {
		return doc.Widgets[i].BaseID < doc.Widgets[j].BaseID
	})

	if err := writeManifest(manifestPath, doc); err != nil {
		return err
	}

	providerName := "New" + strcase.ToCamel(strings.TrimPrefix(cmd.BaseID, "widget_")) + "Provider"
	fmt.Fprintf(os.Stdout, "✓ Added %s to %s\n", cmd.BaseID, manifestPath)
	fmt.Fprintf(os.Stdout, "  Bind a provider at startup: catalog.BindProvider(%q, %s(...))\n", cmd.BaseID, providerName)
	return nil
}

func loadOrInitManifest(path string) (*dashboard.CatalogManifest, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return &dashboard.CatalogManifest{
				Version: dashboard.ManifestVersion,
				Widgets: []dashboard.ManifestWidget{},
				Source:  path,
			}, nil
		}
		return nil, fmt.Errorf("scaffold: stat manifest: %w", err)
	}
	return dashboard.ReadManifest(path)
}

func writeManifest(path string, doc *dashboard.CatalogManifest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("scaffold: mkdir %s: %w", filepath.Dir(path), err)
	}
	file, err := os.Create(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("scaffold: create manifest %s: %w", path, err)
	}
	defer file.Close()

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	defer encoder.Close()
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("scaffold: write manifest: %w", err)
	}
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// demoData seeds the mock backend with a believable week of restaurant sales.
func demoData() metrics.MockData {
	return metrics.MockData{
		Revenue: []dashboard.RevenuePoint{
			{Period: "2025-08-25", Revenue: 4820.50, SalesCount: 182, AvgTicket: 26.49},
			{Period: "2025-08-26", Revenue: 5110.00, SalesCount: 195, AvgTicket: 26.21},
			{Period: "2025-08-27", Revenue: 4675.25, SalesCount: 171, AvgTicket: 27.34},
			{Period: "2025-08-28", Revenue: 6030.75, SalesCount: 224, AvgTicket: 26.92},
			{Period: "2025-08-29", Revenue: 7480.00, SalesCount: 268, AvgTicket: 27.91},
			{Period: "2025-08-30", Revenue: 8215.30, SalesCount: 291, AvgTicket: 28.23},
			{Period: "2025-08-31", Revenue: 6910.45, SalesCount: 247, AvgTicket: 27.98},
		},
		Summary: dashboard.Summary{
			TotalRevenue: 43242.25,
			SalesCount:   1578,
			AvgTicket:    27.40,
			FirstSale:    "2025-08-25T10:02:00",
			LastSale:     "2025-08-31T23:41:00",
		},
		Margins: []dashboard.ProductMargin{
			{ProductID: 11, ProductName: "Margherita Pizza", AvgPrice: 27.00, AvgCost: 8.10, Margin: 18.90, MarginPercentage: 70.0, TotalQuantity: 231, TotalRevenue: 6240.00},
			{ProductID: 14, ProductName: "Carbonara", AvgPrice: 27.00, AvgCost: 10.80, Margin: 16.20, MarginPercentage: 60.0, TotalQuantity: 178, TotalRevenue: 4810.00},
			{ProductID: 22, ProductName: "Tiramisu", AvgPrice: 15.00, AvgCost: 4.50, Margin: 10.50, MarginPercentage: 70.0, TotalQuantity: 143, TotalRevenue: 2150.00},
		},
		Delivery: []dashboard.DeliveryBucket{
			{Period: "2025-08-29", TotalDeliveries: 102, AvgDeliveryTime: 31.5, MinDeliveryTime: 14, MaxDeliveryTime: 58},
			{Period: "2025-08-30", TotalDeliveries: 126, AvgDeliveryTime: 35.2, MinDeliveryTime: 16, MaxDeliveryTime: 71},
			{Period: "2025-08-31", TotalDeliveries: 98, AvgDeliveryTime: 29.8, MinDeliveryTime: 12, MaxDeliveryTime: 49},
		},
		Customers: dashboard.CustomerInsights{
			TotalCustomers:             412,
			FrequentCustomers:          118,
			InactiveCustomers:          57,
			AvgPurchasesPerCustomer:    3.8,
			FrequentCustomerPercentage: 28.6,
			InactiveCustomerPercentage: 13.8,
		},
		Heatmap: []dashboard.HeatmapCell{
			{Day: 5, DayName: "Friday", Hour: 20, SalesCount: 64, TotalRevenue: 1880.00},
			{Day: 6, DayName: "Saturday", Hour: 13, SalesCount: 58, TotalRevenue: 1540.00},
			{Day: 6, DayName: "Saturday", Hour: 21, SalesCount: 71, TotalRevenue: 2110.00},
		},
		Alerts: []dashboard.Alert{
			{ID: "alert-1", Type: "delivery_time", Title: "Delivery times rising", Message: "Saturday delivery times 18% above the trailing average", Severity: "warning"},
		},
		Items: []dashboard.ItemStat{
			{ItemName: "Extra mozzarella", TimesAdded: 231, RevenueGenerated: 693.00, AvgPrice: 3.00, UniqueProducts: 9},
			{ItemName: "Garlic bread", TimesAdded: 178, RevenueGenerated: 890.00, AvgPrice: 5.00, UniqueProducts: 4},
		},
		Customizations: []dashboard.CustomizationStat{
			{ProductName: "Margherita Pizza", TotalCustomizations: 184, SalesWithCustomizations: 141, TotalSales: 231, CustomizationRate: 61.0},
			{ProductName: "Carbonara", TotalCustomizations: 96, SalesWithCustomizations: 74, TotalSales: 178, CustomizationRate: 41.6},
		},
		Payments: []dashboard.PaymentMixRow{
			{ChannelName: "dine_in", PaymentType: "card", PaymentCount: 512, TotalValue: 14820.00, Percentage: 44.2},
			{ChannelName: "delivery", PaymentType: "online", PaymentCount: 438, TotalValue: 12960.00, Percentage: 38.7},
			{ChannelName: "takeout", PaymentType: "cash", PaymentCount: 201, TotalValue: 5110.00, Percentage: 17.1},
		},
		Regions: []dashboard.RegionStat{
			{Neighborhood: "Centro", City: "Sao Paulo", State: "SP", DeliveryCount: 188, AvgDeliveryTime: 27.3, MinDeliveryTime: 11, MaxDeliveryTime: 52, TotalRevenue: 5410.00},
			{Neighborhood: "Vila Madalena", City: "Sao Paulo", State: "SP", DeliveryCount: 121, AvgDeliveryTime: 34.8, MinDeliveryTime: 15, MaxDeliveryTime: 66, TotalRevenue: 3520.00},
		},
	}
}
