package dashboard

import "context"

// Provider fetches the data needed to render a widget instance.
type Provider interface {
	Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error)
}

// ProviderFunc adapts a plain function into a Provider.
type ProviderFunc func(ctx context.Context, meta WidgetContext) (WidgetData, error)

// Fetch implements Provider.
func (f ProviderFunc) Fetch(ctx context.Context, meta WidgetContext) (WidgetData, error) {
	return f(ctx, meta)
}

// WidgetContext carries the metadata providers need for one fetch.
type WidgetContext struct {
	Widget  Widget
	Filters Filters
	Viewer  ViewerContext
}

// WidgetData is an opaque payload handed to templates.
type WidgetData map[string]any
