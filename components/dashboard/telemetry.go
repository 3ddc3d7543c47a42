package dashboard

import (
	"context"

	"go.uber.org/zap"
)

// Telemetry records dashboard events for observability.
type Telemetry interface {
	Record(ctx context.Context, event string, payload map[string]any)
}

type noopTelemetry struct{}

func (noopTelemetry) Record(context.Context, string, map[string]any) {}

func normalizeTelemetry(t Telemetry) Telemetry {
	if t == nil {
		return noopTelemetry{}
	}
	return t
}

// ZapTelemetry writes telemetry events to a structured logger.
type ZapTelemetry struct {
	logger *zap.Logger
}

// NewZapTelemetry builds telemetry backed by zap. A nil logger falls back to
// zap.NewNop.
func NewZapTelemetry(logger *zap.Logger) *ZapTelemetry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapTelemetry{logger: logger}
}

// Record implements Telemetry.
func (t *ZapTelemetry) Record(_ context.Context, event string, payload map[string]any) {
	fields := make([]zap.Field, 0, len(payload))
	for k, v := range payload {
		fields = append(fields, zap.Any(k, v))
	}
	t.logger.Info(event, fields...)
}
