package telemetry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arklim/social-platform-liveqa/internal/infra/config"
)

// Provider bundles the telemetry exporters attached at startup.
type Provider struct {
	tracer *TracerProvider
}

// Attach configures telemetry exporters and returns a provider handle.
// Tracing is only enabled when an OTLP endpoint is configured; Prometheus
// collectors are registered by the HTTP metrics middleware.
func Attach(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	p := &Provider{}

	if cfg.Telemetry.OTLPEndpoint != "" {
		tracer, err := NewTracerProvider(ctx, cfg.Telemetry, logger)
		if err != nil {
			return nil, fmt.Errorf("init tracer provider: %w", err)
		}
		p.tracer = tracer
	}

	return p, nil
}

// Shutdown flushes and stops any attached exporters.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tracer == nil {
		return nil
	}
	return p.tracer.Shutdown(ctx)
}
