// Package observability provides OpenTelemetry metrics for the registry
// node: a RED-style view (rate, errors, duration) over every registry
// operation, exported over OTLP gRPC when enabled and a no-op otherwise.
package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config configures the metrics provider.
type Config struct {
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string // e.g. "localhost:4317"
	Enabled        bool
	Insecure       bool
}

// DefaultConfig returns development defaults.
func DefaultConfig() *Config {
	return &Config{
		ServiceName:    "trustmesh-node",
		ServiceVersion: "0.1.0",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
		Insecure:       true,
	}
}

// Provider manages the meter provider and registry instruments.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter

	operationCounter metric.Int64Counter
	errorCounter     metric.Int64Counter
	durationHist     metric.Float64Histogram
}

// New creates a metrics provider. With Enabled false every instrument is
// a no-op and no exporter is dialed.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	p := &Provider{}

	if !config.Enabled {
		p.meter = noop.NewMeterProvider().Meter("trustmesh")
		return p, p.initInstruments()
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(config.OTLPEndpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create OTLP metric exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
	)
	p.meter = p.meterProvider.Meter("trustmesh")
	return p, p.initInstruments()
}

func (p *Provider) initInstruments() error {
	var err error
	p.operationCounter, err = p.meter.Int64Counter("trustmesh.operations",
		metric.WithDescription("Registry operations processed"))
	if err != nil {
		return err
	}
	p.errorCounter, err = p.meter.Int64Counter("trustmesh.operation.errors",
		metric.WithDescription("Registry operations that failed"))
	if err != nil {
		return err
	}
	p.durationHist, err = p.meter.Float64Histogram("trustmesh.operation.duration",
		metric.WithDescription("Registry operation duration"),
		metric.WithUnit("ms"))
	return err
}

// RecordOperation records one registry operation outcome.
func (p *Provider) RecordOperation(ctx context.Context, registry, operation string, duration time.Duration, opErr error) {
	attrs := metric.WithAttributes(
		attribute.String("registry", registry),
		attribute.String("operation", operation),
	)
	p.operationCounter.Add(ctx, 1, attrs)
	if opErr != nil {
		p.errorCounter.Add(ctx, 1, attrs)
	}
	p.durationHist.Record(ctx, float64(duration.Microseconds())/1000.0, attrs)
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.meterProvider == nil {
		return nil
	}
	return p.meterProvider.Shutdown(ctx)
}
