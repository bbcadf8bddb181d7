// Package instrumentation sets up OpenTelemetry metrics with a Prometheus
// exporter for the invoice processor.
package instrumentation

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Provider encapsulates the meter provider and the Prometheus registry that
// backs the /metrics endpoint.
type Provider struct {
	meterProvider *sdkmetric.MeterProvider
	registry      *prometheus.Registry
	metrics       *Metrics
}

// NewProvider creates a provider with a Prometheus reader and initializes the
// application metrics.
func NewProvider(ctx context.Context, serviceName, serviceVersion string) (*Provider, error) {
	resourceAttrs := []attribute.KeyValue{
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	}
	if hostname, err := os.Hostname(); err == nil {
		resourceAttrs = append(resourceAttrs, semconv.ServiceInstanceID(hostname))
	}

	res, err := resource.New(ctx, resource.WithAttributes(resourceAttrs...))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	metrics, err := NewMetrics(meterProvider.Meter(serviceName))
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}

	return &Provider{
		meterProvider: meterProvider,
		registry:      registry,
		metrics:       metrics,
	}, nil
}

// Metrics returns the application metrics recorder.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Handler returns the HTTP handler for the Prometheus metrics endpoint.
func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.meterProvider.Shutdown(ctx)
}
