package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelExporter provides OpenTelemetry metrics export following OTel standards
type OTelExporter struct {
	meterProvider *sdkmetric.MeterProvider
	collector     Collector

	// OTel meters and instruments
	meter               metric.Meter
	queueDepthGauge     metric.Int64ObservableGauge
	executionStateGauge metric.Int64ObservableGauge
	deliveryCounter     metric.Int64ObservableCounter
	breakerStateGauge   metric.Int64ObservableGauge
}

// NewOTelExporter creates a new OpenTelemetry metrics exporter with Prometheus format
func NewOTelExporter(collector Collector) (*OTelExporter, error) {
	// Create Prometheus exporter
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("creating prometheus exporter: %w", err)
	}

	// Create meter provider
	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(meterProvider)

	// Create meter with service info
	meter := meterProvider.Meter(
		"checkgate",
		metric.WithInstrumentationVersion("1.0.0"),
	)

	oe := &OTelExporter{
		meterProvider: meterProvider,
		collector:     collector,
		meter:         meter,
	}

	// Register metrics instruments
	if err := oe.registerInstruments(); err != nil {
		return nil, fmt.Errorf("registering instruments: %w", err)
	}

	return oe, nil
}

// registerInstruments creates and registers all OpenTelemetry metric instruments
func (oe *OTelExporter) registerInstruments() error {
	var err error

	// Queue depth gauge
	oe.queueDepthGauge, err = oe.meter.Int64ObservableGauge(
		"checkgate.queue.depth",
		metric.WithDescription("Number of webhook events waiting for a worker"),
		metric.WithUnit("{events}"),
		metric.WithInt64Callback(oe.observeQueueDepth),
	)
	if err != nil {
		return fmt.Errorf("creating queue depth gauge: %w", err)
	}

	// Execution state gauge (per state)
	oe.executionStateGauge, err = oe.meter.Int64ObservableGauge(
		"checkgate.executions",
		metric.WithDescription("Number of stored executions by state"),
		metric.WithUnit("{executions}"),
		metric.WithInt64Callback(oe.observeExecutionCounts),
	)
	if err != nil {
		return fmt.Errorf("creating execution state gauge: %w", err)
	}

	// Delivery counter (per ingress outcome)
	oe.deliveryCounter, err = oe.meter.Int64ObservableCounter(
		"checkgate.deliveries",
		metric.WithDescription("Webhook deliveries received by ingress outcome"),
		metric.WithUnit("{deliveries}"),
		metric.WithInt64Callback(oe.observeDeliveryCounts),
	)
	if err != nil {
		return fmt.Errorf("creating delivery counter: %w", err)
	}

	// Breaker state gauge (per breaker)
	oe.breakerStateGauge, err = oe.meter.Int64ObservableGauge(
		"checkgate.breaker.state",
		metric.WithDescription("Circuit breaker state (0=closed, 1=half-open, 2=open)"),
		metric.WithUnit("{state}"),
		metric.WithInt64Callback(oe.observeBreakerStates),
	)
	if err != nil {
		return fmt.Errorf("creating breaker state gauge: %w", err)
	}

	return nil
}

// observeQueueDepth is a callback that reports the queue depth
func (oe *OTelExporter) observeQueueDepth(ctx context.Context, observer metric.Int64Observer) error {
	depth, err := oe.collector.GetQueueDepth(ctx)
	if err != nil {
		return err
	}

	observer.Observe(depth)
	return nil
}

// observeExecutionCounts is a callback that reports execution counts by state
func (oe *OTelExporter) observeExecutionCounts(ctx context.Context, observer metric.Int64Observer) error {
	counts, err := oe.collector.GetExecutionCounts(ctx)
	if err != nil {
		return err
	}

	for state, count := range counts {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("execution.state", state),
		))
	}

	return nil
}

// observeDeliveryCounts is a callback that reports ingress outcome counts
func (oe *OTelExporter) observeDeliveryCounts(ctx context.Context, observer metric.Int64Observer) error {
	counts, err := oe.collector.GetDeliveryCounts(ctx)
	if err != nil {
		return err
	}

	for outcome, count := range counts {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("delivery.outcome", outcome),
		))
	}

	return nil
}

// observeBreakerStates is a callback that reports circuit breaker states
func (oe *OTelExporter) observeBreakerStates(ctx context.Context, observer metric.Int64Observer) error {
	states, err := oe.collector.GetBreakerStates(ctx)
	if err != nil {
		return err
	}

	for name, state := range states {
		observer.Observe(breakerStateValue(state), metric.WithAttributes(
			attribute.String("breaker.name", name),
			attribute.String("breaker.state", state),
		))
	}

	return nil
}

// breakerStateValue maps breaker states to a numeric series value
func breakerStateValue(state string) int64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// ServeHTTP serves Prometheus-formatted metrics on the given HTTP handler
func (oe *OTelExporter) ServeHTTP() http.Handler {
	return promhttp.Handler()
}

// Shutdown gracefully shuts down the meter provider
func (oe *OTelExporter) Shutdown(ctx context.Context) error {
	if oe.meterProvider != nil {
		return oe.meterProvider.Shutdown(ctx)
	}
	return nil
}
