package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cardvault/config"
	"cardvault/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the economy engine
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	eventsCounter                metric.Int64Counter
	balanceTransactionsCounter   metric.Int64Counter
	balanceVolumeCounter         metric.Int64Counter
	auctionsActiveGauge          metric.Int64UpDownCounter
	auctionsClosedCounter        metric.Int64Counter
	incomeCreditedCounter        metric.Int64Counter
	snapshotsWrittenCounter      metric.Int64Counter
	snapshotSizeHist             metric.Int64Histogram
	natsMessagesPublishedCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)
	otel.SetMeterProvider(provider)

	if err := mp.useMeterProvider(provider); err != nil {
		return err
	}
	log.Info("Metrics provider initialized successfully")
	return nil
}

// useMeterProvider binds instruments to provider. Callers hold mp.mu.
func (mp *MetricsProvider) useMeterProvider(provider *sdkmetric.MeterProvider) error {
	mp.meterProvider = provider
	mp.meter = provider.Meter("cardvault")
	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}
	mp.initialized = true
	mp.enabled = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.eventsCounter, err = mp.meter.Int64Counter(
		EventsTotal,
		metric.WithDescription("Total number of engine events emitted after commit"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create events counter: %w", err)
	}

	mp.balanceTransactionsCounter, err = mp.meter.Int64Counter(
		BalanceTransactionsTotal,
		metric.WithDescription("Total number of balance changes"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create balance transactions counter: %w", err)
	}

	mp.balanceVolumeCounter, err = mp.meter.Int64Counter(
		BalanceVolume,
		metric.WithDescription("Absolute coins moved by balance changes"),
		metric.WithUnit("{coin}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create balance volume counter: %w", err)
	}

	// UpDownCounter for gauge-like behavior
	mp.auctionsActiveGauge, err = mp.meter.Int64UpDownCounter(
		AuctionsActive,
		metric.WithDescription("Current number of active auctions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create auctions active gauge: %w", err)
	}

	mp.auctionsClosedCounter, err = mp.meter.Int64Counter(
		AuctionsClosedTotal,
		metric.WithDescription("Total number of settled auctions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create auctions closed counter: %w", err)
	}

	mp.incomeCreditedCounter, err = mp.meter.Int64Counter(
		IncomeCreditedTotal,
		metric.WithDescription("Total passive income credited"),
		metric.WithUnit("{coin}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create income credited counter: %w", err)
	}

	mp.snapshotsWrittenCounter, err = mp.meter.Int64Counter(
		SnapshotsWrittenTotal,
		metric.WithDescription("Total number of snapshot and backup writes"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshots written counter: %w", err)
	}

	mp.snapshotSizeHist, err = mp.meter.Int64Histogram(
		SnapshotSize,
		metric.WithDescription("Size of written snapshot files"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(1<<10, 16<<10, 128<<10, 1<<20, 8<<20, 64<<20),
	)
	if err != nil {
		return fmt.Errorf("failed to create snapshot size histogram: %w", err)
	}

	mp.natsMessagesPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// Attach subscribes the provider to every event type on the bus
func (mp *MetricsProvider) Attach(bus *events.Bus) {
	bus.SubscribeAll(mp.HandleEvent)
}

// HandleEvent records metrics for one committed event
func (mp *MetricsProvider) HandleEvent(ctx context.Context, event events.Event) {
	if !mp.isEnabled() {
		return
	}

	mp.eventsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String(LabelEventType, string(event.Type())),
	))

	switch e := event.(type) {
	case events.BalanceChangeEvent:
		attrs := metric.WithAttributes(attribute.String(LabelType, e.TransactionType.String()))
		mp.balanceTransactionsCounter.Add(ctx, 1, attrs)
		volume := e.ChangeAmount
		if volume < 0 {
			volume = -volume
		}
		mp.balanceVolumeCounter.Add(ctx, volume, attrs)
	case events.AuctionStartedEvent:
		mp.auctionsActiveGauge.Add(ctx, 1)
	case events.AuctionClosedEvent:
		mp.auctionsActiveGauge.Add(ctx, -1)
		mp.auctionsClosedCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String(LabelReason, e.Reason),
		))
	case events.IncomeCycleEvent:
		mp.incomeCreditedCounter.Add(ctx, e.TotalCredited)
	case events.SnapshotWrittenEvent:
		attrs := metric.WithAttributes(attribute.String(LabelKind, e.Kind))
		mp.snapshotsWrittenCounter.Add(ctx, 1, attrs)
		mp.snapshotSizeHist.Record(ctx, e.SizeBytes, attrs)
	}
}

// SetActiveAuctions seeds the active auction gauge, e.g. after a restore
func (mp *MetricsProvider) SetActiveAuctions(count int) {
	if !mp.isEnabled() {
		return
	}
	mp.auctionsActiveGauge.Add(context.Background(), int64(count))
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}

	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
		),
	)
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}
