package observability

import (
	"context"
	"testing"

	"cardvault/config"
	"cardvault/events"
	"cardvault/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newManualProvider(t *testing.T) (*MetricsProvider, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := NewMetricsProvider(config.NewTestConfig())
	mp.mu.Lock()
	require.NoError(t, mp.useMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))))
	mp.mu.Unlock()
	return mp, reader
}

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	sums := make(map[string]int64)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, point := range data.DataPoints {
					sums[m.Name] += point.Value
				}
			case metricdata.Histogram[int64]:
				for _, point := range data.DataPoints {
					sums[m.Name] += int64(point.Count)
				}
			}
		}
	}
	return sums
}

func TestMetricsProvider_HandleEvent(t *testing.T) {
	mp, reader := newManualProvider(t)
	ctx := context.Background()

	mp.HandleEvent(ctx, events.BalanceChangeEvent{AccountID: 1, TransactionType: models.TransactionTypePurchase, ChangeAmount: -20000})
	mp.HandleEvent(ctx, events.BalanceChangeEvent{AccountID: 1, TransactionType: models.TransactionTypeSale, ChangeAmount: 8000})
	mp.HandleEvent(ctx, events.AuctionStartedEvent{CardName: "Ember Drake"})
	mp.HandleEvent(ctx, events.AuctionStartedEvent{CardName: "Tavern Cat"})
	mp.HandleEvent(ctx, events.AuctionClosedEvent{CardName: "Tavern Cat", Reason: string(models.SettlementNoBids)})
	mp.HandleEvent(ctx, events.IncomeCycleEvent{Cycle: 1, AccountsPaid: 1, TotalCredited: 344})
	mp.HandleEvent(ctx, events.SnapshotWrittenEvent{Kind: "save", SizeBytes: 2048})
	mp.RecordNATSMessagePublished("card_sold")

	sums := collectSums(t, reader)
	assert.Equal(t, int64(7), sums[EventsTotal])
	assert.Equal(t, int64(2), sums[BalanceTransactionsTotal])
	assert.Equal(t, int64(28000), sums[BalanceVolume])
	assert.Equal(t, int64(1), sums[AuctionsActive])
	assert.Equal(t, int64(1), sums[AuctionsClosedTotal])
	assert.Equal(t, int64(344), sums[IncomeCreditedTotal])
	assert.Equal(t, int64(1), sums[SnapshotsWrittenTotal])
	assert.Equal(t, int64(1), sums[SnapshotSize])
	assert.Equal(t, int64(1), sums[NATSMessagesPublishedTotal])
}

func TestMetricsProvider_DisabledIsNoop(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = false
	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.Initialize(context.Background()))

	assert.NotPanics(t, func() {
		mp.HandleEvent(context.Background(), events.IncomeCycleEvent{TotalCredited: 10})
		mp.RecordNATSMessagePublished("income_cycle")
		mp.SetActiveAuctions(3)
	})
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestMetricsProvider_UnknownExporter(t *testing.T) {
	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true
	cfg.OTelExporterType = "carrier-pigeon"

	err := NewMetricsProvider(cfg).Initialize(context.Background())
	assert.Error(t, err)
}
