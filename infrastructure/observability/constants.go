package observability

// Metric name prefixes
const (
	MetricPrefix = "cardvault"
)

// Metric names
const (
	EventsTotal = MetricPrefix + ".events.total"

	// Balance metrics
	BalanceTransactionsTotal = MetricPrefix + ".balance.transactions_total"
	BalanceVolume            = MetricPrefix + ".balance.volume"

	// Auction metrics
	AuctionsActive      = MetricPrefix + ".auctions.active"
	AuctionsClosedTotal = MetricPrefix + ".auctions.closed_total"

	// Income metrics
	IncomeCreditedTotal = MetricPrefix + ".income.credited_total"

	// Persistence metrics
	SnapshotsWrittenTotal = MetricPrefix + ".snapshots.written_total"
	SnapshotSize          = MetricPrefix + ".snapshots.size"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelReason    = "reason"
	LabelKind      = "kind"
)
