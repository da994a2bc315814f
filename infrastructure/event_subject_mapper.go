package infrastructure

import (
	"fmt"

	"cardvault/events"
)

// EventSubjectMapper maps engine events to NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

var subjects = map[events.EventType]string{
	events.EventTypeBalanceChange:   "economy.accounts.balance_changed",
	events.EventTypeAccountCreated:  "economy.accounts.created",
	events.EventTypeLevelUp:         "economy.accounts.leveled_up",
	events.EventTypeCardPurchased:   "economy.shop.purchased",
	events.EventTypeCardSold:        "economy.shop.sold",
	events.EventTypeAuctionStarted:  "economy.auctions.started",
	events.EventTypeBidPlaced:       "economy.auctions.bid_placed",
	events.EventTypeAuctionClosed:   "economy.auctions.closed",
	events.EventTypeTradeProposed:   "economy.trades.proposed",
	events.EventTypeTradeResolved:   "economy.trades.resolved",
	events.EventTypeIncomeCycle:     "economy.income.cycle_completed",
	events.EventTypeSnapshotWritten: "economy.persistence.snapshot_written",
}

// MapEventToSubject converts an event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := subjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("economy.unknown.%s", event.Type())
}

// GetAllSubjects returns all subjects that the engine publishes to
func (m *EventSubjectMapper) GetAllSubjects() []string {
	all := make([]string, 0, len(subjects))
	for _, eventType := range events.AllEventTypes() {
		all = append(all, subjects[eventType])
	}
	return all
}
