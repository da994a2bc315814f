package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"cardvault/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionalBus_FlushDeliversAfterCommit(t *testing.T) {
	mainBus := NewBus()
	txBus := NewTransactionalBus(mainBus)

	received := make(chan BalanceChangeEvent, 1)
	mainBus.Subscribe(EventTypeBalanceChange, func(ctx context.Context, event Event) {
		if e, ok := event.(BalanceChangeEvent); ok {
			received <- e
		}
	})

	txBus.Publish(BalanceChangeEvent{
		AccountID:       42,
		OldBalance:      1000,
		NewBalance:      1500,
		TransactionType: models.TransactionTypeIncome,
		ChangeAmount:    500,
	})
	assert.Equal(t, 1, txBus.Pending())

	select {
	case <-received:
		t.Fatal("event delivered before flush")
	case <-time.After(50 * time.Millisecond):
	}

	txBus.Flush()
	assert.Equal(t, 0, txBus.Pending())

	select {
	case e := <-received:
		assert.Equal(t, models.AccountID(42), e.AccountID)
		assert.Equal(t, int64(500), e.ChangeAmount)
	case <-time.After(time.Second):
		t.Fatal("event not delivered after flush")
	}
}

func TestTransactionalBus_DiscardDropsEvents(t *testing.T) {
	mainBus := NewBus()
	txBus := NewTransactionalBus(mainBus)

	delivered := make(chan struct{}, 1)
	mainBus.Subscribe(EventTypeCardSold, func(ctx context.Context, event Event) {
		delivered <- struct{}{}
	})

	txBus.Publish(CardSoldEvent{AccountID: 1, CardName: "Tavern Cat", Price: 800})
	txBus.Discard()
	txBus.Flush()

	select {
	case <-delivered:
		t.Fatal("discarded event was delivered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_SubscribeAllAndPanicRecovery(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(len(AllEventTypes()))
	seen := make(chan EventType, len(AllEventTypes()))

	bus.SubscribeAll(func(ctx context.Context, event Event) {
		defer wg.Done()
		seen <- event.Type()
	})
	bus.Subscribe(EventTypeLevelUp, func(ctx context.Context, event Event) {
		panic("boom")
	})

	bus.Publish(BalanceChangeEvent{})
	bus.Publish(AccountCreatedEvent{})
	bus.Publish(LevelUpEvent{})
	bus.Publish(CardPurchasedEvent{})
	bus.Publish(CardSoldEvent{})
	bus.Publish(AuctionStartedEvent{})
	bus.Publish(BidPlacedEvent{})
	bus.Publish(AuctionClosedEvent{})
	bus.Publish(TradeProposedEvent{})
	bus.Publish(TradeResolvedEvent{})
	bus.Publish(IncomeCycleEvent{})
	bus.Publish(SnapshotWrittenEvent{})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("not every event type was delivered")
	}
	close(seen)

	types := map[EventType]bool{}
	for et := range seen {
		types[et] = true
	}
	require.Len(t, types, len(AllEventTypes()))
}
