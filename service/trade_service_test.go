package service_test

import (
	"testing"
	"time"

	"cardvault/models"
	"cardvault/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTradeService_ProposeValidation(t *testing.T) {
	env := newTestEnv(t)
	env.give(t, alice, "Tavern Cat")

	_, err := env.trades.Propose(env.ctx, alice, alice, 0)
	assert.ErrorIs(t, err, service.ErrSelfTrade)

	_, err = env.trades.Propose(env.ctx, alice, bob, 1)
	assert.ErrorIs(t, err, service.ErrInvalidIndex)

	offer, err := env.trades.Propose(env.ctx, alice, bob, 0)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusPending, offer.Status)
	assert.Equal(t, "Tavern Cat", offer.Card.Name)
	assert.Equal(t, testStart.Add(env.config.TradeExpiry), offer.ExpiresAt)
	assert.Equal(t, []string{"Tavern Cat"}, env.cardNames(t, alice), "card stays with sender until accepted")

	pending, err := env.trades.ListPending(env.ctx, bob)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, offer.ID, pending[0].ID)
}

func TestTradeService_Accept(t *testing.T) {
	env := newTestEnv(t)
	env.give(t, alice, "Tavern Cat", "Ember Drake")

	offer, err := env.trades.Propose(env.ctx, alice, bob, 1)
	require.NoError(t, err)

	_, err = env.trades.Accept(env.ctx, offer.ID, carol)
	assert.ErrorIs(t, err, service.ErrNotRecipient)

	accepted, err := env.trades.Accept(env.ctx, offer.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusAccepted, accepted.Status)
	assert.Equal(t, []string{"Tavern Cat"}, env.cardNames(t, alice))
	assert.Equal(t, []string{"Ember Drake"}, env.cardNames(t, bob))
	assert.Equal(t, int64(50000), env.balance(t, alice), "gifts move no currency")
	assert.Equal(t, int64(50000), env.balance(t, bob))

	_, err = env.trades.Accept(env.ctx, offer.ID, bob)
	assert.ErrorIs(t, err, service.ErrTradeNotFound, "resolved offers are purged")
	_, err = env.trades.Get(env.ctx, offer.ID)
	assert.ErrorIs(t, err, service.ErrTradeNotFound)
}

func TestTradeService_AcceptFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, env *testEnv)
		wantErr error
	}{
		{
			name: "sender sold the card",
			setup: func(t *testing.T, env *testEnv) {
				require.NoError(t, env.inventory.Remove(env.ctx, alice, "Ember Drake"))
			},
			wantErr: service.ErrStaleOffer,
		},
		{
			name: "index now points at another card",
			setup: func(t *testing.T, env *testEnv) {
				require.NoError(t, env.inventory.Remove(env.ctx, alice, "Tavern Cat"))
				env.give(t, alice, "Paper Crown")
			},
			wantErr: service.ErrStaleOffer,
		},
		{
			name:    "recipient already owns",
			setup:   func(t *testing.T, env *testEnv) { env.give(t, bob, "Ember Drake") },
			wantErr: service.ErrAlreadyOwned,
		},
		{
			name:    "recipient collection full",
			setup:   func(t *testing.T, env *testEnv) { env.give(t, bob, "Tavern Cat", "Paper Crown", "Gilded Relic") },
			wantErr: service.ErrCollectionFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.give(t, alice, "Tavern Cat", "Ember Drake")
			offer, err := env.trades.Propose(env.ctx, alice, bob, 1)
			require.NoError(t, err)
			tt.setup(t, env)

			senderBefore := env.cardNames(t, alice)
			recipientBefore := env.cardNames(t, bob)

			_, err = env.trades.Accept(env.ctx, offer.ID, bob)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, senderBefore, env.cardNames(t, alice))
			assert.Equal(t, recipientBefore, env.cardNames(t, bob))

			still, err := env.trades.Get(env.ctx, offer.ID)
			require.NoError(t, err)
			assert.Equal(t, models.TradeStatusPending, still.Status)
		})
	}
}

func TestTradeService_ExpiredOffers(t *testing.T) {
	t.Run("accept after deadline", func(t *testing.T) {
		env := newTestEnv(t)
		env.give(t, alice, "Tavern Cat")
		offer, err := env.trades.Propose(env.ctx, alice, bob, 0)
		require.NoError(t, err)

		env.clock.Advance(env.config.TradeExpiry + time.Second)
		_, err = env.trades.Accept(env.ctx, offer.ID, bob)
		assert.ErrorIs(t, err, service.ErrNotPending)
		assert.Equal(t, []string{"Tavern Cat"}, env.cardNames(t, alice))
		assert.Empty(t, env.cardNames(t, bob))

		_, err = env.trades.Get(env.ctx, offer.ID)
		assert.ErrorIs(t, err, service.ErrTradeNotFound, "expired offer is purged")
	})

	t.Run("decline after deadline", func(t *testing.T) {
		env := newTestEnv(t)
		env.give(t, alice, "Tavern Cat")
		offer, err := env.trades.Propose(env.ctx, alice, bob, 0)
		require.NoError(t, err)

		env.clock.Advance(env.config.TradeExpiry + time.Second)
		_, err = env.trades.Decline(env.ctx, offer.ID, bob)
		assert.ErrorIs(t, err, service.ErrNotPending)
	})

	t.Run("reaper expires stale offers only", func(t *testing.T) {
		env := newTestEnv(t)
		env.give(t, alice, "Tavern Cat", "Ember Drake")
		stale, err := env.trades.Propose(env.ctx, alice, bob, 0)
		require.NoError(t, err)
		env.clock.Advance(env.config.TradeExpiry / 2)
		fresh, err := env.trades.Propose(env.ctx, alice, carol, 1)
		require.NoError(t, err)

		env.clock.Advance(env.config.TradeExpiry/2 + time.Second)
		count, err := env.trades.ExpireStale(env.ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		_, err = env.trades.Get(env.ctx, stale.ID)
		assert.ErrorIs(t, err, service.ErrTradeNotFound)
		_, err = env.trades.Get(env.ctx, fresh.ID)
		assert.NoError(t, err)
		assert.Equal(t, []string{"Tavern Cat", "Ember Drake"}, env.cardNames(t, alice))

		count, err = env.trades.ExpireStale(env.ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestTradeService_Decline(t *testing.T) {
	env := newTestEnv(t)
	env.give(t, alice, "Tavern Cat")
	offer, err := env.trades.Propose(env.ctx, alice, bob, 0)
	require.NoError(t, err)

	_, err = env.trades.Decline(env.ctx, offer.ID, alice)
	assert.ErrorIs(t, err, service.ErrNotRecipient)

	declined, err := env.trades.Decline(env.ctx, offer.ID, bob)
	require.NoError(t, err)
	assert.Equal(t, models.TradeStatusDeclined, declined.Status)
	assert.Equal(t, []string{"Tavern Cat"}, env.cardNames(t, alice))

	_, err = env.trades.Decline(env.ctx, offer.ID, bob)
	assert.ErrorIs(t, err, service.ErrTradeNotFound)
	_, err = env.trades.Decline(env.ctx, models.NewTradeID(), bob)
	assert.ErrorIs(t, err, service.ErrTradeNotFound)
}
