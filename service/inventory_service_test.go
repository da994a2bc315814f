package service_test

import (
	"testing"

	"cardvault/models"
	"cardvault/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryService_AddRespectsCapacity(t *testing.T) {
	env := newTestEnv(t)
	env.give(t, alice, "Tavern Cat", "Ember Drake", "Paper Crown")

	def, _ := env.catalog.Lookup("Gilded Relic")
	err := env.inventory.Add(env.ctx, alice, def.NewInstance(testStart))
	assert.ErrorIs(t, err, service.ErrCollectionFull)
	assert.Equal(t, []string{"Tavern Cat", "Ember Drake", "Paper Crown"}, env.cardNames(t, alice))
}

func TestInventoryService_AddDoesNotRejectDuplicates(t *testing.T) {
	env := newTestEnv(t)
	env.give(t, alice, "Tavern Cat", "Tavern Cat")
	assert.Len(t, env.cardNames(t, alice), 2)
}

func TestInventoryService_RemoveAndHas(t *testing.T) {
	env := newTestEnv(t)
	env.give(t, alice, "Tavern Cat", "Ember Drake", "Paper Crown")

	has, err := env.inventory.Has(env.ctx, alice, "ember DRAKE")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, env.inventory.Remove(env.ctx, alice, "EMBER drake"))
	assert.Equal(t, []string{"Tavern Cat", "Paper Crown"}, env.cardNames(t, alice), "order is preserved")

	err = env.inventory.Remove(env.ctx, alice, "Ember Drake")
	assert.ErrorIs(t, err, service.ErrNotOwned)

	has, err = env.inventory.Has(env.ctx, bob, "Tavern Cat")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestInventoryService_ListReturnsCopy(t *testing.T) {
	env := newTestEnv(t)
	env.give(t, alice, "Tavern Cat")

	cards, err := env.inventory.List(env.ctx, alice)
	require.NoError(t, err)
	cards[0] = models.CardInstance{Name: "tampered"}

	assert.Equal(t, []string{"Tavern Cat"}, env.cardNames(t, alice))
}
