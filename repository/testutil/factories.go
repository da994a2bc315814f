package testutil

import (
	"time"

	"cardvault/models"
)

// CreateTestAccount creates a test account with default values
func CreateTestAccount(id models.AccountID) *models.Account {
	return &models.Account{
		ID:        id,
		Balance:   50000,
		Inventory: []models.CardInstance{},
		CreatedAt: time.Now().UTC(),
	}
}

// CreateTestAccountWithCards creates a test account holding the given cards
func CreateTestAccountWithCards(id models.AccountID, cards ...models.CardInstance) *models.Account {
	account := CreateTestAccount(id)
	account.Inventory = append(account.Inventory, cards...)
	return account
}

// CreateTestCard creates a card instance with the given name and rarity
func CreateTestCard(name string, rarity models.Rarity, basePrice, incomeRate int64) models.CardInstance {
	return models.CardInstance{
		Name:       name,
		Rarity:     rarity,
		BasePrice:  basePrice,
		IncomeRate: incomeRate,
		AcquiredAt: time.Now().UTC(),
	}
}

// CreateTestBalanceHistory creates a test balance history entry
func CreateTestBalanceHistory(id models.AccountID, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		AccountID:       id,
		BalanceBefore:   50000,
		BalanceAfter:    40000,
		ChangeAmount:    -10000,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
		CreatedAt: time.Now().UTC(),
	}
}

// CreateTestBalanceHistoryWithAmounts creates a test balance history with specific amounts
func CreateTestBalanceHistoryWithAmounts(id models.AccountID, before, after, change int64, transactionType models.TransactionType) *models.BalanceHistory {
	history := CreateTestBalanceHistory(id, transactionType)
	history.BalanceBefore = before
	history.BalanceAfter = after
	history.ChangeAmount = change
	return history
}
