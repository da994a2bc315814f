package models

import (
	"errors"
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeInitial     TransactionType = "initial"
	TransactionTypePurchase    TransactionType = "purchase"
	TransactionTypeSale        TransactionType = "sale"
	TransactionTypeAuctionWin  TransactionType = "auction_win"
	TransactionTypeIncome      TransactionType = "income"
	TransactionTypeLevelUp     TransactionType = "level_up"
	TransactionTypeTransferIn  TransactionType = "transfer_in"
	TransactionTypeTransferOut TransactionType = "transfer_out"
	TransactionTypeCredit      TransactionType = "credit"
	TransactionTypeDebit       TransactionType = "debit"
	TransactionTypeAdminReset  TransactionType = "admin_reset"
	TransactionTypeAdminAdjust TransactionType = "admin_adjust"
)

// IsTransferType returns true if the transaction type represents a transfer
func (tt TransactionType) IsTransferType() bool {
	return tt == TransactionTypeTransferIn || tt == TransactionTypeTransferOut
}

// IsSystemGenerated returns true if no user action caused the change
func (tt TransactionType) IsSystemGenerated() bool {
	return tt == TransactionTypeInitial ||
		tt == TransactionTypeIncome ||
		tt == TransactionTypeLevelUp
}

// IsAdmin returns true for administrative corrections
func (tt TransactionType) IsAdmin() bool {
	return tt == TransactionTypeAdminReset || tt == TransactionTypeAdminAdjust
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}

// BalanceHistory represents a historical balance change
type BalanceHistory struct {
	ID                  int64           `db:"id" json:"id"`
	AccountID           AccountID       `db:"account_id" json:"account_id"`
	BalanceBefore       int64           `db:"balance_before" json:"balance_before"`
	BalanceAfter        int64           `db:"balance_after" json:"balance_after"`
	ChangeAmount        int64           `db:"change_amount" json:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type" json:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata" json:"transaction_metadata,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}

// IsPositiveChange returns true if the change amount is positive
func (bh *BalanceHistory) IsPositiveChange() bool {
	return bh.ChangeAmount > 0
}

// GetTransactionDescription returns a human-readable description of the transaction
func (bh *BalanceHistory) GetTransactionDescription() string {
	switch bh.TransactionType {
	case TransactionTypeInitial:
		return "Initial balance"
	case TransactionTypePurchase:
		return "Card purchase"
	case TransactionTypeSale:
		return "Card sale"
	case TransactionTypeAuctionWin:
		return "Auction win"
	case TransactionTypeIncome:
		return "Passive income"
	case TransactionTypeLevelUp:
		return "Level up reward"
	case TransactionTypeTransferIn:
		return "Transfer received"
	case TransactionTypeTransferOut:
		return "Transfer sent"
	case TransactionTypeAdminReset:
		return "Account reset"
	case TransactionTypeAdminAdjust:
		return "Balance adjustment"
	default:
		return string(bh.TransactionType)
	}
}

// ValidateTransaction performs basic validation on the transaction
func (bh *BalanceHistory) ValidateTransaction() error {
	if bh.ChangeAmount == 0 && !bh.TransactionType.IsAdmin() {
		return errors.New("change amount cannot be zero")
	}
	if bh.BalanceAfter != bh.BalanceBefore+bh.ChangeAmount {
		return errors.New("balance calculation is inconsistent")
	}
	if bh.BalanceAfter < 0 {
		return errors.New("balance cannot go negative")
	}
	return nil
}
