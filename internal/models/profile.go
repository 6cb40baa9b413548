package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Profile holds shop-facing account data: contact details, wallet and points.
type Profile struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AccountID uint64 `gorm:"not null;uniqueIndex"` // Owning account ID.

	Phone   string `gorm:"type:text"`                      // Contact phone.
	Address string `gorm:"type:text"`                      // Default delivery address.
	Country string `gorm:"type:text;not null;default:'Egypt'"` // Country of residence.

	Warning bool `gorm:"not null;default:false"` // Set when staff warned the account.
	Blocked bool `gorm:"not null;default:false"` // Blocked accounts cannot sign in.

	Balance        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"` // Wallet balance.
	TotalSpent     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"` // Lifetime paid total.
	LastPurchaseAt *time.Time      // Last confirmed payment.
	Points         int64           `gorm:"not null;default:0"` // Redeemable loyalty points.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// BalanceTransactionType classifies wallet movements.
type BalanceTransactionType string

// BalanceTransactionType values.
const (
	// BalanceTransactionDeposit adds funds to the wallet.
	BalanceTransactionDeposit BalanceTransactionType = "deposit"
	// BalanceTransactionPayment spends wallet funds on an order.
	BalanceTransactionPayment BalanceTransactionType = "payment"
	// BalanceTransactionRefund returns funds for a cancelled order.
	BalanceTransactionRefund BalanceTransactionType = "refund"
)

// BalanceTransaction records a wallet balance change.
type BalanceTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AccountID uint64 `gorm:"not null;index"` // Owning account ID.

	Amount    decimal.Decimal        `gorm:"type:decimal(12,2);not null"` // Positive movement amount.
	Type      BalanceTransactionType `gorm:"type:varchar(10);not null"`   // Movement type.
	Reference string                 `gorm:"type:text"`                   // Order or transfer reference.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// PasswordReset stores a one-time 6-digit reset code.
type PasswordReset struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AccountID uint64 `gorm:"not null;index"` // Account being reset.

	Code   string     `gorm:"type:varchar(6);not null;uniqueIndex"` // Activation code.
	UsedAt *time.Time // Set once the code has been consumed.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
