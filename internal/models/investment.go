// internal/models/investment.go
package models

import (
	"github.com/google/uuid"
)

// Investment accumulates all of a user's purchases in one property: one row
// per (user, property) pair, merged on every settled purchase. Rows are never
// hard-deleted.
type Investment struct {
	BaseModel
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_investments_user_property"`
	PropertyID uuid.UUID `json:"property_id" gorm:"type:uuid;not null;uniqueIndex:idx_investments_user_property"`

	// TokenAmount equals the sum of token amounts across this pair's
	// completed transactions.
	TokenAmount int64 `json:"token_amount" gorm:"not null;default:0"`

	// PurchasePricePerToken is the value-weighted average across all
	// purchases, recomputed on each merge.
	PurchasePricePerToken  float64 `json:"purchase_price_per_token" gorm:"type:decimal(15,2);not null;default:0"`
	TotalPurchasePrice     float64 `json:"total_purchase_price" gorm:"type:decimal(15,2);not null;default:0"`
	TotalDividendsReceived float64 `json:"total_dividends_received" gorm:"type:decimal(15,2);not null;default:0"`

	Status InvestmentStatus `json:"status" gorm:"type:varchar(30);default:'pending';index"`

	// BlockchainTxID is the last successful transfer reference; populated
	// only once the row has left pending_ledger_transfer.
	BlockchainTxID string `json:"blockchain_tx_id" gorm:"size:128"`

	// Relationships
	User     User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Property Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}
