// internal/models/transaction.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction records one purchase attempt, 1:1 with a saga run, whether or
// not it ultimately succeeds. Amount, fee and net amount are computed once at
// saga start and frozen for the life of the run.
type Transaction struct {
	BaseModel
	UserID     uuid.UUID       `json:"user_id" gorm:"type:uuid;not null;index"`
	PropertyID uuid.UUID       `json:"property_id" gorm:"type:uuid;not null;index"`
	Type       TransactionType `json:"type" gorm:"type:varchar(20);not null;index"`

	TokenAmount   int64   `json:"token_amount" gorm:"not null"`
	PricePerToken float64 `json:"price_per_token" gorm:"type:decimal(15,2);not null"`
	Amount        float64 `json:"amount" gorm:"type:decimal(15,2);not null"`
	FeeAmount     float64 `json:"fee_amount" gorm:"type:decimal(15,2);not null"`
	NetAmount     float64 `json:"net_amount" gorm:"type:decimal(15,2);not null"`
	Currency      string  `json:"currency" gorm:"size:3;default:'usd'"`

	PaymentMethod    string `json:"payment_method" gorm:"size:50"`
	PaymentReference string `json:"payment_reference" gorm:"size:255"`
	BlockchainTxID   string `json:"blockchain_tx_id" gorm:"size:128"`

	Status        TransactionStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	FailureReason string            `json:"failure_reason,omitempty" gorm:"type:text"`

	// ProcessedAt is set exactly once, on terminal success.
	ProcessedAt *time.Time `json:"processed_at"`

	// Sweeper bookkeeping for paid-but-untransferred purchases.
	TransferAttempts     int  `json:"transfer_attempts" gorm:"default:0"`
	RequiresIntervention bool `json:"requires_intervention" gorm:"default:false;index"`

	// Relationships
	User     User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Property Property `json:"property,omitempty" gorm:"foreignKey:PropertyID"`
}

// AwaitingLedgerTransfer reports whether the money has been collected but the
// tokens are still owed, i.e. the transaction is eligible for a transfer
// retry.
func (t *Transaction) AwaitingLedgerTransfer() bool {
	return t.Status == TransactionStatusProcessing && t.PaymentReference != "" && t.BlockchainTxID == ""
}
