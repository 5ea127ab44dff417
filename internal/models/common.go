// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(bytes, j)
}

// Enums
type UserType string

const (
	UserTypeInvestor UserType = "investor"
	UserTypeAdmin    UserType = "admin"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"
)

type KYCStatus string

const (
	KYCStatusUnverified KYCStatus = "unverified"
	KYCStatusPending    KYCStatus = "pending"
	KYCStatusApproved   KYCStatus = "approved"
	KYCStatusRejected   KYCStatus = "rejected"
)

type PropertyStatus string

const (
	PropertyStatusDraft    PropertyStatus = "draft"
	PropertyStatusActive   PropertyStatus = "active"
	PropertyStatusSoldOut  PropertyStatus = "sold_out"
	PropertyStatusDelisted PropertyStatus = "delisted"
)

type InvestmentStatus string

const (
	InvestmentStatusPending               InvestmentStatus = "pending"
	InvestmentStatusActive                InvestmentStatus = "active"
	InvestmentStatusPendingLedgerTransfer InvestmentStatus = "pending_ledger_transfer"
	InvestmentStatusSold                  InvestmentStatus = "sold"
	InvestmentStatusCancelled             InvestmentStatus = "cancelled"
)

type TransactionType string

const (
	TransactionTypeInvestment TransactionType = "investment"
	TransactionTypeDividend   TransactionType = "dividend"
	TransactionTypeRefund     TransactionType = "refund"
)

// TransactionStatus is the saga's own state. Transitions are monotonic:
// pending -> processing -> (completed | failed), never reversed.
type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "pending"
	TransactionStatusProcessing TransactionStatus = "processing"
	TransactionStatusCompleted  TransactionStatus = "completed"
	TransactionStatusFailed     TransactionStatus = "failed"
)
