// internal/models/audit.go
package models

import (
	"github.com/google/uuid"
)

type AuditLog struct {
	BaseModel
	UserID       *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Action       string     `json:"action" gorm:"size:100;not null;index"`
	ResourceType string     `json:"resource_type" gorm:"size:50;not null;index"`
	ResourceID   *uuid.UUID `json:"resource_id" gorm:"type:uuid;index"`
	OldValues    JSONB      `json:"old_values" gorm:"type:jsonb"`
	NewValues    JSONB      `json:"new_values" gorm:"type:jsonb"`
	IPAddress    string     `json:"ip_address" gorm:"size:45"`
	UserAgent    string     `json:"user_agent" gorm:"type:text"`

	// Relationships
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// Audit actions emitted by the settlement saga. Every terminal transition and
// every entry into pending_ledger_transfer produces exactly one event.
const (
	AuditActionPurchaseCompleted    = "investment.purchase_completed"
	AuditActionPurchaseFailed       = "investment.purchase_failed"
	AuditActionTransferPending      = "investment.transfer_pending"
	AuditActionCompensatingRefund   = "investment.compensating_refund"
	AuditActionInterventionRequired = "investment.intervention_required"
)
