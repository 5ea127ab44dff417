// internal/services/audit_recorder.go
package services

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/propshare/propshare-backend/internal/models"
)

// AuditRecorder persists saga audit events. Writes happen on a background
// goroutine and never block or fail a settlement; a lost audit row is logged
// and accepted.
type AuditRecorder struct {
	db *gorm.DB
}

func NewAuditRecorder(db *gorm.DB) *AuditRecorder {
	return &AuditRecorder{db: db}
}

func (r *AuditRecorder) Record(userID uuid.UUID, action string, transactionID uuid.UUID, details models.JSONB) {
	uid := userID
	txID := transactionID
	entry := &models.AuditLog{
		UserID:       &uid,
		Action:       action,
		ResourceType: "transaction",
		ResourceID:   &txID,
		NewValues:    details,
	}

	go func() {
		if err := r.db.Create(entry).Error; err != nil {
			logrus.WithError(err).WithField("action", action).Error("Failed to write audit log")
		}
	}()
}
