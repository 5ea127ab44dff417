// internal/services/ledger_store.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/propshare/propshare-backend/internal/models"
)

// CommitParams carries everything the final settlement step needs once the
// ledger transfer has succeeded.
type CommitParams struct {
	TransactionID uuid.UUID
	UserID        uuid.UUID
	PropertyID    uuid.UUID
	TokenAmount   int64
	PricePerToken float64
	TransferRef   string
}

// LedgerStore is the durable home of Investment and Transaction records and
// the per-property available-token counter. ReserveAndCommit is the single
// atomic unit of the settlement: counter decrement, investment merge and
// transaction completion either all happen or none do.
type LedgerStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetProperty(ctx context.Context, id uuid.UUID) (*models.Property, error)

	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	MarkTransactionProcessing(ctx context.Context, id uuid.UUID, paymentRef string) error
	MarkTransactionFailed(ctx context.Context, id uuid.UUID, reason string) error

	// MarkPendingLedgerTransfer parks a paid-but-untransferred purchase:
	// the investment row is created (with zero tokens) or moved to
	// pending_ledger_transfer, and the transaction's attempt counter is
	// bumped. Tokens are merged in only at commit.
	MarkPendingLedgerTransfer(ctx context.Context, txID uuid.UUID) (*models.Investment, error)

	// MarkTransactionCompensated finalizes a refunded purchase: the
	// transaction is marked failed and an investment parked for it returns
	// to active when it still holds tokens, or cancelled when it never
	// settled any.
	MarkTransactionCompensated(ctx context.Context, txID uuid.UUID, reason string) error

	MarkRequiresIntervention(ctx context.Context, txID uuid.UUID) error

	ReserveAndCommit(ctx context.Context, params *CommitParams) (*models.Investment, error)

	GetInvestment(ctx context.Context, id uuid.UUID) (*models.Investment, error)
	ListInvestments(ctx context.Context, userID uuid.UUID) ([]models.Investment, error)
	ListPropertiesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Property, error)
	ListAwaitingTransfer(ctx context.Context, maxAttempts int, limit int) ([]models.Transaction, error)
}

// GormLedgerStore implements LedgerStore on Postgres.
type GormLedgerStore struct {
	db *gorm.DB
}

func NewGormLedgerStore(db *gorm.DB) *GormLedgerStore {
	return &GormLedgerStore{db: db}
}

func (s *GormLedgerStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "user", ID: id.String()}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (s *GormLedgerStore) GetProperty(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var property models.Property
	if err := s.db.WithContext(ctx).First(&property, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "property", ID: id.String()}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &property, nil
}

func (s *GormLedgerStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if err := s.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *GormLedgerStore) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	if err := s.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "transaction", ID: id.String()}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &tx, nil
}

func (s *GormLedgerStore) MarkTransactionProcessing(ctx context.Context, id uuid.UUID, paymentRef string) error {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionStatusPending).
		Updates(map[string]interface{}{
			"status":            models.TransactionStatusProcessing,
			"payment_reference": paymentRef,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark transaction processing: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &InvalidStateError{TransactionID: id.String(), State: "not pending"}
	}
	return nil
}

func (s *GormLedgerStore) MarkTransactionFailed(ctx context.Context, id uuid.UUID, reason string) error {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status IN ?", id, []models.TransactionStatus{
			models.TransactionStatusPending,
			models.TransactionStatusProcessing,
		}).
		Updates(map[string]interface{}{
			"status":         models.TransactionStatusFailed,
			"failure_reason": reason,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to mark transaction failed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &InvalidStateError{TransactionID: id.String(), State: "terminal"}
	}
	return nil
}

func (s *GormLedgerStore) MarkPendingLedgerTransfer(ctx context.Context, txID uuid.UUID) (*models.Investment, error) {
	var investment models.Investment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.Transaction
		if err := tx.First(&record, "id = ?", txID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "transaction", ID: txID.String()}
			}
			return fmt.Errorf("database error: %w", err)
		}

		if err := tx.Model(&record).
			UpdateColumn("transfer_attempts", gorm.Expr("transfer_attempts + 1")).Error; err != nil {
			return fmt.Errorf("failed to bump transfer attempts: %w", err)
		}

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND property_id = ?", record.UserID, record.PropertyID).
			First(&investment).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			investment = models.Investment{
				UserID:     record.UserID,
				PropertyID: record.PropertyID,
				Status:     models.InvestmentStatusPendingLedgerTransfer,
			}
			if err := tx.Create(&investment).Error; err != nil {
				return fmt.Errorf("failed to create pending investment: %w", err)
			}
		case err != nil:
			return fmt.Errorf("database error: %w", err)
		default:
			if err := tx.Model(&investment).
				Update("status", models.InvestmentStatusPendingLedgerTransfer).Error; err != nil {
				return fmt.Errorf("failed to mark investment pending transfer: %w", err)
			}
			investment.Status = models.InvestmentStatusPendingLedgerTransfer
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &investment, nil
}

func (s *GormLedgerStore) MarkTransactionCompensated(ctx context.Context, txID uuid.UUID, reason string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record models.Transaction
		if err := tx.First(&record, "id = ?", txID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Resource: "transaction", ID: txID.String()}
			}
			return fmt.Errorf("database error: %w", err)
		}

		res := tx.Model(&models.Transaction{}).
			Where("id = ? AND status IN ?", txID, []models.TransactionStatus{
				models.TransactionStatusPending,
				models.TransactionStatusProcessing,
			}).
			Updates(map[string]interface{}{
				"status":         models.TransactionStatusFailed,
				"failure_reason": reason,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to mark transaction failed: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &InvalidStateError{TransactionID: txID.String(), State: "terminal"}
		}

		var investment models.Investment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND property_id = ? AND status = ?",
				record.UserID, record.PropertyID, models.InvestmentStatusPendingLedgerTransfer).
			First(&investment).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("database error: %w", err)
		}

		status := models.InvestmentStatusActive
		if investment.TokenAmount == 0 {
			status = models.InvestmentStatusCancelled
		}
		if err := tx.Model(&investment).Update("status", status).Error; err != nil {
			return fmt.Errorf("failed to restore investment status: %w", err)
		}
		return nil
	})
}

func (s *GormLedgerStore) MarkRequiresIntervention(ctx context.Context, txID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ?", txID).
		Update("requires_intervention", true)
	if res.Error != nil {
		return fmt.Errorf("failed to flag transaction for intervention: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &NotFoundError{Resource: "transaction", ID: txID.String()}
	}
	return nil
}

// ReserveAndCommit performs the settlement's atomic unit. The available-token
// decrement is a single conditional UPDATE guarded by `available_tokens >=
// amount`; losing the race surfaces as ErrInsufficientTokens and rolls the
// whole commit back. The investment merge happens under a FOR UPDATE row lock
// so two purchases by the same user cannot compute conflicting weighted
// averages, and the final transaction update is guarded on status=processing
// so a duplicate commit (two racing retries) cannot settle twice.
func (s *GormLedgerStore) ReserveAndCommit(ctx context.Context, params *CommitParams) (*models.Investment, error) {
	var investment models.Investment

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Property{}).
			Where("id = ? AND available_tokens >= ?", params.PropertyID, params.TokenAmount).
			UpdateColumn("available_tokens", gorm.Expr("available_tokens - ?", params.TokenAmount))
		if res.Error != nil {
			return fmt.Errorf("failed to reserve tokens: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientTokens
		}

		if err := tx.Model(&models.Property{}).
			Where("id = ? AND available_tokens = 0 AND status = ?", params.PropertyID, models.PropertyStatusActive).
			Update("status", models.PropertyStatusSoldOut).Error; err != nil {
			return fmt.Errorf("failed to update property status: %w", err)
		}

		purchasePrice := float64(params.TokenAmount) * params.PricePerToken

		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND property_id = ?", params.UserID, params.PropertyID).
			First(&investment).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			investment = models.Investment{
				UserID:                params.UserID,
				PropertyID:            params.PropertyID,
				TokenAmount:           params.TokenAmount,
				PurchasePricePerToken: params.PricePerToken,
				TotalPurchasePrice:    purchasePrice,
				Status:                models.InvestmentStatusActive,
				BlockchainTxID:        params.TransferRef,
			}
			if err := tx.Create(&investment).Error; err != nil {
				return fmt.Errorf("failed to create investment: %w", err)
			}
		case err != nil:
			return fmt.Errorf("database error: %w", err)
		default:
			newTotal := investment.TokenAmount + params.TokenAmount
			newWeightedPrice := (float64(investment.TokenAmount)*investment.PurchasePricePerToken + purchasePrice) / float64(newTotal)

			updates := map[string]interface{}{
				"token_amount":             newTotal,
				"purchase_price_per_token": newWeightedPrice,
				"total_purchase_price":     investment.TotalPurchasePrice + purchasePrice,
				"status":                   models.InvestmentStatusActive,
				"blockchain_tx_id":         params.TransferRef,
			}
			if err := tx.Model(&investment).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to merge investment: %w", err)
			}
			investment.TokenAmount = newTotal
			investment.PurchasePricePerToken = newWeightedPrice
			investment.TotalPurchasePrice += purchasePrice
			investment.Status = models.InvestmentStatusActive
			investment.BlockchainTxID = params.TransferRef
		}

		now := time.Now()
		res = tx.Model(&models.Transaction{}).
			Where("id = ? AND status = ?", params.TransactionID, models.TransactionStatusProcessing).
			Updates(map[string]interface{}{
				"status":           models.TransactionStatusCompleted,
				"processed_at":     now,
				"blockchain_tx_id": params.TransferRef,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete transaction: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return &InvalidStateError{TransactionID: params.TransactionID.String(), State: "not processing"}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	return &investment, nil
}

func (s *GormLedgerStore) GetInvestment(ctx context.Context, id uuid.UUID) (*models.Investment, error) {
	var investment models.Investment
	if err := s.db.WithContext(ctx).First(&investment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "investment", ID: id.String()}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &investment, nil
}

func (s *GormLedgerStore) ListInvestments(ctx context.Context, userID uuid.UUID) ([]models.Investment, error) {
	var investments []models.Investment
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&investments).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch investments: %w", err)
	}
	return investments, nil
}

func (s *GormLedgerStore) ListPropertiesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Property, error) {
	var properties []models.Property
	if err := s.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&properties).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch properties: %w", err)
	}
	return properties, nil
}

func (s *GormLedgerStore) ListAwaitingTransfer(ctx context.Context, maxAttempts int, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.db.WithContext(ctx).
		Where("status = ? AND payment_reference <> '' AND blockchain_tx_id = '' AND transfer_attempts < ? AND requires_intervention = false",
			models.TransactionStatusProcessing, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch pending transfers: %w", err)
	}
	return transactions, nil
}
