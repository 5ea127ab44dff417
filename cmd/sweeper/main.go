// cmd/sweeper/main.go
//
// The sweeper recovers purchases whose payment settled but whose ledger
// transfer never completed. It periodically picks up transactions parked in
// processing and re-drives the transfer with the original idempotency key.
package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/propshare/propshare-backend/internal/config"
	"github.com/propshare/propshare-backend/internal/database"
	"github.com/propshare/propshare-backend/internal/models"
	"github.com/propshare/propshare-backend/internal/services"
)

const sweepBatchSize = 50

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	db, err := database.Initialize(cfg.Database)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer database.Close(db)

	store := services.NewGormLedgerStore(db)
	auditRecorder := services.NewAuditRecorder(db)
	notificationService := services.NewNotificationService(cfg)
	paymentGateway := services.NewStripeGateway(cfg)
	transferService := services.NewHTTPLedgerTransferService(cfg)

	// Compliance is a pre-charge gate; recovery never re-checks it.
	investmentService := services.NewInvestmentService(
		store, paymentGateway, transferService, nil,
		auditRecorder, notificationService, cfg,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	interval := time.Duration(cfg.Sweeper.Interval) * time.Second
	logrus.WithField("interval", interval).Info("Sweeper started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(ctx, store, investmentService, cfg.Sweeper.MaxAttempts)
	for {
		select {
		case <-ctx.Done():
			logrus.Info("Sweeper stopped")
			return
		case <-ticker.C:
			sweep(ctx, store, investmentService, cfg.Sweeper.MaxAttempts)
		}
	}
}

// sweep re-drives one batch of parked transactions. Listing retries with
// exponential backoff so a transient database error does not cost a whole
// sweep cycle.
func sweep(ctx context.Context, store services.LedgerStore, svc *services.InvestmentService, maxAttempts int) {
	var transactions []models.Transaction

	list := func() error {
		var err error
		transactions, err = store.ListAwaitingTransfer(ctx, maxAttempts, sweepBatchSize)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(list, policy); err != nil {
		logrus.WithError(err).Error("Failed to list transactions awaiting transfer")
		return
	}

	if len(transactions) == 0 {
		return
	}
	logrus.WithField("count", len(transactions)).Info("Sweeping parked transfers")

	for _, tx := range transactions {
		if ctx.Err() != nil {
			return
		}

		_, err := svc.RetryLedgerTransfer(ctx, tx.ID)
		switch {
		case err == nil:
			logrus.WithField("transaction_id", tx.ID).Info("Parked transfer recovered")
		case isExpectedRetryOutcome(err):
			logrus.WithError(err).WithFields(logrus.Fields{
				"transaction_id": tx.ID,
				"attempts":       tx.TransferAttempts + 1,
			}).Warn("Transfer retry did not complete")
		default:
			logrus.WithError(err).WithField("transaction_id", tx.ID).Error("Transfer retry failed")
		}
	}
}

// isExpectedRetryOutcome filters outcomes the sweeper treats as routine: the
// transfer is still failing, the transaction settled or was flagged between
// listing and retry, or the purchase lost the supply race and was refunded.
func isExpectedRetryOutcome(err error) bool {
	var transferErr *services.LedgerTransferError
	var stateErr *services.InvalidStateError
	var conflictErr *services.ConcurrencyConflictError
	return errors.As(err, &transferErr) || errors.As(err, &stateErr) || errors.As(err, &conflictErr)
}
