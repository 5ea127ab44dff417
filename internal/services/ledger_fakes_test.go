package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/propshare/propshare-backend/internal/models"
)

// memoryStore is a mutex-guarded LedgerStore used by the service tests. It
// mirrors the SQL implementation's semantics: the token decrement is guarded
// on remaining supply and transaction completion is guarded on status.
type memoryStore struct {
	mu           sync.Mutex
	users        map[uuid.UUID]models.User
	properties   map[uuid.UUID]models.Property
	transactions map[uuid.UUID]models.Transaction
	investments  map[string]models.Investment

	// Injected failures for the corresponding store operations.
	processingErr error
	pendingErr    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:        make(map[uuid.UUID]models.User),
		properties:   make(map[uuid.UUID]models.Property),
		transactions: make(map[uuid.UUID]models.Transaction),
		investments:  make(map[string]models.Investment),
	}
}

func investmentKey(userID, propertyID uuid.UUID) string {
	return userID.String() + "/" + propertyID.String()
}

func (s *memoryStore) putUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *memoryStore) putProperty(p models.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties[p.ID] = p
}

func (s *memoryStore) putInvestment(inv models.Investment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.investments[investmentKey(inv.UserID, inv.PropertyID)] = inv
}

func (s *memoryStore) availableTokens(propertyID uuid.UUID) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.properties[propertyID].AvailableTokens
}

func (s *memoryStore) transaction(id uuid.UUID) models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactions[id]
}

func (s *memoryStore) investment(userID, propertyID uuid.UUID) (models.Investment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.investments[investmentKey(userID, propertyID)]
	return inv, ok
}

func (s *memoryStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, &NotFoundError{Resource: "user", ID: id.String()}
	}
	return &u, nil
}

func (s *memoryStore) GetProperty(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[id]
	if !ok {
		return nil, &NotFoundError{Resource: "property", ID: id.String()}
	}
	return &p, nil
}

func (s *memoryStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	tx.CreatedAt = time.Now()
	s.transactions[tx.ID] = *tx
	return nil
}

func (s *memoryStore) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return nil, &NotFoundError{Resource: "transaction", ID: id.String()}
	}
	return &tx, nil
}

func (s *memoryStore) MarkTransactionProcessing(ctx context.Context, id uuid.UUID, paymentRef string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processingErr != nil {
		return s.processingErr
	}
	tx, ok := s.transactions[id]
	if !ok {
		return &NotFoundError{Resource: "transaction", ID: id.String()}
	}
	if tx.Status != models.TransactionStatusPending {
		return &InvalidStateError{TransactionID: id.String(), State: "not pending"}
	}
	tx.Status = models.TransactionStatusProcessing
	tx.PaymentReference = paymentRef
	s.transactions[id] = tx
	return nil
}

func (s *memoryStore) MarkTransactionFailed(ctx context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[id]
	if !ok {
		return &NotFoundError{Resource: "transaction", ID: id.String()}
	}
	if tx.Status != models.TransactionStatusPending && tx.Status != models.TransactionStatusProcessing {
		return &InvalidStateError{TransactionID: id.String(), State: "terminal"}
	}
	tx.Status = models.TransactionStatusFailed
	tx.FailureReason = reason
	s.transactions[id] = tx
	return nil
}

func (s *memoryStore) MarkPendingLedgerTransfer(ctx context.Context, txID uuid.UUID) (*models.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingErr != nil {
		return nil, s.pendingErr
	}
	tx, ok := s.transactions[txID]
	if !ok {
		return nil, &NotFoundError{Resource: "transaction", ID: txID.String()}
	}
	tx.TransferAttempts++
	s.transactions[txID] = tx

	key := investmentKey(tx.UserID, tx.PropertyID)
	inv, ok := s.investments[key]
	if !ok {
		inv = models.Investment{
			BaseModel:  models.BaseModel{ID: uuid.New()},
			UserID:     tx.UserID,
			PropertyID: tx.PropertyID,
		}
	}
	inv.Status = models.InvestmentStatusPendingLedgerTransfer
	s.investments[key] = inv
	return &inv, nil
}

func (s *memoryStore) MarkTransactionCompensated(ctx context.Context, txID uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[txID]
	if !ok {
		return &NotFoundError{Resource: "transaction", ID: txID.String()}
	}
	if tx.Status != models.TransactionStatusPending && tx.Status != models.TransactionStatusProcessing {
		return &InvalidStateError{TransactionID: txID.String(), State: "terminal"}
	}
	tx.Status = models.TransactionStatusFailed
	tx.FailureReason = reason
	s.transactions[txID] = tx

	key := investmentKey(tx.UserID, tx.PropertyID)
	if inv, ok := s.investments[key]; ok && inv.Status == models.InvestmentStatusPendingLedgerTransfer {
		if inv.TokenAmount > 0 {
			inv.Status = models.InvestmentStatusActive
		} else {
			inv.Status = models.InvestmentStatusCancelled
		}
		s.investments[key] = inv
	}
	return nil
}

func (s *memoryStore) MarkRequiresIntervention(ctx context.Context, txID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.transactions[txID]
	if !ok {
		return &NotFoundError{Resource: "transaction", ID: txID.String()}
	}
	tx.RequiresIntervention = true
	s.transactions[txID] = tx
	return nil
}

func (s *memoryStore) ReserveAndCommit(ctx context.Context, params *CommitParams) (*models.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[params.TransactionID]
	if !ok {
		return nil, &NotFoundError{Resource: "transaction", ID: params.TransactionID.String()}
	}
	if tx.Status != models.TransactionStatusProcessing {
		return nil, &InvalidStateError{TransactionID: params.TransactionID.String(), State: "not processing"}
	}

	property, ok := s.properties[params.PropertyID]
	if !ok {
		return nil, &NotFoundError{Resource: "property", ID: params.PropertyID.String()}
	}
	if property.AvailableTokens < params.TokenAmount {
		return nil, ErrInsufficientTokens
	}

	property.AvailableTokens -= params.TokenAmount
	if property.AvailableTokens == 0 && property.Status == models.PropertyStatusActive {
		property.Status = models.PropertyStatusSoldOut
	}
	s.properties[params.PropertyID] = property

	purchasePrice := float64(params.TokenAmount) * params.PricePerToken
	key := investmentKey(params.UserID, params.PropertyID)
	inv, ok := s.investments[key]
	if !ok {
		inv = models.Investment{
			BaseModel:  models.BaseModel{ID: uuid.New()},
			UserID:     params.UserID,
			PropertyID: params.PropertyID,
		}
	}
	newTotal := inv.TokenAmount + params.TokenAmount
	inv.PurchasePricePerToken = (float64(inv.TokenAmount)*inv.PurchasePricePerToken + purchasePrice) / float64(newTotal)
	inv.TokenAmount = newTotal
	inv.TotalPurchasePrice += purchasePrice
	inv.Status = models.InvestmentStatusActive
	inv.BlockchainTxID = params.TransferRef
	s.investments[key] = inv

	now := time.Now()
	tx.Status = models.TransactionStatusCompleted
	tx.ProcessedAt = &now
	tx.BlockchainTxID = params.TransferRef
	s.transactions[params.TransactionID] = tx

	return &inv, nil
}

func (s *memoryStore) GetInvestment(ctx context.Context, id uuid.UUID) (*models.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.investments {
		if inv.ID == id {
			out := inv
			return &out, nil
		}
	}
	return nil, &NotFoundError{Resource: "investment", ID: id.String()}
}

func (s *memoryStore) ListInvestments(ctx context.Context, userID uuid.UUID) ([]models.Investment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Investment
	for _, inv := range s.investments {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *memoryStore) ListPropertiesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Property
	seen := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := s.properties[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *memoryStore) ListAwaitingTransfer(ctx context.Context, maxAttempts int, limit int) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for _, tx := range s.transactions {
		if tx.Status == models.TransactionStatusProcessing &&
			tx.PaymentReference != "" && tx.BlockchainTxID == "" &&
			tx.TransferAttempts < maxAttempts && !tx.RequiresIntervention {
			out = append(out, tx)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// fakeGateway records charges and refunds and can be told to decline. An
// optional barrier holds every charge until all expected callers have
// charged, which pins down the post-payment supply race in tests.
type fakeGateway struct {
	mu          sync.Mutex
	declineNext bool
	barrier     *sync.WaitGroup
	charges     []ChargeRequest
	refunds     []fakeRefund
}

type fakeRefund struct {
	Reference string
	Amount    float64
	Reason    string
}

func (g *fakeGateway) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	g.mu.Lock()
	if g.declineNext {
		g.declineNext = false
		g.mu.Unlock()
		return nil, fmt.Errorf("card declined")
	}
	g.charges = append(g.charges, *req)
	barrier := g.barrier
	g.mu.Unlock()

	if barrier != nil {
		barrier.Done()
		barrier.Wait()
	}
	return &ChargeResult{Reference: "pi_" + req.IdempotencyKey, Status: "succeeded"}, nil
}

func (g *fakeGateway) Refund(ctx context.Context, reference string, amount float64, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, fakeRefund{Reference: reference, Amount: amount, Reason: reason})
	return nil
}

func (g *fakeGateway) chargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.charges)
}

func (g *fakeGateway) refundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.refunds)
}

// fakeTransfers counts calls per idempotency key and fails the first
// `failures` calls.
type fakeTransfers struct {
	mu           sync.Mutex
	failures     int
	nonRetryable bool
	calls        map[string]int
}

func newFakeTransfers() *fakeTransfers {
	return &fakeTransfers{calls: make(map[string]int)}
}

func (t *fakeTransfers) Transfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[req.IdempotencyKey]++
	if t.failures > 0 {
		t.failures--
		if t.nonRetryable {
			return nil, &LedgerTransferError{
				TransactionID: req.IdempotencyKey,
				Retryable:     false,
				Err:           fmt.Errorf("token frozen on ledger"),
			}
		}
		return nil, &LedgerTransferError{
			TransactionID: req.IdempotencyKey,
			Retryable:     true,
			Err:           fmt.Errorf("transfer timed out"),
		}
	}
	return &TransferResult{TransferRef: "xfer_" + req.IdempotencyKey}, nil
}

func (t *fakeTransfers) callCount(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[key]
}

// fakeCompliance blocks when told to.
type fakeCompliance struct {
	blocked bool
	reason  string
}

func (c *fakeCompliance) CheckLimits(ctx context.Context, userID uuid.UUID, amount float64) (*ComplianceDecision, error) {
	if c.blocked {
		return &ComplianceDecision{Allowed: false, Reason: c.reason}, nil
	}
	return &ComplianceDecision{Allowed: true}, nil
}
