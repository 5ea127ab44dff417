// internal/services/portfolio_service.go
package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/propshare/propshare-backend/internal/models"
	"github.com/propshare/propshare-backend/internal/valuation"
)

// PortfolioPosition is one valued holding inside a portfolio snapshot.
type PortfolioPosition struct {
	InvestmentID           uuid.UUID               `json:"investment_id"`
	PropertyID             uuid.UUID               `json:"property_id"`
	PropertyTitle          string                  `json:"property_title"`
	Status                 models.InvestmentStatus `json:"status"`
	TokenAmount            int64                   `json:"token_amount"`
	PurchasePricePerToken  float64                 `json:"purchase_price_per_token"`
	CurrentPricePerToken   float64                 `json:"current_price_per_token"`
	TotalPurchasePrice     float64                 `json:"total_purchase_price"`
	CurrentValue           float64                 `json:"current_value"`
	TotalDividendsReceived float64                 `json:"total_dividends_received"`
	TotalReturn            float64                 `json:"total_return"`
	ReturnPercentage       float64                 `json:"return_percentage"`
	DividendYield          float64                 `json:"dividend_yield"`
	AnnualDividendEstimate float64                 `json:"annual_dividend_estimate"`
}

// PortfolioSnapshot is a derived, read-only view; nothing in it is persisted.
type PortfolioSnapshot struct {
	UserID           uuid.UUID           `json:"user_id"`
	TotalInvested    float64             `json:"total_invested"`
	TotalValue       float64             `json:"total_value"`
	TotalDividends   float64             `json:"total_dividends"`
	TotalReturn      float64             `json:"total_return"`
	ReturnPercentage float64             `json:"return_percentage"`
	PendingTransfers int                 `json:"pending_transfers"`
	Positions        []PortfolioPosition `json:"positions"`
}

// PortfolioService aggregates a user's holdings into a valued snapshot. It
// reads properties in one batch regardless of portfolio size.
type PortfolioService struct {
	store LedgerStore
}

func NewPortfolioService(store LedgerStore) *PortfolioService {
	return &PortfolioService{store: store}
}

func (s *PortfolioService) GetPortfolio(ctx context.Context, userID uuid.UUID) (*PortfolioSnapshot, error) {
	investments, err := s.store.ListInvestments(ctx, userID)
	if err != nil {
		return nil, err
	}

	snapshot := &PortfolioSnapshot{
		UserID:    userID,
		Positions: make([]PortfolioPosition, 0, len(investments)),
	}
	if len(investments) == 0 {
		return snapshot, nil
	}

	ids := make([]uuid.UUID, 0, len(investments))
	for _, inv := range investments {
		ids = append(ids, inv.PropertyID)
	}
	properties, err := s.store.ListPropertiesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Property, len(properties))
	for _, p := range properties {
		byID[p.ID] = p
	}

	totalInvested := decimal.Zero
	totalValue := decimal.Zero
	totalDividends := decimal.Zero

	for _, inv := range investments {
		property, ok := byID[inv.PropertyID]
		if !ok {
			continue
		}

		pos := valuation.Value(valuation.Holding{
			TokenAmount:        inv.TokenAmount,
			TotalPurchasePrice: inv.TotalPurchasePrice,
			DividendsReceived:  inv.TotalDividendsReceived,
		}, property.PricePerToken)

		if inv.Status == models.InvestmentStatusPendingLedgerTransfer {
			snapshot.PendingTransfers++
		}

		snapshot.Positions = append(snapshot.Positions, PortfolioPosition{
			InvestmentID:           inv.ID,
			PropertyID:             property.ID,
			PropertyTitle:          property.Title,
			Status:                 inv.Status,
			TokenAmount:            inv.TokenAmount,
			PurchasePricePerToken:  inv.PurchasePricePerToken,
			CurrentPricePerToken:   property.PricePerToken,
			TotalPurchasePrice:     inv.TotalPurchasePrice,
			CurrentValue:           pos.CurrentValue,
			TotalDividendsReceived: inv.TotalDividendsReceived,
			TotalReturn:            pos.TotalReturn,
			ReturnPercentage:       pos.ReturnPercentage,
			DividendYield:          pos.DividendYield,
			AnnualDividendEstimate: valuation.AnnualDividendEstimate(pos.CurrentValue, property.ExpectedAnnualYield),
		})

		totalInvested = totalInvested.Add(decimal.NewFromFloat(inv.TotalPurchasePrice))
		totalValue = totalValue.Add(decimal.NewFromFloat(pos.CurrentValue))
		totalDividends = totalDividends.Add(decimal.NewFromFloat(inv.TotalDividendsReceived))
	}

	totalReturn := totalValue.Sub(totalInvested).Add(totalDividends)
	snapshot.TotalInvested, _ = totalInvested.Round(2).Float64()
	snapshot.TotalValue, _ = totalValue.Round(2).Float64()
	snapshot.TotalDividends, _ = totalDividends.Round(2).Float64()
	snapshot.TotalReturn, _ = totalReturn.Round(2).Float64()
	if totalInvested.IsPositive() {
		pct := totalReturn.Div(totalInvested).Mul(decimal.NewFromInt(100))
		snapshot.ReturnPercentage, _ = pct.Round(4).Float64()
	}

	return snapshot, nil
}

func (s *PortfolioService) ListInvestments(ctx context.Context, userID uuid.UUID) ([]models.Investment, error) {
	return s.store.ListInvestments(ctx, userID)
}

// GetInvestment returns one holding, enforcing ownership.
func (s *PortfolioService) GetInvestment(ctx context.Context, userID, investmentID uuid.UUID) (*models.Investment, error) {
	investment, err := s.store.GetInvestment(ctx, investmentID)
	if err != nil {
		return nil, err
	}
	if investment.UserID != userID {
		return nil, &NotFoundError{Resource: "investment", ID: investmentID.String()}
	}
	return investment, nil
}
