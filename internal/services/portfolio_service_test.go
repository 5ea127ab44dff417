package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propshare/propshare-backend/internal/models"
)

func TestGetPortfolioAggregatesHoldings(t *testing.T) {
	store := newMemoryStore()
	svc := NewPortfolioService(store)
	userID := uuid.New()

	riverside := models.Property{
		BaseModel:           models.BaseModel{ID: uuid.New()},
		Title:               "Riverside Lofts",
		PricePerToken:       12.0,
		ExpectedAnnualYield: 5.0,
		Status:              models.PropertyStatusActive,
	}
	hillside := models.Property{
		BaseModel:           models.BaseModel{ID: uuid.New()},
		Title:               "Hillside Villas",
		PricePerToken:       8.0,
		ExpectedAnnualYield: 6.0,
		Status:              models.PropertyStatusActive,
	}
	store.putProperty(riverside)
	store.putProperty(hillside)

	store.putInvestment(models.Investment{
		BaseModel:              models.BaseModel{ID: uuid.New()},
		UserID:                 userID,
		PropertyID:             riverside.ID,
		TokenAmount:            100,
		PurchasePricePerToken:  10.0,
		TotalPurchasePrice:     1000.0,
		TotalDividendsReceived: 50.0,
		Status:                 models.InvestmentStatusActive,
	})
	store.putInvestment(models.Investment{
		BaseModel:             models.BaseModel{ID: uuid.New()},
		UserID:                userID,
		PropertyID:            hillside.ID,
		TokenAmount:           200,
		PurchasePricePerToken: 10.0,
		TotalPurchasePrice:    2000.0,
		Status:                models.InvestmentStatusActive,
	})

	snapshot, err := svc.GetPortfolio(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, snapshot.Positions, 2)

	// 100 * 12 + 200 * 8 = 2800 current value against 3000 invested, plus 50
	// in dividends.
	assert.Equal(t, 3000.0, snapshot.TotalInvested)
	assert.Equal(t, 2800.0, snapshot.TotalValue)
	assert.Equal(t, 50.0, snapshot.TotalDividends)
	assert.Equal(t, -150.0, snapshot.TotalReturn)
	assert.InDelta(t, -5.0, snapshot.ReturnPercentage, 0.0001)
	assert.Equal(t, 0, snapshot.PendingTransfers)

	byProperty := make(map[uuid.UUID]PortfolioPosition)
	for _, pos := range snapshot.Positions {
		byProperty[pos.PropertyID] = pos
	}

	riversidePos := byProperty[riverside.ID]
	assert.Equal(t, "Riverside Lofts", riversidePos.PropertyTitle)
	assert.Equal(t, 1200.0, riversidePos.CurrentValue)
	assert.Equal(t, 250.0, riversidePos.TotalReturn)
	assert.Equal(t, 5.0, riversidePos.DividendYield)
	assert.Equal(t, 60.0, riversidePos.AnnualDividendEstimate)

	hillsidePos := byProperty[hillside.ID]
	assert.Equal(t, 1600.0, hillsidePos.CurrentValue)
	assert.Equal(t, -400.0, hillsidePos.TotalReturn)
	assert.InDelta(t, -20.0, hillsidePos.ReturnPercentage, 0.0001)
}

func TestGetPortfolioEmpty(t *testing.T) {
	store := newMemoryStore()
	svc := NewPortfolioService(store)

	snapshot, err := svc.GetPortfolio(context.Background(), uuid.New())
	require.NoError(t, err)

	assert.Empty(t, snapshot.Positions)
	assert.Equal(t, 0.0, snapshot.TotalInvested)
	assert.Equal(t, 0.0, snapshot.TotalValue)
	assert.Equal(t, 0.0, snapshot.ReturnPercentage)
}

func TestGetPortfolioCountsPendingTransfers(t *testing.T) {
	store := newMemoryStore()
	svc := NewPortfolioService(store)
	userID := uuid.New()

	property := models.Property{
		BaseModel:     models.BaseModel{ID: uuid.New()},
		Title:         "Dockside Flats",
		PricePerToken: 10.0,
		Status:        models.PropertyStatusActive,
	}
	store.putProperty(property)

	// A parked purchase holds no tokens yet and must not distort totals.
	store.putInvestment(models.Investment{
		BaseModel:  models.BaseModel{ID: uuid.New()},
		UserID:     userID,
		PropertyID: property.ID,
		Status:     models.InvestmentStatusPendingLedgerTransfer,
	})

	snapshot, err := svc.GetPortfolio(context.Background(), userID)
	require.NoError(t, err)

	assert.Equal(t, 1, snapshot.PendingTransfers)
	assert.Equal(t, 0.0, snapshot.TotalValue)
	require.Len(t, snapshot.Positions, 1)
	assert.Equal(t, 0.0, snapshot.Positions[0].ReturnPercentage)
}

func TestGetInvestmentEnforcesOwnership(t *testing.T) {
	store := newMemoryStore()
	svc := NewPortfolioService(store)

	owner := uuid.New()
	inv := models.Investment{
		BaseModel:   models.BaseModel{ID: uuid.New()},
		UserID:      owner,
		PropertyID:  uuid.New(),
		TokenAmount: 10,
		Status:      models.InvestmentStatusActive,
	}
	store.putInvestment(inv)

	got, err := svc.GetInvestment(context.Background(), owner, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)

	_, err = svc.GetInvestment(context.Background(), uuid.New(), inv.ID)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
}
