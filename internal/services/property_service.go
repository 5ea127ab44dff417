// internal/services/property_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/propshare/propshare-backend/internal/models"
	"github.com/propshare/propshare-backend/internal/utils"
)

// PropertySearchParams extends pagination with listing filters.
type PropertySearchParams struct {
	utils.PaginationParams
	Status   *models.PropertyStatus
	Country  string
	PriceMin *float64
	PriceMax *float64
}

// PropertyService serves the read side of the listings catalogue.
type PropertyService struct {
	db *gorm.DB
}

func NewPropertyService(db *gorm.DB) *PropertyService {
	return &PropertyService{db: db}
}

func (s *PropertyService) SearchProperties(ctx context.Context, params PropertySearchParams) ([]models.Property, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Property{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	} else {
		// Listings default to what investors can see
		query = query.Where("status IN ?", []models.PropertyStatus{
			models.PropertyStatusActive,
			models.PropertyStatusSoldOut,
		})
	}

	if params.Search != "" {
		search := "%" + params.Search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", search, search)
	}
	if params.City != "" {
		query = query.Where("city = ?", params.City)
	}
	if params.Country != "" {
		query = query.Where("country = ?", params.Country)
	}
	if params.PriceMin != nil {
		query = query.Where("price_per_token >= ?", *params.PriceMin)
	}
	if params.PriceMax != nil {
		query = query.Where("price_per_token <= ?", *params.PriceMax)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count properties: %w", err)
	}

	query = utils.ApplySort(query, params.PaginationParams, []string{
		"created_at", "price_per_token", "expected_annual_yield", "available_tokens", "title",
	})
	query = utils.ApplyPagination(query, params.PaginationParams)

	var properties []models.Property
	if err := query.Find(&properties).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch properties: %w", err)
	}

	return properties, total, nil
}

func (s *PropertyService) GetProperty(ctx context.Context, id uuid.UUID) (*models.Property, error) {
	var property models.Property
	if err := s.db.WithContext(ctx).First(&property, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "property", ID: id.String()}
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &property, nil
}
