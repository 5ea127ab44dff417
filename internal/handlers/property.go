// internal/handlers/property.go
package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/propshare/propshare-backend/internal/i18n"
	"github.com/propshare/propshare-backend/internal/models"
	"github.com/propshare/propshare-backend/internal/services"
	"github.com/propshare/propshare-backend/internal/utils"
)

type PropertyHandler struct {
	propertyService *services.PropertyService
}

func NewPropertyHandler(propertyService *services.PropertyService) *PropertyHandler {
	return &PropertyHandler{propertyService: propertyService}
}

// GET /properties
func (h *PropertyHandler) GetProperties(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.PropertySearchParams{
		PaginationParams: params,
	}

	if status := c.Query("status"); status != "" {
		propertyStatus := models.PropertyStatus(status)
		searchParams.Status = &propertyStatus
	}
	if country := c.Query("country"); country != "" {
		searchParams.Country = country
	}
	if priceMinStr := c.Query("price_min"); priceMinStr != "" {
		if priceMin, err := strconv.ParseFloat(priceMinStr, 64); err == nil {
			searchParams.PriceMin = &priceMin
		}
	}
	if priceMaxStr := c.Query("price_max"); priceMaxStr != "" {
		if priceMax, err := strconv.ParseFloat(priceMaxStr, 64); err == nil {
			searchParams.PriceMax = &priceMax
		}
	}

	properties, total, err := h.propertyService.SearchProperties(c.Request.Context(), searchParams)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	result := utils.CreatePaginationResult(properties, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /properties/:id
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "property id"), nil)
		return
	}

	property, err := h.propertyService.GetProperty(c.Request.Context(), propertyID)
	if err != nil {
		var notFound *services.NotFoundError
		if errors.As(err, &notFound) {
			utils.NotFoundResponse(c, notFound.Resource)
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, property)
}
