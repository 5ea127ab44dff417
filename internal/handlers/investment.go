// internal/handlers/investment.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/propshare/propshare-backend/internal/i18n"
	"github.com/propshare/propshare-backend/internal/services"
	"github.com/propshare/propshare-backend/internal/utils"
)

type InvestmentHandler struct {
	investmentService *services.InvestmentService
	portfolioService  *services.PortfolioService
}

func NewInvestmentHandler(investmentService *services.InvestmentService, portfolioService *services.PortfolioService) *InvestmentHandler {
	return &InvestmentHandler{
		investmentService: investmentService,
		portfolioService:  portfolioService,
	}
}

// POST /investments
func (h *InvestmentHandler) Purchase(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	result, err := h.investmentService.Purchase(c.Request.Context(), userID, &req)
	if err != nil {
		h.respondSagaError(c, err)
		return
	}

	utils.CreatedResponse(c, result)
}

// POST /investments/transactions/:id/retry
func (h *InvestmentHandler) RetryTransfer(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	transactionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "transaction id"), nil)
		return
	}

	result, err := h.investmentService.RetryLedgerTransferForUser(c.Request.Context(), userID, transactionID)
	if err != nil {
		h.respondSagaError(c, err)
		return
	}

	utils.SuccessResponse(c, result)
}

// GET /investments
func (h *InvestmentHandler) ListInvestments(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	investments, err := h.portfolioService.ListInvestments(c.Request.Context(), userID)
	if err != nil {
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, investments)
}

// GET /investments/:id
func (h *InvestmentHandler) GetInvestment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	investmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "investment id"), nil)
		return
	}

	investment, err := h.portfolioService.GetInvestment(c.Request.Context(), userID, investmentID)
	if err != nil {
		var notFound *services.NotFoundError
		if errors.As(err, &notFound) {
			utils.NotFoundResponse(c, notFound.Resource)
			return
		}
		utils.InternalErrorResponse(c, "")
		return
	}

	utils.SuccessResponse(c, investment)
}

// respondSagaError maps settlement outcomes onto HTTP statuses. A parked
// transfer is not a failure: payment settled, so the client gets 202 with the
// transaction ID to retry against.
func (h *InvestmentHandler) respondSagaError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var validationErr *services.ValidationError
	var notFoundErr *services.NotFoundError
	var paymentErr *services.PaymentError
	var transferErr *services.LedgerTransferError
	var conflictErr *services.ConcurrencyConflictError
	var stateErr *services.InvalidStateError

	switch {
	case errors.Is(err, services.ErrInsufficientTokens):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyInvestmentNotEnoughStock), nil)

	case errors.As(err, &validationErr):
		utils.BadRequestResponse(c, validationErr.Message, gin.H{"field": validationErr.Field})

	case errors.As(err, &notFoundErr):
		utils.NotFoundResponse(c, notFoundErr.Resource)

	case errors.As(err, &paymentErr):
		utils.PaymentRequiredResponse(c, i18n.T(lang, i18n.KeyPaymentFailed))

	case errors.As(err, &transferErr):
		utils.AcceptedResponse(c, gin.H{
			"transaction_id": transferErr.TransactionID,
			"status":         "processing",
			"retryable":      transferErr.Retryable,
			"message":        i18n.T(lang, i18n.KeyInvestmentPendingTokens),
		})

	case errors.As(err, &conflictErr):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyInvestmentRefunded), gin.H{
			"property_id": conflictErr.PropertyID,
			"requested":   conflictErr.Requested,
			"refunded":    conflictErr.Refunded,
		})

	case errors.As(err, &stateErr):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyTransactionNotRetryable), gin.H{
			"transaction_id": stateErr.TransactionID,
			"state":          stateErr.State,
		})

	default:
		utils.InternalErrorResponse(c, "")
	}
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid user ID", nil)
		return uuid.Nil, false
	}
	return userID, true
}
