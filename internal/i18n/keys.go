// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess = "success"
	KeyError   = "error"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"

	// User Management
	KeyUserNotFound    = "user.not_found"
	KeyUserNotEligible = "user.not_eligible"

	// Properties
	KeyPropertyNotFound = "property.not_found"
	KeyPropertySoldOut  = "property.sold_out"
	KeyPropertyInactive = "property.inactive"

	// Investments
	KeyInvestmentNotFound       = "investment.not_found"
	KeyInvestmentPurchased      = "investment.purchased"
	KeyInvestmentPendingTokens  = "investment.pending_tokens"
	KeyInvestmentRefunded       = "investment.refunded"
	KeyInvestmentBelowMinimum   = "investment.below_minimum"
	KeyInvestmentNotEnoughStock = "investment.not_enough_tokens"

	// Transactions
	KeyTransactionNotFound     = "transaction.not_found"
	KeyTransactionNotRetryable = "transaction.not_retryable"

	// Payments
	KeyPaymentFailed         = "payment.failed"
	KeyPaymentRefunded       = "payment.refunded"
	KeyPaymentMethodRequired = "payment.method_required"

	// Compliance
	KeyComplianceBlocked     = "compliance.blocked"
	KeyComplianceUnavailable = "compliance.unavailable"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
)
