// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/propshare/propshare-backend/internal/config"
	"github.com/propshare/propshare-backend/internal/handlers"
	"github.com/propshare/propshare-backend/internal/middleware"
	"github.com/propshare/propshare-backend/internal/services"
	"github.com/propshare/propshare-backend/internal/utils"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize services
	store := services.NewGormLedgerStore(db)
	auditRecorder := services.NewAuditRecorder(db)
	notificationService := services.NewNotificationService(cfg)
	paymentGateway := services.NewStripeGateway(cfg)
	transferService := services.NewHTTPLedgerTransferService(cfg)

	var complianceService services.ComplianceService
	if cfg.Compliance.BaseURL != "" {
		complianceService = services.NewHTTPComplianceService(cfg)
	}

	investmentService := services.NewInvestmentService(
		store, paymentGateway, transferService, complianceService,
		auditRecorder, notificationService, cfg,
	)
	portfolioService := services.NewPortfolioService(store)
	propertyService := services.NewPropertyService(db)

	// Initialize handlers
	investmentHandler := handlers.NewInvestmentHandler(investmentService, portfolioService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)
	propertyHandler := handlers.NewPropertyHandler(propertyService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg))
	r.Use(middleware.I18nMiddleware())
	r.Use(middleware.GeneralRateLimit())
	r.Use(middleware.AuditLogMiddleware(db))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Property routes
		properties := v1.Group("/properties")
		{
			properties.GET("", middleware.OptionalAuth(), propertyHandler.GetProperties)
			properties.GET("/:id", middleware.OptionalAuth(), propertyHandler.GetProperty)
		}

		// Investment routes
		investments := v1.Group("/investments")
		investments.Use(middleware.AuthRequired())
		{
			investments.POST("", middleware.PurchaseRateLimit(), investmentHandler.Purchase)
			investments.GET("", investmentHandler.ListInvestments)
			investments.GET("/:id", investmentHandler.GetInvestment)
			investments.POST("/transactions/:id/retry", investmentHandler.RetryTransfer)
		}

		// Portfolio routes
		portfolio := v1.Group("/portfolio")
		portfolio.Use(middleware.AuthRequired())
		{
			portfolio.GET("", portfolioHandler.GetPortfolio)
		}
	}

	return r
}
