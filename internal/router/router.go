// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/zenwallet/loan-origination/internal/config"
	"github.com/zenwallet/loan-origination/internal/handlers"
	"github.com/zenwallet/loan-origination/internal/middleware"
	"github.com/zenwallet/loan-origination/internal/providers"
	"github.com/zenwallet/loan-origination/internal/services"
)

func Initialize(db *gorm.DB, cfg *config.Config) *gin.Engine {
	// Initialize providers
	reasoningClient := providers.NewAnthropicClient(&cfg.AI)
	whatsappClient := providers.NewWhatsAppClient(&cfg.WhatsApp)
	bureauProvider := providers.NewBureauProvider(&cfg.Bureau)

	var signatureProvider providers.SignatureProvider
	if cfg.Clicksign.Enabled {
		signatureProvider = providers.NewClicksignClient(&cfg.Clicksign)
	}

	var fundingProvider providers.FundingProvider
	if cfg.QITech.Enabled {
		provider, err := providers.NewQITechProvider(&cfg.QITech)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to initialize funding provider")
		}
		fundingProvider = provider
	}

	// Initialize services
	storageService, err := services.NewStorageService(&cfg.AWS)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize storage service")
	}
	loanEngine := services.NewLoanEngine(&cfg.Loan)
	creditService := services.NewCreditService(db, bureauProvider)
	documentService := services.NewDocumentService(db, storageService)
	contractService := services.NewContractService(db, signatureProvider, fundingProvider)
	toolRegistry := services.NewToolRegistry(db, loanEngine, creditService, documentService, contractService)
	loanAgent := services.NewLoanAgent(reasoningClient, toolRegistry)
	conversationService := services.NewConversationService(db, loanAgent, whatsappClient)

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(cfg, conversationService, contractService)
	leadHandler := handlers.NewLeadHandler(db)
	applicationHandler := handlers.NewApplicationHandler(db)
	simulationHandler := handlers.NewSimulationHandler(loanEngine)
	contractHandler := handlers.NewContractHandler(contractService)
	documentHandler := handlers.NewDocumentHandler(documentService)
	dashboardHandler := handlers.NewDashboardHandler(db)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(cors.Default())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// Provider webhooks
	webhooks := r.Group("/webhooks")
	webhooks.Use(middleware.WebhookRateLimit())
	{
		webhooks.POST("/whatsapp", webhookHandler.HandleWhatsApp)
		webhooks.POST("/clicksign", webhookHandler.HandleClicksign)
		webhooks.POST("/qitech", webhookHandler.HandleQITech)
	}

	// Back-office API
	v1 := r.Group("/v1")
	v1.Use(middleware.GeneralRateLimit())
	{
		leads := v1.Group("/leads")
		{
			leads.GET("", leadHandler.List)
			leads.GET("/:id", leadHandler.Get)
			leads.GET("/:id/conversation", leadHandler.Conversation)
		}

		applications := v1.Group("/applications")
		{
			applications.GET("", applicationHandler.List)
			applications.GET("/:id", applicationHandler.Get)
		}

		v1.POST("/simulations", simulationHandler.Simulate)
		v1.GET("/contracts/:number", contractHandler.Get)
		v1.PATCH("/documents/:id/verify", documentHandler.Verify)
		v1.GET("/dashboard", dashboardHandler.Funnel)
	}

	return r
}
