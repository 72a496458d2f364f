package router

import (
	"log/slog"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/polkiloo/reviewmart/internal/server/http/handlers"
	"github.com/polkiloo/reviewmart/internal/server/http/middleware"
)

const maxRequestBody = 1 << 20

// Setup configures gin router with handlers and middleware.
func Setup(facade handlers.EngineFacade, health handlers.HealthChecker, tokens middleware.TokenParser, logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestLogger(logger))
	engine.Use(middleware.DecompressRequest(maxRequestBody))
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	engine.GET("/healthz", handlers.NewHealthHandler(health).Healthz)

	applicationHandler := handlers.NewApplicationHandler(facade)
	ledgerHandler := handlers.NewLedgerHandler(facade)
	withdrawalHandler := handlers.NewWithdrawalHandler(facade)
	reconciliationHandler := handlers.NewReconciliationHandler(facade)

	api := engine.Group("/api")
	api.Use(middleware.AuthRequired(tokens))

	api.POST("/applications", applicationHandler.Create)
	api.GET("/applications/:id", applicationHandler.Get)
	api.POST("/applications/:id/transitions", applicationHandler.Transition)
	api.POST("/applications/:id/archive", applicationHandler.Archive)

	api.GET("/users/:id/balance", ledgerHandler.Balance)
	api.GET("/users/:id/ledger", ledgerHandler.History)
	api.GET("/users/:id/applications", applicationHandler.ListByUser)
	api.GET("/users/:id/withdrawals", withdrawalHandler.ListByUser)
	api.POST("/ledger/:id/reverse", ledgerHandler.Reverse)

	api.POST("/withdrawals", withdrawalHandler.Request)
	api.GET("/withdrawals/:id", withdrawalHandler.Get)
	api.POST("/withdrawals/:id/approve", withdrawalHandler.Approve)
	api.POST("/withdrawals/:id/reject", withdrawalHandler.Reject)
	api.POST("/withdrawals/:id/complete", withdrawalHandler.Complete)

	api.GET("/reconciliation/discrepancies", reconciliationHandler.Discrepancies)
	api.POST("/reconciliation/repair", reconciliationHandler.Repair)

	return engine
}
