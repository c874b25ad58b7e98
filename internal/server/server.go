// Package server assembles the HTTP router around the ledger services.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"daybook/internal/config"
	_ "daybook/internal/docs" // Import swagger docs
	apperrors "daybook/internal/errors"
	"daybook/internal/handlers"
	"daybook/internal/middleware"
	"daybook/internal/services"
	"daybook/internal/validator"
)

// Options configure the HTTP edge.
type Options struct {
	JWTSecret          string
	DefaultActor       string
	CORSAllowedOrigins []string
	// RateLimit uses the limiter format ("300-M"). Empty disables limiting;
	// configuration produces it from RATE_LIMIT=off.
	RateLimit string
}

// OptionsFromConfig maps application configuration onto router options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		JWTSecret:          cfg.JWTSecret,
		DefaultActor:       cfg.DefaultActor,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimit:          cfg.RateLimit,
	}
}

// Server is the assembled router plus the state that outlives requests.
type Server struct {
	Router   *gin.Engine
	Sessions *services.SessionRegistry
}

// New wires services, handlers and middleware over db.
func New(db *gorm.DB, opts Options) (*Server, error) {
	validator.Register()

	// Services
	accounts := services.NewAccountDirectory(db)
	if err := accounts.Refresh(); err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	sessions := services.NewSessionRegistry(db, accounts)
	archiveService := services.NewArchiveService(db)
	dashboardService := services.NewDashboardService(db, accounts)
	auditService := services.NewAuditService(db)

	// Handlers
	accountHandler := handlers.NewAccountHandler(accounts, auditService)
	transactionHandler := handlers.NewTransactionHandler(sessions, archiveService, auditService)
	archiveHandler := handlers.NewArchiveHandler(archiveService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)
	auditHandler := handlers.NewAuditHandler(auditService)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())
	router.Use(cors.New(corsConfig(opts.CORSAllowedOrigins)))

	if opts.RateLimit != "" {
		limiterInstance, err := middleware.NewLimiter(opts.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("invalid rate limit %q: %w", opts.RateLimit, err)
		}
		router.Use(middleware.RateLimit(limiterInstance))
	}

	router.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperrors.ErrNotFound)
	})

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Actor(opts.JWTSecret, opts.DefaultActor))

	mainAccounts := v1.Group("/main-accounts")
	mainAccounts.GET("", accountHandler.ListMainAccounts)
	mainAccounts.POST("", accountHandler.CreateMainAccount)
	mainAccounts.GET("/:id", accountHandler.GetMainAccount)
	mainAccounts.PUT("/:id", accountHandler.UpdateMainAccount)
	mainAccounts.DELETE("/:id", accountHandler.DeleteMainAccount)

	subAccounts := v1.Group("/sub-accounts")
	subAccounts.GET("", accountHandler.ListSubAccounts)
	subAccounts.POST("", accountHandler.CreateSubAccount)
	subAccounts.GET("/:id", accountHandler.GetSubAccount)
	subAccounts.PUT("/:id", accountHandler.UpdateSubAccount)
	subAccounts.DELETE("/:id", accountHandler.DeleteSubAccount)

	transactions := v1.Group("/transactions")
	transactions.GET("", transactionHandler.ListTransactions)
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.POST("/filters", transactionHandler.ApplyFilters)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)
	transactions.POST("/:id/undo", transactionHandler.UndoTransaction)

	v1.GET("/archive", archiveHandler.ListArchived)
	v1.GET("/dashboard", dashboardHandler.GetDashboard)
	v1.GET("/audit-logs", auditHandler.ListAuditLogs)

	return &Server{Router: router, Sessions: sessions}, nil
}

// Close ends every ledger session.
func (s *Server) Close() {
	s.Sessions.CloseAll()
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}
