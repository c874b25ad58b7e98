package main

import (
	"fmt"
	"os"

	"daybook/internal/config"
	"daybook/internal/database"
	"daybook/internal/logger"
	"daybook/internal/server"
)

// @title           Daybook API
// @version         1.0
// @description     Daybook records dated credits and debits against a two-level chart of accounts and reports totals, balances and filtered views.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	srv, err := server.New(dbManager.DB(), server.OptionsFromConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}
	defer srv.Close()

	if appConfig.DefaultActor != "" {
		log.Warnf("Requests without a token will act as %q", appConfig.DefaultActor)
	}
	log.Infof("Starting Daybook server on port %s (store: %s)", appConfig.Port, dbConfig.Driver)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return srv.Router.Run(":" + appConfig.Port)
}
