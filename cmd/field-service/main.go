package main

import (
	"fmt"
	"os"

	"field-service/internal/auth"
	"field-service/internal/config"
	"field-service/internal/db"
	httphandler "field-service/internal/http"
	"field-service/internal/http/middleware"
	"field-service/internal/logger"
	"field-service/internal/notify"
	"field-service/internal/repository"
	"field-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	requestRepo := repository.NewRequestRepository(database)
	categoryRepo := repository.NewCategoryRepository(database)
	invoiceRepo := repository.NewInvoiceRepository(database)
	userRepo := repository.NewUserRepository(database)

	var queue notify.Queue = notify.NopQueue{}
	if cfg.Notify.ServiceURL != "" {
		webhookQueue := notify.NewWebhookQueue(cfg, appLogger)
		defer webhookQueue.Close()
		queue = webhookQueue
	} else {
		appLogger.Warn().Msg("notification service URL not set, events will be discarded")
	}

	availability := service.NewAvailabilityService(requestRepo, userRepo)
	billing := service.NewBillingService(requestRepo, invoiceRepo, appLogger)
	requests := service.NewRequestService(requestRepo, categoryRepo, userRepo, availability, billing, queue, appLogger)
	categories := service.NewCategoryService(categoryRepo)
	dashboard := service.NewDashboardService(requestRepo, invoiceRepo)

	tokenParser := auth.NewParser(cfg.Auth.AccessSecret)

	handler := httphandler.NewHandler(requests, availability, billing, categories, dashboard, appLogger)
	authMiddleware := middleware.Auth(tokenParser)
	router := httphandler.NewRouter(handler, authMiddleware, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	appLogger.Info().Str("addr", addr).Msg("starting field service")

	if err := router.Run(addr); err != nil {
		appLogger.Error().Err(err).Msg("failed to start server")
		os.Exit(1)
	}
}
