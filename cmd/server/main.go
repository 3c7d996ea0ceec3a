package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"expense-reports-service/internal/client"
	"expense-reports-service/internal/config"
	"expense-reports-service/internal/database"
	"expense-reports-service/internal/handler"
	"expense-reports-service/internal/logger"
	"expense-reports-service/internal/repository"
	"expense-reports-service/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Expense Reports Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
		HealthCheck: cfg.Database.HealthCheck,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Connect to NATS; the service runs without it, events just stop flowing
	var natsConn *nats.Conn
	if cfg.NATS.URL != "" {
		natsConn, err = nats.Connect(cfg.NATS.URL,
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second),
		)
		if err != nil {
			log.Warn().Err(err).Str("url", cfg.NATS.URL).Msg("NATS unavailable; notifications disabled")
		} else {
			defer natsConn.Close()
			log.Info().Str("url", cfg.NATS.URL).Msg("NATS connection established")
		}
	}

	// Initialize repositories
	reportRepo := repository.NewReportRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	idemRepo := repository.NewIdempotencyRepository(db, cfg.Idempotency.Retention)

	// Initialize external collaborators
	notifier := client.NewNotificationPublisher(natsConn, log)
	ocrClient := client.NewOCRClient(cfg.OCR.BaseURL, cfg.OCR.APIKey, cfg.OCR.Timeout, log)

	// Initialize services
	approvalService := service.NewApprovalService(reportRepo, ruleRepo, approvalRepo, employeeRepo, notifier, log)
	expenseService := service.NewExpenseService(expenseRepo, employeeRepo, log)
	analyticsService := service.NewAnalyticsService(analyticsRepo, log)
	paymentService := service.NewPaymentService(reportRepo, cfg.Service.CompanyName, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(
		expenseService,
		approvalService,
		analyticsService,
		paymentService,
		ruleRepo,
		ocrClient,
		log,
	)
	contracts := handler.NewContracts(idemRepo, log)
	router := handler.NewRouter(httpHandler, contracts, handler.RouterConfig{
		CORSOrigin:     cfg.Server.CORSOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	}, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Periodically drop idempotency records past the retention window
	go func() {
		ticker := time.NewTicker(cfg.Idempotency.PurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := idemRepo.PurgeExpired(ctx)
				if err != nil {
					log.Warn().Err(err).Msg("Idempotency purge failed")
				} else if n > 0 {
					log.Debug().Int64("purged", n).Msg("Idempotency records purged")
				}
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
