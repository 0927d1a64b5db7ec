package main

import (
	"context"
	"strings"

	"paywallet/internal/escrow"
	"paywallet/internal/events"
	"paywallet/internal/handlers"
	"paywallet/internal/store/postgres"
	"paywallet/internal/transfer"
	"paywallet/pkg/auth"
	"paywallet/pkg/config"
	"paywallet/pkg/database"
	"paywallet/pkg/kafka"
	"paywallet/pkg/logging"
	"paywallet/pkg/monitoring"
	"paywallet/pkg/server"
	"paywallet/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("paymaster")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting Paymaster (Payroll Escrow API)")

	dbURL := config.RequireEnv("DATABASE_URL")
	jwtSecret := config.RequireEnv("JWT_SECRET")
	serviceToken := config.RequireEnv("SERVICE_TOKEN")
	adminWallet := config.RequireEnv("ADMIN_WALLET")

	// Connect to database
	dbConfig := database.DefaultConfig()
	dbConfig.URL = dbURL
	db := database.MustConnect(dbConfig, logger)
	defer db.Close()

	store := postgres.New(db)
	if err := store.Migrate(context.Background()); err != nil {
		logger.WithError(err).Fatal("Failed to apply database schema")
	}

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("paymaster", version.Version)
	metricsCollector := monitoring.NewMetricsCollector("paymaster", version.Version, version.GitCommit)

	// Add health checks
	healthChecker.AddCheck("database", monitoring.DatabaseHealthCheck(db))
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"DATABASE_URL": dbURL,
		"JWT_SECRET":   jwtSecret,
		"ADMIN_WALLET": adminWallet,
	}))

	// Audit event sink: Kafka when brokers are configured, logs otherwise
	var sink escrow.Sink = events.NewLogSink(logger)
	if brokers := config.GetEnv("KAFKA_BROKERS", ""); brokers != "" {
		producer, err := kafka.NewProducer(strings.Split(brokers, ","), "paymaster", logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to create Kafka producer")
		}
		defer producer.Close()
		healthChecker.AddCheck("kafka", monitoring.KafkaProducerHealthCheck(producer.GetClient()))
		sink = events.NewKafkaSink(producer, logger)
		logger.WithField("brokers", brokers).Info("Kafka audit events enabled")
	}

	// Transfer executor: ledger gateway when configured, bookkeeping-only
	// otherwise
	var executor escrow.TransferExecutor = escrow.NopTransfer{}
	if gatewayURL := config.GetEnv("LEDGER_GATEWAY_URL", ""); gatewayURL != "" {
		executor = transfer.NewGatewayExecutor(gatewayURL, serviceToken, logger)
		healthChecker.AddCheck("ledger_gateway", monitoring.HTTPServiceHealthCheck("ledger gateway", gatewayURL+"/health"))
		logger.WithField("url", gatewayURL).Info("Ledger gateway transfers enabled")
	}

	engine := escrow.New(escrow.Config{
		Store:     store,
		Events:    sink,
		Transfers: executor,
		Logger:    logger,
	})

	if err := engine.Initialize(context.Background(), adminWallet); err != nil {
		logger.WithError(err).Fatal("Failed to initialize admin identity")
	}

	// Initialize handlers
	metrics := handlers.NewPaymasterMetrics(metricsCollector)
	handlers.Init(engine, logger, []byte(jwtSecret), metrics)

	// Setup router with unified monitoring
	router := server.SetupServiceRouter(logger, "paymaster", healthChecker, metricsCollector)

	// Public endpoints: wallet login and escrow state reads
	router.GET("/auth/wallet/message", handlers.WalletChallenge)
	router.POST("/auth/wallet", handlers.WalletLogin)
	router.GET("/payrolls/:id", handlers.GetPayroll)
	router.GET("/streams/:id", handlers.GetStream)
	router.GET("/admin/circuit-breaker", handlers.GetCircuitBreaker)

	// Authentication required endpoints
	protected := router.Group("")
	protected.Use(auth.JWTAuthMiddleware([]byte(jwtSecret)))
	{
		// Payroll escrow
		protected.POST("/payrolls", handlers.CreatePayroll)
		protected.POST("/payrolls/:id/deposit", handlers.Deposit)
		protected.POST("/payrolls/:id/release", handlers.Release)
		protected.POST("/payrolls/:id/cancel", handlers.CancelPayroll)

		// Payment streams
		protected.POST("/streams", handlers.StartStream)
		protected.POST("/streams/:id/withdraw", handlers.WithdrawStream)

		// Employee registry
		protected.POST("/employees", handlers.AddEmployee)
		protected.GET("/employees", handlers.ListEmployees)
		protected.GET("/employees/count", handlers.CountActiveEmployees)
		protected.GET("/employees/:id", handlers.GetEmployee)
		protected.PUT("/employees/:id", handlers.UpdateEmployee)
		protected.DELETE("/employees/:id", handlers.RemoveEmployee)

		// Admin
		protected.POST("/admin/circuit-breaker", handlers.ToggleCircuitBreaker)
	}

	// Start server with graceful shutdown
	serverConfig := server.DefaultConfig("paymaster", "18010")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server startup failed")
	}
}
