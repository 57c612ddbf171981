package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/config"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/database"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/logger"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/quotes"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/repository"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/scheduler"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/service"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})

	log.Info().Str("version", version.Version).Msg("starting reconciliation backend")

	// Open database connection and apply pending migrations
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run database migrations")
	}

	log.Info().Str("path", cfg.Database.Path).Msg("connected to database")

	// Create repositories
	accountRepo := repository.NewAccountRepository(db)
	brokerConfigRepo := repository.NewBrokerConfigRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)
	lotRepo := repository.NewLotRepository(db)
	securityRepo := repository.NewSecurityRepository(db)
	mappingRepo := repository.NewMappingRepository(db)

	// Create services. The reconciliation service comes first: it owns the
	// result cache, and the services that mutate reconciliation inputs take
	// it as their cache invalidator.
	systemService := service.NewSystemService(db)
	reconciliationService := service.NewReconciliationService(
		accountRepo,
		transactionRepo,
		snapshotRepo,
		mappingRepo,
		log,
	)
	accountService, err := service.NewAccountService(
		accountRepo,
		brokerConfigRepo,
		cfg.Security.FernetKey,
		log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize account service")
	}
	importService := service.NewImportService(
		accountRepo,
		transactionRepo,
		snapshotRepo,
		reconciliationService,
		log,
	)
	transactionService := service.NewTransactionService(
		accountRepo,
		transactionRepo,
	)
	ledgerService := service.NewLedgerService(
		accountRepo,
		lotRepo,
		transactionRepo,
		securityRepo,
		snapshotRepo,
		mappingRepo,
		quotes.NewFinanceClient(),
		reconciliationService,
		log,
	)
	mappingService := service.NewMappingService(
		accountRepo,
		mappingRepo,
		transactionRepo,
		snapshotRepo,
		reconciliationService,
		log,
	)

	// Create router
	router := api.NewRouter(api.Services{
		System:         systemService,
		Account:        accountService,
		Import:         importService,
		Transaction:    transactionService,
		Ledger:         ledgerService,
		Reconciliation: reconciliationService,
		Mapping:        mappingService,
	}, cfg, log)

	// Background reconciliation of every account's latest snapshot
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(log)
		err := sched.AddJob("reconcile-latest-snapshots", cfg.Scheduler.ReconcileSchedule, func(ctx context.Context) error {
			reconciled, err := reconciliationService.ReconcileAllLatest(ctx)
			if err != nil {
				return err
			}
			log.Info().Int("accounts", reconciled).Msg("scheduled reconciliation finished")
			return nil
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to register reconciliation job")
		}
		sched.Start()
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	if sched != nil {
		<-sched.Stop().Done()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
