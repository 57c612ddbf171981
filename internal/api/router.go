package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api/handlers"
	custommiddleware "github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/api/middleware"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/config"
	"github.com/ndewijer/Brokerage-Reconciliation-Backend/internal/service"
)

// Services bundles the service dependencies the router wires into handlers.
type Services struct {
	System         *service.SystemService
	Account        *service.AccountService
	Import         *service.ImportService
	Transaction    *service.TransactionService
	Ledger         *service.LedgerService
	Reconciliation *service.ReconciliationService
	Mapping        *service.MappingService
}

// NewRouter creates and configures the HTTP router
func NewRouter(services Services, cfg *config.Config, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.RequestLogger(log))
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(services.System)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/account", func(r chi.Router) {
			accountHandler := handlers.NewAccountHandler(services.Account)
			r.Get("/", accountHandler.ListAccounts)
			r.Post("/", accountHandler.CreateAccount)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", accountHandler.GetAccount)
				r.Post("/archive", accountHandler.ArchiveAccount)
				r.Get("/broker-config", accountHandler.GetBrokerConfig)
				r.With(custommiddleware.APIKeyMiddleware).Put("/broker-config", accountHandler.UpdateBrokerConfig)
			})
		})

		r.Route("/import", func(r chi.Router) {
			importHandler := handlers.NewImportHandler(services.Import)
			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Post("/transactions", importHandler.ImportTransactions)
				r.Post("/snapshot", importHandler.ImportSnapshot)
			})
		})

		r.Route("/transaction", func(r chi.Router) {
			transactionHandler := handlers.NewTransactionHandler(services.Transaction)
			r.Route("/account/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", transactionHandler.TransactionsPerAccount)
			})
		})

		r.Route("/lot", func(r chi.Router) {
			lotHandler := handlers.NewLotHandler(services.Ledger)
			r.Post("/", lotHandler.CreateLot)
			r.Post("/sale", lotHandler.RecordSale)
			r.Post("/split", lotHandler.ApplySplit)

			r.Route("/process/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Post("/", lotHandler.ProcessTransactions)
			})

			// Security IDs are "accountID|symbol" composites, not UUIDs.
			r.Route("/security/{securityId}", func(r chi.Router) {
				r.Get("/", lotHandler.GetLots)
				r.Get("/unrealized", lotHandler.Unrealized)
			})
		})

		r.Route("/reconciliation", func(r chi.Router) {
			reconciliationHandler := handlers.NewReconciliationHandler(services.Reconciliation)
			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", reconciliationHandler.ReconcileLatest)
				r.Get("/{snapshotId}", reconciliationHandler.ReconcileSnapshot)
			})
		})

		r.Route("/mapping", func(r chi.Router) {
			mappingHandler := handlers.NewMappingHandler(services.Mapping)

			r.Route("/account/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", mappingHandler.ListMappings)
				r.Get("/export", mappingHandler.ExportMappings)
				r.Post("/import", mappingHandler.ImportMappings)
				r.Delete("/", mappingHandler.ClearMappings)
			})

			r.Route("/detect/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Post("/", mappingHandler.Detect)
			})

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Post("/confirm", mappingHandler.ConfirmMapping)
				r.Post("/reject", mappingHandler.RejectMapping)
			})
		})
	})

	return r
}
