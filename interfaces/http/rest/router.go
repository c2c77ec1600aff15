package rest

import (
	"net/http"

	"referral-backend/application/commands/bus"
	querybus "referral-backend/application/queries/bus"
	"referral-backend/infrastructure/config"
	"referral-backend/interfaces/http/rest/handlers"
	"referral-backend/interfaces/http/rest/middleware"
	"referral-backend/pkg/auth"
	appErrors "referral-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg         *config.Config
	commandBus  *bus.CommandBus
	queryBus    *querybus.QueryBus
	ipLimiter   *auth.IPRateLimiter
	userLimiter *auth.UserRateLimiter
	logger      *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	ipLimiter *auth.IPRateLimiter,
	userLimiter *auth.UserRateLimiter,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:         cfg,
		commandBus:  commandBus,
		queryBus:    queryBus,
		ipLimiter:   ipLimiter,
		userLimiter: userLimiter,
		logger:      logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	errorHandler := appErrors.NewErrorHandler(rt.logger, rt.cfg.IsDevelopment())

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.cfg, rt.ipLimiter, rt.userLimiter, rt.logger))

		// Session endpoints
		r.Route("/sessions", func(r chi.Router) {
			sessionHandler := handlers.NewSessionHandler(rt.commandBus, rt.queryBus, errorHandler, rt.logger)
			r.Post("/", sessionHandler.StartSession)
			r.Get("/", sessionHandler.ListSessions)
			r.Get("/{sessionID}", sessionHandler.GetSession)
			r.Delete("/{sessionID}", sessionHandler.DeleteSession)
			r.Post("/{sessionID}/answers", sessionHandler.RecordAnswer)
			r.Post("/{sessionID}/reset", sessionHandler.ResetSession)
			r.Get("/{sessionID}/questions", sessionHandler.GetVisibleQuestions)
			r.Get("/{sessionID}/history", sessionHandler.GetSessionHistory)
		})

		// Domain endpoints
		r.Route("/domains", func(r chi.Router) {
			domainHandler := handlers.NewDomainHandler(rt.queryBus, errorHandler, rt.logger)
			r.Get("/", domainHandler.ListDomains)
			r.Get("/{domain}/rulemap", domainHandler.GetRuleMap)
		})

		// Audit and rule table management
		auditHandler := handlers.NewAuditHandler(rt.commandBus, rt.queryBus, errorHandler, rt.logger)
		r.Route("/audit", func(r chi.Router) {
			r.Get("/", auditHandler.GetAuditReport)
			r.Get("/{domain}", auditHandler.GetAuditReport)
		})
		r.Post("/ruletable/refresh", auditHandler.RefreshRuleTable)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
