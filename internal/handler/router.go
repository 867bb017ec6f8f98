package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/catalog"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/observability"
	"github.com/boddenberg/supervisor-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// HealthCheck is one dependency probed by GET /healthz.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Services groups the use cases exposed over HTTP.
type Services struct {
	Operators      *service.OperatorService
	Training       *service.TrainingService
	Dashboard      *service.DashboardService
	Investigations *service.InvestigationService
	PDIs           *service.PDIService
	Assistant      *service.Assistant
	Catalog        *catalog.Catalog
}

// Options configures the router's cross-cutting behaviour.
type Options struct {
	Validator      *TokenValidator
	DevAuth        bool
	AllowedOrigins []string
	RequestTimeout time.Duration
	HealthChecks   []HealthCheck
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(svc Services, opts Options, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", DevUserHeader},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(opts.HealthChecks, logger))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Use(UIDAuthMiddleware(opts.Validator, opts.DevAuth, logger))
		if opts.RequestTimeout > 0 {
			r.Use(middleware.Timeout(opts.RequestTimeout))
		}

		r.Get("/catalog", catalogHandler(svc.Catalog))
		r.Get("/metrics/ai", aiMetricsHandler(metrics))

		// =============================================
		// Operadores e matriz de habilidades
		// =============================================
		r.Route("/operators", func(r chi.Router) {
			r.Get("/", listOperatorsHandler(svc.Operators, logger))
			r.Post("/", registerOperatorHandler(svc.Operators, logger))
			r.Delete("/{operatorId}", deleteOperatorHandler(svc.Operators, logger))
			r.Put("/{operatorId}/skills/{skill}", setSkillLevelHandler(svc.Operators, logger))
			r.Post("/{operatorId}/skills/{skill}/toggle", toggleSkillLevelHandler(svc.Operators, logger))
		})
		r.Route("/skills", func(r chi.Router) {
			r.Get("/", listSkillConfigsHandler(svc.Operators, logger))
			r.Post("/", saveSkillConfigHandler(svc.Operators, logger))
			r.Post("/seed", seedSkillConfigsHandler(svc.Operators, logger))
			r.Get("/matrix", skillMatrixHandler(svc.Operators, logger))
		})

		// =============================================
		// POPs e treinamentos
		// =============================================
		r.Route("/procedures", func(r chi.Router) {
			r.Get("/", listProceduresHandler(svc.Training, logger))
			r.Post("/", saveProcedureHandler(svc.Training, logger))
			r.Delete("/{procedureId}", deleteProcedureHandler(svc.Training, logger))
		})
		r.Put("/training/{operatorId}/{procedureId}", setTrainingStatusHandler(svc.Training, logger))
		r.Get("/training/compliance", complianceHandler(svc.Training, logger))

		// =============================================
		// Dashboard e IA
		// =============================================
		r.Get("/dashboard", dashboardHandler(svc.Dashboard, logger))
		r.Post("/dashboard/summary", riskSummaryHandler(svc.Assistant, logger))
		r.Post("/dds", ddsHandler(svc.Assistant, logger))

		// =============================================
		// Investigação de erro humano
		// =============================================
		r.Route("/investigations", func(r chi.Router) {
			r.Get("/", listInvestigationsHandler(svc.Investigations, logger))
			r.Post("/drafts", createDraftHandler(svc.Investigations, logger))
			r.Get("/drafts/{draftId}", getDraftHandler(svc.Investigations, logger))
			r.Patch("/drafts/{draftId}", updateDraftHandler(svc.Investigations, logger))
			r.Post("/drafts/{draftId}/next", nextStepHandler(svc.Investigations, logger))
			r.Post("/drafts/{draftId}/back", previousStepHandler(svc.Investigations, logger))
			r.Post("/drafts/{draftId}/save", saveDraftHandler(svc.Investigations, logger))
			r.Get("/{investigationId}", getInvestigationHandler(svc.Investigations, logger))
			r.Post("/{investigationId}/edit", editInvestigationHandler(svc.Investigations, logger))
			r.Post("/{investigationId}/report", investigationReportHandler(svc.Assistant, logger))
		})

		// =============================================
		// PDI
		// =============================================
		r.Route("/pdis", func(r chi.Router) {
			r.Get("/", listPDIsHandler(svc.PDIs, logger))
			r.Post("/", createPDIHandler(svc.PDIs, logger))
			r.Post("/{pdiId}/goals/{index}/toggle", togglePDIGoalHandler(svc.PDIs, logger))
		})
	})

	return r
}
