package handler

import (
	"net/http"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Dashboard e assistente IA
// ============================================================

func dashboardHandler(svc *service.DashboardService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		d, err := svc.Get(ctx, UIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func riskSummaryHandler(svc *service.Assistant, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/dashboard/summary")
		defer span.End()

		start := time.Now()
		sum, err := svc.SummarizeRisks(ctx, UIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int64("latency_ms", time.Since(start).Milliseconds()))
		writeJSON(w, http.StatusOK, sum)
	}
}

func ddsHandler(svc *service.Assistant, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/dds")
		defer span.End()

		var req domain.DDSRequest
		if err := decodeBody(r, &req, false); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("dds.topic", req.Topic))

		script, err := svc.GenerateDDS(ctx, UIDFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, script)
	}
}

func investigationReportHandler(svc *service.Assistant, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/investigations/{investigationId}/report")
		defer span.End()

		rep, err := svc.InvestigationReport(ctx, UIDFromContext(ctx), chi.URLParam(r, "investigationId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}
