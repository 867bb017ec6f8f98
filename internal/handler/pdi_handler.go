package handler

import (
	"net/http"
	"strconv"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// PDI
// ============================================================

func listPDIsHandler(svc *service.PDIService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/pdis")
		defer span.End()

		views, err := svc.List(ctx, UIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.PDIView]{Data: views, Total: len(views)})
	}
}

func createPDIHandler(svc *service.PDIService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/pdis")
		defer span.End()

		var p domain.PDI
		if err := decodeBody(r, &p, false); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		v, err := svc.Create(ctx, UIDFromContext(ctx), p)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	}
}

func togglePDIGoalHandler(svc *service.PDIService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/pdis/{pdiId}/goals/{index}/toggle")
		defer span.End()

		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "goal index must be an integer")
			return
		}
		v, err := svc.ToggleGoal(ctx, UIDFromContext(ctx), chi.URLParam(r, "pdiId"), index)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}
