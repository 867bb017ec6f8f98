package handler

import (
	"net/http"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Investigação de erro humano (wizard)
// ============================================================

func createDraftHandler(svc *service.InvestigationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/investigations/drafts")
		defer span.End()

		v, err := svc.CreateDraft(ctx, UIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	}
}

func getDraftHandler(svc *service.InvestigationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/investigations/drafts/{draftId}")
		defer span.End()

		v, err := svc.GetDraft(ctx, UIDFromContext(ctx), chi.URLParam(r, "draftId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func updateDraftHandler(svc *service.InvestigationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/investigations/drafts/{draftId}")
		defer span.End()

		var patch domain.DraftPatch
		if err := decodeBody(r, &patch, false); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		v, err := svc.UpdateDraft(ctx, UIDFromContext(ctx), chi.URLParam(r, "draftId"), patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func nextStepHandler(svc *service.InvestigationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/investigations/drafts/{draftId}/next")
		defer span.End()

		var patch domain.DraftPatch
		if err := decodeBody(r, &patch, true); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		v, err := svc.NextStep(ctx, UIDFromContext(ctx), chi.URLParam(r, "draftId"), patch)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("wizard.step", v.StepName))
		writeJSON(w, http.StatusOK, v)
	}
}

func previousStepHandler(svc *service.InvestigationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/investigations/drafts/{draftId}/back")
		defer span.End()

		v, err := svc.PreviousStep(ctx, UIDFromContext(ctx), chi.URLParam(r, "draftId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func saveDraftHandler(svc *service.InvestigationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/investigations/drafts/{draftId}/save")
		defer span.End()

		inv, err := svc.SaveDraft(ctx, UIDFromContext(ctx), chi.URLParam(r, "draftId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, inv)
	}
}

func listInvestigationsHandler(svc *service.InvestigationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/investigations")
		defer span.End()

		invs, err := svc.ListInvestigations(ctx, UIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.HumanErrorInvestigation]{Data: invs, Total: len(invs)})
	}
}

func getInvestigationHandler(svc *service.InvestigationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/investigations/{investigationId}")
		defer span.End()

		inv, err := svc.GetInvestigation(ctx, UIDFromContext(ctx), chi.URLParam(r, "investigationId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inv)
	}
}

func editInvestigationHandler(svc *service.InvestigationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/investigations/{investigationId}/edit")
		defer span.End()

		v, err := svc.EditInvestigation(ctx, UIDFromContext(ctx), chi.URLParam(r, "investigationId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	}
}
