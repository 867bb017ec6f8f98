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
// POPs e treinamentos
// ============================================================

func listProceduresHandler(svc *service.TrainingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/procedures")
		defer span.End()

		procs, err := svc.ListProcedures(ctx, UIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Procedure]{Data: procs, Total: len(procs)})
	}
}

func saveProcedureHandler(svc *service.TrainingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/procedures")
		defer span.End()

		var p domain.Procedure
		if err := decodeBody(r, &p, false); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		status := http.StatusOK
		if p.ID == "" {
			status = http.StatusCreated
		}
		saved, err := svc.SaveProcedure(ctx, UIDFromContext(ctx), p)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, status, saved)
	}
}

func deleteProcedureHandler(svc *service.TrainingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/procedures/{procedureId}")
		defer span.End()

		id := chi.URLParam(r, "procedureId")
		span.SetAttributes(attribute.String("procedure.id", id))

		if err := svc.DeleteProcedure(ctx, UIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "POP removido", ID: id})
	}
}

func setTrainingStatusHandler(svc *service.TrainingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/training/{operatorId}/{procedureId}")
		defer span.End()

		var in service.TrainingInput
		if err := decodeBody(r, &in, false); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		rec, err := svc.SetTrainingStatus(ctx, UIDFromContext(ctx), chi.URLParam(r, "operatorId"), chi.URLParam(r, "procedureId"), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func complianceHandler(svc *service.TrainingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/training/compliance")
		defer span.End()

		ov, err := svc.Compliance(ctx, UIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, ov)
	}
}
