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
// Operadores
// ============================================================

// skillLevelRequest is the body of PUT /v1/operators/{operatorId}/skills/{skill}.
// A null "r" clears the assessment.
type skillLevelRequest struct {
	Real *int `json:"r"`
}

func listOperatorsHandler(svc *service.OperatorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/operators")
		defer span.End()

		ops, err := svc.ListOperators(ctx, UIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.Operator]{Data: ops, Total: len(ops)})
	}
}

func registerOperatorHandler(svc *service.OperatorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/operators")
		defer span.End()

		var in service.OperatorInput
		if err := decodeBody(r, &in, false); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		op, err := svc.RegisterOperator(ctx, UIDFromContext(ctx), in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, op)
	}
}

func deleteOperatorHandler(svc *service.OperatorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/operators/{operatorId}")
		defer span.End()

		id := chi.URLParam(r, "operatorId")
		span.SetAttributes(attribute.String("operator.id", id))

		if err := svc.DeleteOperator(ctx, UIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Operador removido", ID: id})
	}
}

func setSkillLevelHandler(svc *service.OperatorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/operators/{operatorId}/skills/{skill}")
		defer span.End()

		var req skillLevelRequest
		if err := decodeBody(r, &req, false); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		op, err := svc.SetSkillLevel(ctx, UIDFromContext(ctx), chi.URLParam(r, "operatorId"), chi.URLParam(r, "skill"), req.Real)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, op)
	}
}

func toggleSkillLevelHandler(svc *service.OperatorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/operators/{operatorId}/skills/{skill}/toggle")
		defer span.End()

		op, err := svc.ToggleSkillLevel(ctx, UIDFromContext(ctx), chi.URLParam(r, "operatorId"), chi.URLParam(r, "skill"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, op)
	}
}

// ============================================================
// Configuração de habilidades
// ============================================================

func listSkillConfigsHandler(svc *service.OperatorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/skills")
		defer span.End()

		configs, err := svc.ListSkillConfigs(ctx, UIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.SkillConfig]{Data: configs, Total: len(configs)})
	}
}

func saveSkillConfigHandler(svc *service.OperatorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/skills")
		defer span.End()

		var cfg domain.SkillConfig
		if err := decodeBody(r, &cfg, false); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		res, err := svc.SaveSkillConfig(ctx, UIDFromContext(ctx), cfg)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func seedSkillConfigsHandler(svc *service.OperatorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/skills/seed")
		defer span.End()

		created, err := svc.SeedSkillConfigs(ctx, UIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if created == nil {
			created = []domain.SkillConfig{}
		}
		writeJSON(w, http.StatusOK, domain.ListResponse[domain.SkillConfig]{Data: created, Total: len(created)})
	}
}

func skillMatrixHandler(svc *service.OperatorService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/skills/matrix")
		defer span.End()

		m, err := svc.Matrix(ctx, UIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, m)
	}
}
