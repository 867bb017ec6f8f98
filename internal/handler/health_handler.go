package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/catalog"
	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/observability"

	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

func healthzHandler(checks []HealthCheck, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "supervisor-bfa", Status: "healthy", LastChecked: now},
		}
		overallStatus := "healthy"

		for _, c := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			start := time.Now()
			err := c.Ping(ctx)
			cancel()

			sh := domain.ServiceHealth{
				Name:        c.Name,
				Status:      "healthy",
				LatencyMs:   time.Since(start).Milliseconds(),
				LastChecked: now,
			}
			if err != nil {
				logger.Warn("health check failed", zap.String("dependency", c.Name), zap.Error(err))
				sh.Status = "unhealthy"
				sh.Error = err.Error()
				overallStatus = "degraded"
			}
			services = append(services, sh)
		}

		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   overallStatus,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func aiMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetAISnapshot())
	}
}

func catalogHandler(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cat == nil {
			writeError(w, http.StatusServiceUnavailable, "catalog not loaded")
			return
		}
		writeJSON(w, http.StatusOK, cat)
	}
}
