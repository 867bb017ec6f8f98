package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/catalog"
	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/handler"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/cache"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/drafts"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/observability"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/supervisor-bfa-go/internal/service"
	"github.com/boddenberg/supervisor-bfa-go/internal/skills"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type stubGenerator struct {
	calls int
}

func (g *stubGenerator) Generate(_ context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	g.calls++
	return &domain.GenerationResult{RequestID: req.RequestID, Text: "resumo"}, nil
}

type testServer struct {
	router http.Handler
	gen    *stubGenerator
}

func newTestServer(t *testing.T, checks ...handler.HealthCheck) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	store, err := sqlite.New(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	c := cache.New[any](time.Minute)
	t.Cleanup(c.Stop)

	resolver := skills.NewResolver(skills.DefaultTargetLevel)
	gen := &stubGenerator{}
	dashboard := service.NewDashboardService(store, resolver, c, metrics, logger)

	svc := handler.Services{
		Operators:      service.NewOperatorService(store, store, resolver, cat, c, metrics, logger),
		Training:       service.NewTrainingService(store, store, store, c, metrics, logger),
		Dashboard:      dashboard,
		Investigations: service.NewInvestigationService(store, drafts.NewMemoryStore(time.Hour), cat, c, metrics, logger),
		PDIs:           service.NewPDIService(store, store, metrics, logger),
		Assistant:      service.NewAssistant(gen, dashboard, store, metrics, logger),
		Catalog:        cat,
	}
	opts := handler.Options{
		Validator:    handler.NewTokenValidator(testSecret),
		DevAuth:      true,
		HealthChecks: checks,
	}
	return &testServer{router: handler.NewRouter(svc, opts, metrics, logger), gen: gen}
}

func (s *testServer) do(t *testing.T, method, path, uid, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if uid != "" {
		req.Header.Set(handler.DevUserHeader, uid)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/healthz", "", "")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if got := decode[domain.HealthStatus](t, rec); got.Status != "healthy" {
		t.Errorf("expected healthy, got %q", got.Status)
	}
}

func TestHealthz_DegradedDependency(t *testing.T) {
	srv := newTestServer(t, handler.HealthCheck{
		Name: "redis",
		Ping: func(context.Context) error { return errors.New("connection refused") },
	})

	rec := srv.do(t, http.MethodGet, "/healthz", "", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decode[domain.HealthStatus](t, rec)
	if got.Status != "degraded" {
		t.Errorf("expected degraded, got %q", got.Status)
	}
	if len(got.Services) != 2 || got.Services[1].Status != "unhealthy" {
		t.Errorf("expected redis unhealthy, got %+v", got.Services)
	}
}

func TestReadyz(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/readyz", "", "")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/metrics", "", "")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuth_MissingCredentials(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/v1/operators", "", "")

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuth_BearerToken(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + signToken(t, testSecret, "sup-1"), http.StatusOK},
		{"wrong secret", "Bearer " + signToken(t, "other", "sup-1"), http.StatusUnauthorized},
		{"no subject", "Bearer " + signToken(t, testSecret, ""), http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/operators", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			srv.router.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d (%s)", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestOperators_CreateAndListScopedBySupervisor(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/v1/operators", "sup-1", `{"name":"Ana","role":"operador ii"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	op := decode[domain.Operator](t, rec)
	if op.ID == "" || op.Role != "OPERADOR II" {
		t.Errorf("unexpected operator: %+v", op)
	}

	list := decode[domain.ListResponse[domain.Operator]](t, srv.do(t, http.MethodGet, "/v1/operators", "sup-1", ""))
	if list.Total != 1 || list.Data[0].ID != op.ID {
		t.Errorf("expected the created operator, got %+v", list)
	}

	other := decode[domain.ListResponse[domain.Operator]](t, srv.do(t, http.MethodGet, "/v1/operators", "sup-2", ""))
	if other.Total != 0 {
		t.Errorf("expected another supervisor to see nothing, got %d", other.Total)
	}
}

func TestOperators_SetSkillLevel(t *testing.T) {
	srv := newTestServer(t)
	srv.do(t, http.MethodPost, "/v1/skills", "sup-1", `{"name":"Prensa","rolePrereqs":{"OPERADOR II":3}}`)
	op := decode[domain.Operator](t, srv.do(t, http.MethodPost, "/v1/operators", "sup-1", `{"name":"Ana","role":"OPERADOR II"}`))

	rec := srv.do(t, http.MethodPut, "/v1/operators/"+op.ID+"/skills/prensa", "sup-1", `{"r":1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[domain.Operator](t, rec)
	lvl := got.Skills["PRENSA"]
	if lvl.Real == nil || *lvl.Real != 1 || lvl.Target != 3 {
		t.Errorf("unexpected skill level: %+v", lvl)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"not found", http.MethodDelete, "/v1/operators/missing", "", http.StatusNotFound},
		{"malformed body", http.MethodPost, "/v1/operators", `{"name":`, http.StatusBadRequest},
		{"validation", http.MethodPost, "/v1/operators", `{"name":"","role":"LIDER"}`, http.StatusBadRequest},
		{"bad goal index", http.MethodPost, "/v1/pdis/p1/goals/abc/toggle", "", http.StatusBadRequest},
		{"missing draft", http.MethodGet, "/v1/investigations/drafts/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(t, tt.method, tt.path, "sup-1", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d (%s)", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestInvestigationDraft_BackFromFirstStepConflicts(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/v1/investigations/drafts", "sup-1", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	view := decode[service.DraftView](t, rec)

	rec = srv.do(t, http.MethodPost, "/v1/investigations/drafts/"+view.ID+"/back", "sup-1", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestRiskSummary_NoRisksSkipsGenerator(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/v1/dashboard/summary", "sup-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := decode[domain.RiskSummary](t, rec); got.Summary == "" {
		t.Error("expected a summary text")
	}
	if srv.gen.calls != 0 {
		t.Errorf("expected no generator calls, got %d", srv.gen.calls)
	}
}

func TestCatalog(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/v1/catalog", "sup-1", "")

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
