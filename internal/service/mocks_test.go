package service_test

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/service"
)

// --- Mocks ---

// memStore is an in-memory port.Store keyed by uid then id.
type memStore struct {
	mu             sync.Mutex
	operators      map[string]map[string]domain.Operator
	configs        map[string]map[string]domain.SkillConfig
	procedures     map[string]map[string]domain.Procedure
	training       map[string]map[string]domain.TrainingRecord
	investigations map[string]map[string]domain.HumanErrorInvestigation
	pdis           map[string]map[string]domain.PDI

	listCalls int
	err       error
}

func newMemStore() *memStore {
	return &memStore{
		operators:      map[string]map[string]domain.Operator{},
		configs:        map[string]map[string]domain.SkillConfig{},
		procedures:     map[string]map[string]domain.Procedure{},
		training:       map[string]map[string]domain.TrainingRecord{},
		investigations: map[string]map[string]domain.HumanErrorInvestigation{},
		pdis:           map[string]map[string]domain.PDI{},
	}
}

func put[T any](m map[string]map[string]T, uid, id string, v T) {
	if m[uid] == nil {
		m[uid] = map[string]T{}
	}
	m[uid][id] = v
}

func values[T any](m map[string]T) []T {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}

func (s *memStore) ListOperators(_ context.Context, uid string) ([]domain.Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	out := values(s.operators[uid])
	for i := range out {
		skills := make(map[string]domain.SkillLevel, len(out[i].Skills))
		for k, v := range out[i].Skills {
			skills[k] = v
		}
		out[i].Skills = skills
	}
	return out, nil
}

func (s *memStore) GetOperator(_ context.Context, uid, id string) (*domain.Operator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.operators[uid][id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "operator", ID: id}
	}
	skills := make(map[string]domain.SkillLevel, len(op.Skills))
	for k, v := range op.Skills {
		skills[k] = v
	}
	op.Skills = skills
	return &op, nil
}

func (s *memStore) SaveOperator(_ context.Context, op *domain.Operator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	put(s.operators, op.UID, op.ID, *op)
	return nil
}

func (s *memStore) DeleteOperator(_ context.Context, uid, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.operators[uid], id)
	return nil
}

func (s *memStore) ListSkillConfigs(_ context.Context, uid string) ([]domain.SkillConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return values(s.configs[uid]), nil
}

func (s *memStore) SaveSkillConfig(_ context.Context, cfg *domain.SkillConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	put(s.configs, cfg.UID, cfg.ID, *cfg)
	return nil
}

func (s *memStore) ListProcedures(_ context.Context, uid string) ([]domain.Procedure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return values(s.procedures[uid]), nil
}

func (s *memStore) SaveProcedure(_ context.Context, p *domain.Procedure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	put(s.procedures, p.UID, p.ID, *p)
	return nil
}

func (s *memStore) DeleteProcedure(_ context.Context, uid, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.procedures[uid], id)
	return nil
}

func (s *memStore) ListTrainingRecords(_ context.Context, uid string) ([]domain.TrainingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return values(s.training[uid]), nil
}

func (s *memStore) SaveTrainingRecord(_ context.Context, rec *domain.TrainingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	put(s.training, rec.UID, rec.ID, *rec)
	return nil
}

func (s *memStore) ListInvestigations(_ context.Context, uid string) ([]domain.HumanErrorInvestigation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return values(s.investigations[uid]), nil
}

func (s *memStore) GetInvestigation(_ context.Context, uid, id string) (*domain.HumanErrorInvestigation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.investigations[uid][id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "investigation", ID: id}
	}
	return &inv, nil
}

func (s *memStore) SaveInvestigation(_ context.Context, inv *domain.HumanErrorInvestigation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	put(s.investigations, inv.UID, inv.ID, *inv)
	return nil
}

func (s *memStore) ListPDIs(_ context.Context, uid string) ([]domain.PDI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return values(s.pdis[uid]), nil
}

func (s *memStore) GetPDI(_ context.Context, uid, id string) (*domain.PDI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pdis[uid][id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "pdi", ID: id}
	}
	p.Goals = append([]domain.Goal(nil), p.Goals...)
	return &p, nil
}

func (s *memStore) SavePDI(_ context.Context, p *domain.PDI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	put(s.pdis, p.UID, p.ID, *p)
	return nil
}

func (s *memStore) Ping(context.Context) error { return s.err }

// mockGenerator answers every request with text or json. Call n (0-based)
// waits for gates[n] to be closed when that gate exists.
type mockGenerator struct {
	mu    sync.Mutex
	calls []*domain.GenerationRequest
	text  string
	json  string
	err   error
	gates map[int]chan struct{}
}

func (g *mockGenerator) Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error) {
	g.mu.Lock()
	gate := g.gates[len(g.calls)]
	g.calls = append(g.calls, req)
	g.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.err != nil {
		return nil, g.err
	}
	res := &domain.GenerationResult{
		RequestID:  req.RequestID,
		Text:       g.text,
		TokensUsed: domain.TokenUsage{PromptTokens: 100, CompletionTokens: 40, TotalTokens: 140},
	}
	if g.json != "" {
		res.JSON = []byte(g.json)
	}
	return res, nil
}

func (g *mockGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// --- Helpers ---

const uid = "sup-1"

var fixedNow = time.Date(2026, time.October, 16, 9, 30, 0, 0, time.UTC)

func fixClock(t *testing.T) {
	t.Helper()
	restore := service.SetClock(func() time.Time { return fixedNow })
	t.Cleanup(restore)
}
