package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/observability"
	"github.com/boddenberg/supervisor-bfa-go/internal/port"

	"go.uber.org/zap"
)

// PDIService manages individual development plans.
type PDIService struct {
	pdis      port.PDIStore
	operators port.OperatorStore
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewPDIService creates the PDI service with all dependencies injected.
func NewPDIService(pdis port.PDIStore, operators port.OperatorStore, metrics *observability.Metrics, logger *zap.Logger) *PDIService {
	return &PDIService{pdis: pdis, operators: operators, metrics: metrics, logger: logger}
}

// List returns uid's plans with their progress, ordered by employee.
func (s *PDIService) List(ctx context.Context, uid string) ([]domain.PDIView, error) {
	ctx, span := tracer.Start(ctx, "PDIService.List")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	plans, err := s.pdis.ListPDIs(ctx, uid)
	if err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("list pdis: %w", err)
	}
	sort.SliceStable(plans, func(i, j int) bool {
		return strings.ToLower(plans[i].Employee) < strings.ToLower(plans[j].Employee)
	})

	views := make([]domain.PDIView, 0, len(plans))
	for _, p := range plans {
		views = append(views, domain.NewPDIView(p))
	}
	return views, nil
}

// Create stores a new plan. When OperatorID is set the employee name is
// taken from the operator.
func (s *PDIService) Create(ctx context.Context, uid string, p domain.PDI) (*domain.PDIView, error) {
	ctx, span := tracer.Start(ctx, "PDIService.Create")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	if p.OperatorID != "" {
		op, err := s.operators.GetOperator(ctx, uid, p.OperatorID)
		if err != nil {
			return nil, err
		}
		p.Employee = op.Name
	}
	p.Employee = strings.TrimSpace(p.Employee)
	p.CareerObjective = strings.TrimSpace(p.CareerObjective)
	if p.Employee == "" {
		return nil, &domain.ErrValidation{Field: "employee", Message: "employee is required"}
	}
	if p.CareerObjective == "" {
		return nil, &domain.ErrValidation{Field: "careerObjective", Message: "career objective is required"}
	}
	goals := p.Goals[:0]
	for _, g := range p.Goals {
		g.Text = strings.TrimSpace(g.Text)
		if g.Text != "" {
			goals = append(goals, g)
		}
	}
	if len(goals) == 0 {
		return nil, &domain.ErrValidation{Field: "goals", Message: "at least one goal is required"}
	}

	p.Goals = goals
	p.ID = newID()
	p.UID = uid
	if err := s.pdis.SavePDI(ctx, &p); err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("save pdi: %w", err)
	}
	s.logger.Info("pdi created", zap.String("uid", uid), zap.String("pdi_id", p.ID), zap.Int("goals", len(p.Goals)))

	v := domain.NewPDIView(p)
	return &v, nil
}

// ToggleGoal flips the completion flag of goal index.
func (s *PDIService) ToggleGoal(ctx context.Context, uid, id string, index int) (*domain.PDIView, error) {
	ctx, span := tracer.Start(ctx, "PDIService.ToggleGoal")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	p, err := s.pdis.GetPDI(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(p.Goals) {
		return nil, &domain.ErrValidation{Field: "index", Message: fmt.Sprintf("goal %d out of range [0,%d)", index, len(p.Goals))}
	}
	p.Goals[index].Completed = !p.Goals[index].Completed

	if err := s.pdis.SavePDI(ctx, p); err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("save pdi: %w", err)
	}
	v := domain.NewPDIView(*p)
	return &v, nil
}
