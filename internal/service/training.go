package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/boddenberg/supervisor-bfa-go/internal/compliance"
	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/observability"
	"github.com/boddenberg/supervisor-bfa-go/internal/port"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// TrainingInput is the body of PUT /v1/training/{operatorId}/{procedureId}.
type TrainingInput struct {
	Status domain.TrainingStatus `json:"status"`
	Date   domain.Date           `json:"date"`
}

// TrainingOverview is the training compliance view: the overall rollup plus
// one row per operator.
type TrainingOverview struct {
	Today     domain.Date                     `json:"today"`
	Report    compliance.Report               `json:"report"`
	Operators []compliance.OperatorCompliance `json:"operators"`
}

// TrainingService manages POPs and training records.
type TrainingService struct {
	procedures port.ProcedureStore
	training   port.TrainingStore
	operators  port.OperatorStore
	cache      port.Cache[any]
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewTrainingService creates the training service with all dependencies injected.
func NewTrainingService(
	procedures port.ProcedureStore,
	training port.TrainingStore,
	operators port.OperatorStore,
	cache port.Cache[any],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *TrainingService {
	return &TrainingService{
		procedures: procedures,
		training:   training,
		operators:  operators,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
	}
}

// ListProcedures returns uid's POPs sorted by code.
func (s *TrainingService) ListProcedures(ctx context.Context, uid string) ([]domain.Procedure, error) {
	ctx, span := tracer.Start(ctx, "TrainingService.ListProcedures")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	procs, err := s.procedures.ListProcedures(ctx, uid)
	if err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("list procedures: %w", err)
	}
	sort.SliceStable(procs, func(i, j int) bool { return procs[i].Code < procs[j].Code })
	return procs, nil
}

// SaveProcedure creates a POP, or replaces it when p.ID names an existing one.
// Codes are unique per supervisor, compared case-insensitively.
func (s *TrainingService) SaveProcedure(ctx context.Context, uid string, p domain.Procedure) (*domain.Procedure, error) {
	ctx, span := tracer.Start(ctx, "TrainingService.SaveProcedure")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	p.UID = uid
	p.Normalize()
	p.Title = strings.TrimSpace(p.Title)
	switch {
	case p.Code == "":
		return nil, &domain.ErrValidation{Field: "code", Message: "code is required"}
	case p.Title == "":
		return nil, &domain.ErrValidation{Field: "title", Message: "title is required"}
	case p.ValidityMonths < 0:
		return nil, &domain.ErrValidation{Field: "validityMonths", Message: "must not be negative"}
	case len(p.Roles) == 0:
		return nil, &domain.ErrValidation{Field: "roles", Message: "at least one role is required"}
	}

	existing, err := s.procedures.ListProcedures(ctx, uid)
	if err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("list procedures: %w", err)
	}
	found := p.ID == ""
	for _, e := range existing {
		if e.ID == p.ID {
			found = true
			continue
		}
		if strings.EqualFold(e.Code, p.Code) {
			return nil, &domain.ErrConflict{Message: fmt.Sprintf("procedure code %s already exists", p.Code)}
		}
	}
	if !found {
		return nil, &domain.ErrNotFound{Resource: "procedure", ID: p.ID}
	}
	if p.ID == "" {
		p.ID = newID()
	}

	if err := s.procedures.SaveProcedure(ctx, &p); err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("save procedure: %w", err)
	}
	invalidate(s.cache, uid)
	s.logger.Info("procedure saved", zap.String("uid", uid), zap.String("code", p.Code))
	return &p, nil
}

// DeleteProcedure removes a POP.
func (s *TrainingService) DeleteProcedure(ctx context.Context, uid, id string) error {
	ctx, span := tracer.Start(ctx, "TrainingService.DeleteProcedure")
	defer span.End()

	if _, err := s.findProcedure(ctx, uid, id); err != nil {
		return err
	}
	if err := s.procedures.DeleteProcedure(ctx, uid, id); err != nil {
		s.metrics.IncrExternalError("store")
		return fmt.Errorf("delete procedure: %w", err)
	}
	invalidate(s.cache, uid)
	return nil
}

func (s *TrainingService) findProcedure(ctx context.Context, uid, id string) (*domain.Procedure, error) {
	procs, err := s.ListProcedures(ctx, uid)
	if err != nil {
		return nil, err
	}
	for i := range procs {
		if procs[i].ID == id {
			return &procs[i], nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "procedure", ID: id}
}

// SetTrainingStatus upserts the training record of one operator × POP pair.
// A completion without a date is stamped with today.
func (s *TrainingService) SetTrainingStatus(ctx context.Context, uid, operatorID, procedureID string, in TrainingInput) (*domain.TrainingRecord, error) {
	ctx, span := tracer.Start(ctx, "TrainingService.SetTrainingStatus")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	if !in.Status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: fmt.Sprintf("unknown status %q", in.Status)}
	}
	if _, err := s.operators.GetOperator(ctx, uid, operatorID); err != nil {
		return nil, err
	}
	if _, err := s.findProcedure(ctx, uid, procedureID); err != nil {
		return nil, err
	}

	rec := &domain.TrainingRecord{
		UID:         uid,
		OperatorID:  operatorID,
		ProcedureID: procedureID,
		Status:      in.Status,
		Date:        in.Date,
	}
	if rec.Status == domain.TrainingCompleted && rec.Date.IsZero() {
		rec.Date = today()
	}
	rec.ID = rec.Key().String()

	if err := s.training.SaveTrainingRecord(ctx, rec); err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("save training record: %w", err)
	}
	invalidate(s.cache, uid)
	return rec, nil
}

// Compliance computes the training overview as of today.
func (s *TrainingService) Compliance(ctx context.Context, uid string) (*TrainingOverview, error) {
	ctx, span := tracer.Start(ctx, "TrainingService.Compliance")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}

	var (
		ops     []domain.Operator
		procs   []domain.Procedure
		records []domain.TrainingRecord
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ops, err = s.operators.ListOperators(gCtx, uid)
		return wrapStoreErr(s.metrics, "list operators", err)
	})
	g.Go(func() error {
		var err error
		procs, err = s.procedures.ListProcedures(gCtx, uid)
		return wrapStoreErr(s.metrics, "list procedures", err)
	})
	g.Go(func() error {
		var err error
		records, err = s.training.ListTrainingRecords(gCtx, uid)
		return wrapStoreErr(s.metrics, "list training records", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range ops {
		ops[i].Normalize()
	}
	now := today()
	return &TrainingOverview{
		Today:     now,
		Report:    compliance.Aggregate(ops, procs, records, now),
		Operators: compliance.PerOperator(ops, procs, records, now),
	}, nil
}

func wrapStoreErr(m *observability.Metrics, op string, err error) error {
	if err == nil {
		return nil
	}
	m.IncrExternalError("store")
	return fmt.Errorf("%s: %w", op, err)
}
