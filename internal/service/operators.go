package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/catalog"
	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/observability"
	"github.com/boddenberg/supervisor-bfa-go/internal/port"
	"github.com/boddenberg/supervisor-bfa-go/internal/skills"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// OperatorInput is the body of POST /v1/operators.
type OperatorInput struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// SkillConfigResult reports a saved config and how many operators were
// backfilled with its targets.
type SkillConfigResult struct {
	Config           domain.SkillConfig `json:"config"`
	OperatorsUpdated int                `json:"operatorsUpdated"`
}

// OperatorService manages operators, their skill levels and the skill
// configs that define role targets.
type OperatorService struct {
	operators port.OperatorStore
	configs   port.SkillConfigStore
	resolver  skills.Resolver
	catalog   *catalog.Catalog
	cache     port.Cache[any]
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewOperatorService creates the operator service with all dependencies injected.
func NewOperatorService(
	operators port.OperatorStore,
	configs port.SkillConfigStore,
	resolver skills.Resolver,
	cat *catalog.Catalog,
	cache port.Cache[any],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *OperatorService {
	return &OperatorService{
		operators: operators,
		configs:   configs,
		resolver:  resolver,
		catalog:   cat,
		cache:     cache,
		metrics:   metrics,
		logger:    logger,
	}
}

// ============================================================
// Operators
// ============================================================

// ListOperators returns uid's operators sorted by name.
func (s *OperatorService) ListOperators(ctx context.Context, uid string) ([]domain.Operator, error) {
	ctx, span := tracer.Start(ctx, "OperatorService.ListOperators")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	ops, err := s.operators.ListOperators(ctx, uid)
	if err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("list operators: %w", err)
	}
	sort.SliceStable(ops, func(i, j int) bool {
		return strings.ToLower(ops[i].Name) < strings.ToLower(ops[j].Name)
	})
	return ops, nil
}

// RegisterOperator creates an operator with one unassessed entry per
// configured skill, targeted for the operator's role.
func (s *OperatorService) RegisterOperator(ctx context.Context, uid string, in OperatorInput) (*domain.Operator, error) {
	ctx, span := tracer.Start(ctx, "OperatorService.RegisterOperator")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	if domain.CanonicalKey(in.Role) == "" {
		return nil, &domain.ErrValidation{Field: "role", Message: "role is required"}
	}

	configs, err := s.configs.ListSkillConfigs(ctx, uid)
	if err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("list skill configs: %w", err)
	}

	op := &domain.Operator{ID: newID(), UID: uid, Name: in.Name, Role: in.Role}
	op.Normalize()
	op.Skills = s.resolver.DefaultSkills(configs, op.Role)

	if err := s.operators.SaveOperator(ctx, op); err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("save operator: %w", err)
	}
	invalidate(s.cache, uid)

	s.logger.Info("operator registered",
		zap.String("uid", uid),
		zap.String("operator_id", op.ID),
		zap.String("role", op.Role),
		zap.Int("skills", len(op.Skills)),
	)
	return op, nil
}

// DeleteOperator removes an operator. Its training records and
// investigations are kept as history.
func (s *OperatorService) DeleteOperator(ctx context.Context, uid, id string) error {
	ctx, span := tracer.Start(ctx, "OperatorService.DeleteOperator")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return err
	}
	if _, err := s.operators.GetOperator(ctx, uid, id); err != nil {
		return err
	}
	if err := s.operators.DeleteOperator(ctx, uid, id); err != nil {
		s.metrics.IncrExternalError("store")
		return fmt.Errorf("delete operator: %w", err)
	}
	invalidate(s.cache, uid)
	s.logger.Info("operator deleted", zap.String("uid", uid), zap.String("operator_id", id))
	return nil
}

// SetSkillLevel records the assessed level of one skill. A nil level marks
// the skill as not assessed. Skills unknown to the operator are created with
// the resolved target.
func (s *OperatorService) SetSkillLevel(ctx context.Context, uid, operatorID, skill string, level *int) (*domain.Operator, error) {
	ctx, span := tracer.Start(ctx, "OperatorService.SetSkillLevel")
	defer span.End()
	span.SetAttributes(attribute.String("skill", skill))

	if level != nil && (*level < 0 || *level > domain.MaxSkillLevel) {
		return nil, &domain.ErrValidation{Field: "r", Message: fmt.Sprintf("level must be between 0 and %d", domain.MaxSkillLevel)}
	}
	return s.updateSkill(ctx, uid, operatorID, skill, func(domain.SkillLevel) *int { return level })
}

// ToggleSkillLevel cycles the assessed level: unassessed → 0 → … → 4 → 0.
func (s *OperatorService) ToggleSkillLevel(ctx context.Context, uid, operatorID, skill string) (*domain.Operator, error) {
	ctx, span := tracer.Start(ctx, "OperatorService.ToggleSkillLevel")
	defer span.End()

	return s.updateSkill(ctx, uid, operatorID, skill, func(cur domain.SkillLevel) *int {
		return domain.Level(skills.NextLevel(cur.Real))
	})
}

func (s *OperatorService) updateSkill(ctx context.Context, uid, operatorID, skill string, next func(domain.SkillLevel) *int) (*domain.Operator, error) {
	if err := requireUID(uid); err != nil {
		return nil, err
	}
	key := domain.CanonicalKey(skill)
	if key == "" {
		return nil, &domain.ErrValidation{Field: "skill", Message: "skill is required"}
	}

	op, err := s.operators.GetOperator(ctx, uid, operatorID)
	if err != nil {
		return nil, err
	}
	op.Normalize()

	cur, ok := op.Skills[key]
	if !ok {
		cur.Target = s.resolver.Default
		configs, err := s.configs.ListSkillConfigs(ctx, uid)
		if err != nil {
			s.metrics.IncrExternalError("store")
			return nil, fmt.Errorf("list skill configs: %w", err)
		}
		for _, cfg := range configs {
			if cfg.Key() == key {
				cur.Target = s.resolver.Target(cfg, op.Role)
				break
			}
		}
	}
	cur.Real = next(cur)
	op.Skills[key] = cur

	if err := s.operators.SaveOperator(ctx, op); err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("save operator: %w", err)
	}
	invalidate(s.cache, uid)
	return op, nil
}

// ============================================================
// Skill configs
// ============================================================

// ListSkillConfigs returns uid's skill configs sorted by canonical key.
func (s *OperatorService) ListSkillConfigs(ctx context.Context, uid string) ([]domain.SkillConfig, error) {
	ctx, span := tracer.Start(ctx, "OperatorService.ListSkillConfigs")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	configs, err := s.configs.ListSkillConfigs(ctx, uid)
	if err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("list skill configs: %w", err)
	}
	sort.SliceStable(configs, func(i, j int) bool { return configs[i].Key() < configs[j].Key() })
	return configs, nil
}

// SaveSkillConfig creates or replaces the config for a skill (matched by
// canonical name) and backfills the resolved targets into every operator.
func (s *OperatorService) SaveSkillConfig(ctx context.Context, uid string, cfg domain.SkillConfig) (*SkillConfigResult, error) {
	ctx, span := tracer.Start(ctx, "OperatorService.SaveSkillConfig")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	cfg.UID = uid
	cfg.Normalize()
	if cfg.Key() == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "skill name is required"}
	}

	existing, err := s.configs.ListSkillConfigs(ctx, uid)
	if err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("list skill configs: %w", err)
	}
	for _, e := range existing {
		if e.Key() == cfg.Key() {
			cfg.ID = e.ID
			break
		}
	}
	if cfg.ID == "" {
		cfg.ID = newID()
	}

	if err := s.configs.SaveSkillConfig(ctx, &cfg); err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("save skill config: %w", err)
	}

	updated, err := s.backfill(ctx, uid, []domain.SkillConfig{cfg})
	if err != nil {
		return nil, err
	}
	invalidate(s.cache, uid)

	s.logger.Info("skill config saved",
		zap.String("uid", uid),
		zap.String("skill", cfg.Key()),
		zap.Int("operators_updated", updated),
	)
	return &SkillConfigResult{Config: cfg, OperatorsUpdated: updated}, nil
}

// SeedSkillConfigs adds the catalog's default skills that uid does not have
// yet and backfills them. It returns the created configs.
func (s *OperatorService) SeedSkillConfigs(ctx context.Context, uid string) ([]domain.SkillConfig, error) {
	ctx, span := tracer.Start(ctx, "OperatorService.SeedSkillConfigs")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	existing, err := s.configs.ListSkillConfigs(ctx, uid)
	if err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("list skill configs: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, e := range existing {
		have[e.Key()] = true
	}

	var created []domain.SkillConfig
	for _, cfg := range s.catalog.SkillConfigs(uid) {
		if have[cfg.Key()] {
			continue
		}
		cfg.ID = newID()
		if err := s.configs.SaveSkillConfig(ctx, &cfg); err != nil {
			s.metrics.IncrExternalError("store")
			return nil, fmt.Errorf("save skill config: %w", err)
		}
		created = append(created, cfg)
	}

	if len(created) > 0 {
		if _, err := s.backfill(ctx, uid, created); err != nil {
			return nil, err
		}
		invalidate(s.cache, uid)
	}
	s.logger.Info("skill configs seeded", zap.String("uid", uid), zap.Int("created", len(created)))
	return created, nil
}

// backfill syncs every operator with the given configs and saves the ones
// that changed.
func (s *OperatorService) backfill(ctx context.Context, uid string, configs []domain.SkillConfig) (int, error) {
	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("skill_backfill", time.Since(start)) }()

	ops, err := s.operators.ListOperators(ctx, uid)
	if err != nil {
		s.metrics.IncrExternalError("store")
		return 0, fmt.Errorf("list operators: %w", err)
	}

	updated := 0
	for i := range ops {
		op := &ops[i]
		op.Normalize()
		changed := false
		for _, cfg := range configs {
			if s.resolver.Sync(op, cfg) {
				changed = true
			}
		}
		if !changed {
			continue
		}
		if err := s.operators.SaveOperator(ctx, op); err != nil {
			s.metrics.IncrExternalError("store")
			return updated, fmt.Errorf("backfill operator %s: %w", op.ID, err)
		}
		updated++
	}
	return updated, nil
}

// Matrix builds the operators × skills view.
func (s *OperatorService) Matrix(ctx context.Context, uid string) (*skills.Matrix, error) {
	ctx, span := tracer.Start(ctx, "OperatorService.Matrix")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}

	var (
		ops     []domain.Operator
		configs []domain.SkillConfig
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ops, err = s.ListOperators(gCtx, uid)
		return err
	})
	g.Go(func() error {
		var err error
		configs, err = s.configs.ListSkillConfigs(gCtx, uid)
		if err != nil {
			s.metrics.IncrExternalError("store")
			return fmt.Errorf("list skill configs: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range ops {
		ops[i].Normalize()
	}
	m := s.resolver.Matrix(ops, configs)
	return &m, nil
}
