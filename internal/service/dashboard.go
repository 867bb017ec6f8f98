package service

import (
	"context"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/compliance"
	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/observability"
	"github.com/boddenberg/supervisor-bfa-go/internal/port"
	"github.com/boddenberg/supervisor-bfa-go/internal/risk"
	"github.com/boddenberg/supervisor-bfa-go/internal/skills"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dashboard is the supervisor overview: compliance rollup, skill status
// totals and the flat list of detected risks.
type Dashboard struct {
	Today          domain.Date         `json:"today"`
	Operators      int                 `json:"operators"`
	Procedures     int                 `json:"procedures"`
	Investigations int                 `json:"investigations"`
	OverdueActions int                 `json:"overdueActions"`
	Compliance     compliance.Report   `json:"compliance"`
	Skills         skills.StatusCounts `json:"skills"`
	Risks          []risk.Risk         `json:"risks"`
	RiskCounts     map[risk.Kind]int   `json:"riskCounts"`
	GeneratedAt    time.Time           `json:"generatedAt"`
}

// DashboardService builds the overview, cached per supervisor until a write
// invalidates it or the TTL expires.
type DashboardService struct {
	store    port.Store
	resolver skills.Resolver
	cache    port.Cache[any]
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewDashboardService creates the dashboard service with all dependencies injected.
func NewDashboardService(
	store port.Store,
	resolver skills.Resolver,
	cache port.Cache[any],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *DashboardService {
	return &DashboardService{
		store:    store,
		resolver: resolver,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// Get returns the dashboard of uid as of today.
func (s *DashboardService) Get(ctx context.Context, uid string) (*Dashboard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "DashboardService.Get")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}

	now := today()
	key := dashboardKey(uid)
	if cached, ok := s.cache.Get(key); ok {
		if d, ok := cached.(*Dashboard); ok && d.Today.Equal(now.Time) {
			s.metrics.IncrCacheHit("dashboard")
			return d, nil
		}
	}
	s.metrics.IncrCacheMiss("dashboard")

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("dashboard", time.Since(start))
	}()

	var (
		ops     []domain.Operator
		configs []domain.SkillConfig
		procs   []domain.Procedure
		records []domain.TrainingRecord
		invs    []domain.HumanErrorInvestigation
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ops, err = s.store.ListOperators(gCtx, uid)
		return wrapStoreErr(s.metrics, "list operators", err)
	})
	g.Go(func() error {
		var err error
		configs, err = s.store.ListSkillConfigs(gCtx, uid)
		return wrapStoreErr(s.metrics, "list skill configs", err)
	})
	g.Go(func() error {
		var err error
		procs, err = s.store.ListProcedures(gCtx, uid)
		return wrapStoreErr(s.metrics, "list procedures", err)
	})
	g.Go(func() error {
		var err error
		records, err = s.store.ListTrainingRecords(gCtx, uid)
		return wrapStoreErr(s.metrics, "list training records", err)
	})
	g.Go(func() error {
		var err error
		invs, err = s.store.ListInvestigations(gCtx, uid)
		return wrapStoreErr(s.metrics, "list investigations", err)
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("dashboard: failed to load collections", zap.String("uid", uid), zap.Error(err))
		return nil, err
	}

	for i := range ops {
		ops[i].Normalize()
	}

	risks := risk.Detect(ops, procs, records, invs, now)
	counts := risk.CountByKind(risks)
	matrix := s.resolver.Matrix(ops, configs)

	d := &Dashboard{
		Today:          now,
		Operators:      len(ops),
		Procedures:     len(procs),
		Investigations: len(invs),
		OverdueActions: counts[risk.KindOverdueAction],
		Compliance:     compliance.Aggregate(ops, procs, records, now),
		Skills:         matrix.Totals,
		Risks:          risks,
		RiskCounts:     counts,
		GeneratedAt:    timeNow(),
	}
	if d.Risks == nil {
		d.Risks = []risk.Risk{}
	}

	byKind := make(map[string]int, len(counts))
	for k, n := range counts {
		byKind[string(k)] = n
	}
	s.metrics.RecordRisks(byKind)
	span.SetAttributes(attribute.Int("risks", len(risks)))

	s.cache.Set(key, d)
	return d, nil
}
