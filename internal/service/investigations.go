package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/boddenberg/supervisor-bfa-go/internal/catalog"
	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/observability"
	"github.com/boddenberg/supervisor-bfa-go/internal/investigation"
	"github.com/boddenberg/supervisor-bfa-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DraftView is the API representation of a wizard in progress.
type DraftView struct {
	ID       string                    `json:"id"`
	Step     investigation.Step        `json:"step"`
	StepName string                    `json:"stepName"`
	History  []investigation.Step      `json:"history"`
	Branch   investigation.Branch      `json:"branch"`
	Draft    domain.InvestigationDraft `json:"draft"`
}

func newDraftView(id string, c *investigation.Controller) *DraftView {
	return &DraftView{
		ID:       id,
		Step:     c.Step(),
		StepName: c.Step().String(),
		History:  c.History(),
		Branch:   c.Branch(),
		Draft:    c.Draft(),
	}
}

// InvestigationService drives the human-error investigation wizard. Each
// call loads the draft snapshot, applies one transition and saves it back.
type InvestigationService struct {
	investigations port.InvestigationStore
	drafts         port.DraftStore
	catalog        *catalog.Catalog
	cache          port.Cache[any]
	metrics        *observability.Metrics
	logger         *zap.Logger
}

// NewInvestigationService creates the investigation service with all dependencies injected.
func NewInvestigationService(
	investigations port.InvestigationStore,
	drafts port.DraftStore,
	cat *catalog.Catalog,
	cache port.Cache[any],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *InvestigationService {
	return &InvestigationService{
		investigations: investigations,
		drafts:         drafts,
		catalog:        cat,
		cache:          cache,
		metrics:        metrics,
		logger:         logger,
	}
}

// CreateDraft starts a new wizard with the catalog questionnaire prefilled.
func (s *InvestigationService) CreateDraft(ctx context.Context, uid string) (*DraftView, error) {
	ctx, span := tracer.Start(ctx, "InvestigationService.CreateDraft")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	c := investigation.New()
	if s.catalog != nil {
		_ = c.Update(domain.DraftPatch{TWTTP: s.catalog.TWTTPTemplate()})
	}

	id := newID()
	if err := s.save(ctx, uid, id, c); err != nil {
		return nil, err
	}
	s.logger.Debug("investigation draft created", zap.String("uid", uid), zap.String("draft_id", id))
	return newDraftView(id, c), nil
}

// GetDraft returns a wizard in progress.
func (s *InvestigationService) GetDraft(ctx context.Context, uid, draftID string) (*DraftView, error) {
	ctx, span := tracer.Start(ctx, "InvestigationService.GetDraft")
	defer span.End()

	c, err := s.load(ctx, uid, draftID)
	if err != nil {
		return nil, err
	}
	return newDraftView(draftID, c), nil
}

// UpdateDraft merges step data into the draft without moving.
func (s *InvestigationService) UpdateDraft(ctx context.Context, uid, draftID string, patch domain.DraftPatch) (*DraftView, error) {
	ctx, span := tracer.Start(ctx, "InvestigationService.UpdateDraft")
	defer span.End()

	c, err := s.load(ctx, uid, draftID)
	if err != nil {
		return nil, err
	}
	if err := c.Update(patch); err != nil {
		return nil, err
	}
	if err := s.save(ctx, uid, draftID, c); err != nil {
		return nil, err
	}
	return newDraftView(draftID, c), nil
}

// NextStep applies patch and advances the wizard.
func (s *InvestigationService) NextStep(ctx context.Context, uid, draftID string, patch domain.DraftPatch) (*DraftView, error) {
	ctx, span := tracer.Start(ctx, "InvestigationService.NextStep")
	defer span.End()

	c, err := s.load(ctx, uid, draftID)
	if err != nil {
		return nil, err
	}
	if err := c.Update(patch); err != nil {
		return nil, err
	}
	if err := validateStep(c.Step(), c.Draft()); err != nil {
		return nil, err
	}
	step, err := c.Next()
	if err != nil {
		return nil, err
	}
	s.metrics.IncrWizardTransition("next", step.String())
	span.SetAttributes(attribute.String("wizard.step", step.String()))

	if err := s.save(ctx, uid, draftID, c); err != nil {
		return nil, err
	}
	return newDraftView(draftID, c), nil
}

// PreviousStep returns to the previously visited step.
func (s *InvestigationService) PreviousStep(ctx context.Context, uid, draftID string) (*DraftView, error) {
	ctx, span := tracer.Start(ctx, "InvestigationService.PreviousStep")
	defer span.End()

	c, err := s.load(ctx, uid, draftID)
	if err != nil {
		return nil, err
	}
	step, err := c.Back()
	if err != nil {
		return nil, err
	}
	s.metrics.IncrWizardTransition("back", step.String())

	if err := s.save(ctx, uid, draftID, c); err != nil {
		return nil, err
	}
	return newDraftView(draftID, c), nil
}

// SaveDraft persists the investigation from the summary step and discards
// the draft. Re-saving an edited investigation keeps its id and CreatedAt.
func (s *InvestigationService) SaveDraft(ctx context.Context, uid, draftID string) (*domain.HumanErrorInvestigation, error) {
	ctx, span := tracer.Start(ctx, "InvestigationService.SaveDraft")
	defer span.End()

	c, err := s.load(ctx, uid, draftID)
	if err != nil {
		return nil, err
	}
	inv, err := c.Assemble(newID(), uid, timeNow().UTC())
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(inv.Occurrence.EmployeeName) == "" {
		return nil, &domain.ErrValidation{Field: "occurrence.employeeName", Message: "employee name is required"}
	}

	if c.Draft().InvestigationID != "" {
		prev, err := s.investigations.GetInvestigation(ctx, uid, inv.ID)
		if err != nil {
			return nil, err
		}
		inv.CreatedAt = prev.CreatedAt
	}

	if err := s.investigations.SaveInvestigation(ctx, inv); err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("save investigation: %w", err)
	}
	s.metrics.IncrWizardTransition("save", investigation.StepSummary.String())

	if err := s.drafts.DeleteDraft(ctx, uid, draftID); err != nil {
		s.logger.Warn("failed to discard saved draft",
			zap.String("uid", uid),
			zap.String("draft_id", draftID),
			zap.Error(err),
		)
	}
	invalidate(s.cache, uid)

	s.logger.Info("investigation saved",
		zap.String("uid", uid),
		zap.String("investigation_id", inv.ID),
		zap.String("branch", string(c.Branch())),
	)
	return inv, nil
}

// EditInvestigation loads a saved investigation into a new draft at step 1.
func (s *InvestigationService) EditInvestigation(ctx context.Context, uid, id string) (*DraftView, error) {
	ctx, span := tracer.Start(ctx, "InvestigationService.EditInvestigation")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	inv, err := s.investigations.GetInvestigation(ctx, uid, id)
	if err != nil {
		return nil, err
	}
	c := investigation.FromInvestigation(*inv)
	draftID := newID()
	if err := s.save(ctx, uid, draftID, c); err != nil {
		return nil, err
	}
	return newDraftView(draftID, c), nil
}

// ListInvestigations returns uid's investigations, most recent occurrence first.
func (s *InvestigationService) ListInvestigations(ctx context.Context, uid string) ([]domain.HumanErrorInvestigation, error) {
	ctx, span := tracer.Start(ctx, "InvestigationService.ListInvestigations")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	invs, err := s.investigations.ListInvestigations(ctx, uid)
	if err != nil {
		s.metrics.IncrExternalError("store")
		return nil, fmt.Errorf("list investigations: %w", err)
	}
	sort.SliceStable(invs, func(i, j int) bool {
		a, b := invs[i].Occurrence.Date, invs[j].Occurrence.Date
		if !a.Equal(b.Time) {
			return a.After(b)
		}
		return invs[i].CreatedAt.After(invs[j].CreatedAt)
	})
	return invs, nil
}

// GetInvestigation returns one saved investigation.
func (s *InvestigationService) GetInvestigation(ctx context.Context, uid, id string) (*domain.HumanErrorInvestigation, error) {
	ctx, span := tracer.Start(ctx, "InvestigationService.GetInvestigation")
	defer span.End()

	if err := requireUID(uid); err != nil {
		return nil, err
	}
	return s.investigations.GetInvestigation(ctx, uid, id)
}

func (s *InvestigationService) load(ctx context.Context, uid, draftID string) (*investigation.Controller, error) {
	if err := requireUID(uid); err != nil {
		return nil, err
	}
	snap, err := s.drafts.LoadDraft(ctx, uid, draftID)
	if err != nil {
		return nil, err
	}
	c, err := investigation.Restore(*snap)
	if err != nil {
		s.logger.Error("corrupt investigation draft",
			zap.String("uid", uid),
			zap.String("draft_id", draftID),
			zap.Error(err),
		)
		return nil, &domain.ErrValidation{Field: "draft", Message: err.Error()}
	}
	return c, nil
}

func (s *InvestigationService) save(ctx context.Context, uid, draftID string, c *investigation.Controller) error {
	if err := s.drafts.SaveDraft(ctx, uid, draftID, c.Snapshot()); err != nil {
		s.metrics.IncrExternalError("drafts")
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// validateStep checks the minimum data a step needs before moving on.
func validateStep(step investigation.Step, d domain.InvestigationDraft) error {
	switch step {
	case investigation.StepOccurrence:
		if strings.TrimSpace(d.Occurrence.EmployeeName) == "" {
			return &domain.ErrValidation{Field: "occurrence.employeeName", Message: "employee name is required"}
		}
		if d.Occurrence.Date.IsZero() {
			return &domain.ErrValidation{Field: "occurrence.date", Message: "date is required"}
		}
	case investigation.StepActionPlan:
		if strings.TrimSpace(d.ActionPlan.Action) == "" {
			return &domain.ErrValidation{Field: "actionPlan.action", Message: "action is required"}
		}
	}
	return nil
}
