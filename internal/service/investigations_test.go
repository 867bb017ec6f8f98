package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/catalog"
	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/cache"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/drafts"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/observability"
	"github.com/boddenberg/supervisor-bfa-go/internal/investigation"
	"github.com/boddenberg/supervisor-bfa-go/internal/service"

	"go.uber.org/zap"
)

func newInvestigationService(t *testing.T, store *memStore) *service.InvestigationService {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	c := cache.New[any](time.Minute)
	t.Cleanup(c.Stop)
	d := drafts.NewMemoryStore(time.Hour)
	t.Cleanup(func() { d.Close() })
	return service.NewInvestigationService(store, d, cat, c, observability.NewMetrics(), zap.NewNop())
}

func occurrencePatch() domain.DraftPatch {
	return domain.DraftPatch{Occurrence: &domain.Occurrence{
		OperatorID:   "op-1",
		EmployeeName: "Ana",
		Date:         domain.DateOf(fixedNow),
		Description:  "Peça montada invertida",
	}}
}

// answered returns the draft's questionnaire with every answer set to a.
func answered(v *service.DraftView, a string) domain.TWTTP {
	out := append(domain.TWTTP(nil), v.Draft.TWTTP...)
	for i := range out {
		out[i].Answer = a
	}
	return out
}

func TestWizard_HERCABranchToSave(t *testing.T) {
	fixClock(t)
	store := newMemStore()
	svc := newInvestigationService(t, store)
	ctx := context.Background()

	v, err := svc.CreateDraft(ctx, uid)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if v.Step != investigation.StepOccurrence || len(v.Draft.TWTTP) == 0 {
		t.Fatalf("expected step 1 with prefilled questionnaire, got %+v", v)
	}

	v, err = svc.NextStep(ctx, uid, v.ID, occurrencePatch())
	if err != nil || v.Step != investigation.StepTWTTP {
		t.Fatalf("expected twttp step, got %v / %v", v, err)
	}

	v, err = svc.NextStep(ctx, uid, v.ID, domain.DraftPatch{TWTTP: answered(v, "sim")})
	if err != nil || v.Step != investigation.StepHERCA || v.Branch != investigation.BranchHERCA {
		t.Fatalf("expected herca branch, got %v / %v", v, err)
	}

	v, err = svc.NextStep(ctx, uid, v.ID, domain.DraftPatch{HERCA: &domain.HERCA{Tools: true}})
	if err != nil || v.Step != investigation.StepActionPlan {
		t.Fatalf("expected action plan step, got %v / %v", v, err)
	}

	deadline := domain.DateOf(fixedNow).AddDays(7)
	v, err = svc.NextStep(ctx, uid, v.ID, domain.DraftPatch{ActionPlan: &domain.ActionPlan{Action: "Trocar gabarito", Responsible: "Carlos", Deadline: deadline}})
	if err != nil || v.Step != investigation.StepSummary {
		t.Fatalf("expected summary step, got %v / %v", v, err)
	}

	inv, err := svc.SaveDraft(ctx, uid, v.ID)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if inv.HERCA == nil || !inv.HERCA.Tools || inv.TWTTPAdvanced != nil {
		t.Errorf("expected only the herca branch to be saved, got %+v", inv)
	}
	if !inv.CreatedAt.Equal(fixedNow) {
		t.Errorf("expected CreatedAt %v, got %v", fixedNow, inv.CreatedAt)
	}

	if _, err := svc.GetDraft(ctx, uid, v.ID); err == nil {
		t.Error("expected draft to be discarded after save")
	}
	if _, err := store.GetInvestigation(ctx, uid, inv.ID); err != nil {
		t.Errorf("investigation not persisted: %v", err)
	}
}

func TestWizard_KnowledgeGapBranchAndBack(t *testing.T) {
	store := newMemStore()
	svc := newInvestigationService(t, store)
	ctx := context.Background()

	v, _ := svc.CreateDraft(ctx, uid)
	v, _ = svc.NextStep(ctx, uid, v.ID, occurrencePatch())

	twttp := answered(v, "sim")
	twttp[1].Answer = " Falta Conhecimento "
	v, err := svc.NextStep(ctx, uid, v.ID, domain.DraftPatch{TWTTP: twttp})
	if err != nil || v.Step != investigation.StepTWTTPAdvanced {
		t.Fatalf("expected advanced step, got %v / %v", v, err)
	}
	v, _ = svc.NextStep(ctx, uid, v.ID, domain.DraftPatch{TWTTPAdvanced: &domain.TWTTPAdvanced{RootCause: "POP desatualizado"}})

	v, err = svc.PreviousStep(ctx, uid, v.ID)
	if err != nil || v.Step != investigation.StepTWTTPAdvanced {
		t.Fatalf("expected back to land on the visited branch, got %v / %v", v, err)
	}
	if v.Draft.TWTTPAdvanced.RootCause != "POP desatualizado" {
		t.Errorf("expected step data to survive navigation")
	}
}

func TestWizard_TWTTPLockedAfterBranch(t *testing.T) {
	svc := newInvestigationService(t, newMemStore())
	ctx := context.Background()

	v, _ := svc.CreateDraft(ctx, uid)
	v, _ = svc.NextStep(ctx, uid, v.ID, occurrencePatch())
	gap := answered(v, "falta conhecimento")
	v, _ = svc.NextStep(ctx, uid, v.ID, domain.DraftPatch{TWTTP: gap})
	v, err := svc.NextStep(ctx, uid, v.ID, domain.DraftPatch{TWTTPAdvanced: &domain.TWTTPAdvanced{RootCause: "POP desatualizado"}})
	if err != nil || v.Step != investigation.StepActionPlan {
		t.Fatalf("expected action plan step, got %v / %v", v, err)
	}

	var terr *domain.ErrInvalidTransition
	_, err = svc.UpdateDraft(ctx, uid, v.ID, domain.DraftPatch{TWTTP: answered(v, "sim")})
	if !errors.As(err, &terr) {
		t.Fatalf("expected invalid transition on late TWTTP edit, got %v", err)
	}
	_, err = svc.NextStep(ctx, uid, v.ID, domain.DraftPatch{TWTTP: answered(v, "sim")})
	if !errors.As(err, &terr) {
		t.Fatalf("expected invalid transition on late TWTTP edit, got %v", err)
	}

	v, err = svc.GetDraft(ctx, uid, v.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !v.Draft.TWTTP.HasKnowledgeGap() || v.Step != investigation.StepActionPlan {
		t.Errorf("draft changed on rejected edit: %+v", v)
	}
}

func TestWizard_InvalidTransitions(t *testing.T) {
	svc := newInvestigationService(t, newMemStore())
	ctx := context.Background()

	v, _ := svc.CreateDraft(ctx, uid)

	_, err := svc.PreviousStep(ctx, uid, v.ID)
	var terr *domain.ErrInvalidTransition
	if !errors.As(err, &terr) {
		t.Fatalf("expected invalid transition on back from step 1, got %v", err)
	}

	_, err = svc.SaveDraft(ctx, uid, v.ID)
	if !errors.As(err, &terr) {
		t.Fatalf("expected invalid transition on early save, got %v", err)
	}

	_, err = svc.NextStep(ctx, uid, v.ID, domain.DraftPatch{})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error without occurrence, got %v", err)
	}

	_, err = svc.GetDraft(ctx, "other", v.ID)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected drafts to be tenant scoped, got %v", err)
	}
}

func TestEditInvestigation_KeepsIDAndCreatedAt(t *testing.T) {
	fixClock(t)
	store := newMemStore()
	svc := newInvestigationService(t, store)
	ctx := context.Background()

	created := fixedNow.Add(-48 * time.Hour)
	store.SaveInvestigation(ctx, &domain.HumanErrorInvestigation{
		ID: "inv-1", UID: uid,
		Occurrence: domain.Occurrence{EmployeeName: "Ana", Date: domain.DateOf(created)},
		TWTTP:      domain.TWTTP{{Question: "Q", Answer: "sim"}},
		HERCA:      &domain.HERCA{Process: true},
		ActionPlan: domain.ActionPlan{Action: "A"},
		CreatedAt:  created,
		UpdatedAt:  created,
	})

	v, err := svc.EditInvestigation(ctx, uid, "inv-1")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if v.Step != investigation.StepOccurrence || v.Draft.InvestigationID != "inv-1" {
		t.Fatalf("expected step 1 draft for inv-1, got %+v", v)
	}
	for v.Step != investigation.StepSummary {
		from := v.StepName
		if v, err = svc.NextStep(ctx, uid, v.ID, domain.DraftPatch{}); err != nil {
			t.Fatalf("next from %s: %v", from, err)
		}
	}

	inv, err := svc.SaveDraft(ctx, uid, v.ID)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if inv.ID != "inv-1" {
		t.Errorf("expected id to be kept, got %s", inv.ID)
	}
	if !inv.CreatedAt.Equal(created) || !inv.UpdatedAt.Equal(fixedNow) {
		t.Errorf("unexpected timestamps: created %v updated %v", inv.CreatedAt, inv.UpdatedAt)
	}
	all, _ := svc.ListInvestigations(ctx, uid)
	if len(all) != 1 {
		t.Errorf("expected re-save to replace, got %d investigations", len(all))
	}
}

func TestListInvestigations_MostRecentFirst(t *testing.T) {
	store := newMemStore()
	svc := newInvestigationService(t, store)
	ctx := context.Background()
	today := domain.DateOf(fixedNow)

	for i, id := range []string{"a", "b", "c"} {
		store.SaveInvestigation(ctx, &domain.HumanErrorInvestigation{
			ID: id, UID: uid, Occurrence: domain.Occurrence{EmployeeName: "X", Date: today.AddDays(-10 + i*3)},
		})
	}
	invs, err := svc.ListInvestigations(ctx, uid)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if invs[0].ID != "c" || invs[2].ID != "a" {
		t.Errorf("unexpected order: %s %s %s", invs[0].ID, invs[1].ID, invs[2].ID)
	}
}
