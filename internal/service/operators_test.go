package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/catalog"
	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/cache"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/observability"
	"github.com/boddenberg/supervisor-bfa-go/internal/service"
	"github.com/boddenberg/supervisor-bfa-go/internal/skills"

	"go.uber.org/zap"
)

func newOperatorService(t *testing.T, store *memStore) *service.OperatorService {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	c := cache.New[any](time.Minute)
	t.Cleanup(c.Stop)
	return service.NewOperatorService(store, store, skills.NewResolver(skills.DefaultTargetLevel), cat, c, observability.NewMetrics(), zap.NewNop())
}

func TestRegisterOperator_SeedsSkillsFromConfigs(t *testing.T) {
	store := newMemStore()
	store.SaveSkillConfig(context.Background(), &domain.SkillConfig{
		ID: "c1", UID: uid, Name: "Empilhadeira", RolePrereqs: map[string]int{"OPERADOR II": 3},
	})
	store.SaveSkillConfig(context.Background(), &domain.SkillConfig{
		ID: "c2", UID: uid, Name: "Solda", RolePrereqs: map[string]int{"LIDER": 4},
	})
	svc := newOperatorService(t, store)

	op, err := svc.RegisterOperator(context.Background(), uid, service.OperatorInput{Name: " Ana ", Role: "operador ii"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if op.Name != "Ana" || op.Role != "OPERADOR II" {
		t.Errorf("unexpected normalisation: %q / %q", op.Name, op.Role)
	}
	if got := op.Skills["EMPILHADEIRA"]; got.Target != 3 || got.Real != nil {
		t.Errorf("expected role target 3 unassessed, got %+v", got)
	}
	if got := op.Skills["SOLDA"]; got.Target != skills.DefaultTargetLevel {
		t.Errorf("expected default target for unlisted role, got %d", got.Target)
	}
	if _, err := store.GetOperator(context.Background(), uid, op.ID); err != nil {
		t.Errorf("operator not persisted: %v", err)
	}
}

func TestRegisterOperator_Validation(t *testing.T) {
	svc := newOperatorService(t, newMemStore())

	_, err := svc.RegisterOperator(context.Background(), uid, service.OperatorInput{Name: "", Role: "X"})
	var verr *domain.ErrValidation
	if !errors.As(err, &verr) || verr.Field != "name" {
		t.Fatalf("expected name validation error, got %v", err)
	}

	_, err = svc.RegisterOperator(context.Background(), "", service.OperatorInput{Name: "Ana", Role: "X"})
	var uerr *domain.ErrUnauthorized
	if !errors.As(err, &uerr) {
		t.Fatalf("expected unauthorized without uid, got %v", err)
	}
}

func TestSaveSkillConfig_BackfillsExistingOperators(t *testing.T) {
	store := newMemStore()
	svc := newOperatorService(t, store)
	ctx := context.Background()

	ana, _ := svc.RegisterOperator(ctx, uid, service.OperatorInput{Name: "Ana", Role: "Operador I"})
	bia, _ := svc.RegisterOperator(ctx, uid, service.OperatorInput{Name: "Bia", Role: "Lider"})

	res, err := svc.SaveSkillConfig(ctx, uid, domain.SkillConfig{
		Name: "  torno  cnc ", RolePrereqs: map[string]int{"operador i": 1},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res.OperatorsUpdated != 2 {
		t.Errorf("expected 2 operators backfilled, got %d", res.OperatorsUpdated)
	}

	got, _ := store.GetOperator(ctx, uid, ana.ID)
	if lvl := got.Skills["TORNO CNC"]; lvl.Target != 1 || lvl.Real != nil {
		t.Errorf("ana: expected target 1 unassessed, got %+v", lvl)
	}
	got, _ = store.GetOperator(ctx, uid, bia.ID)
	if lvl := got.Skills["TORNO CNC"]; lvl.Target != skills.DefaultTargetLevel {
		t.Errorf("bia: expected default target, got %+v", lvl)
	}

	// Same skill under another spelling updates the existing config.
	res2, err := svc.SaveSkillConfig(ctx, uid, domain.SkillConfig{Name: "TORNO CNC", RolePrereqs: map[string]int{"OPERADOR I": 3}})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if res2.Config.ID != res.Config.ID {
		t.Errorf("expected config id %s to be reused, got %s", res.Config.ID, res2.Config.ID)
	}
	configs, _ := svc.ListSkillConfigs(ctx, uid)
	if len(configs) != 1 {
		t.Fatalf("expected 1 config, got %d", len(configs))
	}
	got, _ = store.GetOperator(ctx, uid, ana.ID)
	if lvl := got.Skills["TORNO CNC"]; lvl.Target != 3 {
		t.Errorf("expected retargeted level 3, got %d", lvl.Target)
	}
}

func TestSeedSkillConfigs_Idempotent(t *testing.T) {
	store := newMemStore()
	svc := newOperatorService(t, store)
	ctx := context.Background()

	first, err := svc.SeedSkillConfigs(ctx, uid)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(first) == 0 {
		t.Fatal("expected catalog skills to be created")
	}
	second, err := svc.SeedSkillConfigs(ctx, uid)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(second) != 0 {
		t.Errorf("expected nothing created on reseed, got %d", len(second))
	}
}

func TestToggleSkillLevel_Cycles(t *testing.T) {
	store := newMemStore()
	svc := newOperatorService(t, store)
	ctx := context.Background()

	op, _ := svc.RegisterOperator(ctx, uid, service.OperatorInput{Name: "Ana", Role: "Operador I"})

	want := []int{0, 1, 2, 3, 4, 0}
	for i, w := range want {
		got, err := svc.ToggleSkillLevel(ctx, uid, op.ID, "prensa")
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		lvl := got.Skills["PRENSA"]
		if lvl.Real == nil || *lvl.Real != w {
			t.Fatalf("toggle %d: expected %d, got %v", i, w, lvl.Real)
		}
		if lvl.Target != skills.DefaultTargetLevel {
			t.Fatalf("toggle %d: expected default target, got %d", i, lvl.Target)
		}
	}
}

func TestSetSkillLevel(t *testing.T) {
	store := newMemStore()
	svc := newOperatorService(t, store)
	ctx := context.Background()
	op, _ := svc.RegisterOperator(ctx, uid, service.OperatorInput{Name: "Ana", Role: "Operador I"})

	if _, err := svc.SetSkillLevel(ctx, uid, op.ID, "Prensa", domain.Level(5)); err == nil {
		t.Fatal("expected out of range level to be rejected")
	}

	got, err := svc.SetSkillLevel(ctx, uid, op.ID, "Prensa", domain.Level(3))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if *got.Skills["PRENSA"].Real != 3 {
		t.Errorf("expected real 3, got %v", got.Skills["PRENSA"].Real)
	}

	got, err = svc.SetSkillLevel(ctx, uid, op.ID, "Prensa", nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Skills["PRENSA"].Real != nil {
		t.Errorf("expected skill to be unassessed again")
	}

	_, err = svc.SetSkillLevel(ctx, uid, "missing", "Prensa", domain.Level(1))
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeleteOperator_NotFound(t *testing.T) {
	svc := newOperatorService(t, newMemStore())
	err := svc.DeleteOperator(context.Background(), uid, "nope")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListOperators_TenantScopedAndSorted(t *testing.T) {
	store := newMemStore()
	svc := newOperatorService(t, store)
	ctx := context.Background()

	svc.RegisterOperator(ctx, uid, service.OperatorInput{Name: "carla", Role: "X"})
	svc.RegisterOperator(ctx, uid, service.OperatorInput{Name: "Ana", Role: "X"})
	svc.RegisterOperator(ctx, "other", service.OperatorInput{Name: "Zeca", Role: "X"})

	ops, err := svc.ListOperators(ctx, uid)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(ops) != 2 || ops[0].Name != "Ana" || ops[1].Name != "carla" {
		t.Errorf("unexpected operators: %+v", ops)
	}
}

func TestMatrix_Totals(t *testing.T) {
	store := newMemStore()
	svc := newOperatorService(t, store)
	ctx := context.Background()

	svc.SaveSkillConfig(ctx, uid, domain.SkillConfig{Name: "Prensa", RolePrereqs: map[string]int{"X": 3}})
	op, _ := svc.RegisterOperator(ctx, uid, service.OperatorInput{Name: "Ana", Role: "X"})
	svc.SetSkillLevel(ctx, uid, op.ID, "Prensa", domain.Level(0))

	m, err := svc.Matrix(ctx, uid)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(m.Rows) != 1 || m.Totals.Critical != 1 {
		t.Errorf("expected one critical cell, got %+v", m.Totals)
	}
}

func TestListOperators_StoreError(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("boom")
	svc := newOperatorService(t, store)

	if _, err := svc.ListOperators(context.Background(), uid); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
