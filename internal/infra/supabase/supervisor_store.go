package supabase

import (
	"context"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
)

// ============================================================
// Operators & skill configs
// ============================================================

func (c *Client) ListOperators(ctx context.Context, uid string) ([]domain.Operator, error) {
	return listDocs[domain.Operator](ctx, c, tableOperators, uid)
}

func (c *Client) GetOperator(ctx context.Context, uid, id string) (*domain.Operator, error) {
	return getDoc[domain.Operator](ctx, c, tableOperators, uid, id)
}

func (c *Client) SaveOperator(ctx context.Context, op *domain.Operator) error {
	return upsertDoc(ctx, c, tableOperators, op.UID, op.ID, op)
}

func (c *Client) DeleteOperator(ctx context.Context, uid, id string) error {
	return deleteDoc(ctx, c, tableOperators, uid, id)
}

func (c *Client) ListSkillConfigs(ctx context.Context, uid string) ([]domain.SkillConfig, error) {
	return listDocs[domain.SkillConfig](ctx, c, tableSkillConfigs, uid)
}

func (c *Client) SaveSkillConfig(ctx context.Context, cfg *domain.SkillConfig) error {
	return upsertDoc(ctx, c, tableSkillConfigs, cfg.UID, cfg.ID, cfg)
}

// ============================================================
// POPs & training
// ============================================================

func (c *Client) ListProcedures(ctx context.Context, uid string) ([]domain.Procedure, error) {
	return listDocs[domain.Procedure](ctx, c, tableProcedures, uid)
}

func (c *Client) SaveProcedure(ctx context.Context, p *domain.Procedure) error {
	return upsertDoc(ctx, c, tableProcedures, p.UID, p.ID, p)
}

func (c *Client) DeleteProcedure(ctx context.Context, uid, id string) error {
	return deleteDoc(ctx, c, tableProcedures, uid, id)
}

func (c *Client) ListTrainingRecords(ctx context.Context, uid string) ([]domain.TrainingRecord, error) {
	return listDocs[domain.TrainingRecord](ctx, c, tableTraining, uid)
}

// SaveTrainingRecord upserts by composite key; the record id is derived from it.
func (c *Client) SaveTrainingRecord(ctx context.Context, rec *domain.TrainingRecord) error {
	rec.ID = rec.Key().String()
	return upsertDoc(ctx, c, tableTraining, rec.UID, rec.ID, rec)
}

// ============================================================
// Investigations & PDIs
// ============================================================

func (c *Client) ListInvestigations(ctx context.Context, uid string) ([]domain.HumanErrorInvestigation, error) {
	return listDocs[domain.HumanErrorInvestigation](ctx, c, tableInvestigations, uid)
}

func (c *Client) GetInvestigation(ctx context.Context, uid, id string) (*domain.HumanErrorInvestigation, error) {
	return getDoc[domain.HumanErrorInvestigation](ctx, c, tableInvestigations, uid, id)
}

func (c *Client) SaveInvestigation(ctx context.Context, inv *domain.HumanErrorInvestigation) error {
	return upsertDoc(ctx, c, tableInvestigations, inv.UID, inv.ID, inv)
}

func (c *Client) ListPDIs(ctx context.Context, uid string) ([]domain.PDI, error) {
	return listDocs[domain.PDI](ctx, c, tablePDIs, uid)
}

func (c *Client) GetPDI(ctx context.Context, uid, id string) (*domain.PDI, error) {
	return getDoc[domain.PDI](ctx, c, tablePDIs, uid, id)
}

func (c *Client) SavePDI(ctx context.Context, p *domain.PDI) error {
	return upsertDoc(ctx, c, tablePDIs, p.UID, p.ID, p)
}
