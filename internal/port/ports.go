// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/investigation"
)

// Every store method is scoped by uid, the owning supervisor. Writes are
// independent point upserts: concurrent edits of the same document are
// last-write-wins.

// OperatorStore persists operators.
type OperatorStore interface {
	ListOperators(ctx context.Context, uid string) ([]domain.Operator, error)
	GetOperator(ctx context.Context, uid, id string) (*domain.Operator, error)
	SaveOperator(ctx context.Context, op *domain.Operator) error
	DeleteOperator(ctx context.Context, uid, id string) error
}

// SkillConfigStore persists skill configs.
type SkillConfigStore interface {
	ListSkillConfigs(ctx context.Context, uid string) ([]domain.SkillConfig, error)
	SaveSkillConfig(ctx context.Context, cfg *domain.SkillConfig) error
}

// ProcedureStore persists POPs.
type ProcedureStore interface {
	ListProcedures(ctx context.Context, uid string) ([]domain.Procedure, error)
	SaveProcedure(ctx context.Context, p *domain.Procedure) error
	DeleteProcedure(ctx context.Context, uid, id string) error
}

// TrainingStore persists training records.
type TrainingStore interface {
	ListTrainingRecords(ctx context.Context, uid string) ([]domain.TrainingRecord, error)
	SaveTrainingRecord(ctx context.Context, rec *domain.TrainingRecord) error
}

// InvestigationStore persists saved investigations.
type InvestigationStore interface {
	ListInvestigations(ctx context.Context, uid string) ([]domain.HumanErrorInvestigation, error)
	GetInvestigation(ctx context.Context, uid, id string) (*domain.HumanErrorInvestigation, error)
	SaveInvestigation(ctx context.Context, inv *domain.HumanErrorInvestigation) error
}

// PDIStore persists career plans.
type PDIStore interface {
	ListPDIs(ctx context.Context, uid string) ([]domain.PDI, error)
	GetPDI(ctx context.Context, uid, id string) (*domain.PDI, error)
	SavePDI(ctx context.Context, p *domain.PDI) error
}

// Store is the full document store, implemented by the Supabase and SQLite
// adapters.
type Store interface {
	OperatorStore
	SkillConfigStore
	ProcedureStore
	TrainingStore
	InvestigationStore
	PDIStore

	Ping(ctx context.Context) error
}

// DraftStore keeps unsaved investigation wizards between requests.
type DraftStore interface {
	SaveDraft(ctx context.Context, uid, draftID string, snap investigation.Snapshot) error
	LoadDraft(ctx context.Context, uid, draftID string) (*investigation.Snapshot, error)
	DeleteDraft(ctx context.Context, uid, draftID string) error
}

// TextGenerator invokes the LLM text-generation service.
type TextGenerator interface {
	Generate(ctx context.Context, req *domain.GenerationRequest) (*domain.GenerationResult, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	DeletePrefix(prefix string)
}
