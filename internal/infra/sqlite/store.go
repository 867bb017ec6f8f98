// Package sqlite implements the supervisor document store on an embedded
// SQLite database. Every collection shares one table keyed by
// (collection, uid, id) with the JSON document in a text column, mirroring
// the Supabase layout so both backends serve the same port.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var tracer = otel.Tracer("sqlite")

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const (
	collOperators      = "operators"
	collSkillConfigs   = "skill_configs"
	collProcedures     = "procedures"
	collTraining       = "training_records"
	collInvestigations = "investigations"
	collPDIs           = "pdis"
)

// Store is the SQLite document store.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// New opens (creating if needed) supervisor.db under dataDir and runs
// migrations.
func New(dataDir string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("sqlite: create data dir: %w", err)
	}

	dbPath := filepath.Join(dataDir, "supervisor.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migration: %w", err)
	}
	logger.Info("sqlite store ready", zap.String("path", dbPath))
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			uid        TEXT NOT NULL,
			id         TEXT NOT NULL,
			doc        TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (collection, uid, id)
		);
		CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(collection, uid);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Generic document access ─────────────────────────────────────────────────

func listDocs[T any](ctx context.Context, s *Store, coll, uid string) ([]T, error) {
	ctx, span := tracer.Start(ctx, "SQLite.List")
	defer span.End()
	span.SetAttributes(attribute.String("collection", coll))

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc FROM documents WHERE collection = ? AND uid = ? ORDER BY id`, coll, uid)
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "sqlite/" + coll, Err: err}
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, &domain.ErrExternalService{Service: "sqlite/" + coll, Err: err}
		}
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("sqlite: decode %s/%s: %w", coll, id, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.ErrExternalService{Service: "sqlite/" + coll, Err: err}
	}
	return out, nil
}

func getDoc[T any](ctx context.Context, s *Store, coll, uid, id string) (*T, error) {
	ctx, span := tracer.Start(ctx, "SQLite.Get")
	defer span.End()
	span.SetAttributes(attribute.String("collection", coll), attribute.String("doc.id", id))

	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE collection = ? AND uid = ? AND id = ?`, coll, uid, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, &domain.ErrNotFound{Resource: coll, ID: id}
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "sqlite/" + coll, Err: err}
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("sqlite: decode %s/%s: %w", coll, id, err)
	}
	return &v, nil
}

func upsertDoc(ctx context.Context, s *Store, coll, uid, id string, doc any) error {
	ctx, span := tracer.Start(ctx, "SQLite.Upsert")
	defer span.End()
	span.SetAttributes(attribute.String("collection", coll), attribute.String("doc.id", id))

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("sqlite: encode %s: %w", coll, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, uid, id, doc, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (collection, uid, id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		coll, uid, id, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return &domain.ErrExternalService{Service: "sqlite/" + coll, Err: err}
	}
	s.logger.Debug("sqlite: upsert OK", zap.String("collection", coll), zap.String("id", id))
	return nil
}

func deleteDoc(ctx context.Context, s *Store, coll, uid, id string) error {
	ctx, span := tracer.Start(ctx, "SQLite.Delete")
	defer span.End()

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND uid = ? AND id = ?`, coll, uid, id)
	if err != nil {
		return &domain.ErrExternalService{Service: "sqlite/" + coll, Err: err}
	}
	return nil
}

// ─── Collections ─────────────────────────────────────────────────────────────

func (s *Store) ListOperators(ctx context.Context, uid string) ([]domain.Operator, error) {
	return listDocs[domain.Operator](ctx, s, collOperators, uid)
}

func (s *Store) GetOperator(ctx context.Context, uid, id string) (*domain.Operator, error) {
	return getDoc[domain.Operator](ctx, s, collOperators, uid, id)
}

func (s *Store) SaveOperator(ctx context.Context, op *domain.Operator) error {
	return upsertDoc(ctx, s, collOperators, op.UID, op.ID, op)
}

func (s *Store) DeleteOperator(ctx context.Context, uid, id string) error {
	return deleteDoc(ctx, s, collOperators, uid, id)
}

func (s *Store) ListSkillConfigs(ctx context.Context, uid string) ([]domain.SkillConfig, error) {
	return listDocs[domain.SkillConfig](ctx, s, collSkillConfigs, uid)
}

func (s *Store) SaveSkillConfig(ctx context.Context, cfg *domain.SkillConfig) error {
	return upsertDoc(ctx, s, collSkillConfigs, cfg.UID, cfg.ID, cfg)
}

func (s *Store) ListProcedures(ctx context.Context, uid string) ([]domain.Procedure, error) {
	return listDocs[domain.Procedure](ctx, s, collProcedures, uid)
}

func (s *Store) SaveProcedure(ctx context.Context, p *domain.Procedure) error {
	return upsertDoc(ctx, s, collProcedures, p.UID, p.ID, p)
}

func (s *Store) DeleteProcedure(ctx context.Context, uid, id string) error {
	return deleteDoc(ctx, s, collProcedures, uid, id)
}

func (s *Store) ListTrainingRecords(ctx context.Context, uid string) ([]domain.TrainingRecord, error) {
	return listDocs[domain.TrainingRecord](ctx, s, collTraining, uid)
}

// SaveTrainingRecord upserts by composite key; the record id is derived from it.
func (s *Store) SaveTrainingRecord(ctx context.Context, rec *domain.TrainingRecord) error {
	rec.ID = rec.Key().String()
	return upsertDoc(ctx, s, collTraining, rec.UID, rec.ID, rec)
}

func (s *Store) ListInvestigations(ctx context.Context, uid string) ([]domain.HumanErrorInvestigation, error) {
	return listDocs[domain.HumanErrorInvestigation](ctx, s, collInvestigations, uid)
}

func (s *Store) GetInvestigation(ctx context.Context, uid, id string) (*domain.HumanErrorInvestigation, error) {
	return getDoc[domain.HumanErrorInvestigation](ctx, s, collInvestigations, uid, id)
}

func (s *Store) SaveInvestigation(ctx context.Context, inv *domain.HumanErrorInvestigation) error {
	return upsertDoc(ctx, s, collInvestigations, inv.UID, inv.ID, inv)
}

func (s *Store) ListPDIs(ctx context.Context, uid string) ([]domain.PDI, error) {
	return listDocs[domain.PDI](ctx, s, collPDIs, uid)
}

func (s *Store) GetPDI(ctx context.Context, uid, id string) (*domain.PDI, error) {
	return getDoc[domain.PDI](ctx, s, collPDIs, uid, id)
}

func (s *Store) SavePDI(ctx context.Context, p *domain.PDI) error {
	return upsertDoc(ctx, s, collPDIs, p.UID, p.ID, p)
}
