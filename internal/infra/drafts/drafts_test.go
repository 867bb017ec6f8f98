package drafts_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/drafts"
	"github.com/boddenberg/supervisor-bfa-go/internal/investigation"
	"github.com/boddenberg/supervisor-bfa-go/internal/port"

	"go.uber.org/zap"
)

func sampleSnapshot() investigation.Snapshot {
	c := investigation.New()
	c.Update(domain.DraftPatch{
		Occurrence: &domain.Occurrence{EmployeeName: "Ana", Area: "Usinagem"},
		TWTTP:      domain.TWTTP{{Question: "Q1", Answer: "sim"}},
	})
	c.Next()
	return c.Snapshot()
}

// exerciseStore runs the shared contract against any draft store.
func exerciseStore(t *testing.T, s port.DraftStore) {
	t.Helper()
	ctx := context.Background()

	if err := s.SaveDraft(ctx, "u1", "d1", sampleSnapshot()); err != nil {
		t.Fatalf("SaveDraft: %v", err)
	}

	got, err := s.LoadDraft(ctx, "u1", "d1")
	if err != nil {
		t.Fatalf("LoadDraft: %v", err)
	}
	if got.Step != investigation.StepTWTTP || got.Draft.Occurrence.Area != "Usinagem" {
		t.Errorf("unexpected snapshot %+v", got)
	}

	var nf *domain.ErrNotFound
	if _, err := s.LoadDraft(ctx, "u2", "d1"); !errors.As(err, &nf) {
		t.Errorf("expected drafts to be scoped by uid, got %v", err)
	}

	if err := s.DeleteDraft(ctx, "u1", "d1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.LoadDraft(ctx, "u1", "d1"); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := drafts.NewMemoryStore(time.Minute)
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := drafts.NewMemoryStore(30 * time.Millisecond)
	defer s.Close()
	ctx := context.Background()

	s.SaveDraft(ctx, "u1", "d1", sampleSnapshot())
	time.Sleep(60 * time.Millisecond)

	if _, err := s.LoadDraft(ctx, "u1", "d1"); err == nil {
		t.Fatal("expected expired draft")
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; Redis draft store not exercised")
	}
	s, err := drafts.NewRedisStore(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0, time.Minute, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}
