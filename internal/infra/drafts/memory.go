package drafts

import (
	"context"
	"time"

	"github.com/boddenberg/supervisor-bfa-go/internal/domain"
	"github.com/boddenberg/supervisor-bfa-go/internal/infra/cache"
	"github.com/boddenberg/supervisor-bfa-go/internal/investigation"
)

// MemoryStore keeps drafts in process; they are lost on restart.
type MemoryStore struct {
	items *cache.InMemory[investigation.Snapshot]
}

// NewMemoryStore creates an in-process draft store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: cache.New[investigation.Snapshot](ttl)}
}

func (s *MemoryStore) SaveDraft(_ context.Context, uid, draftID string, snap investigation.Snapshot) error {
	s.items.Set(draftKey(uid, draftID), snap)
	return nil
}

func (s *MemoryStore) LoadDraft(_ context.Context, uid, draftID string) (*investigation.Snapshot, error) {
	snap, ok := s.items.Get(draftKey(uid, draftID))
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "draft", ID: draftID}
	}
	return &snap, nil
}

func (s *MemoryStore) DeleteDraft(_ context.Context, uid, draftID string) error {
	s.items.Delete(draftKey(uid, draftID))
	return nil
}

// Close stops the background expiry sweep.
func (s *MemoryStore) Close() error {
	s.items.Stop()
	return nil
}
