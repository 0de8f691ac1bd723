package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/records"
)

// MemoryRepositoryManager keeps everything in process. Transactions run one
// at a time against a copy that replaces the live data on success.
type MemoryRepositoryManager struct {
	mu    sync.Mutex
	store *records.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{store: records.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *MemoryRepositoryManager) Records() records.Repository {
	return m.store
}

func (m *MemoryRepositoryManager) InTx(ctx context.Context, fn func(ctx context.Context, repo records.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	scratch := m.store.Clone()
	if err := fn(ctx, scratch); err != nil {
		return err
	}
	m.store.ReplaceWith(scratch)
	return nil
}

func (m *MemoryRepositoryManager) Close() error {
	return nil
}
