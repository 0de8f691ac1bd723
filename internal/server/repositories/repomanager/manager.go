package repomanager

import (
	"context"

	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/records"
)

// RepositoryManager vends record repositories and runs work atomically.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	// Records returns a repository that is not bound to a transaction.
	Records() records.Repository
	// InTx runs fn with a repository bound to one transaction. The
	// transaction commits when fn returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context, repo records.Repository) error) error
	Close() error
}
