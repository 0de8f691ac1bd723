// Package repositories vends the SQLite-backed repositories of the local
// store, each bound to whichever DBTX (pool or transaction) the caller holds.
package repositories

import (
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/domains"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/slots"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/tags"
	"github.com/dmitrijs2005/timekeeper/internal/dbx"
)

type Manager interface {
	Domains(db dbx.DBTX) domains.Repository
	Tags(db dbx.DBTX) tags.Repository
	Slots(db dbx.DBTX) slots.Repository
	Metadata(db dbx.DBTX) metadata.Repository
}

type SQLiteManager struct{}

func NewSQLiteManager() *SQLiteManager {
	return &SQLiteManager{}
}

func (m *SQLiteManager) Domains(db dbx.DBTX) domains.Repository {
	return domains.NewSQLiteRepository(db)
}

func (m *SQLiteManager) Tags(db dbx.DBTX) tags.Repository {
	return tags.NewSQLiteRepository(db)
}

func (m *SQLiteManager) Slots(db dbx.DBTX) slots.Repository {
	return slots.NewSQLiteRepository(db)
}

func (m *SQLiteManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}
