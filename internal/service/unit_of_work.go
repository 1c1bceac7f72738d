package service

import (
	"context"
	"database/sql"

	"github.com/phrazzld/studyloop/internal/store"
)

// Stores groups the repositories the services work with.
type Stores struct {
	Resources  store.ResourceStore
	Blocks     store.BlockStore
	Units      store.UnitStore
	Ingestions store.IngestionStore
}

// UnitOfWork runs fn with every store bound to one transaction. The
// transaction commits when fn returns nil.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Stores) error) error
}

// SQLUnitOfWork implements UnitOfWork with database/sql transactions.
type SQLUnitOfWork struct {
	db     store.TxBeginner
	stores Stores
}

// NewSQLUnitOfWork creates a unit of work over db.
func NewSQLUnitOfWork(db store.TxBeginner, stores Stores) *SQLUnitOfWork {
	return &SQLUnitOfWork{db: db, stores: stores}
}

// Do implements UnitOfWork.
func (u *SQLUnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx Stores) error) error {
	return store.RunInTransaction(ctx, u.db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, Stores{
			Resources:  u.stores.Resources.WithTx(tx),
			Blocks:     u.stores.Blocks.WithTx(tx),
			Units:      u.stores.Units.WithTx(tx),
			Ingestions: u.stores.Ingestions.WithTx(tx),
		})
	})
}
