// Package store is the Postgres persistence behind the order package
// interfaces.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/mangadesu/premiumbot/internal/order"
)

// Store wraps the database handle. It implements order.Store and
// order.EngineStore.
type Store struct {
	db *sqlx.DB
}

// New builds a Store over an open connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// InTx runs fn inside one transaction. The activation engine relies on
// this so the subscriber credit and the order confirmation land together.
func (s *Store) InTx(ctx context.Context, fn func(order.EngineTx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(&engineTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
