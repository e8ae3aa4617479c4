// Package store implements the bulk pipeline's datastore boundary on
// PostgreSQL via pgx. One Store serves both the entity tables and the
// import/export job bookkeeping; InTx hands the pipeline a transactional
// view with read-your-writes semantics so apply can commit per chunk.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Hugoguevara91/eagl-backend/internal/bulk"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store talks to the database. pool is nil inside a transaction.
type Store struct {
	pool *pgxpool.Pool
	db   DBTX
}

// New creates a Store backed by a connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, db: pool}
}

// InTx runs fn against a transactional Store and commits on success. Nested
// calls reuse the ambient transaction.
func (s *Store) InTx(ctx context.Context, fn func(bulk.Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// findID runs a single-column lookup, mapping no-rows to "".
func (s *Store) findID(ctx context.Context, sql string, args ...any) (string, error) {
	var id string
	err := s.db.QueryRow(ctx, sql, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}
