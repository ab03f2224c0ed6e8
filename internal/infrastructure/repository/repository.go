// Package repository holds the PostgreSQL implementations of the service
// layer's repository interfaces. Every query carries the activo = TRUE
// predicate: soft-deleted rows are invisible to the workflow core.
package repository

import (
	"context"
	stderrors "errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qmscore/quality-compliance-backend/internal/domain/errors"
	"github.com/qmscore/quality-compliance-backend/internal/infrastructure/database"
)

const uniqueViolationCode = "23505"

// querier resolves the statement target for a call: the transaction carried
// by ctx when a workflow operation is in flight, the pool otherwise.
func querier(ctx context.Context, db *pgxpool.Pool) database.Querier {
	return database.QuerierFromContext(ctx, db)
}

// translateError maps driver-level failures onto the domain error taxonomy.
// resource names the entity for not-found messages.
func translateError(err error, resource string) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.NewNotFoundError(resource)
	}
	var pgErr *pgconn.PgError
	if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return errors.NewConflictError(resource + " already exists").WithCause(err)
	}
	return errors.NewInternalError("database operation failed").WithCause(err)
}
