package repository

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/SyedWaqas82/ConnectFlow-sub001/internal/domain"
)

// mapPgError translates PostgreSQL error codes into the domain taxonomy.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return domain.ErrConflict
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return domain.ErrConcurrencyConflict
		case pgerrcode.ForeignKeyViolation:
			return domain.ErrNotFound
		}
	}
	return err
}
