package apperrors

import (
	"context"
	"errors"

	"tprmgrc/internal/repositories/sqlserver"
)

// FromStore maps a store error onto the taxonomy. entity names the row
// kind for NotFound messages. Errors already in the taxonomy pass through.
func FromStore(err error, entity string, id interface{}) error {
	if err == nil {
		return nil
	}

	var ae *Error
	if errors.As(err, &ae) {
		return err
	}

	var unique *sqlserver.UniqueConflictError
	var fk *sqlserver.ForeignKeyError

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &Error{Kind: KindDeadlineExceeded, Message: "request deadline exceeded", Err: err}
	case errors.Is(err, sqlserver.ErrNotFound):
		return NotFound(entity, id)
	case errors.As(err, &unique):
		return &Error{Kind: KindConflict, Message: unique.Field + " already exists", Field: unique.Field, Err: err}
	case errors.As(err, &fk):
		return &Error{
			Kind:    KindValidation,
			Message: "referenced row does not exist",
			Field:   fk.Field,
			Fields:  map[string]string{fk.Field: "referenced row does not exist"},
			Err:     err,
		}
	case errors.Is(err, sqlserver.ErrOptimisticLock):
		return &Error{Kind: KindConflict, Message: entity + " was modified concurrently, reload and retry", Field: "row_version", Err: err}
	default:
		return Internal(err)
	}
}
