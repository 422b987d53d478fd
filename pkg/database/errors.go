package database

import (
	"strings"

	"github.com/lib/pq"
	"github.com/visaeval/visaeval-backend/pkg/errors"
)

// MapPQError converts a postgres error to an AppError, or returns nil when err
// is not a *pq.Error or has no dedicated mapping.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case "23514": // check_violation
		return mapCheckConstraint(pqErr)
	case "23505": // unique_violation
		if strings.Contains(pqErr.Constraint, "pkey") {
			return errors.Conflict("an evaluation with this id already exists")
		}
		return errors.Conflict("a record with these values already exists")
	case "23502": // not_null_violation
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{col: "must not be empty"})
	case "22P02": // invalid_text_representation, e.g. a malformed uuid
		return errors.BadRequest("malformed identifier")
	default:
		return nil
	}
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	switch c := pqErr.Constraint; {
	case strings.Contains(c, "score_range"):
		return errors.Validation(map[string]string{"score": "must be between 0 and 100"})
	case strings.Contains(c, "confidence_range"):
		return errors.Validation(map[string]string{"confidence": "must be between 50 and 95"})
	case strings.Contains(c, "status_valid"):
		return errors.Validation(map[string]string{"status": "must be one of: completed, failed"})
	default:
		return errors.BadRequest("data validation failed: " + c)
	}
}
