package database

import (
	"errors"

	"github.com/lib/pq"
)

// ErrIllegalTransition is returned when a status update would move a session,
// URL, or article backward.
var ErrIllegalTransition = errors.New("illegal status transition")

// ErrNotFound is returned when a row keyed by id does not exist.
var ErrNotFound = errors.New("record not found")

// Persistence error categories recorded on audit rows.
const (
	ErrorCategoryDuplicateKey = "duplicate_key"
	ErrorCategoryEncoding     = "encoding"
	ErrorCategoryMissingField = "missing_required_field"
	ErrorCategoryOther        = "other"
)

// CategorizeError maps a persistence failure onto the audit categories.
func CategorizeError(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrorCategoryDuplicateKey
		case "22021", "22P05":
			return ErrorCategoryEncoding
		case "23502":
			return ErrorCategoryMissingField
		}
	}
	return ErrorCategoryOther
}
