// Package store is the data-access layer over the entity tables. It enforces
// referential integrity and ownership scoping before mutating, and surfaces
// failures as typed sentinel errors the transport maps to status codes.
package store

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrNotFound covers absent rows and rows filtered by soft-delete or
	// ownership scoping; the two are deliberately indistinguishable.
	ErrNotFound = errors.New("not_found")
	// ErrConflict is a uniqueness violation (username, email).
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference is a failed foreign-key existence check, raised
	// before the mutation rather than as a raw constraint error.
	ErrInvalidReference = errors.New("invalid_reference")
)

// isDuplicate matches uniqueness violations across postgres and sqlite.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique constraint")
}
