// Package store is the relational persistence layer. Every handler and
// manager reaches the database through the stores defined here; queries are
// written with ? placeholders and rebound for the active driver.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Base error categories. Callers match them with errors.Is; the specific
// errors below wrap one of them so a single check covers the whole family.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when a required field is missing or malformed.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a write violates a uniqueness rule.
	ErrConflict = errors.New("conflict")

	// ErrNotOwner is returned when a non-owner attempts an owner-only change.
	ErrNotOwner = errors.New("not the owner")

	// ErrNotRecipient is returned when someone other than the recipient
	// tries to accept a friend request.
	ErrNotRecipient = errors.New("not the recipient of this request")

	// ErrStore wraps any other database failure.
	ErrStore = errors.New("store error")
)

var (
	ErrEmptyName    = fmt.Errorf("%w: name must not be empty", ErrValidation)
	ErrSelfTarget   = fmt.Errorf("%w: cannot target yourself", ErrValidation)
	ErrInvalidCoord = fmt.Errorf("%w: coordinates out of range", ErrValidation)

	ErrDuplicateEdge  = fmt.Errorf("%w: a friendship between these users already exists", ErrConflict)
	ErrDuplicateTrack = fmt.Errorf("%w: track is already in this playlist", ErrConflict)
	ErrAlreadyShared  = fmt.Errorf("%w: playlist is already shared with this user", ErrConflict)
	ErrIdentityTaken  = fmt.Errorf("%w: email or phone is already registered", ErrConflict)
)

// Classify maps err onto the store taxonomy. Errors already in the taxonomy
// pass through, sql.ErrNoRows becomes ErrNotFound and anything else is
// wrapped in ErrStore with the driver error kept in the chain.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrNotOwner),
		errors.Is(err, ErrNotRecipient),
		errors.Is(err, ErrStore):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStore, err)
	}
}

// classifyWrite is Classify for INSERT/UPDATE paths: a unique violation
// becomes onConflict and a foreign key violation becomes ErrNotFound.
func classifyWrite(err, onConflict error) error {
	if isUniqueConstraintError(err) {
		return onConflict
	}
	if isForeignKeyError(err) {
		return ErrNotFound
	}
	return Classify(err)
}

// isUniqueConstraintError returns true if err is a UNIQUE constraint violation.
// Works across SQLite, PostgreSQL and MySQL.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // SQLite & PostgreSQL
		strings.Contains(msg, "duplicate key") || // PostgreSQL
		strings.Contains(msg, "duplicate entry") // MySQL
}

func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key constraint")
}

// rebinder is satisfied by *sqlx.DB and *sqlx.Tx.
type rebinder interface {
	Rebind(string) string
}

// in expands a query with an IN (?) clause and rebinds it for db.
func in(db rebinder, query string, args ...any) (string, []any, error) {
	q, a, err := sqlx.In(query, args...)
	if err != nil {
		return "", nil, err
	}
	return db.Rebind(q), a, nil
}

// nullString stores empty strings as NULL.
func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// affected returns ErrNotFound when res touched no rows.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return Classify(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
