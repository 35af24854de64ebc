package errorz

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound indicates a resource (token, user, article..) does not exist.
	// The web layer maps it to a 404 response.
	ErrNotFound = errors.New("not found")
	// ErrConstraintViolated indicates the database rejected a write.
	ErrConstraintViolated = errors.New("constraint violated")
)

// MapDBErr maps database errors to the appropriate errorz errors.
// If err is nil, MapDBErr returns nil.
func MapDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	sErr := sqlite3.Error{}
	if errors.As(err, &sErr) {
		if sErr.Code == sqlite3.ErrConstraint {
			return ErrConstraintViolated
		}
	}

	return err
}
