package db

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/timeshards/timeshards/internal/auth"
)

type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// CreateUser creates a user in the database.
func (t *Tx) CreateUser(u *auth.User) error {
	return insertUser(t.tx.Exec, u)
}

// UpdateUser updates a user in the database.
// It returns errorz.ErrNotFound if no user is found.
func (t *Tx) UpdateUser(u *auth.User) error {
	return updateUser(t.tx.Exec, u)
}

// FindUsers queries for users based on the provided filter.
// It returns an empty slice if no users are found.
func (t *Tx) FindUsers(filter *auth.UserFilter) ([]auth.User, error) {
	return selectUsers(t.tx.Query, filter)
}

// CreateEmailToken creates an email token in the database.
func (t *Tx) CreateEmailToken(tok *auth.EmailToken) error {
	return insertEmailToken(t.tx.Exec, tok)
}

// DeleteEmailToken deletes the email token with the provided id.
// Deleting an already deleted token is a no-op, the consume paths rely
// on the exact-value lookup to report not-found instead.
func (t *Tx) DeleteEmailToken(id uuid.UUID) error {
	return deleteEmailToken(t.tx.Exec, id)
}

// FindEmailTokens queries for email tokens based on the provided filter.
func (t *Tx) FindEmailTokens(filter *auth.EmailTokenFilter) ([]auth.EmailToken, error) {
	return selectEmailTokens(t.tx.Query, filter)
}
