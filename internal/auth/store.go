package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/timeshards/timeshards/internal/email"
	"github.com/timeshards/timeshards/internal/krypto"
)

// UserFilter is used to filter users.
// Returned users must match all the provided fields.
// If a field is empty or nil, it's ignored.
type UserFilter struct {
	IDs         []uuid.UUID
	Emails      []email.Address
	IsActivated *bool
}

// EmailTokenFilter is used to filter email tokens.
// Returned tokens must match all the provided fields.
// If a field is empty or nil, it's ignored.
type EmailTokenFilter struct {
	IDs      []uuid.UUID
	Tokens   []krypto.Token
	Emails   []email.Address
	Purposes []TokenPurpose
}

// Store provides access to the user and token stores.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx is a transaction. If an error occurs on any of the methods, the
// transaction is considered to have failed and should be rolled back.
// Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	CreateUser(u *User) error
	UpdateUser(u *User) error
	FindUsers(filter *UserFilter) ([]User, error)

	CreateEmailToken(t *EmailToken) error
	DeleteEmailToken(id uuid.UUID) error
	FindEmailTokens(filter *EmailTokenFilter) ([]EmailToken, error)
}
