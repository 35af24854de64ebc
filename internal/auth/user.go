package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/timeshards/timeshards/internal/email"
	"github.com/timeshards/timeshards/internal/krypto"
)

// User contains the data for a user.
//
// ActivatedAt is nil until the user consumed an activation token. Note
// that the login path deliberately does not check it, see
// Service.Authenticate.
//
// For OAuth-originated accounts Email holds the provider user id and
// PasswordHash the hash of the provider access token. This overloading
// is inherited from the original schema, the email column doubles as a
// generic login identifier.
type User struct {
	ID           uuid.UUID
	Email        email.Address
	PasswordHash krypto.Argon2Hash
	Nickname     string
	ActivatedAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsActivated reports whether the user consumed an activation token.
func (u User) IsActivated() bool {
	return u.ActivatedAt != nil
}

// Credentials are the email and password submitted on the login and
// signup forms.
type Credentials struct {
	Email    email.Address
	Password Password
}

// NewPassword is a password reset submission.
type NewPassword struct {
	Email    email.Address
	Password Password
	Token    krypto.Token
}

// ExternalIdentity is the profile an OAuth provider adapter resolved
// from an authorization code.
type ExternalIdentity struct {
	Provider    string
	UserID      string
	AccessToken krypto.Secret
	Nickname    string
}
