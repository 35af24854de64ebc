package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/timeshards/timeshards/internal/email"
	"github.com/timeshards/timeshards/internal/krypto"
)

// TokenPurpose represents the purpose of an email token.
type TokenPurpose string

const (
	// TokenPurposeActivate indicates a token activates an account.
	TokenPurposeActivate TokenPurpose = "activate"
	// TokenPurposePasswordReset indicates a token authorizes a password reset.
	TokenPurposePasswordReset TokenPurpose = "password_reset"
)

// EmailToken is a single-use token bound to an email address. The
// token value is stored verbatim so it can be looked up by the exact
// value embedded in an emailed link.
//
// Activation tokens have no expiry, they live until consumed. Reset
// tokens expire after ServiceConfig.ResetTokenExpiry. Nothing enforces
// a single live activation token per email, a re-registration attempt
// simply fails on the duplicate user check first.
type EmailToken struct {
	ID        uuid.UUID
	Token     krypto.Token
	Email     email.Address
	Purpose   TokenPurpose
	CreatedAt time.Time
}
