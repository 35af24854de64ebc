package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timeshards/timeshards/internal/email"
	"github.com/timeshards/timeshards/internal/errorz"
	"github.com/timeshards/timeshards/internal/krypto"
)

var (
	// ErrDuplicateEmail is reported as a field error on the signup form.
	ErrDuplicateEmail = errors.New("email already in use")
	// ErrInvalidCredentials deliberately does not distinguish an unknown
	// email from a wrong password, to avoid leaking which emails are
	// registered.
	ErrInvalidCredentials = errors.New("email or username incorrect")
)

// Emailer is used to send templated emails.
type Emailer interface {
	Send(ctx context.Context, template string, to email.Address, data any) error
}

// ServiceConfig is the configuration for the Service.
type ServiceConfig struct {
	// BaseURL is the public URL of the site, used to build the links
	// embedded in emails.
	BaseURL string
	// ResetTokenExpiry is the duration a password reset token is valid.
	// Activation tokens do not expire.
	ResetTokenExpiry time.Duration
	// ResetThrottle is the minimum interval between reset emails for
	// the same address.
	ResetThrottle time.Duration
}

// Service is the identity workflow engine. It orchestrates signup,
// activation, login, password reset and OAuth-backed login over the
// user and token stores.
//
// All operations are synchronous, one request in, one response out.
// Concurrent request safety relies on the transactional guarantees of
// the store: two concurrent activations of the same token at worst both
// observe it and the second delete is a no-op.
type Service struct {
	store   Store
	emailer Emailer
	cfg     ServiceConfig

	// comparisonHash is used to compare passwords when no user was found.
	comparisonHash krypto.Argon2Hash

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store, emailer Emailer, cfg ServiceConfig) (*Service, error) {
	tok, err := krypto.GenerateToken()
	if err != nil {
		return nil, err
	}

	hash, err := krypto.HashArgon2(tok[:])
	if err != nil {
		return nil, err
	}

	return &Service{
		store:          s,
		emailer:        emailer,
		cfg:            cfg,
		comparisonHash: hash,
		NowFunc:        time.Now,
	}, nil
}

// ActivationRequest is the payload of an activation email.
type ActivationRequest struct {
	Token   krypto.Token
	BaseURL string
}

// ResetRequest is the payload of a password reset email.
type ResetRequest struct {
	Token   krypto.Token
	BaseURL string
}

// RegisterUser registers a new user with the provided credentials:
// - Create a new User without an activation timestamp.
// - Create an activation token bound to the email address.
// - Send an email with an activation link.
//
// The user and token are written in a single transaction, a failed
// token write never leaves an orphaned user behind.
//
// A duplicate email is reported as a field error on the Email key.
func (s *Service) RegisterUser(ctx context.Context, c Credentials) error {
	pwdHash, err := c.Password.Hash()
	if err != nil {
		return err
	}

	token, err := krypto.GenerateToken()
	if err != nil {
		return err
	}

	now := s.NowFunc()

	user := User{
		ID:           uuid.New(),
		Email:        c.Email,
		PasswordHash: pwdHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	emailToken := EmailToken{
		ID:        uuid.New(),
		Token:     token,
		Email:     c.Email,
		Purpose:   TokenPurposeActivate,
		CreatedAt: now,
	}

	err = s.inTx(ctx, func(tx Tx) error {
		users, txErr := tx.FindUsers(&UserFilter{
			Emails: []email.Address{c.Email},
		})
		if txErr != nil {
			return txErr
		}

		if len(users) > 0 {
			return errorz.InvalidInput{
				errorz.Keyed{Key: "Email", Err: ErrDuplicateEmail},
			}
		}

		if txErr := tx.CreateUser(&user); txErr != nil {
			return txErr
		}

		return tx.CreateEmailToken(&emailToken)
	})
	if err != nil {
		return err
	}

	// Sending could fail independently of the transaction. This is an
	// acceptable risk, the user can request a new password later to
	// receive a fresh link, or register support can re-trigger it.
	return s.emailer.Send(ctx, "user-activation", c.Email, ActivationRequest{
		Token:   token,
		BaseURL: s.cfg.BaseURL,
	})
}

// PendingActivation checks whether an unconsumed activation token
// exists for the address. It returns errorz.ErrNotFound if there is
// none, the post-signup page 404s in that case.
func (s *Service) PendingActivation(ctx context.Context, addr email.Address) error {
	return s.inTx(ctx, func(tx Tx) error {
		tokens, err := tx.FindEmailTokens(&EmailTokenFilter{
			Emails:   []email.Address{addr},
			Purposes: []TokenPurpose{TokenPurposeActivate},
		})
		if err != nil {
			return err
		}

		if len(tokens) == 0 {
			return errorz.ErrNotFound
		}

		return nil
	})
}

// Activate consumes an activation token:
// - Look the token up by its exact value, absent means errorz.ErrNotFound.
// - Set the activation timestamp of the matching user, once.
// - Delete the consumed token.
//
// Activation tokens are not checked for expiry. Unlike reset tokens
// they live until consumed, a long-standing quirk that is kept as-is.
// Consuming an already-consumed token yields errorz.ErrNotFound.
func (s *Service) Activate(ctx context.Context, token krypto.Token) error {
	return s.inTx(ctx, func(tx Tx) error {
		tokens, err := tx.FindEmailTokens(&EmailTokenFilter{
			Tokens:   []krypto.Token{token},
			Purposes: []TokenPurpose{TokenPurposeActivate},
		})
		if err != nil {
			return err
		}

		if len(tokens) != 1 {
			return errorz.ErrNotFound
		}

		users, err := tx.FindUsers(&UserFilter{
			Emails: []email.Address{tokens[0].Email},
		})
		if err != nil {
			return err
		}

		if len(users) != 1 {
			return errorz.ErrNotFound
		}

		user := users[0]
		now := s.NowFunc()

		// The timestamp is set exactly once, a second token for an
		// already activated user only gets cleaned up.
		if user.ActivatedAt == nil {
			user.ActivatedAt = &now
			user.UpdatedAt = now

			if err := tx.UpdateUser(&user); err != nil {
				return err
			}
		}

		return tx.DeleteEmailToken(tokens[0].ID)
	})
}

// Authenticate checks the provided credentials and returns the matching
// user. Unknown emails and wrong passwords both yield
// ErrInvalidCredentials.
//
// The activation timestamp is intentionally not checked here, an
// unactivated user can log in if the credentials match. The original
// behaves this way and depending on it is widespread enough that
// changing it is a product decision, not a bug fix.
func (s *Service) Authenticate(ctx context.Context, c Credentials) (User, error) {
	var users []User
	err := s.inTx(ctx, func(tx Tx) error {
		var txErr error
		users, txErr = tx.FindUsers(&UserFilter{
			Emails: []email.Address{c.Email},
		})
		return txErr
	})
	if err != nil {
		return User{}, err
	}

	if len(users) != 1 {
		// Even if no user is found we compare to a hash to prevent timing
		// differences that could result in user enumeration attacks.
		_ = c.Password.Match(s.comparisonHash)
		return User{}, ErrInvalidCredentials
	}

	if !c.Password.Match(users[0].PasswordHash) {
		return User{}, ErrInvalidCredentials
	}

	return users[0], nil
}

// RequestPasswordReset locates the user for the address, creates a
// reset token and sends a reset email. The closed RemindResult reports
// the outcome, an error is only returned for infrastructure failures.
func (s *Service) RequestPasswordReset(ctx context.Context, addr email.Address) (RemindResult, error) {
	token, err := krypto.GenerateToken()
	if err != nil {
		return RemindUnknownUser, err
	}

	now := s.NowFunc()

	emailToken := EmailToken{
		ID:        uuid.New(),
		Token:     token,
		Email:     addr,
		Purpose:   TokenPurposePasswordReset,
		CreatedAt: now,
	}

	result := RemindSent

	err = s.inTx(ctx, func(tx Tx) error {
		users, txErr := tx.FindUsers(&UserFilter{
			Emails: []email.Address{addr},
		})
		if txErr != nil {
			return txErr
		}

		if len(users) != 1 {
			result = RemindUnknownUser
			return nil
		}

		tokens, txErr := tx.FindEmailTokens(&EmailTokenFilter{
			Emails:   []email.Address{addr},
			Purposes: []TokenPurpose{TokenPurposePasswordReset},
		})
		if txErr != nil {
			return txErr
		}

		for _, t := range tokens {
			if now.Sub(t.CreatedAt) < s.cfg.ResetThrottle {
				result = RemindThrottled
				return nil
			}
		}

		return tx.CreateEmailToken(&emailToken)
	})
	if err != nil {
		return RemindUnknownUser, err
	}

	if result != RemindSent {
		return result, nil
	}

	err = s.emailer.Send(ctx, "password-reset", addr, ResetRequest{
		Token:   token,
		BaseURL: s.cfg.BaseURL,
	})
	if err != nil {
		return RemindUnknownUser, err
	}

	return RemindSent, nil
}

// ResetTokenValid checks whether a live reset token with the exact
// value exists. It backs the reset form page, which 404s for unknown
// tokens.
func (s *Service) ResetTokenValid(ctx context.Context, token krypto.Token) error {
	return s.inTx(ctx, func(tx Tx) error {
		tokens, err := tx.FindEmailTokens(&EmailTokenFilter{
			Tokens:   []krypto.Token{token},
			Purposes: []TokenPurpose{TokenPurposePasswordReset},
		})
		if err != nil {
			return err
		}

		if len(tokens) != 1 {
			return errorz.ErrNotFound
		}

		return nil
	})
}

// ResetPassword consumes a reset token and updates the stored
// credential. On success it returns the user so the caller can log
// them in immediately. Consumed or expired tokens never mutate the
// credential.
func (s *Service) ResetPassword(ctx context.Context, np NewPassword) (User, ResetResult, error) {
	pwdHash, err := np.Password.Hash()
	if err != nil {
		return User{}, ResetInvalidPassword, err
	}

	var user User
	result := ResetSuccess

	err = s.inTx(ctx, func(tx Tx) error {
		tokens, txErr := tx.FindEmailTokens(&EmailTokenFilter{
			Tokens:   []krypto.Token{np.Token},
			Purposes: []TokenPurpose{TokenPurposePasswordReset},
		})
		if txErr != nil {
			return txErr
		}

		if len(tokens) != 1 {
			result = ResetInvalidToken
			return nil
		}

		token := tokens[0]
		now := s.NowFunc()

		if now.Sub(token.CreatedAt) > s.cfg.ResetTokenExpiry {
			result = ResetInvalidToken
			return nil
		}

		if token.Email != np.Email {
			result = ResetInvalidUser
			return nil
		}

		users, txErr := tx.FindUsers(&UserFilter{
			Emails: []email.Address{np.Email},
		})
		if txErr != nil {
			return txErr
		}

		if len(users) != 1 {
			result = ResetInvalidUser
			return nil
		}

		user = users[0]
		user.PasswordHash = pwdHash
		user.UpdatedAt = now

		if txErr := tx.UpdateUser(&user); txErr != nil {
			return txErr
		}

		return tx.DeleteEmailToken(token.ID)
	})
	if err != nil {
		return User{}, ResetInvalidToken, err
	}

	if result != ResetSuccess {
		return User{}, result, nil
	}

	return user, ResetSuccess, nil
}

// LoginExternal logs in a user resolved by an OAuth provider adapter.
// The provider user id plays the role of the email and the access token
// the role of the password. The first visit creates the user, repeat
// visits with the same external id log into the same account, the
// stored credential is refreshed because providers rotate access
// tokens. OAuth-originated accounts bypass activation entirely.
func (s *Service) LoginExternal(ctx context.Context, ext ExternalIdentity) (User, error) {
	if ext.UserID == "" {
		return User{}, fmt.Errorf("empty external user id from provider %s", ext.Provider)
	}

	tokenHash, err := krypto.HashArgon2(ext.AccessToken.SecretValue())
	if err != nil {
		return User{}, err
	}

	now := s.NowFunc()
	loginID := email.Address(ext.UserID)

	var user User

	err = s.inTx(ctx, func(tx Tx) error {
		users, txErr := tx.FindUsers(&UserFilter{
			Emails: []email.Address{loginID},
		})
		if txErr != nil {
			return txErr
		}

		if len(users) == 1 {
			user = users[0]
			user.PasswordHash = tokenHash
			user.UpdatedAt = now
			return tx.UpdateUser(&user)
		}

		user = User{
			ID:           uuid.New(),
			Email:        loginID,
			PasswordHash: tokenHash,
			Nickname:     ext.Nickname,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return tx.CreateUser(&user)
	})
	if err != nil {
		return User{}, err
	}

	return user, nil
}

func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return err
	}

	err = f(tx)
	if err != nil {
		rBackErr := tx.Rollback()
		if rBackErr != nil {
			err = errors.Join(err, rBackErr)
		}
		return err
	}

	return tx.Commit()
}
