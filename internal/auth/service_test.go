package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/timeshards/timeshards/internal/auth"
	"github.com/timeshards/timeshards/internal/auth/db"
	"github.com/timeshards/timeshards/internal/db/testdb"
	"github.com/timeshards/timeshards/internal/email"
	"github.com/timeshards/timeshards/internal/errorz"
	"github.com/timeshards/timeshards/internal/errorz/testerr"
	"github.com/timeshards/timeshards/internal/krypto"
)

func Test_Service_RegisterUser(t *testing.T) {
	t.Run("ok, register user", func(t *testing.T) {
		st := newServiceTest(t)

		credentials := auth.Credentials{
			Email:    must(email.ParseAddress("info@example.com")),
			Password: must(auth.ParsePassword("str0ng-pw")),
		}

		err := st.svc.RegisterUser(context.Background(), credentials)
		if err != nil {
			t.Fatalf("failed to register user: %v", err)
		}

		// Assert that an activation email was sent to the address.
		if len(st.emailer.emails) != 1 || st.emailer.emails[0].recipient != credentials.Email {
			t.Fatalf("expected 1 email to %s, got %d", credentials.Email, len(st.emailer.emails))
		}

		if st.emailer.emails[0].template != "user-activation" {
			t.Errorf("expected user-activation template, got %s", st.emailer.emails[0].template)
		}

		// The new user can authenticate right away, activation is not
		// checked on login.
		user, err := st.svc.Authenticate(context.Background(), credentials)
		if err != nil {
			t.Fatalf("failed to authenticate: %v", err)
		}

		if user.IsActivated() {
			t.Errorf("expected user to not be activated yet")
		}
	})

	t.Run("fail, register duplicate email", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.registerUser()

		err := st.svc.RegisterUser(context.Background(), credentials)
		if !errors.Is(err, auth.ErrDuplicateEmail) {
			t.Fatalf("expected ErrDuplicateEmail, got %v", err)
		}

		// The duplicate is reported as a field error on the Email key.
		var invalidInput errorz.InvalidInput
		if !errors.As(err, &invalidInput) {
			t.Fatalf("expected InvalidInput, got %T", err)
		}

		var keyed errorz.Keyed
		if !errors.As(err, &keyed) || keyed.Key != "Email" {
			t.Fatalf("expected a Keyed error on the Email key, got %v", err)
		}

		// No second activation email was sent.
		if len(st.emailer.emails) != 1 {
			t.Fatalf("expected 1 email, got %d", len(st.emailer.emails))
		}
	})

	for _, tracker := range testerr.NewFailingDeps(testerr.Err, 5) {
		t.Run("fail, store fails", func(t *testing.T) {
			st := newServiceTest(t)
			st.store.tracker = &tracker

			credentials := auth.Credentials{
				Email:    must(email.ParseAddress("info@example.com")),
				Password: must(auth.ParsePassword("str0ng-pw")),
			}

			err := st.svc.RegisterUser(context.Background(), credentials)
			if !errors.Is(err, testerr.Err) {
				t.Fatalf("expected test error, got %v", err)
			}

			// Assert no email was sent.
			if len(st.emailer.emails) != 0 {
				t.Fatalf("expected 0 emails, got %d", len(st.emailer.emails))
			}
		})
	}

	t.Run("fail, token write rolls back user", func(t *testing.T) {
		st := newServiceTest(t)

		// Fail exactly the token insert, everything else succeeds.
		// Call sequence: BeginTx, FindUsers, CreateUser, CreateEmailToken.
		st.store.tracker = &testerr.Calltracker{
			CallIndex:   -1,
			ShouldFail:  true,
			Err:         testerr.Err,
			FailAtIndex: 3,
		}

		credentials := auth.Credentials{
			Email:    must(email.ParseAddress("info@example.com")),
			Password: must(auth.ParsePassword("str0ng-pw")),
		}

		err := st.svc.RegisterUser(context.Background(), credentials)
		if !errors.Is(err, testerr.Err) {
			t.Fatalf("expected test error, got %v", err)
		}

		// The user write was rolled back together with the token.
		_, err = st.svc.Authenticate(context.Background(), credentials)
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("fail, emailer fails", func(t *testing.T) {
		st := newServiceTest(t)
		st.emailer.testErr = testerr.Err

		credentials := auth.Credentials{
			Email:    must(email.ParseAddress("info@example.com")),
			Password: must(auth.ParsePassword("str0ng-pw")),
		}

		err := st.svc.RegisterUser(context.Background(), credentials)
		if !errors.Is(err, testerr.Err) {
			t.Fatalf("expected test error, got %v", err)
		}
	})
}

func Test_Service_PendingActivation(t *testing.T) {
	t.Run("ok, registered user has pending activation", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.registerUser()

		err := st.svc.PendingActivation(context.Background(), credentials.Email)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("fail, unknown email", func(t *testing.T) {
		st := newServiceTest(t)

		err := st.svc.PendingActivation(context.Background(), must(email.ParseAddress("nobody@example.com")))
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("fail, consumed activation is no longer pending", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, token := st.registerUser()
		st.activateUser(token)

		err := st.svc.PendingActivation(context.Background(), credentials.Email)
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func Test_Service_Activate(t *testing.T) {
	t.Run("ok, activate user", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, token := st.registerUser()

		err := st.svc.Activate(context.Background(), token)
		if err != nil {
			t.Fatalf("failed to activate: %v", err)
		}

		user, err := st.svc.Authenticate(context.Background(), credentials)
		if err != nil {
			t.Fatalf("failed to authenticate: %v", err)
		}

		if !user.IsActivated() {
			t.Errorf("expected user to be activated")
		}
	})

	t.Run("fail, unknown token", func(t *testing.T) {
		st := newServiceTest(t)
		st.registerUser()

		err := st.svc.Activate(context.Background(), must(krypto.GenerateToken()))
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("fail, token is consumed on use", func(t *testing.T) {
		st := newServiceTest(t)
		_, token := st.registerUser()
		st.activateUser(token)

		err := st.svc.Activate(context.Background(), token)
		if !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ok, second token does not move the activation timestamp", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, token := st.registerUser()
		st.activateUser(token)

		first, err := st.svc.Authenticate(context.Background(), credentials)
		if err != nil {
			t.Fatalf("failed to authenticate: %v", err)
		}

		// A leftover token for the same address, as if the user
		// registered twice before the duplicate check existed.
		leftover := st.createActivationToken(credentials.Email)

		st.advance(time.Hour)

		if err := st.svc.Activate(context.Background(), leftover); err != nil {
			t.Fatalf("failed to activate: %v", err)
		}

		second, err := st.svc.Authenticate(context.Background(), credentials)
		if err != nil {
			t.Fatalf("failed to authenticate: %v", err)
		}

		if !second.ActivatedAt.Equal(*first.ActivatedAt) {
			t.Errorf("expected activation timestamp to stay %v, got %v", first.ActivatedAt, second.ActivatedAt)
		}
	})

	for _, tracker := range testerr.NewFailingDeps(testerr.Err, 6) {
		t.Run("fail, store fails", func(t *testing.T) {
			st := newServiceTest(t)
			_, token := st.registerUser()
			st.store.tracker = &tracker

			err := st.svc.Activate(context.Background(), token)
			if !errors.Is(err, testerr.Err) {
				t.Fatalf("expected test error, got %v", err)
			}
		})
	}
}

func Test_Service_Authenticate(t *testing.T) {
	t.Run("ok, authenticate unactivated user", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.registerUser()

		user, err := st.svc.Authenticate(context.Background(), credentials)
		if err != nil {
			t.Fatalf("failed to authenticate: %v", err)
		}

		if user.Email != credentials.Email {
			t.Errorf("expected user %s, got %s", credentials.Email, user.Email)
		}
	})

	t.Run("fail, unknown email", func(t *testing.T) {
		st := newServiceTest(t)
		st.registerUser()

		_, err := st.svc.Authenticate(context.Background(), auth.Credentials{
			Email:    must(email.ParseAddress("other@example.com")),
			Password: must(auth.ParsePassword("str0ng-pw")),
		})
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("fail, wrong password", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.registerUser()

		_, err := st.svc.Authenticate(context.Background(), auth.Credentials{
			Email:    credentials.Email,
			Password: must(auth.ParsePassword("wrong-pw")),
		})
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	for _, tracker := range testerr.NewFailingDeps(testerr.Err, 3) {
		t.Run("fail, store fails", func(t *testing.T) {
			st := newServiceTest(t)
			credentials, _ := st.registerUser()
			st.store.tracker = &tracker

			_, err := st.svc.Authenticate(context.Background(), credentials)
			if !errors.Is(err, testerr.Err) {
				t.Fatalf("expected test error, got %v", err)
			}
		})
	}
}

func Test_Service_RequestPasswordReset(t *testing.T) {
	t.Run("ok, reset email sent", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.registerUser()

		result, err := st.svc.RequestPasswordReset(context.Background(), credentials.Email)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result != auth.RemindSent {
			t.Fatalf("expected RemindSent, got %v", result)
		}

		last := st.emailer.emails[len(st.emailer.emails)-1]
		if last.template != "password-reset" || last.recipient != credentials.Email {
			t.Fatalf("expected password-reset email to %s, got %s to %s", credentials.Email, last.template, last.recipient)
		}
	})

	t.Run("ok, unknown email reports unknown user", func(t *testing.T) {
		st := newServiceTest(t)
		st.registerUser()

		result, err := st.svc.RequestPasswordReset(context.Background(), must(email.ParseAddress("nobody@example.com")))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result != auth.RemindUnknownUser {
			t.Fatalf("expected RemindUnknownUser, got %v", result)
		}

		// No reset email was sent.
		if len(st.emailer.emails) != 1 {
			t.Fatalf("expected 1 email, got %d", len(st.emailer.emails))
		}
	})

	t.Run("ok, repeat request is throttled", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.registerUser()

		st.requestReset(credentials.Email)

		result, err := st.svc.RequestPasswordReset(context.Background(), credentials.Email)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result != auth.RemindThrottled {
			t.Fatalf("expected RemindThrottled, got %v", result)
		}

		// Registration email plus a single reset email.
		if len(st.emailer.emails) != 2 {
			t.Fatalf("expected 2 emails, got %d", len(st.emailer.emails))
		}
	})

	t.Run("ok, throttle lifts after the interval", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.registerUser()

		st.requestReset(credentials.Email)
		st.advance(throttleInterval + time.Second)

		result, err := st.svc.RequestPasswordReset(context.Background(), credentials.Email)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result != auth.RemindSent {
			t.Fatalf("expected RemindSent, got %v", result)
		}
	})

	t.Run("fail, emailer fails", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.registerUser()
		st.emailer.testErr = testerr.Err

		_, err := st.svc.RequestPasswordReset(context.Background(), credentials.Email)
		if !errors.Is(err, testerr.Err) {
			t.Fatalf("expected test error, got %v", err)
		}
	})
}

func Test_Service_ResetPassword(t *testing.T) {
	newPassword := func(credentials auth.Credentials, token krypto.Token, pwd string) auth.NewPassword {
		return auth.NewPassword{
			Email:    credentials.Email,
			Password: must(auth.ParsePassword(pwd)),
			Token:    token,
		}
	}

	t.Run("ok, reset password", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.registerUser()
		token := st.requestReset(credentials.Email)

		if err := st.svc.ResetTokenValid(context.Background(), token); err != nil {
			t.Fatalf("expected token to be valid: %v", err)
		}

		user, result, err := st.svc.ResetPassword(context.Background(), newPassword(credentials, token, "new-pw-1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result != auth.ResetSuccess {
			t.Fatalf("expected ResetSuccess, got %v", result)
		}

		if user.Email != credentials.Email {
			t.Errorf("expected user %s, got %s", credentials.Email, user.Email)
		}

		// The old password no longer works, the new one does.
		_, err = st.svc.Authenticate(context.Background(), credentials)
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			t.Fatalf("expected old password to be rejected, got %v", err)
		}

		_, err = st.svc.Authenticate(context.Background(), auth.Credentials{
			Email:    credentials.Email,
			Password: must(auth.ParsePassword("new-pw-1")),
		})
		if err != nil {
			t.Fatalf("failed to authenticate with new password: %v", err)
		}
	})

	t.Run("fail, token is consumed on use", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.registerUser()
		token := st.requestReset(credentials.Email)

		_, result, err := st.svc.ResetPassword(context.Background(), newPassword(credentials, token, "new-pw-1"))
		if err != nil || result != auth.ResetSuccess {
			t.Fatalf("failed to reset password: %v %v", result, err)
		}

		// Replaying the same token fails and does not touch the
		// credential again.
		_, result, err = st.svc.ResetPassword(context.Background(), newPassword(credentials, token, "new-pw-2"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result != auth.ResetInvalidToken {
			t.Fatalf("expected ResetInvalidToken, got %v", result)
		}

		if err := st.svc.ResetTokenValid(context.Background(), token); !errors.Is(err, errorz.ErrNotFound) {
			t.Fatalf("expected consumed token to be invalid, got %v", err)
		}

		_, err = st.svc.Authenticate(context.Background(), auth.Credentials{
			Email:    credentials.Email,
			Password: must(auth.ParsePassword("new-pw-1")),
		})
		if err != nil {
			t.Fatalf("expected first reset password to still work: %v", err)
		}
	})

	t.Run("fail, expired token", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.registerUser()
		token := st.requestReset(credentials.Email)

		st.advance(tokenExpiry + time.Second)

		_, result, err := st.svc.ResetPassword(context.Background(), newPassword(credentials, token, "new-pw-1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result != auth.ResetInvalidToken {
			t.Fatalf("expected ResetInvalidToken, got %v", result)
		}

		// The credential was not mutated.
		_, err = st.svc.Authenticate(context.Background(), credentials)
		if err != nil {
			t.Fatalf("expected original password to still work: %v", err)
		}
	})

	t.Run("fail, unknown token", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.registerUser()

		_, result, err := st.svc.ResetPassword(context.Background(), newPassword(credentials, must(krypto.GenerateToken()), "new-pw-1"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result != auth.ResetInvalidToken {
			t.Fatalf("expected ResetInvalidToken, got %v", result)
		}
	})

	t.Run("fail, email does not match token", func(t *testing.T) {
		st := newServiceTest(t)
		credentials, _ := st.registerUser()
		token := st.requestReset(credentials.Email)

		_, result, err := st.svc.ResetPassword(context.Background(), auth.NewPassword{
			Email:    must(email.ParseAddress("other@example.com")),
			Password: must(auth.ParsePassword("new-pw-1")),
			Token:    token,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result != auth.ResetInvalidUser {
			t.Fatalf("expected ResetInvalidUser, got %v", result)
		}

		// The credential was not mutated.
		_, err = st.svc.Authenticate(context.Background(), credentials)
		if err != nil {
			t.Fatalf("expected original password to still work: %v", err)
		}
	})
}

func Test_Service_LoginExternal(t *testing.T) {
	identity := func(token string) auth.ExternalIdentity {
		return auth.ExternalIdentity{
			Provider:    "weibo",
			UserID:      "uid-12345",
			AccessToken: krypto.NewSecret(token),
			Nickname:    "shardling",
		}
	}

	t.Run("ok, first login creates user", func(t *testing.T) {
		st := newServiceTest(t)

		user, err := st.svc.LoginExternal(context.Background(), identity("access-token-1"))
		if err != nil {
			t.Fatalf("failed to login: %v", err)
		}

		if user.Nickname != "shardling" {
			t.Errorf("expected nickname shardling, got %s", user.Nickname)
		}

		// OAuth accounts never go through activation.
		if user.IsActivated() {
			t.Errorf("expected user to not be activated")
		}
	})

	t.Run("ok, repeat login reuses the account", func(t *testing.T) {
		st := newServiceTest(t)

		first, err := st.svc.LoginExternal(context.Background(), identity("access-token-1"))
		if err != nil {
			t.Fatalf("failed to login: %v", err)
		}

		// Providers rotate access tokens between logins, the external
		// id is what identifies the account.
		second, err := st.svc.LoginExternal(context.Background(), identity("access-token-2"))
		if err != nil {
			t.Fatalf("failed to login: %v", err)
		}

		if first.ID != second.ID {
			t.Fatalf("expected the same user, got %s and %s", first.ID, second.ID)
		}
	})

	t.Run("fail, empty external user id", func(t *testing.T) {
		st := newServiceTest(t)

		ext := identity("access-token-1")
		ext.UserID = ""

		_, err := st.svc.LoginExternal(context.Background(), ext)
		if err == nil {
			t.Fatal("expected error, got <nil>")
		}
	})

	for _, tracker := range testerr.NewFailingDeps(testerr.Err, 4) {
		t.Run("fail, store fails", func(t *testing.T) {
			st := newServiceTest(t)
			st.store.tracker = &tracker

			_, err := st.svc.LoginExternal(context.Background(), identity("access-token-1"))
			if !errors.Is(err, testerr.Err) {
				t.Fatalf("expected test error, got %v", err)
			}
		})
	}
}

const (
	tokenExpiry      = time.Minute * 30
	throttleInterval = time.Minute * 10
)

type svcTest struct {
	t       *testing.T
	svc     *auth.Service
	store   *testStore
	emailer *testEmailer
	now     time.Time
}

func newServiceTest(t *testing.T) *svcTest {
	testDB := testdb.RunWhile(t, true)
	test := &svcTest{
		t: t,
		store: &testStore{
			store:   db.New(testDB),
			tracker: &testerr.Calltracker{}, // empty call trackers never fail.
		},
		emailer: &testEmailer{},
		now:     time.Now().Round(0),
	}

	cfg := auth.ServiceConfig{
		BaseURL:          "http://example.com",
		ResetTokenExpiry: tokenExpiry,
		ResetThrottle:    throttleInterval,
	}

	svc, err := auth.NewService(test.store, test.emailer, cfg)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	svc.NowFunc = func() time.Time {
		return test.now
	}

	test.svc = svc

	return test
}

func (st *svcTest) advance(d time.Duration) {
	st.now = st.now.Add(d)
}

func (st *svcTest) registerUser() (auth.Credentials, krypto.Token) {
	credentials := auth.Credentials{
		Email:    must(email.ParseAddress("info@example.com")),
		Password: must(auth.ParsePassword("str0ng-pw")),
	}
	err := st.svc.RegisterUser(context.Background(), credentials)
	if err != nil {
		st.t.Fatalf("failed to register user: %v", err)
	}

	index := len(st.emailer.emails) - 1
	request, ok := st.emailer.emails[index].data.(auth.ActivationRequest)
	if !ok {
		st.t.Fatalf("unexpected data type: %T", st.emailer.emails[index].data)
	}

	return credentials, request.Token
}

func (st *svcTest) activateUser(token krypto.Token) {
	if err := st.svc.Activate(context.Background(), token); err != nil {
		st.t.Fatalf("failed to activate user: %v", err)
	}
}

func (st *svcTest) requestReset(addr email.Address) krypto.Token {
	result, err := st.svc.RequestPasswordReset(context.Background(), addr)
	if err != nil {
		st.t.Fatalf("failed to request password reset: %v", err)
	}

	if result != auth.RemindSent {
		st.t.Fatalf("expected RemindSent, got %v", result)
	}

	index := len(st.emailer.emails) - 1
	request, ok := st.emailer.emails[index].data.(auth.ResetRequest)
	if !ok {
		st.t.Fatalf("unexpected data type: %T", st.emailer.emails[index].data)
	}

	return request.Token
}

// createActivationToken writes an activation token directly to the
// store, bypassing the service.
func (st *svcTest) createActivationToken(addr email.Address) krypto.Token {
	tx, err := st.store.store.BeginTx(context.Background())
	if err != nil {
		st.t.Fatalf("failed to begin tx: %v", err)
	}

	token := must(krypto.GenerateToken())
	err = tx.CreateEmailToken(&auth.EmailToken{
		ID:        uuid.New(),
		Token:     token,
		Email:     addr,
		Purpose:   auth.TokenPurposeActivate,
		CreatedAt: st.now,
	})
	if err != nil {
		st.t.Fatalf("failed to create email token: %v", err)
	}

	if err := tx.Commit(); err != nil {
		st.t.Fatalf("failed to commit: %v", err)
	}

	return token
}

type sentEmail struct {
	template  string
	recipient email.Address
	data      any
}

// testEmailer captures sent emails, optionally failing.
type testEmailer struct {
	emails  []sentEmail
	testErr error
}

func (e *testEmailer) Send(_ context.Context, template string, to email.Address, data any) error {
	if e.testErr != nil {
		return e.testErr
	}

	e.emails = append(e.emails, sentEmail{
		template:  template,
		recipient: to,
		data:      data,
	})
	return nil
}

// testStore wraps a real store but uses a testerr.Calltracker to
// possibly fail on certain method calls.
type testStore struct {
	store   auth.Store
	tracker *testerr.Calltracker
}

func (f *testStore) BeginTx(ctx context.Context) (auth.Tx, error) {
	return testerr.MaybeFail(f.tracker, func() (auth.Tx, error) {
		realTx, err := f.store.BeginTx(ctx)
		return &testTx{
			store: f,
			tx:    realTx,
		}, err
	})
}

type testTx struct {
	store *testStore
	tx    auth.Tx
}

func (tx *testTx) Commit() error {
	return testerr.MaybeFailErrFunc(tx.store.tracker, func() error {
		return tx.tx.Commit()
	})
}

func (tx *testTx) Rollback() error {
	return tx.tx.Rollback()
}

func (tx *testTx) CreateUser(u *auth.User) error {
	return testerr.MaybeFailErrFunc(tx.store.tracker, func() error {
		return tx.tx.CreateUser(u)
	})
}

func (tx *testTx) UpdateUser(u *auth.User) error {
	return testerr.MaybeFailErrFunc(tx.store.tracker, func() error {
		return tx.tx.UpdateUser(u)
	})
}

func (tx *testTx) FindUsers(filter *auth.UserFilter) ([]auth.User, error) {
	return testerr.MaybeFail(tx.store.tracker, func() ([]auth.User, error) {
		return tx.tx.FindUsers(filter)
	})
}

func (tx *testTx) CreateEmailToken(t *auth.EmailToken) error {
	return testerr.MaybeFailErrFunc(tx.store.tracker, func() error {
		return tx.tx.CreateEmailToken(t)
	})
}

func (tx *testTx) DeleteEmailToken(id uuid.UUID) error {
	return testerr.MaybeFailErrFunc(tx.store.tracker, func() error {
		return tx.tx.DeleteEmailToken(id)
	})
}

func (tx *testTx) FindEmailTokens(filter *auth.EmailTokenFilter) ([]auth.EmailToken, error) {
	return testerr.MaybeFail(tx.store.tracker, func() ([]auth.EmailToken, error) {
		return tx.tx.FindEmailTokens(filter)
	})
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
