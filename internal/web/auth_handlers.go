package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/timeshards/timeshards/internal/auth"
	"github.com/timeshards/timeshards/internal/email"
	"github.com/timeshards/timeshards/internal/errorz"
	"github.com/timeshards/timeshards/internal/krypto"
	"github.com/timeshards/timeshards/internal/oauth"
)

const oauthStateCookieName = "ts-oauthstate"

type signInForm struct {
	Email    string `schema:"email"`
	Password string `schema:"password"`
}

type signInView struct {
	Email string
	Error string
}

func (s *Server) getSignIn(w http.ResponseWriter, r *http.Request, sess *Session) error {
	return s.writeView(w, r, sess, "signin", signInView{})
}

func (s *Server) postSignIn(w http.ResponseWriter, r *http.Request, sess *Session) error {
	var form signInForm
	if err := s.decodeForm(r, &form); err != nil {
		return err
	}

	failed := func() error {
		// Same response for a malformed input and a wrong password, the
		// password is never echoed back.
		return s.writeViewStatus(w, r, sess, "signin", signInView{
			Email: form.Email,
			Error: "Email or username incorrect.",
		}, http.StatusUnprocessableEntity)
	}

	addr, err := email.ParseAddress(form.Email)
	if err != nil {
		return failed()
	}

	pwd, err := auth.ParsePassword(form.Password)
	if err != nil {
		return failed()
	}

	user, err := s.deps.AuthService.Authenticate(r.Context(), auth.Credentials{
		Email:    addr,
		Password: pwd,
	})
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return failed()
		}
		return err
	}

	sess.SetUserID(user.ID)
	target := sess.PopIntended()
	if err := sess.Save(r, w); err != nil {
		return err
	}

	http.Redirect(w, r, target, http.StatusFound)
	return nil
}

func (s *Server) getSignOut(w http.ResponseWriter, r *http.Request, sess *Session) error {
	sess.Clear()
	if err := sess.Save(r, w); err != nil {
		return err
	}

	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

type signUpForm struct {
	Email                string `schema:"email"`
	Password             string `schema:"password"`
	PasswordConfirmation string `schema:"password_confirmation"`
}

type signUpView struct {
	Email       string
	Error       string
	FieldErrors map[string]string
}

func (s *Server) getSignUp(w http.ResponseWriter, r *http.Request, sess *Session) error {
	return s.writeView(w, r, sess, "signup", signUpView{})
}

func (s *Server) postSignUp(w http.ResponseWriter, r *http.Request, sess *Session) error {
	var form signUpForm
	if err := s.decodeForm(r, &form); err != nil {
		return err
	}

	fieldErrs := make(map[string]string)

	addr, err := email.ParseAddress(form.Email)
	if err != nil {
		fieldErrs["Email"] = "Please enter a valid email address."
	}

	pwd, err := auth.ParsePassword(form.Password)
	if err != nil {
		fieldErrs["Password"] = "Passwords must be 6 to 16 letters, digits, dashes or underscores."
	} else if form.Password != form.PasswordConfirmation {
		fieldErrs["Password"] = "The password confirmation does not match."
	}

	render := func() error {
		return s.writeViewStatus(w, r, sess, "signup", signUpView{
			Email:       form.Email,
			FieldErrors: fieldErrs,
		}, http.StatusUnprocessableEntity)
	}

	if len(fieldErrs) > 0 {
		return render()
	}

	err = s.deps.AuthService.RegisterUser(r.Context(), auth.Credentials{
		Email:    addr,
		Password: pwd,
	})
	if err != nil {
		var invalidInput errorz.InvalidInput
		if errors.As(err, &invalidInput) {
			for _, ie := range invalidInput {
				var keyed errorz.Keyed
				if errors.As(ie, &keyed) {
					fieldErrs[keyed.Key] = upperFirst(keyed.Err.Error()) + "."
				}
			}
			return render()
		}
		return err
	}

	http.Redirect(w, r, "/signup/success/"+url.PathEscape(form.Email), http.StatusFound)
	return nil
}

type signUpSuccessView struct {
	Email string
}

func (s *Server) getSignUpSuccess(w http.ResponseWriter, r *http.Request, sess *Session) error {
	addr, err := email.ParseAddress(r.PathValue("email"))
	if err != nil {
		return fmt.Errorf("%w: %v", errorz.ErrNotFound, err)
	}

	// Only show the page when a registration is actually waiting for
	// activation, the route is not worth probing.
	if err := s.deps.AuthService.PendingActivation(r.Context(), addr); err != nil {
		return err
	}

	return s.writeView(w, r, sess, "signup-success", signUpSuccessView{
		Email: string(addr),
	})
}

func (s *Server) getActivate(w http.ResponseWriter, r *http.Request, sess *Session) error {
	token, err := krypto.ParseToken(r.PathValue("token"))
	if err != nil {
		// A malformed token can never match a stored one.
		return fmt.Errorf("%w: %v", errorz.ErrNotFound, err)
	}

	if err := s.deps.AuthService.Activate(r.Context(), token); err != nil {
		return err
	}

	return s.writeView(w, r, sess, "activation-success", nil)
}

type forgotPasswordForm struct {
	Email string `schema:"email"`
}

type forgotPasswordView struct {
	Email  string
	Error  string
	Status string
}

func (s *Server) getForgotPassword(w http.ResponseWriter, r *http.Request, sess *Session) error {
	return s.writeView(w, r, sess, "forgot-password", forgotPasswordView{})
}

func (s *Server) postForgotPassword(w http.ResponseWriter, r *http.Request, sess *Session) error {
	var form forgotPasswordForm
	if err := s.decodeForm(r, &form); err != nil {
		return err
	}

	addr, err := email.ParseAddress(form.Email)
	if err != nil {
		return s.writeViewStatus(w, r, sess, "forgot-password", forgotPasswordView{
			Email: form.Email,
			Error: "Please enter a valid email address.",
		}, http.StatusUnprocessableEntity)
	}

	result, err := s.deps.AuthService.RequestPasswordReset(r.Context(), addr)
	if err != nil {
		return err
	}

	view := forgotPasswordView{Email: form.Email}
	status := http.StatusOK
	switch result {
	case auth.RemindSent:
		view.Status = "A password reset email is on its way, please check your inbox."
	case auth.RemindThrottled:
		view.Error = "A reset email was sent recently, please check your inbox or try again later."
		status = http.StatusUnprocessableEntity
	case auth.RemindUnknownUser:
		view.Error = "No account uses that email address."
		status = http.StatusUnprocessableEntity
	}

	return s.writeViewStatus(w, r, sess, "forgot-password", view, status)
}

type resetPasswordForm struct {
	Token                string `schema:"token"`
	Email                string `schema:"email"`
	Password             string `schema:"password"`
	PasswordConfirmation string `schema:"password_confirmation"`
}

type resetPasswordView struct {
	Token string
	Email string
	Error string
}

func (s *Server) getPasswordReset(w http.ResponseWriter, r *http.Request, sess *Session) error {
	token, err := krypto.ParseToken(r.PathValue("token"))
	if err != nil {
		return fmt.Errorf("%w: %v", errorz.ErrNotFound, err)
	}

	if err := s.deps.AuthService.ResetTokenValid(r.Context(), token); err != nil {
		return err
	}

	return s.writeView(w, r, sess, "reset-password", resetPasswordView{
		Token: token.String(),
	})
}

func (s *Server) postPasswordReset(w http.ResponseWriter, r *http.Request, sess *Session) error {
	var form resetPasswordForm
	if err := s.decodeForm(r, &form); err != nil {
		return err
	}

	render := func(msg string) error {
		return s.writeViewStatus(w, r, sess, "reset-password", resetPasswordView{
			Token: form.Token,
			Email: form.Email,
			Error: msg,
		}, http.StatusUnprocessableEntity)
	}

	token, err := krypto.ParseToken(form.Token)
	if err != nil {
		return render("The password reset token is invalid.")
	}

	addr, err := email.ParseAddress(form.Email)
	if err != nil {
		return render("Please enter a valid email address.")
	}

	pwd, err := auth.ParsePassword(form.Password)
	if err != nil || form.Password != form.PasswordConfirmation {
		return render("Passwords must match and be 6 to 16 letters, digits, dashes or underscores.")
	}

	user, result, err := s.deps.AuthService.ResetPassword(r.Context(), auth.NewPassword{
		Email:    addr,
		Password: pwd,
		Token:    token,
	})
	if err != nil {
		return err
	}

	switch result {
	case auth.ResetInvalidToken:
		return render("The password reset token is invalid or has expired.")
	case auth.ResetInvalidUser:
		return render("That email address does not match the reset request.")
	case auth.ResetInvalidPassword:
		return render("Passwords must match and be 6 to 16 letters, digits, dashes or underscores.")
	}

	sess.SetUserID(user.ID)
	sess.AddFlash("Your password has been updated.")
	if err := sess.Save(r, w); err != nil {
		return err
	}

	http.Redirect(w, r, "/", http.StatusFound)
	return nil
}

type oauthSuccessView struct {
	Nickname string
	Provider string
}

// getOAuth serves both halves of the third-party login flow. Without a
// code it starts the consent redirect, with a code it completes the
// login.
func (s *Server) getOAuth(w http.ResponseWriter, r *http.Request, sess *Session) error {
	provider, ok := s.providers[r.PathValue("provider")]
	if !ok {
		return fmt.Errorf("%w: unknown oauth provider", errorz.ErrNotFound)
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		state, err := krypto.GenerateToken()
		if err != nil {
			return err
		}

		http.SetCookie(w, &http.Cookie{
			Name:     oauthStateCookieName,
			Value:    state.String(),
			Path:     "/",
			MaxAge:   600,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		http.Redirect(w, r, provider.AuthCodeURL(state.String()), http.StatusFound)
		return nil
	}

	failed := func() error {
		return s.writeViewStatus(w, r, sess, "signup", signUpView{
			Error: "Signing in with " + provider.Name() + " failed, please try again.",
		}, http.StatusUnprocessableEntity)
	}

	stateCookie, err := r.Cookie(oauthStateCookieName)
	if err != nil || stateCookie.Value != r.URL.Query().Get("state") {
		s.deps.Logger.Warn("oauth state mismatch", "provider", provider.Name())
		return failed()
	}

	ext, err := provider.Exchange(r.Context(), code)
	if err != nil {
		var provErr *oauth.ProviderError
		if errors.As(err, &provErr) {
			s.deps.Logger.Error("oauth exchange failed",
				"provider", provErr.Provider,
				"op", provErr.Op,
				"error", provErr.Err,
			)
			return failed()
		}
		return err
	}

	user, err := s.deps.AuthService.LoginExternal(r.Context(), ext)
	if err != nil {
		return err
	}

	sess.SetUserID(user.ID)

	return s.writeView(w, r, sess, "oauth-success", oauthSuccessView{
		Nickname: user.Nickname,
		Provider: provider.Name(),
	})
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
