package web

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	sessionName = "ts-session"

	sessionUserIDKey   = "userID"
	sessionIntendedKey = "intended"
)

// Session is the explicit session state passed into every handler. It
// carries the authenticated user id (if any), the intended redirect
// target captured before authentication was enforced, and flash
// messages. Handlers receive it as an argument instead of reaching
// into ambient request state.
type Session struct {
	sess *sessions.Session
}

func newSession(sess *sessions.Session) *Session {
	return &Session{sess: sess}
}

// UserID returns the authenticated user id, if any.
func (s *Session) UserID() (uuid.UUID, bool) {
	raw, ok := s.sess.Values[sessionUserIDKey].(string)
	if !ok {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}

	return id, true
}

// SetUserID marks the session as authenticated for the user.
func (s *Session) SetUserID(id uuid.UUID) {
	s.sess.Values[sessionUserIDKey] = id.String()
}

// Clear removes all authentication state from the session.
func (s *Session) Clear() {
	delete(s.sess.Values, sessionUserIDKey)
	delete(s.sess.Values, sessionIntendedKey)
}

// SetIntended stores the URL the user tried to reach before being sent
// to the login page.
func (s *Session) SetIntended(url string) {
	s.sess.Values[sessionIntendedKey] = url
}

// PopIntended returns the intended redirect target and removes it from
// the session. It falls back to "/" when nothing was captured.
func (s *Session) PopIntended() string {
	raw, ok := s.sess.Values[sessionIntendedKey].(string)
	delete(s.sess.Values, sessionIntendedKey)

	// Only ever redirect to a local path, a stored absolute URL could
	// send the user off-site.
	if !ok || raw == "" || raw[0] != '/' {
		return "/"
	}

	return raw
}

// AddFlash adds a one-time message shown on the next rendered page.
func (s *Session) AddFlash(msg string) {
	s.sess.AddFlash(msg)
}

// Flashes returns and clears the pending flash messages.
func (s *Session) Flashes() []any {
	return s.sess.Flashes()
}

// Save persists the session to the response.
func (s *Session) Save(r *http.Request, w http.ResponseWriter) error {
	return s.sess.Save(r, w)
}

func (srv *Server) loadSession(r *http.Request) (*Session, error) {
	sess, err := srv.deps.SessionStore.Get(r, sessionName)
	if err != nil {
		// A session that fails to decode (rotated keys, tampering) is
		// treated as a fresh session.
		if sess == nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
	}

	return newSession(sess), nil
}
