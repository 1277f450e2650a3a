package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	sessionName      = "quill_session"
	sessionUserIDKey = "user_id"
)

// SessionManager stores the logged-in user id and flash messages in a signed
// cookie.
type SessionManager struct {
	store  sessions.Store
	logger *zap.SugaredLogger
}

// NewSessionManager builds a cookie store signed with secret. maxAge is in
// seconds.
func NewSessionManager(secret string, maxAge int, secure bool, logger *zap.SugaredLogger) (*SessionManager, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(maxAge)
	return &SessionManager{store: store, logger: logger}, nil
}

// session returns the request's session. A cookie that fails verification
// yields a fresh, empty session so the caller is treated as anonymous.
func (m *SessionManager) session(r *http.Request) *sessions.Session {
	session, err := m.store.Get(r, sessionName)
	if err != nil {
		var cookieErr securecookie.Error
		if errors.As(err, &cookieErr) && cookieErr.IsDecode() {
			m.logger.Debugw("discarding invalid session cookie", "error", err)
		} else {
			m.logger.Warnw("failed to load session", "error", err)
		}
	}
	if session == nil {
		session = sessions.NewSession(m.store, sessionName)
	}
	return session
}

// UserID returns the user id stored by Login, if any.
func (m *SessionManager) UserID(r *http.Request) (int, bool) {
	id, ok := m.session(r).Values[sessionUserIDKey].(int)
	if !ok || id < 1 {
		return 0, false
	}
	return id, true
}

// Login replaces everything in the session with the given user id.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, userID int) error {
	session := m.session(r)
	clear(session.Values)
	session.Values[sessionUserIDKey] = userID
	return session.Save(r, w)
}

// Logout empties the session and expires its cookie.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	session := m.session(r)
	clear(session.Values)
	options := *m.sessionOptions(session)
	options.MaxAge = -1
	session.Options = &options
	return session.Save(r, w)
}

func (m *SessionManager) sessionOptions(session *sessions.Session) *sessions.Options {
	if session.Options != nil {
		return session.Options
	}
	return &sessions.Options{Path: "/"}
}

// AddFlash queues a message for the next page rendered for this client. The
// session is saved when the flashes are popped.
func (m *SessionManager) AddFlash(r *http.Request, message string) {
	m.session(r).AddFlash(message)
}

// PopFlashes removes and returns the queued messages. It must run before the
// response header is written since it may set the cookie.
func (m *SessionManager) PopFlashes(w http.ResponseWriter, r *http.Request) []string {
	session := m.session(r)
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}

	messages := make([]string, 0, len(raw))
	for _, value := range raw {
		if message, ok := value.(string); ok {
			messages = append(messages, message)
		}
	}
	if err := session.Save(r, w); err != nil {
		m.logger.Errorw("failed to save session", "error", err)
	}
	return messages
}
