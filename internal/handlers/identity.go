package handlers

import (
	"errors"
	"net/http"

	"github.com/quill-blog/quill/internal/services"
	"go.uber.org/zap"
)

// Authenticator resolves the caller of every request and guards routes that
// need one.
type Authenticator struct {
	users    *services.UserService
	sessions *SessionManager
	tokens   *TokenIssuer
	logger   *zap.SugaredLogger
}

func NewAuthenticator(users *services.UserService, sessions *SessionManager, tokens *TokenIssuer, logger *zap.SugaredLogger) *Authenticator {
	return &Authenticator{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		logger:   logger,
	}
}

// LoadUser attaches the current user to the request context. A bearer token
// takes precedence over the session cookie. Missing or invalid credentials and
// ids of users that no longer exist leave the request anonymous.
func (a *Authenticator) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, viaToken := a.resolveUserID(r)
		if userID == 0 {
			next.ServeHTTP(w, r)
			return
		}

		user, err := a.users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, services.ErrNotFound) {
				next.ServeHTTP(w, r)
				return
			}
			a.logger.Errorw("failed to load current user", "user_id", userID, "error", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		ctx := withIdentity(r.Context(), identity{user: &user, viaToken: viaToken})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) resolveUserID(r *http.Request) (int, bool) {
	token, present, err := bearerToken(r)
	if present {
		if err != nil {
			return 0, false
		}
		id, err := a.tokens.UserID(token)
		if err != nil {
			a.logger.Debugw("rejected bearer token", "error", err)
			return 0, false
		}
		return id, true
	}

	id, ok := a.sessions.UserID(r)
	if !ok {
		return 0, false
	}
	return id, false
}

// RequireLogin redirects anonymous browsers to the login page.
func (a *Authenticator) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if CurrentUser(r.Context()) == nil {
			http.Redirect(w, r, loginPath, http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireToken rejects API calls that did not present a valid bearer token.
// Session cookies are not accepted here.
func (a *Authenticator) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := identityFromContext(r.Context())
		if id.user == nil || !id.viaToken {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
