package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quill-blog/quill/internal/services"
)

const (
	indexPath    = "/"
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
)

// AuthHandler serves the browser register, login and logout pages.
type AuthHandler struct {
	users    *services.UserService
	sessions *SessionManager
	pages    pages
}

func NewAuthHandler(users *services.UserService, sessions *SessionManager, renderer *Renderer) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		pages:    pages{renderer: renderer, sessions: sessions, logger: sessions.logger},
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Get("/register", handler.RegisterForm)
	r.Post("/register", handler.Register)
	r.Get("/login", handler.LoginForm)
	r.Post("/login", handler.Login)
	r.Get("/logout", handler.Logout)
}

func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, pageRegister, PageData{})
}

// Register creates the account and sends the browser to the login page.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.abort(w, r, http.StatusBadRequest, err)
		return
	}

	_, err := h.users.Register(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		if isUserError(err) {
			h.sessions.AddFlash(r, err.Error())
			h.pages.render(w, r, pageRegister, PageData{Form: r.PostForm})
			return
		}
		h.pages.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, loginPath, http.StatusFound)
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, pageLogin, PageData{})
}

// Login starts a fresh session for the user.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.abort(w, r, http.StatusBadRequest, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), r.PostForm.Get("username"), r.PostForm.Get("password"))
	if err != nil {
		if isUserError(err) {
			h.sessions.AddFlash(r, err.Error())
			h.pages.render(w, r, pageLogin, PageData{Form: r.PostForm})
			return
		}
		h.pages.serverError(w, r, err)
		return
	}

	if err := h.sessions.Login(w, r, user.ID); err != nil {
		h.pages.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, indexPath, http.StatusFound)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		h.pages.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, indexPath, http.StatusFound)
}
