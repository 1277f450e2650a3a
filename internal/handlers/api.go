package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quill-blog/quill/internal/services"
	"github.com/quill-blog/quill/types"
	"go.uber.org/zap"
)

// APIHandler exposes users and posts as JSON for token-authenticated clients.
type APIHandler struct {
	users  *services.UserService
	posts  *services.PostService
	tokens *TokenIssuer
	logger *zap.SugaredLogger
}

func NewAPIHandler(users *services.UserService, posts *services.PostService, tokens *TokenIssuer, logger *zap.SugaredLogger) *APIHandler {
	return &APIHandler{
		users:  users,
		posts:  posts,
		tokens: tokens,
		logger: logger,
	}
}

// APIRouter registers the JSON routes on the given router.
func APIRouter(r chi.Router, handler *APIHandler, requireToken func(http.Handler) http.Handler) {
	r.Post("/auth/register", handler.Register)
	r.Post("/auth/token", handler.Token)
	r.With(requireToken).Get("/auth/me", handler.Me)

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", handler.ListPosts)
		r.With(requireToken).Post("/", handler.CreatePost)

		r.Route("/{"+postIDParam+"}", func(r chi.Router) {
			r.Use(postCtx(handler.posts, handler.fail))
			r.Get("/", handler.GetPost)
			r.With(requireToken).Put("/", handler.UpdatePost)
			r.With(requireToken).Delete("/", handler.DeletePost)
		})
	})
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type PostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}

type PostListResponse struct {
	Items []types.Post `json:"items"`
}

// Register creates a new user account and returns a token.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeToken(w, r, http.StatusCreated, user)
}

// Token verifies credentials and returns a token.
func (h *APIHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeToken(w, r, http.StatusOK, user)
}

func (h *APIHandler) writeToken(w http.ResponseWriter, r *http.Request, status int, user types.User) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, status, AuthResponse{Token: token, User: user})
}

// Me returns the current authenticated user.
func (h *APIHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, CurrentUser(r.Context()))
}

func (h *APIHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, PostListResponse{Items: posts})
}

func (h *APIHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, _ := postFromContext(r.Context())
	writeJSON(w, http.StatusOK, post)
}

func (h *APIHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	post, err := h.posts.Create(r.Context(), *CurrentUser(r.Context()), req.Title, req.Body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *APIHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var req PostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	post, _ := postFromContext(r.Context())
	updated, err := h.posts.Update(r.Context(), *CurrentUser(r.Context()), post.ID, req.Title, req.Body)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *APIHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	post, _ := postFromContext(r.Context())
	if err := h.posts.Delete(r.Context(), *CurrentUser(r.Context()), post.ID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeServiceError turns a service error into a JSON error response. Input
// and credential errors carry their user-facing message.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrForbidden):
		h.fail(w, r, http.StatusForbidden, err)
	case errors.Is(err, services.ErrNotFound):
		h.fail(w, r, http.StatusNotFound, err)
	default:
		h.fail(w, r, http.StatusInternalServerError, err)
	}
}

func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Errorw("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, status, statusMessage(status))
}

func statusMessage(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not found"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal error"
	default:
		return http.StatusText(status)
	}
}
