package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/quill-blog/quill/internal/services"
)

// BlogHandler serves the post pages.
type BlogHandler struct {
	posts    *services.PostService
	sessions *SessionManager
	pages    pages
}

func NewBlogHandler(posts *services.PostService, sessions *SessionManager, renderer *Renderer) *BlogHandler {
	return &BlogHandler{
		posts:    posts,
		sessions: sessions,
		pages:    pages{renderer: renderer, sessions: sessions, logger: sessions.logger},
	}
}

// BlogRouter registers the post pages. The post is looked up before the login
// guard runs, so an unknown id is a 404 for everyone.
func BlogRouter(r chi.Router, handler *BlogHandler, requireLogin func(http.Handler) http.Handler) {
	r.Get("/", handler.Index)
	r.With(requireLogin).Get("/create", handler.CreateForm)
	r.With(requireLogin).Post("/create", handler.Create)

	r.Route("/{"+postIDParam+"}", func(r chi.Router) {
		r.Use(postCtx(handler.posts, handler.pages.abort))
		r.With(requireLogin, handler.requireAuthor).Get("/update", handler.UpdateForm)
		r.With(requireLogin, handler.requireAuthor).Post("/update", handler.Update)
		r.With(requireLogin, handler.requireAuthor).Post("/delete", handler.Delete)
	})
}

func (h *BlogHandler) requireAuthor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		post, ok := postFromContext(r.Context())
		user := CurrentUser(r.Context())
		if !ok || user == nil {
			h.pages.abort(w, r, http.StatusNotFound, nil)
			return
		}
		if err := services.CheckAuthor(post, *user); err != nil {
			h.pages.abort(w, r, http.StatusForbidden, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Index lists every post, newest first.
func (h *BlogHandler) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		h.pages.serverError(w, r, err)
		return
	}
	h.pages.render(w, r, pageIndex, PageData{Posts: posts})
}

func (h *BlogHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, pageCreate, PageData{})
}

func (h *BlogHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.abort(w, r, http.StatusBadRequest, err)
		return
	}

	user := CurrentUser(r.Context())
	_, err := h.posts.Create(r.Context(), *user, r.PostForm.Get("title"), r.PostForm.Get("body"))
	if err != nil {
		if isUserError(err) {
			h.sessions.AddFlash(r, err.Error())
			h.pages.render(w, r, pageCreate, PageData{Form: r.PostForm})
			return
		}
		h.pages.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, indexPath, http.StatusFound)
}

func (h *BlogHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	post, _ := postFromContext(r.Context())
	h.pages.render(w, r, pageUpdate, PageData{Post: post})
}

func (h *BlogHandler) Update(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.abort(w, r, http.StatusBadRequest, err)
		return
	}

	post, _ := postFromContext(r.Context())
	user := CurrentUser(r.Context())
	_, err := h.posts.Update(r.Context(), *user, post.ID, r.PostForm.Get("title"), r.PostForm.Get("body"))
	if err != nil {
		if isUserError(err) {
			h.sessions.AddFlash(r, err.Error())
			h.pages.render(w, r, pageUpdate, PageData{Post: post, Form: r.PostForm})
			return
		}
		h.pages.abort(w, r, statusForPostError(err), err)
		return
	}

	http.Redirect(w, r, indexPath, http.StatusFound)
}

func (h *BlogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	post, _ := postFromContext(r.Context())
	user := CurrentUser(r.Context())
	if err := h.posts.Delete(r.Context(), *user, post.ID); err != nil {
		h.pages.abort(w, r, statusForPostError(err), err)
		return
	}
	http.Redirect(w, r, indexPath, http.StatusFound)
}

// statusForPostError maps the post gate errors to their HTTP status.
func statusForPostError(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
