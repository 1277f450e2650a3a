package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/quill-blog/quill/internal/services"
	"github.com/quill-blog/quill/types"
)

type contextKey string

const (
	contextIdentityKey contextKey = "identity"
	contextPostKey     contextKey = "post"
)

const postIDParam = "postID"

// identity is the resolved caller of a request.
type identity struct {
	user     *types.User
	viaToken bool
}

func withIdentity(ctx context.Context, id identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, id)
}

func identityFromContext(ctx context.Context) identity {
	id, _ := ctx.Value(contextIdentityKey).(identity)
	return id
}

// CurrentUser returns the authenticated user of the request, or nil.
func CurrentUser(ctx context.Context) *types.User {
	return identityFromContext(ctx).user
}

func postFromContext(ctx context.Context) (types.Post, bool) {
	post, ok := ctx.Value(contextPostKey).(types.Post)
	return post, ok
}

func parsePostID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, postIDParam)
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id < 1 {
		return 0, errors.New("invalid post id")
	}
	return id, nil
}

// postCtx loads the post named in the URL before any auth check runs, so an
// unknown id is reported as missing whoever asks. fail is called with 404 or
// 500.
func postCtx(posts *services.PostService, fail func(w http.ResponseWriter, r *http.Request, status int, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := parsePostID(r)
			if err != nil {
				fail(w, r, http.StatusNotFound, err)
				return
			}

			post, err := posts.Get(r.Context(), id)
			if err != nil {
				if errors.Is(err, services.ErrNotFound) {
					fail(w, r, http.StatusNotFound, err)
					return
				}
				fail(w, r, http.StatusInternalServerError, err)
				return
			}

			ctx := context.WithValue(r.Context(), contextPostKey, post)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// isUserError reports whether err should be shown to the user instead of
// being treated as a server failure.
func isUserError(err error) bool {
	return errors.Is(err, services.ErrInvalidInput) ||
		errors.Is(err, services.ErrConflict) ||
		errors.Is(err, services.ErrUnauthorized)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
