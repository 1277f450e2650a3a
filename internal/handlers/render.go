package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/quill-blog/quill/types"
	"go.uber.org/zap"
)

//go:embed templates
var templateFS embed.FS

const (
	pageRegister = "auth/register.html"
	pageLogin    = "auth/login.html"
	pageIndex    = "blog/index.html"
	pageCreate   = "blog/create.html"
	pageUpdate   = "blog/update.html"
)

var pageNames = []string{pageRegister, pageLogin, pageIndex, pageCreate, pageUpdate}

// PageData is everything a template can see.
type PageData struct {
	CurrentUser *types.User
	Flashes     []string
	Posts       []types.Post
	Post        types.Post
	// Form holds the submitted values when a form is shown again after an error.
	Form url.Values
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
	"isAuthor": func(user *types.User, post types.Post) bool {
		return user != nil && post.IsAuthor(user.ID)
	},
}

// Renderer executes the embedded page templates inside the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	base, err := template.New("base.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		layout, err := base.Clone()
		if err != nil {
			return nil, err
		}
		page, err := layout.ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = page
	}
	return &Renderer{pages: pages}, nil
}

// Render writes page into w. It only depends on data.
func (rd *Renderer) Render(w io.Writer, page string, data PageData) error {
	tmpl, ok := rd.pages[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}
	return tmpl.ExecuteTemplate(w, "base.html", data)
}

// pages renders HTML responses with the caller's flashes and identity filled in.
type pages struct {
	renderer *Renderer
	sessions *SessionManager
	logger   *zap.SugaredLogger
}

func (p pages) render(w http.ResponseWriter, r *http.Request, page string, data PageData) {
	data.CurrentUser = CurrentUser(r.Context())
	data.Flashes = p.sessions.PopFlashes(w, r)

	var buf bytes.Buffer
	if err := p.renderer.Render(&buf, page, data); err != nil {
		p.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// abort answers with a bare status page.
func (p pages) abort(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		p.serverError(w, r, err)
		return
	}
	http.Error(w, http.StatusText(status), status)
}

func (p pages) serverError(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.Errorw("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
