package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/quill-blog/quill/config"
	"github.com/quill-blog/quill/internal/db"
	"github.com/quill-blog/quill/internal/handlers"
	"github.com/quill-blog/quill/internal/mq"
	"github.com/quill-blog/quill/internal/services"
	"github.com/quill-blog/quill/internal/store"
	"go.uber.org/zap"
)

// Dependencies are the services the router dispatches to. DB is only used by
// the health check and may be nil.
type Dependencies struct {
	Users *services.UserService
	Posts *services.PostService
	DB    handlers.Pinger
}

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.MQ
	logger     *zap.SugaredLogger
}

// New opens the database and optional event broker and builds the router.
func New(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var publisher services.EventPublisher
	events, err := mq.New(ctx, cfg.MQ)
	switch {
	case errors.Is(err, mq.ErrDisabled):
		logger.Infow("post events disabled")
	case err != nil:
		_ = dbConn.Close()
		return nil, err
	default:
		publisher = events
		logger.Infow("publishing post events", "backend", cfg.MQ.Backend, "channel", events.Channel())
	}

	userRepo := store.NewUserRepository(dbConn)
	postRepo := store.NewPostRepository(dbConn)

	router, err := NewRouter(cfg, Dependencies{
		Users: services.NewUserService(userRepo, cfg.Auth.BcryptCost),
		Posts: services.NewPostService(postRepo, publisher, logger),
		DB:    dbConn,
	}, logger)
	if err != nil {
		_ = dbConn.Close()
		if events != nil {
			_ = events.Close()
		}
		return nil, err
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
		logger:     logger,
	}, nil
}

// NewRouter wires middleware and every route onto a fresh chi router.
func NewRouter(cfg config.Config, deps Dependencies, logger *zap.SugaredLogger) (*chi.Mux, error) {
	sessions, err := handlers.NewSessionManager(cfg.Auth.SessionSecret, cfg.Auth.SessionMaxAge, cfg.Auth.CookieSecure, logger)
	if err != nil {
		return nil, fmt.Errorf("configure sessions: %w", err)
	}
	renderer, err := handlers.NewRenderer()
	if err != nil {
		return nil, err
	}

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = cfg.Auth.SessionSecret
	}
	tokens := handlers.NewTokenIssuer(jwtSecret, time.Duration(cfg.Auth.TokenTTLHours)*time.Hour)
	auth := handlers.NewAuthenticator(deps.Users, sessions, tokens, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		handlers.RequestLogger(logger),
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz(deps.DB))

	router.Group(func(r chi.Router) {
		r.Use(auth.LoadUser)

		r.Route("/auth", func(r chi.Router) {
			handlers.AuthRouter(r, handlers.NewAuthHandler(deps.Users, sessions, renderer))
		})
		r.Route("/api", func(r chi.Router) {
			handlers.APIRouter(r, handlers.NewAPIHandler(deps.Users, deps.Posts, tokens, logger), auth.RequireToken)
		})
		handlers.BlogRouter(r, handlers.NewBlogHandler(deps.Posts, sessions, renderer), auth.RequireLogin)
	})

	return router, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Infow("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx is
// done and releases the database and broker.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.events != nil {
		err = errors.Join(err, s.events.Close())
	}
	if s.db != nil {
		err = errors.Join(err, s.db.Close())
	}
	return err
}
