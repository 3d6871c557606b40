// Package server exposes the REST API over the content service. Routes come
// in two forms: the multi-repository form addresses a repository explicitly,
// the single-repository form resolves the configured default.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"wikigit/internal/config"
	"wikigit/internal/wiki"
)

const httpShutdownTimeout = 10 * time.Second

// ConfigStore gives handlers live configuration access. Apply persists a
// new configuration and returns the field names that only take effect after
// a restart.
type ConfigStore interface {
	Current() *config.Config
	Apply(cfg *config.Config) (restartRequired []string, err error)
}

// Server routes HTTP requests to the content service.
type Server struct {
	service *wiki.ContentService
	configs ConfigStore
	logger  wiki.Logger
}

// New builds a Server over the given service and configuration store.
func New(service *wiki.ContentService, configs ConfigStore, logger wiki.Logger) *Server {
	if logger == nil {
		logger = wiki.NopLogger{}
	}
	return &Server{service: service, configs: configs, logger: logger}
}

func (s *Server) config() *config.Config { return s.configs.Current() }

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/api/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		// Single-repository form, served against the default repository.
		r.Route("/api", func(r chi.Router) {
			s.mountContentRoutes(r, s.defaultRepoID)

			r.Get("/search", s.handleSearch)
			r.Post("/search/reindex", s.requireAdmin(s.handleReindex))
			r.Get("/config", s.requireAdmin(s.handleGetConfig))
			r.Put("/config", s.requireAdmin(s.handlePutConfig))

			r.Get("/repositories", s.handleListRepositories)
			r.Post("/repositories", s.requireAdmin(s.handleAddRepository))
			r.Route("/repositories/{repoID}", func(r chi.Router) {
				r.Get("/", s.handleGetRepository)
				r.Put("/", s.requireAdmin(s.handleUpdateRepository))
				r.Delete("/", s.requireAdmin(s.handleRemoveRepository))
				r.Post("/sync", s.handleSyncRepository)
				r.Get("/status", s.handleRepositoryStatus)

				// Multi-repository form of the content routes.
				s.mountContentRoutes(r, s.pathRepoID)
			})
		})
	})
	return r
}

// logRequests logs one line per request with the resolved status.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}

// repoResolver yields the repository id a content request addresses.
type repoResolver func(r *http.Request) (string, error)

// pathRepoID takes the repository id from the URL.
func (s *Server) pathRepoID(r *http.Request) (string, error) {
	return chi.URLParam(r, "repoID"), nil
}

// defaultRepoID resolves the single-repository route form: the configured
// default repository, or the only enabled one.
func (s *Server) defaultRepoID(r *http.Request) (string, error) {
	if id := s.config().App.DefaultRepository; id != "" {
		return id, nil
	}
	repos, err := s.service.EnabledRepositories(r.Context())
	if err != nil {
		return "", err
	}
	switch len(repos) {
	case 0:
		return "", fmt.Errorf("%w: no enabled repositories", wiki.ErrNotFound)
	case 1:
		return repos[0].ID, nil
	default:
		return "", fmt.Errorf("%w: multiple repositories configured, use the repository-scoped routes", wiki.ErrValidation)
	}
}

// mountContentRoutes registers the article, directory, and file routes
// under the current chi route, resolving the repository via resolve.
func (s *Server) mountContentRoutes(r chi.Router, resolve repoResolver) {
	r.Get("/articles", s.handleListArticles(resolve))
	r.Post("/articles", s.handleCreateArticle(resolve))
	r.Get("/articles/*", s.handleGetArticleForms(resolve))
	r.Put("/articles/*", s.handleUpdateArticle(resolve))
	r.Delete("/articles/*", s.handleDeleteArticle(resolve))
	r.Post("/articles/*", s.handleMoveArticle(resolve))

	r.Get("/directories", s.handleGetTree(resolve))
	r.Post("/directories", s.handleCreateDirectory(resolve))
	r.Delete("/directories/*", s.handleDeleteDirectory(resolve))
	r.Post("/directories/*", s.handleMoveDirectory(resolve))

	r.Get("/media", s.handleListMedia(resolve))
	r.Post("/media", s.handleUploadMedia(resolve))
	r.Delete("/media/{filename}", s.handleDeleteMedia(resolve))

	r.Get("/files/*", s.handleGetFile(resolve))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	docs, err := s.service.IndexDocCount()
	status := "ok"
	if err != nil {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            status,
		"indexed_documents": docs,
	})
}

// ListenAndServe runs the HTTP server until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.logger.Info("http server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
