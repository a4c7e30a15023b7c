// Package api exposes the HTTP control surface spec.md §6 describes: a
// thin Echo layer over the Persistence Store, Repository Manager,
// Auto-Scanner supervisor and RAG pipeline. It is not part of the core
// engine, only what makes the engine reachable from a UI.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/kraklabs/devsentry/internal/llmgateway"
	"github.com/kraklabs/devsentry/internal/metrics"
	"github.com/kraklabs/devsentry/internal/rag"
	"github.com/kraklabs/devsentry/internal/repomanager"
	"github.com/kraklabs/devsentry/internal/scanner"
	"github.com/kraklabs/devsentry/internal/store"
	"github.com/kraklabs/devsentry/internal/tasks"
)

// Server wires the Persistence Store and the engine components reachable
// over HTTP.
type Server struct {
	echo *echo.Echo

	store     *store.Store
	repos     *repomanager.Manager
	scanner   *scanner.Supervisor
	indexer   *rag.Indexer
	searcher  *rag.Searcher
	gateway   *llmgateway.Gateway
	tasks     *tasks.Generator
	version   string
}

// Config is the set of dependencies and version metadata Server needs.
type Config struct {
	Store    *store.Store
	Repos    *repomanager.Manager
	Scanner  *scanner.Supervisor
	Indexer  *rag.Indexer
	Searcher *rag.Searcher
	Gateway  *llmgateway.Gateway
	Tasks    *tasks.Generator
	Version  string
}

// New builds an Echo-backed Server with the standard middleware stack
// (logger, recover, request id, CORS) matched to the pack's usual HTTP
// bootstrap shape.
func New(cfg Config) *Server {
	s := &Server{
		store: cfg.Store, repos: cfg.Repos, scanner: cfg.Scanner,
		indexer: cfg.Indexer, searcher: cfg.Searcher, gateway: cfg.Gateway,
		tasks: cfg.Tasks, version: cfg.Version,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "[${time_rfc3339}] ${status} ${method} ${uri} (${latency_human})\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
	}))
	e.HTTPErrorHandler = s.errorHandler

	s.echo = e
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.POST("/repos", s.handleCreateRepo)
	s.echo.POST("/repos/:id/settings", s.handleUpdateRepoSettings)
	s.echo.GET("/repos/:id/progress", s.handleRepoProgress)

	s.echo.POST("/api/notes", s.handleCreateNote)
	s.echo.DELETE("/api/notes/:id", s.handleDeleteNote)

	s.echo.POST("/api/ideas", s.handleCreateIdea)
	s.echo.GET("/api/ideas", s.handleListIdeas)

	s.echo.GET("/api/docs/search", s.handleSearchDocs)
	s.echo.POST("/api/docs", s.handleCreateDoc)

	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// Start runs the HTTP server until the process is shut down; it blocks
// until the listener returns (spec.md §6 external interfaces are not
// part of the core but are required for it to be useful).
func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

// Shutdown gracefully stops the listener within the given timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
