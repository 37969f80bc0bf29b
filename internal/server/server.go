package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/nhdewitt/diagweb/internal/catalog"
	"github.com/nhdewitt/diagweb/internal/platform"
	"github.com/nhdewitt/diagweb/internal/runner"
)

//go:embed templates/*.html static/*
var assets embed.FS

var templateFuncs = template.FuncMap{
	"deref": func(p *int64) int64 {
		if p == nil {
			return 0
		}
		return *p
	},
}

type Config struct {
	Listen       string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type Server struct {
	Config  Config
	Catalog *catalog.Store
	Runner  *runner.Runner
	Family  platform.Family
	Info    platform.Info
	Router  *http.ServeMux

	tmpl *template.Template
}

// New wires the routes for the current platform.
func New(cfg Config, store *catalog.Store, r *runner.Runner) *Server {
	s := &Server{
		Config:  cfg,
		Catalog: store,
		Runner:  r,
		Family:  platform.Current(),
		Info:    platform.Detect(),
		Router:  http.NewServeMux(),
		tmpl:    template.Must(template.New("").Funcs(templateFuncs).ParseFS(assets, "templates/*.html")),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("GET /{$}", s.handleIndex)
	s.Router.HandleFunc("GET /favicon.ico", s.handleFavicon)
	s.Router.HandleFunc("GET /healthz", s.handleHealth)
	s.Router.HandleFunc("GET /api/platform", s.handlePlatform)
	s.Router.HandleFunc("GET /api/commands", s.handleListCommands)
	s.Router.HandleFunc("GET /api/commands/{id}/options", s.handleListOptions)
	s.Router.HandleFunc("GET /api/executions", s.handleListExecutions)
	s.Router.HandleFunc("POST /execute/{id}", s.handleExecute)
	s.Router.HandleFunc("POST /stop/{id}", s.handleStop)
}

// Handler returns the router wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return logRequests(s.Router)
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.Config.Listen,
		Handler:      s.Handler(),
		ReadTimeout:  s.Config.ReadTimeout,
		WriteTimeout: s.Config.WriteTimeout,
		IdleTimeout:  s.Config.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("diagweb listening on %s (%s, %s)", s.Config.Listen, s.Family, s.Info.Label())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
