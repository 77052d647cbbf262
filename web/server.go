// Package web serves the single-page image creator over one studio.Controller.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mhpenta/magicimage"
	"github.com/mhpenta/magicimage/metrics"
	"github.com/mhpenta/magicimage/studio"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxUploadBytes bounds a multipart attach request.
const maxUploadBytes = magicimage.MaxImageSize + 1<<20

// Server renders the page and maps form posts onto controller operations.
type Server struct {
	ctrl      *studio.Controller
	store     magicimage.Storage
	metrics   *metrics.Collector
	logger    *slog.Logger
	templates *template.Template

	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration

	postRPS   float64
	postBurst int

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStorage archives every download into store.
func WithStorage(store magicimage.Storage) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithMetrics records request metrics and serves them at /metrics.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) {
		s.metrics = c
	}
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithTimeouts sets the http.Server timeouts. Zero keeps the default.
func WithTimeouts(read, write, idle time.Duration) Option {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
		if idle > 0 {
			s.idleTimeout = idle
		}
	}
}

// WithPostRateLimit limits form posts per client IP. rps <= 0 disables it.
func WithPostRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.postRPS = rps
		s.postBurst = burst
	}
}

// New parses the embedded page template and builds a Server.
func New(ctrl *studio.Controller, opts ...Option) (*Server, error) {
	if ctrl == nil {
		return nil, errors.New("web: controller is required")
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"imageURL": imageURL,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		ctrl:         ctrl,
		logger:       slog.Default(),
		templates:    tmpl,
		addr:         "localhost:8080",
		readTimeout:  15 * time.Second,
		writeTimeout: 180 * time.Second,
		idleTimeout:  60 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.writeTimeout,
		IdleTimeout:       s.idleTimeout,
	}
	return s, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(
		RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		Logger(s.logger),
	)
	if s.metrics != nil {
		r.Use(Metrics(s.metrics))
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)
	r.Get("/download", s.handleDownload)
	r.Get("/api/state", s.handleState)

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(s.postRPS, s.postBurst, s.logger))

		r.Post("/generate", s.handleGenerate)
		r.Post("/prompt/clear", s.handleClearPrompt)
		r.Post("/image", s.handleAttach)
		r.Post("/image/remove", s.handleRemoveImage)
		r.Post("/reset", s.handleReset)
	})

	return r
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// imageURL marks generated data URLs as safe for src attributes.
func imageURL(s string) template.URL {
	if !strings.HasPrefix(s, "data:image/") {
		return ""
	}
	return template.URL(s)
}
