// Package server serves a site for local preview, rendering configured
// pages on each request so edits to pages and data show up on reload.
package server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/subhylahiri/sitegen/internal/config"
	"github.com/subhylahiri/sitegen/internal/site"
)

// Config holds server configuration.
type Config struct {
	Port int
	Root string // site root on disk
}

// Server is the local preview server.
type Server struct {
	cfg        Config
	site       *config.Config
	renderer   *site.Renderer
	logger     *zap.Logger
	router     chi.Router
	httpServer *http.Server
}

// New creates a preview server for the site at cfg.Root.
func New(cfg Config, siteCfg *config.Config, renderer *site.Renderer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		site:     siteCfg,
		renderer: renderer,
		logger:   logger,
	}

	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	files := http.FileServer(http.Dir(s.cfg.Root))
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		if page, ok := s.site.FindPage(pagePath(r.URL.Path)); ok {
			s.servePage(w, r, page)
			return
		}
		files.ServeHTTP(w, r)
	})

	return r
}

// pagePath maps a request path to a page path, directories to their
// index.html.
func pagePath(urlPath string) string {
	p := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if p == "" || strings.HasSuffix(urlPath, "/") {
		p = path.Join(p, "index.html")
	}
	return p
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request, page config.Page) {
	src, err := os.Open(filepath.Join(s.cfg.Root, filepath.FromSlash(page.Path)))
	if err != nil {
		http.Error(w, "page not found", http.StatusNotFound)
		return
	}
	defer src.Close()

	var buf bytes.Buffer
	result, err := s.renderer.RenderPage(r.Context(), page, src, &buf)
	if err != nil {
		s.logger.Error("rendering page", zap.String("page", page.Path), zap.Error(err))
		http.Error(w, "rendering failed", http.StatusInternalServerError)
		return
	}
	if result.Failed() {
		w.Header().Set("X-Render-Warnings", fmt.Sprint(countFailed(result)))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func countFailed(result site.PageResult) int {
	n := 0
	for _, sec := range result.Sections {
		if sec.Error != "" {
			n++
		}
	}
	return n
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Router returns the chi router.
func (s *Server) Router() chi.Router { return s.router }

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("localhost:%d", s.cfg.Port)
}

// Start begins listening on the configured port.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.Addr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("preview server listening", zap.String("url", "http://"+s.Addr()+"/"))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
