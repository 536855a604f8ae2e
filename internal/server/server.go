// Package server is the development HTTP server for a built site.
package server

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/blogbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/blogbuilder/internal/metrics"
)

// MetricsPath serves the Prometheus registry.
const MetricsPath = "/_metrics"

const notFoundTemplate = `<!doctype html>
<html><head><meta charset="utf-8"><title>Error response</title></head>
<body>
<h1>404 Error</h1>
<p>This site is configured for a subdirectory, maybe you were looking for the root page? <a href="%[1]s">%[1]s</a></p>
</body></html>`

// Options configures a Server.
type Options struct {
	// Root is the published tree.
	Root string
	// SitePath is the URL path the site is mounted at ("" for the domain root).
	SitePath string
	// Registry is exposed at MetricsPath when set.
	Registry *prom.Registry
	Logger   *slog.Logger
}

// Server serves the published tree below the site's URL path.
type Server struct {
	opts   Options
	logger *slog.Logger
	srv    *http.Server
	addr   net.Addr
}

// New constructs a server. Call Start to listen.
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	opts.SitePath = strings.TrimRight(opts.SitePath, "/")
	return &Server{opts: opts, logger: logger}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	if s.opts.Registry != nil {
		mux.Handle(MetricsPath, metrics.HTTPHandler(s.opts.Registry))
	}

	files := http.FileServer(http.Dir(s.opts.Root))
	if s.opts.SitePath == "" {
		mux.Handle("/", files)
	} else {
		mux.Handle(s.opts.SitePath+"/", http.StripPrefix(s.opts.SitePath, files))
		mux.Handle(s.opts.SitePath, http.RedirectHandler(s.opts.SitePath+"/", http.StatusMovedPermanently))
		mux.HandleFunc("/", s.notFound)
	}
	return Chain(s.logger)(mux)
}

// notFound points visitors outside the site's subdirectory at its root.
func (s *Server) notFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = fmt.Fprintf(w, notFoundTemplate, html.EscapeString(s.opts.SitePath+"/"))
}

// Start binds addr and serves in the background.
func (s *Server) Start(ctx context.Context, addr string) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "http startup failed").
			WithContext("addr", addr).Build()
	}
	s.addr = ln.Addr()
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()
	s.logger.Info("Serving site", slog.String("addr", s.addr.String()), slog.String("site_path", s.opts.SitePath+"/"))
	return nil
}

// Addr is the bound address, available after Start.
func (s *Server) Addr() string {
	if s.addr == nil {
		return ""
	}
	return s.addr.String()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
