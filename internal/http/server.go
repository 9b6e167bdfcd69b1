package http

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	applog "vendas/internal/log"
	"vendas/internal/middleware/ratelimit"
	"vendas/internal/middleware/security"
	"vendas/internal/middleware/trace"
	"vendas/internal/services"
	appweb "vendas/web"
)

// ServerConfig tunes the dashboard server.
type ServerConfig struct {
	Location        *time.Location // display timezone for "data updated at"
	ReloadRateLimit int            // manual reloads per minute per client
	Logger          *applog.Logger
}

// Server serves the dashboard page, its JSON API and the reload endpoint.
type Server struct {
	http.Server

	dashboard *services.DashboardService
	templates *template.Template
	location  *time.Location
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	tracer    *trace.Middleware
	logger    *applog.StructuredLogger

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, dashboard *services.DashboardService, cfg ServerConfig) *Server {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = applog.New(applog.DefaultConfig())
	}
	httpLogger := cfg.Logger.WithComponent(applog.ComponentHTTP)

	detector := security.NewDetector()
	s := &Server{
		dashboard: dashboard,
		location:  cfg.Location,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.ReloadRateLimit}),
		detector:  detector,
		tracer:    trace.NewMiddleware(detector.ExtractClientIP, httpLogger),
		logger:    applog.NewStructuredLogger(httpLogger),
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	mux.Handle("GET /{$}", security.NoStore(http.HandlerFunc(s.handleIndex)))
	mux.Handle("GET /api/snapshot", security.NoStore(http.HandlerFunc(s.handleSnapshot)))
	mux.Handle("GET /api/periods", security.NoStore(http.HandlerFunc(s.handlePeriods)))
	mux.Handle("POST /reload", s.limiter.Middleware(detector.ExtractClientIP, s.handleRateLimited)(http.HandlerFunc(s.handleReload)))
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var handler http.Handler = mux
	handler = detector.Middleware(handler)
	handler = headers.Middleware(handler)
	handler = applog.RequestIDMiddleware(trace.RequestID)(handler)
	handler = applog.Middleware(httpLogger)(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// render executes a template into a buffer first so a failing template
// never leaves a half-written page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.LogError(r.Context(), "Template execution failed", err, applog.OpRender, applog.NewFields().WithComponent(applog.ComponentTemplate))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", applog.FieldError, err)
	}
}
