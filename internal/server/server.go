// Package server provides the HTTP server for the mudra sign interpretation service.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/translate"
)

// DefaultMaxBodyBytes bounds request bodies when Config.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 10 << 20

// Config holds the server configuration. Interpreter is required; the other
// collaborators switch their routes off when nil.
type Config struct {
	Interpreter api.Interpreter
	Translator  api.Translator
	Audio       *translate.AudioStore
	Store       *store.Store
	Metrics     *metrics.Metrics
	Logger      *zap.Logger

	// WebDir, when set, is served at "/" (the browser frontend).
	WebDir         string
	AllowedOrigin  string
	MaxBodyBytes   int64
	TranslateRPS   float64
	TranslateBurst int
}

// Server represents the HTTP server for the mudra service.
type Server struct {
	config  Config
	mux     *http.ServeMux
	handler http.Handler
	ws      *InterpretHandler
	logger  *zap.Logger
	start   time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.AllowedOrigin == "" {
		config.AllowedOrigin = "*"
	}
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		logger: logger,
		start:  time.Now(),
	}
	s.setupRoutes()
	s.handler = cors(config.AllowedOrigin, limitBody(config.MaxBodyBytes, s.mux))
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	m := s.config.Metrics

	s.handle("/api/health", http.HandlerFunc(s.handleHealth))

	if s.config.Interpreter != nil {
		s.handle("/sign_interpret", api.NewSignHandler(s.config.Interpreter, s.logger.Named("api")))
		s.ws = NewInterpretHandler(s.config.Interpreter, s.config.AllowedOrigin, s.logger.Named("ws"))
		s.mux.Handle("/api/sign_interpret/ws", s.ws)
	}

	var translateHandler http.Handler = api.NewTranslateHandler(s.config.Translator, s.logger.Named("api"))
	if s.config.TranslateRPS > 0 {
		burst := s.config.TranslateBurst
		if burst < 1 {
			burst = 1
		}
		translateHandler = rateLimit(rate.NewLimiter(rate.Limit(s.config.TranslateRPS), burst), translateHandler)
	}
	s.handle("/translate", translateHandler)

	if s.config.Audio != nil {
		s.handle(api.StaticPrefix, api.NewAudioHandler(s.config.Audio))
	}

	if s.config.Store != nil {
		history := api.NewHistoryHandler(s.config.Store)
		s.handle("/api/interpretations", http.HandlerFunc(history.Interpretations))
		s.handle("/api/translations", http.HandlerFunc(history.Translations))
	}

	if m != nil {
		s.mux.Handle("/metrics", m.Handler())
	}

	// Serve the frontend if WebDir is configured
	if s.config.WebDir != "" {
		fs := http.FileServer(http.Dir(s.config.WebDir))
		s.mux.Handle("/", fs)
	}
}

// handle registers h under pattern, counting responses per route.
func (s *Server) handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, instrument(s.config.Metrics, pattern, h))
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type healthResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	ModelLoaded bool   `json:"model_loaded"`
	Translation bool   `json:"translation"`
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := healthResponse{
		Status:      "ok",
		Uptime:      time.Since(s.start).Round(time.Second).String(),
		ModelLoaded: s.config.Interpreter != nil && s.config.Interpreter.ModelAvailable(),
		Translation: s.config.Translator != nil && s.config.Translator.Enabled(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully,
// waiting up to shutdownTimeout for in-flight requests.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln, shutdownTimeout)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.ws != nil {
		srv.RegisterOnShutdown(s.ws.CloseAll)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
