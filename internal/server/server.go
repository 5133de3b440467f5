package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/omriShneor/room_booking_agent/internal/auth"
	"github.com/omriShneor/room_booking_agent/internal/checkpoint"
	"github.com/omriShneor/room_booking_agent/internal/database"
	"github.com/omriShneor/room_booking_agent/internal/history"
	"github.com/omriShneor/room_booking_agent/internal/navigate"
	"github.com/omriShneor/room_booking_agent/internal/normalize"
	"github.com/omriShneor/room_booking_agent/internal/run"
	"github.com/omriShneor/room_booking_agent/internal/sse"
)

type Server struct {
	db          *database.DB
	authService *auth.Service
	sessions    *auth.Middleware
	runner      *run.Runner
	states      *sse.StateManager
	gates       *checkpoint.Channel
	history     *history.Store
	normalizer  *normalize.Normalizer
	envCreds    navigate.Credentials
	emailReady  bool
	httpSrv     *http.Server
	port        int
	logger      zerolog.Logger

	// runCtx bounds background runs, which outlive the request that started them
	runCtx    context.Context
	cancelRun context.CancelFunc
}

// Config holds everything the server is wired with
type Config struct {
	DB          *database.DB
	AuthService *auth.Service
	Runner      *run.Runner
	States      *sse.StateManager
	Gates       *checkpoint.Channel
	History     *history.Store
	Normalizer  *normalize.Normalizer

	// EnvCredentials are used when the session stored none
	EnvCredentials navigate.Credentials

	EmailConfigured bool
	SecureCookies   bool
	Port            int
}

func New(cfg Config) *Server {
	runCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		db:          cfg.DB,
		authService: cfg.AuthService,
		runner:      cfg.Runner,
		states:      cfg.States,
		gates:       cfg.Gates,
		history:     cfg.History,
		normalizer:  cfg.Normalizer,
		envCreds:    cfg.EnvCredentials,
		emailReady:  cfg.EmailConfigured,
		port:        cfg.Port,
		logger:      log.With().Str("component", "server").Logger(),
		runCtx:      runCtx,
		cancelRun:   cancel,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	var handler http.Handler = mux
	if s.authService != nil {
		s.sessions = auth.NewMiddleware(s.authService, cfg.SecureCookies)
		handler = s.sessions.Session(handler)
	}

	s.httpSrv = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.corsMiddleware(handler),
		ReadTimeout: 15 * time.Second,
		// Runs drive a browser and SSE streams stay open, so no write timeout
		IdleTimeout: 60 * time.Second,
	}

	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealthCheck)

	// Booking API
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/book", s.handleBook)

	// Portal credentials
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)

	// History and runs
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRunStatus)
	mux.HandleFunc("GET /api/runs/{id}/stream", s.handleRunSSE)
	mux.HandleFunc("POST /api/runs/{id}/resume", s.handleResumeRun)
}

func (s *Server) Start() error {
	s.logger.Info().Int("port", s.port).Msgf("Starting HTTP server on http://localhost:%d", s.port)
	return s.httpSrv.ListenAndServe()
}

// Shutdown stops accepting requests and cancels background runs
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelRun()
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the server's HTTP handler for testing purposes
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// corsMiddleware adds CORS headers to allow browser clients
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
