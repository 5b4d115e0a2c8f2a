// Package server provides the HTTP server setup and wiring.
package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pendergraft/skillcert/internal/auth"
	"github.com/pendergraft/skillcert/internal/config"
	"github.com/pendergraft/skillcert/internal/contract"
	"github.com/pendergraft/skillcert/internal/middleware/logging"
	"github.com/pendergraft/skillcert/internal/middleware/ratelimit"
	"github.com/pendergraft/skillcert/internal/middleware/realip"
	"github.com/pendergraft/skillcert/internal/middleware/security"
	"github.com/pendergraft/skillcert/internal/observability/metrics"
	"github.com/pendergraft/skillcert/internal/session"
	submissionDomain "github.com/pendergraft/skillcert/internal/submission/domain"
	submissionTransport "github.com/pendergraft/skillcert/internal/submission/transport"
	verificationDomain "github.com/pendergraft/skillcert/internal/verification/domain"
	verificationTransport "github.com/pendergraft/skillcert/internal/verification/transport"
	"github.com/pendergraft/skillcert/internal/web"
)

// probePaths are never filtered, limited or logged above debug.
var probePaths = []string{"/health", "/healthz", "/readyz", "/metrics"}

// Version is reported by the health endpoints.
var Version = "dev"

// Server is the HTTP server
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	router   *chi.Mux
	sessions *session.Manager
	keys     *auth.Keyring

	submissionSvc   submissionDomain.Submitter
	verificationSvc verificationDomain.Verifier
	console         *web.Console
}

// New creates a new server. The pinner uploads certificate files and the
// artifact describes the deployed contract.
func New(cfg *config.Config, sessions *session.Manager, pinner submissionDomain.Pinner, artifact *contract.Artifact, logger *slog.Logger) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		router:   chi.NewRouter(),
		sessions: sessions,
	}

	if cfg.Auth.Type == "api-key" {
		keys, err := auth.NewKeyring(cfg.Auth.KeyHashes)
		if err != nil {
			return nil, fmt.Errorf("API_KEY_HASHES: %w", err)
		}
		if keys.Len() == 0 {
			return nil, fmt.Errorf("AUTH_TYPE=api-key requires API_KEY_HASHES")
		}
		s.keys = keys
	}

	deployments, err := artifact.Deployments(cfg.Chain.Deployments)
	if err != nil {
		return nil, fmt.Errorf("resolving deployments: %w", err)
	}

	// Create domain services, wrapped with logging and metrics
	submitImpl := submissionDomain.NewService(pinner)
	s.submissionSvc = submissionDomain.InstrumentingMiddleware()(submissionDomain.LoggingMiddleware(logger)(submitImpl))

	verifyImpl := verificationDomain.NewService(sessions.Provider(), artifact, deployments)
	s.verificationSvc = verificationDomain.InstrumentingMiddleware()(verificationDomain.LoggingMiddleware(logger)(verifyImpl))

	if cfg.Server.Console {
		console, err := web.New(s.submissionSvc, s.verificationSvc, sessions, logger)
		if err != nil {
			return nil, fmt.Errorf("loading console templates: %w", err)
		}
		s.console = console
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	// Order matters! Security middleware runs first to block malicious requests early.

	// 1. Real IP extraction (must be first to set client IP for other middleware)
	s.router.Use(realip.Middleware(realip.Config{
		TrustProxy:     s.cfg.Proxy.TrustProxy,
		TrustedProxies: s.cfg.Proxy.TrustedProxies,
	}))

	// 2. Security filter
	s.router.Use(security.Filter(s.cfg.Security.FilterEnabled, probePaths...))

	// 3. Body size limits; uploads get their own
	s.router.Use(security.BodyLimit(s.cfg.Security.MaxBodySizeMB, s.cfg.Security.MaxUploadSizeMB))

	// 4. Rate limiting, with a separate budget for submissions
	s.router.Use(ratelimit.Middleware(ratelimit.Config{
		Enabled:             s.cfg.RateLimit.Enabled,
		RequestsPerMin:      s.cfg.RateLimit.RequestsPerMin,
		WriteRequestsPerMin: s.cfg.RateLimit.WriteRequestsPerMin,
		BurstSize:           s.cfg.RateLimit.BurstSize,
		CleanupMinutes:      s.cfg.RateLimit.CleanupMinutes,
		Classify:            classify,
		Exempt:              probePaths,
	}))

	// 5. Standard middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(logging.Middleware(s.logger, logging.Config{Quiet: probePaths}))
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// 6. CORS
	s.router.Use(cors)
}

func (s *Server) setupRoutes() {
	// Health checks
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/readyz", s.handleReady)

	if metrics.Enabled() {
		s.router.Handle("/metrics", metrics.Handler())
	}

	// Auth middleware for write operations
	requireAuth := func(r chi.Router) {
		if s.keys != nil {
			r.Use(auth.Middleware(s.keys, writeError))
		}
	}

	// Console forms that pin files or send transactions take the same keys
	// as the API.
	if s.console != nil {
		s.console.RegisterReadRoutes(s.router)
		s.router.Group(func(r chi.Router) {
			requireAuth(r)
			s.console.RegisterWriteRoutes(r)
		})
	}

	submissionHandler := submissionTransport.NewHandler(s.submissionSvc, s.sessions)
	verificationHandler := verificationTransport.NewHandler(s.verificationSvc)

	// API v1 routes
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			requireAuth(r)
			r.Get("/auth/whoami", s.handleWhoami)
		})

		r.Route("/session", func(r chi.Router) {
			r.Get("/", s.handleSession)
			r.Group(func(r chi.Router) {
				requireAuth(r)
				r.Post("/", s.handleConnect)
			})
		})

		r.Route("/skills", func(r chi.Router) {
			// Lookup - no auth required
			verificationHandler.RegisterSkillRoutes(r)

			// Submission - auth required
			r.Group(func(r chi.Router) {
				requireAuth(r)
				submissionHandler.RegisterRoutes(r)
			})
		})

		// Verification - read only (no auth)
		verificationHandler.RegisterRoutes(r)
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}

// handleWhoami lets clients check a key without side effects.
func (s *Server) handleWhoami(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"keyId": auth.KeyIDFromContext(r.Context())})
}

// handleReady reports ready once the wallet session has an account and a
// contract handle.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Current().Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "wallet not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
