package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/claimlens/claimlens/internal/auth"
	"github.com/claimlens/claimlens/internal/evidence"
	"github.com/claimlens/claimlens/internal/memory"
	"github.com/claimlens/claimlens/pkg/models"
)

// Verifier runs a claim through the verification pipeline.
type Verifier interface {
	Verify(ctx context.Context, claim string, useCache bool) (*models.VerificationResult, error)
}

// HealthReporter describes the cache tiers' backing stores.
type HealthReporter interface {
	Health(ctx context.Context) map[string]string
}

// History exposes the durable verification record.
type History interface {
	RecentByVerdict(ctx context.Context, verdict string, limit int) ([]memory.RecentClaim, error)
	Stats(ctx context.Context) (*memory.Stats, error)
}

// Ingester adds new evidence to the vector index.
type Ingester interface {
	Ingest(ctx context.Context, doc evidence.Document) (string, error)
}

// Deps holds the server's collaborators. Ingester may be nil to
// disable the ingest endpoint.
type Deps struct {
	Verifier    Verifier
	History     History
	Ingester    Ingester
	Health      HealthReporter
	AuthService auth.Service
}

type Server struct {
	router      *chi.Mux
	verifier    Verifier
	history     History
	ingester    Ingester
	health      HealthReporter
	authService auth.Service
}

func NewServer(deps Deps) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:      r,
		verifier:    deps.Verifier,
		history:     deps.History,
		ingester:    deps.Ingester,
		health:      deps.Health,
		authService: deps.AuthService,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Verification (public)
		r.Post("/verify", s.handleVerify)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.authService))

			r.Get("/stats", s.handleStats)
			r.Get("/claims/recent", s.handleRecentClaims)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(auth.RoleAdmin))
				r.Post("/evidence", s.handleIngestEvidence)
			})
		})
	})
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
