package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/claimlens/claimlens/internal/auth"
	"github.com/claimlens/claimlens/internal/evidence"
	"github.com/claimlens/claimlens/internal/verifier"
	"github.com/claimlens/claimlens/pkg/models"
)

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok"}
	if s.health != nil {
		for tier, state := range s.health.Health(r.Context()) {
			resp[tier] = state
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

// Verification
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Claim    string `json:"claim"`
		UseCache *bool  `json:"use_cache"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	useCache := req.UseCache == nil || *req.UseCache

	result, err := s.verifier.Verify(r.Context(), req.Claim, useCache)
	if err != nil {
		if errors.Is(err, verifier.ErrEmptyClaim) {
			respondError(w, http.StatusBadRequest, "claim text is required")
			return
		}
		respondError(w, http.StatusInternalServerError, "verification failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Auth handlers
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
		Password    string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	account, err := s.authService.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountExists):
			respondError(w, http.StatusConflict, "account already exists")
		case errors.Is(err, auth.ErrWeakPassword):
			respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		default:
			respondError(w, http.StatusInternalServerError, "failed to create account")
		}
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"id":    account.ID,
		"email": account.Email,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	token, err := s.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// History handlers
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.history.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRecentClaims(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	claims, err := s.history.RecentByVerdict(r.Context(), r.URL.Query().Get("verdict"), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load recent claims")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"claims": claims})
}

// Evidence ingest
func (s *Server) handleIngestEvidence(w http.ResponseWriter, r *http.Request) {
	if s.ingester == nil {
		respondError(w, http.StatusServiceUnavailable, "evidence ingest is not configured")
		return
	}

	var req struct {
		Text      string `json:"text"`
		Title     string `json:"title"`
		Source    string `json:"source"`
		URL       string `json:"url"`
		Label     string `json:"label"`
		Namespace string `json:"namespace"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Text == "" || req.Source == "" {
		respondError(w, http.StatusBadRequest, "text and source are required")
		return
	}

	doc := evidence.Document{
		Text:      req.Text,
		Title:     req.Title,
		Source:    req.Source,
		URL:       req.URL,
		Label:     models.TruthLabel(req.Label),
		Namespace: req.Namespace,
	}
	if doc.Label != models.LabelNone && !doc.Label.Recognized() {
		respondError(w, http.StatusBadRequest, "unrecognized truth label")
		return
	}

	id, err := s.ingester.Ingest(r.Context(), doc)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to index evidence")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"id": id})
}
