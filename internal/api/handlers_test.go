package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/claimlens/claimlens/internal/auth"
	"github.com/claimlens/claimlens/internal/evidence"
	"github.com/claimlens/claimlens/internal/memory"
	"github.com/claimlens/claimlens/internal/verifier"
	"github.com/claimlens/claimlens/pkg/models"
)

type stubVerifier struct {
	result       *models.VerificationResult
	err          error
	lastUseCache bool
}

func (s *stubVerifier) Verify(ctx context.Context, claim string, useCache bool) (*models.VerificationResult, error) {
	s.lastUseCache = useCache
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubHistory struct {
	claims []memory.RecentClaim
	stats  *memory.Stats
}

func (s *stubHistory) RecentByVerdict(ctx context.Context, verdict string, limit int) ([]memory.RecentClaim, error) {
	return s.claims, nil
}

func (s *stubHistory) Stats(ctx context.Context) (*memory.Stats, error) {
	return s.stats, nil
}

type stubHealth struct{}

func (stubHealth) Health(ctx context.Context) map[string]string {
	return map[string]string{"short_term": "in-process", "long_term": "in-process"}
}

type stubIngester struct {
	lastDoc evidence.Document
}

func (s *stubIngester) Ingest(ctx context.Context, doc evidence.Document) (string, error) {
	s.lastDoc = doc
	return "doc-id-1", nil
}

type testEnv struct {
	server   *Server
	authRepo *auth.MemoryRepository
	authSvc  *auth.JWTService
	ingester *stubIngester
}

func newTestEnv(t *testing.T, v Verifier) *testEnv {
	t.Helper()

	repo := auth.NewMemoryRepository()
	svc := auth.NewJWTService(auth.Config{SecretKey: "test-secret", TokenDuration: time.Hour}, repo)
	ingester := &stubIngester{}

	server := NewServer(Deps{
		Verifier: v,
		History: &stubHistory{
			claims: []memory.RecentClaim{{ClaimText: "flood hoax", Verdict: "false", Confidence: 0.9}},
			stats:  &memory.Stats{TotalClaims: 3, ByVerdict: map[string]int64{"false": 2, "likely_true": 1}},
		},
		Ingester:    ingester,
		Health:      stubHealth{},
		AuthService: svc,
	})

	return &testEnv{server: server, authRepo: repo, authSvc: svc, ingester: ingester}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) token(t *testing.T, role string) string {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("long-enough-pass"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	email := role + "@example.com"
	now := time.Now()
	if err := e.authRepo.Create(context.Background(), &auth.Account{
		Email:        email,
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("failed to seed account: %v", err)
	}

	token, err := e.authSvc.Login(context.Background(), email, "long-enough-pass")
	if err != nil {
		t.Fatalf("failed to log in: %v", err)
	}
	return token
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{})

	rec := env.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" || body["short_term"] != "in-process" {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestHandleVerify(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{result: &models.VerificationResult{
		Verdict: models.Verdict{Label: models.RecommendLikelyFalse, Confidence: 0.8},
	}})

	rec := env.do(t, http.MethodPost, "/api/v1/verify", "", map[string]string{"claim": "flood hoax"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result models.VerificationResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result.Verdict.Label != models.RecommendLikelyFalse {
		t.Errorf("unexpected verdict: %+v", result.Verdict)
	}
}

func TestHandleVerify_CacheBypass(t *testing.T) {
	v := &stubVerifier{result: &models.VerificationResult{}}
	env := newTestEnv(t, v)

	env.do(t, http.MethodPost, "/api/v1/verify", "", map[string]interface{}{"claim": "x"})
	if !v.lastUseCache {
		t.Error("cache should be used by default")
	}

	env.do(t, http.MethodPost, "/api/v1/verify", "", map[string]interface{}{"claim": "x", "use_cache": false})
	if v.lastUseCache {
		t.Error("use_cache=false must bypass the cache")
	}
}

func TestHandleVerify_EmptyClaim(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{err: verifier.ErrEmptyClaim})

	rec := env.do(t, http.MethodPost, "/api/v1/verify", "", map[string]string{"claim": "  "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleVerify_InvalidBody(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	env.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestRegisterAndLoginFlow(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{})

	rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    "analyst@example.com",
		"password": "long-enough-pass",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "analyst@example.com",
		"password": "long-enough-pass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["token"] == "" {
		t.Error("expected a token")
	}
}

func TestRegister_DuplicateConflict(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{})
	payload := map[string]string{"email": "a@b.com", "password": "long-enough-pass"}

	if rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", payload); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/auth/register", "", payload); rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
}

func TestStats_RequiresAuth(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{})

	if rec := env.do(t, http.MethodGet, "/api/v1/stats", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	token := env.token(t, auth.RoleAnalyst)
	rec := env.do(t, http.MethodGet, "/api/v1/stats", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rec.Code)
	}

	var stats memory.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.TotalClaims != 3 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRecentClaims(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{})
	token := env.token(t, auth.RoleAnalyst)

	rec := env.do(t, http.MethodGet, "/api/v1/claims/recent?verdict=false", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/claims/recent?limit=0", token, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestIngestEvidence_RoleGate(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{})
	payload := map[string]string{
		"text":   "fact-check article text",
		"source": "BBC Sinhala",
		"label":  "false",
	}

	analyst := env.token(t, auth.RoleAnalyst)
	if rec := env.do(t, http.MethodPost, "/api/v1/evidence", analyst, payload); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for analyst, got %d", rec.Code)
	}

	admin := env.token(t, auth.RoleAdmin)
	rec := env.do(t, http.MethodPost, "/api/v1/evidence", admin, payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 for admin, got %d: %s", rec.Code, rec.Body.String())
	}
	if env.ingester.lastDoc.Label != models.LabelFalse {
		t.Errorf("unexpected ingested doc: %+v", env.ingester.lastDoc)
	}
	if env.ingester.lastDoc.Namespace != "" {
		t.Errorf("namespace defaulting happens in the ingestor, got %q", env.ingester.lastDoc.Namespace)
	}
}

func TestIngestEvidence_BadLabel(t *testing.T) {
	env := newTestEnv(t, &stubVerifier{})
	admin := env.token(t, auth.RoleAdmin)

	rec := env.do(t, http.MethodPost, "/api/v1/evidence", admin, map[string]string{
		"text":   "article",
		"source": "BBC Sinhala",
		"label":  "bogus",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown label, got %d", rec.Code)
	}
}
