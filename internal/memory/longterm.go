package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/claimlens/claimlens/pkg/models"
)

// RecentClaim is one row of the recently verified claims listing.
type RecentClaim struct {
	ClaimText  string    `json:"claim_text"`
	Verdict    string    `json:"verdict"`
	Confidence float64   `json:"confidence"`
	VerifiedAt time.Time `json:"verified_at"`
}

// Stats aggregates the long-term verification history.
type Stats struct {
	TotalClaims    int64            `json:"total_claims"`
	ByVerdict      map[string]int64 `json:"by_verdict"`
	AvgConfidence  float64          `json:"avg_confidence"`
	LastVerifiedAt time.Time        `json:"last_verified_at"`
}

// LongTermStore is the durable cache tier. Backed by Postgres; an
// in-process map serves both the unconfigured case and operations
// where the database is unreachable.
type LongTermStore struct {
	db *sql.DB

	mu       sync.RWMutex
	fallback map[string]longTermEntry
}

type longTermEntry struct {
	claimText string
	result    models.VerificationResult
	updatedAt time.Time
}

// NewLongTermStore creates the durable tier. db may be nil, which
// selects the in-process fallback.
func NewLongTermStore(db *sql.DB) *LongTermStore {
	return &LongTermStore{
		db:       db,
		fallback: make(map[string]longTermEntry),
	}
}

// EnsureSchema creates the verified claims table if missing.
func (s *LongTermStore) EnsureSchema(ctx context.Context) error {
	if s.db == nil {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS verified_claims (
			claim_hash   TEXT PRIMARY KEY,
			claim_text   TEXT NOT NULL,
			verdict      TEXT NOT NULL,
			confidence   DOUBLE PRECISION NOT NULL,
			result       JSONB NOT NULL,
			access_count INTEGER NOT NULL DEFAULT 0,
			verified_at  TIMESTAMPTZ NOT NULL,
			updated_at   TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_verified_claims_updated ON verified_claims (updated_at DESC);
	`)
	if err != nil {
		return fmt.Errorf("failed to create verified_claims schema: %w", err)
	}
	return nil
}

// Health reports the backing store's status for the health endpoint.
func (s *LongTermStore) Health(ctx context.Context) string {
	if s.db == nil {
		return "in-process"
	}
	if err := s.db.PingContext(ctx); err != nil {
		return "unavailable"
	}
	return "ok"
}

// Get returns the stored result for a claim and bumps its access count.
func (s *LongTermStore) Get(ctx context.Context, claim string) (*models.VerificationResult, bool, error) {
	hash := ClaimKey(claim)

	if s.db == nil {
		return s.fallbackGet(hash)
	}

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM verified_claims WHERE claim_hash = $1`, hash).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		log.Printf("[memory] claim store read failed, reading in-process: %v", err)
		return s.fallbackGet(hash)
	}

	var result models.VerificationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("failed to decode stored result: %w", err)
	}

	// Access counting is best effort.
	_, _ = s.db.ExecContext(ctx,
		`UPDATE verified_claims SET access_count = access_count + 1 WHERE claim_hash = $1`, hash)

	return &result, true, nil
}

// Put upserts a verification result keyed by the claim hash.
func (s *LongTermStore) Put(ctx context.Context, claim string, result *models.VerificationResult) error {
	hash := ClaimKey(claim)

	if s.db == nil {
		s.fallbackPut(hash, claim, result)
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verified_claims (claim_hash, claim_text, verdict, confidence, result, verified_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (claim_hash) DO UPDATE SET
			verdict = EXCLUDED.verdict,
			confidence = EXCLUDED.confidence,
			result = EXCLUDED.result,
			updated_at = EXCLUDED.updated_at`,
		hash, claim, string(result.Verdict.Label), result.Verdict.Confidence,
		data, result.VerifiedAt, time.Now())
	if err != nil {
		log.Printf("[memory] claim store write failed, caching in-process: %v", err)
		s.fallbackPut(hash, claim, result)
	}
	return nil
}

// RecentByVerdict lists the most recently verified claims, optionally
// filtered by verdict label.
func (s *LongTermStore) RecentByVerdict(ctx context.Context, verdict string, limit int) ([]RecentClaim, error) {
	if limit <= 0 {
		limit = 20
	}

	if s.db == nil {
		return s.fallbackRecent(verdict, limit), nil
	}

	query := `SELECT claim_text, verdict, confidence, updated_at FROM verified_claims`
	args := []interface{}{}
	if verdict != "" {
		query += ` WHERE verdict = $1`
		args = append(args, verdict)
	}
	query += fmt.Sprintf(` ORDER BY updated_at DESC LIMIT %d`, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Printf("[memory] recent claims query failed, reading in-process: %v", err)
		return s.fallbackRecent(verdict, limit), nil
	}
	defer rows.Close()

	var claims []RecentClaim
	for rows.Next() {
		var c RecentClaim
		if err := rows.Scan(&c.ClaimText, &c.Verdict, &c.Confidence, &c.VerifiedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recent claim: %w", err)
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

// Stats summarizes the verification history.
func (s *LongTermStore) Stats(ctx context.Context) (*Stats, error) {
	if s.db == nil {
		return s.fallbackStats(), nil
	}

	stats := &Stats{ByVerdict: make(map[string]int64)}

	var last sql.NullTime
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(AVG(confidence), 0), MAX(updated_at) FROM verified_claims`).
		Scan(&stats.TotalClaims, &avg, &last)
	if err != nil {
		log.Printf("[memory] claim stats query failed, reading in-process: %v", err)
		return s.fallbackStats(), nil
	}
	stats.AvgConfidence = avg.Float64
	if last.Valid {
		stats.LastVerifiedAt = last.Time
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT verdict, COUNT(*) FROM verified_claims GROUP BY verdict`)
	if err != nil {
		return nil, fmt.Errorf("failed to query verdict breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var verdict string
		var count int64
		if err := rows.Scan(&verdict, &count); err != nil {
			return nil, fmt.Errorf("failed to scan verdict count: %w", err)
		}
		stats.ByVerdict[verdict] = count
	}
	return stats, rows.Err()
}

func (s *LongTermStore) fallbackGet(hash string) (*models.VerificationResult, bool, error) {
	s.mu.RLock()
	entry, ok := s.fallback[hash]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	result := entry.result
	return &result, true, nil
}

func (s *LongTermStore) fallbackPut(hash, claim string, result *models.VerificationResult) {
	s.mu.Lock()
	s.fallback[hash] = longTermEntry{
		claimText: claim,
		result:    *result,
		updatedAt: time.Now(),
	}
	s.mu.Unlock()
}

func (s *LongTermStore) fallbackRecent(verdict string, limit int) []RecentClaim {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var claims []RecentClaim
	for _, entry := range s.fallback {
		label := string(entry.result.Verdict.Label)
		if verdict != "" && label != verdict {
			continue
		}
		claims = append(claims, RecentClaim{
			ClaimText:  entry.claimText,
			Verdict:    label,
			Confidence: entry.result.Verdict.Confidence,
			VerifiedAt: entry.updatedAt,
		})
	}
	sort.Slice(claims, func(i, j int) bool {
		return claims[i].VerifiedAt.After(claims[j].VerifiedAt)
	})
	if len(claims) > limit {
		claims = claims[:limit]
	}
	return claims
}

func (s *LongTermStore) fallbackStats() *Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &Stats{ByVerdict: make(map[string]int64)}
	var confidenceSum float64
	for _, entry := range s.fallback {
		stats.TotalClaims++
		stats.ByVerdict[string(entry.result.Verdict.Label)]++
		confidenceSum += entry.result.Verdict.Confidence
		if entry.updatedAt.After(stats.LastVerifiedAt) {
			stats.LastVerifiedAt = entry.updatedAt
		}
	}
	if stats.TotalClaims > 0 {
		stats.AvgConfidence = confidenceSum / float64(stats.TotalClaims)
	}
	return stats
}
