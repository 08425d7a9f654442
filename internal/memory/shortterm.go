package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/claimlens/claimlens/pkg/models"
)

const (
	claimKeyPrefix     = "claim:"
	embeddingKeyPrefix = "emb:"

	defaultResultTTL    = time.Hour
	defaultEmbeddingTTL = 24 * time.Hour
)

// ClaimKey hashes a raw claim into its cache key. Normalization is
// byte-exact: two claims differing only in whitespace get distinct keys.
func ClaimKey(claim string) string {
	h := sha256.Sum256([]byte(claim))
	return claimKeyPrefix + hex.EncodeToString(h[:])
}

// ShortTermStore is the hot cache tier for recently verified claims and
// embeddings. Backed by Redis; an in-process map serves both the
// unconfigured case and operations where the backend is unreachable.
type ShortTermStore struct {
	client    *redis.Client
	resultTTL time.Duration
	embTTL    time.Duration

	mu       sync.RWMutex
	fallback map[string]fallbackEntry
}

type fallbackEntry struct {
	data      []byte
	expiresAt time.Time
}

// ShortTermOption configures the short-term store.
type ShortTermOption func(*ShortTermStore)

// WithResultTTL overrides how long verification results stay hot.
func WithResultTTL(ttl time.Duration) ShortTermOption {
	return func(s *ShortTermStore) {
		s.resultTTL = ttl
	}
}

// WithEmbeddingTTL overrides how long cached embeddings live.
func WithEmbeddingTTL(ttl time.Duration) ShortTermOption {
	return func(s *ShortTermStore) {
		s.embTTL = ttl
	}
}

// NewShortTermStore creates the hot tier. client may be nil, which
// selects the in-process fallback.
func NewShortTermStore(client *redis.Client, opts ...ShortTermOption) *ShortTermStore {
	s := &ShortTermStore{
		client:    client,
		resultTTL: defaultResultTTL,
		embTTL:    defaultEmbeddingTTL,
		fallback:  make(map[string]fallbackEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetResult returns a cached verification result, or (nil, false, nil)
// on a miss.
func (s *ShortTermStore) GetResult(ctx context.Context, claim string) (*models.VerificationResult, bool, error) {
	data, ok, err := s.get(ctx, ClaimKey(claim))
	if err != nil || !ok {
		return nil, false, err
	}

	var result models.VerificationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached result: %w", err)
	}
	return &result, true, nil
}

// PutResult stores a verification result in the hot tier.
func (s *ShortTermStore) PutResult(ctx context.Context, claim string, result *models.VerificationResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return s.set(ctx, ClaimKey(claim), data, s.resultTTL)
}

// GetEmbedding returns a cached vector. Implements embeddings.Cache.
func (s *ShortTermStore) GetEmbedding(ctx context.Context, key string) ([]float32, bool, error) {
	data, ok, err := s.get(ctx, embeddingKeyPrefix+key)
	if err != nil || !ok {
		return nil, false, err
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached embedding: %w", err)
	}
	return vec, true, nil
}

// SetEmbedding stores a vector. Implements embeddings.Cache.
func (s *ShortTermStore) SetEmbedding(ctx context.Context, key string, embedding []float32) error {
	data, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}
	return s.set(ctx, embeddingKeyPrefix+key, data, s.embTTL)
}

func (s *ShortTermStore) get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.client == nil {
		return s.fallbackGet(key)
	}

	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		log.Printf("[memory] redis get failed, reading in-process: %v", err)
		return s.fallbackGet(key)
	}
	return data, true, nil
}

func (s *ShortTermStore) set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if s.client == nil {
		s.fallbackSet(key, data, ttl)
		return nil
	}

	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		log.Printf("[memory] redis set failed, caching in-process: %v", err)
		s.fallbackSet(key, data, ttl)
	}
	return nil
}

func (s *ShortTermStore) fallbackGet(key string) ([]byte, bool, error) {
	s.mu.RLock()
	entry, ok := s.fallback[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.fallback, key)
		s.mu.Unlock()
		return nil, false, nil
	}
	return entry.data, true, nil
}

func (s *ShortTermStore) fallbackSet(key string, data []byte, ttl time.Duration) {
	s.mu.Lock()
	s.fallback[key] = fallbackEntry{data: data, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
}

// Health reports the backing store's status for the health endpoint.
func (s *ShortTermStore) Health(ctx context.Context) string {
	if s.client == nil {
		return "in-process"
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return "unavailable"
	}
	return "ok"
}

// EmbeddingCache adapts the short-term store to the embeddings cache
// interface.
type EmbeddingCache struct {
	store *ShortTermStore
}

// NewEmbeddingCache wraps a short-term store for embedding reuse.
func NewEmbeddingCache(store *ShortTermStore) *EmbeddingCache {
	return &EmbeddingCache{store: store}
}

func (c *EmbeddingCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	return c.store.GetEmbedding(ctx, key)
}

func (c *EmbeddingCache) Set(ctx context.Context, key string, embedding []float32) error {
	return c.store.SetEmbedding(ctx, key, embedding)
}
