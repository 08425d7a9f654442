package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Cache defines the interface for embedding reuse across requests.
// Implementations are best-effort: cache errors are swallowed.
type Cache interface {
	// Get retrieves an embedding from cache.
	Get(ctx context.Context, key string) ([]float32, bool, error)

	// Set stores an embedding in cache.
	Set(ctx context.Context, key string, embedding []float32) error
}

// GenerateCacheKey creates a cache key from model and text.
func GenerateCacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model + ":" + text))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// CachedProvider wraps a Provider with caching.
type CachedProvider struct {
	provider Provider
	cache    Cache
	model    string
}

// NewCachedProvider creates a caching wrapper around a provider. The model
// name keys the cache so different models never share vectors.
func NewCachedProvider(provider Provider, cache Cache, model string) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    cache,
		model:    model,
	}
}

// Embed returns a cached embedding when available, otherwise generates and
// caches one.
func (c *CachedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	key := GenerateCacheKey(c.model, text)

	if embedding, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		return embedding, nil
	}

	embedding, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	_ = c.cache.Set(ctx, key, embedding) // Ignore cache errors

	return embedding, nil
}

// Dimension returns the underlying provider's dimension.
func (c *CachedProvider) Dimension() int {
	return c.provider.Dimension()
}

// NoOpCache is a cache that doesn't cache anything (for testing).
type NoOpCache struct{}

func (NoOpCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	return nil, false, nil
}

func (NoOpCache) Set(ctx context.Context, key string, embedding []float32) error {
	return nil
}
