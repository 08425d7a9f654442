package embeddings

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	vec    []float32
	err    error
	dim    int
	called bool
}

func (s *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	s.called = true
	return s.vec, s.err
}

func (s *stubProvider) Dimension() int { return s.dim }

func TestChain_FirstSuccessWins(t *testing.T) {
	first := &stubProvider{vec: []float32{1}, dim: 1536}
	second := &stubProvider{vec: []float32{2}, dim: 1536}

	chain, err := NewChain(first, second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := chain.Embed(context.Background(), "claim")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != 1 {
		t.Errorf("expected first provider's result, got %v", got)
	}
	if second.called {
		t.Error("second provider should not run when first succeeds")
	}
}

func TestChain_FallsBackInOrder(t *testing.T) {
	first := &stubProvider{err: errors.New("quota exceeded"), dim: 1536}
	second := &stubProvider{vec: []float32{2}, dim: 1536}

	chain, err := NewChain(first, second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := chain.Embed(context.Background(), "claim")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != 2 {
		t.Errorf("expected fallback provider's result, got %v", got)
	}
}

func TestChain_AggregatesAllFailures(t *testing.T) {
	errA := errors.New("provider a down")
	errB := errors.New("provider b down")

	chain, err := NewChain(
		&stubProvider{err: errA, dim: 1536},
		&stubProvider{err: errB, dim: 1536},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = chain.Embed(context.Background(), "claim")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected aggregated errors, got %v", err)
	}
}

func TestChain_RejectsDimensionMismatch(t *testing.T) {
	_, err := NewChain(
		&stubProvider{dim: 1536},
		&stubProvider{dim: 3072},
	)
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
}

func TestCachedProvider_ReusesCachedVector(t *testing.T) {
	provider := &stubProvider{vec: []float32{1, 2}, dim: 2}
	cache := &mapCache{entries: map[string][]float32{}}

	cached := NewCachedProvider(provider, cache, DefaultModel)

	if _, err := cached.Embed(context.Background(), "claim"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	provider.called = false
	if _, err := cached.Embed(context.Background(), "claim"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.called {
		t.Error("expected second call to hit the cache")
	}
}

type mapCache struct {
	entries map[string][]float32
}

func (m *mapCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *mapCache) Set(ctx context.Context, key string, embedding []float32) error {
	m.entries[key] = embedding
	return nil
}
