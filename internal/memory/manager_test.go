package memory

import (
	"context"
	"testing"

	"github.com/claimlens/claimlens/pkg/models"
)

func newFallbackManager() *Manager {
	return NewManager(NewShortTermStore(nil), NewLongTermStore(nil))
}

func TestManager_WriteThrough(t *testing.T) {
	m := newFallbackManager()
	ctx := context.Background()

	m.Put(ctx, "fuel prices revised", sampleResult(models.RecommendLikelyTrue, 0.8))

	if _, ok, _ := m.short.GetResult(ctx, "fuel prices revised"); !ok {
		t.Error("expected result in the hot tier")
	}
	if _, ok, _ := m.long.Get(ctx, "fuel prices revised"); !ok {
		t.Error("expected result in the durable tier")
	}
}

func TestManager_BackfillsHotTier(t *testing.T) {
	m := newFallbackManager()
	ctx := context.Background()

	// Seed only the durable tier, as if the hot entry expired.
	if err := m.long.Put(ctx, "old claim", sampleResult(models.RecommendFalse, 0.9)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := m.Get(ctx, "old claim")
	if !ok || got.Verdict.Label != models.RecommendFalse {
		t.Fatalf("expected durable hit, got ok=%v result=%+v", ok, got)
	}

	if _, ok, _ := m.short.GetResult(ctx, "old claim"); !ok {
		t.Error("durable hit should backfill the hot tier")
	}
}

func TestManager_Miss(t *testing.T) {
	m := newFallbackManager()

	if _, ok := m.Get(context.Background(), "never seen"); ok {
		t.Error("expected miss")
	}
}
