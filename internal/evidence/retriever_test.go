package evidence

import (
	"context"
	"errors"
	"testing"

	"github.com/claimlens/claimlens/internal/embeddings"
	"github.com/claimlens/claimlens/pkg/models"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vec, s.err
}

func (s *stubEmbedder) Dimension() int { return len(s.vec) }

type stubSource struct {
	items map[string][]models.EvidenceItem
	err   error
}

func (s *stubSource) Search(ctx context.Context, embedding []float32, topK int, namespace string) ([]models.EvidenceItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items[namespace], nil
}

type stubWeb struct {
	results []WebResult
	err     error
	called  bool
}

func (s *stubWeb) Search(ctx context.Context, query string, limit int) ([]WebResult, error) {
	s.called = true
	return s.results, s.err
}

func vectorItem(label models.TruthLabel, source string, sim float64) models.EvidenceItem {
	return models.EvidenceItem{
		Text:       "evidence text",
		SourceName: source,
		TruthLabel: label,
		Similarity: sim,
		Origin:     models.OriginVectorDB,
		Namespace:  NamespaceDataset,
	}
}

func newTestRetriever(source Source, web WebSearcher) *Retriever {
	return NewRetriever(&stubEmbedder{vec: []float32{1, 0}}, source, web, DefaultConfig())
}

func TestRetrieve_EmbeddingFailureIsFatal(t *testing.T) {
	embedder := &stubEmbedder{err: embeddings.ErrUnavailable}
	r := NewRetriever(embedder, &stubSource{}, nil, DefaultConfig())

	_, err := r.Retrieve(context.Background(), models.DecomposedClaim{OriginalText: "claim"}, 10)
	if !errors.Is(err, embeddings.ErrUnavailable) {
		t.Fatalf("expected embedding error to propagate, got %v", err)
	}
}

func TestRetrieve_PartitionsByLabel(t *testing.T) {
	source := &stubSource{items: map[string][]models.EvidenceItem{
		NamespaceDataset: {
			vectorItem(models.LabelTrue, "BBC Sinhala", 0.92),
			vectorItem(models.LabelNone, "Hiru News", 0.80),
			vectorItem(models.LabelFalse, "Ada Derana", 0.75),
		},
	}}
	r := newTestRetriever(source, nil)

	bundle, err := r.Retrieve(context.Background(), models.DecomposedClaim{
		OriginalText:  "claim",
		TemporalClass: models.TemporalHistorical,
	}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(bundle.Labeled) != 2 {
		t.Errorf("expected 2 labeled items, got %d", len(bundle.Labeled))
	}
	if len(bundle.Unlabeled) != 1 {
		t.Errorf("expected 1 unlabeled item, got %d", len(bundle.Unlabeled))
	}
	for _, item := range bundle.Labeled {
		if !item.Labeled() {
			t.Errorf("unlabeled item %q in labeled partition", item.SourceName)
		}
	}
	if bundle.TopSimilarity != 0.92 {
		t.Errorf("expected top similarity 0.92, got %v", bundle.TopSimilarity)
	}
	if bundle.SimilarityTier != models.TierHigh {
		t.Errorf("expected high tier, got %s", bundle.SimilarityTier)
	}
}

func TestRetrieve_LowTrustSourceFilter(t *testing.T) {
	source := &stubSource{items: map[string][]models.EvidenceItem{
		NamespaceDataset: {
			vectorItem(models.LabelFalse, "Facebook", 0.70),
			vectorItem(models.LabelFalse, "Twitter", 0.91),
			vectorItem(models.LabelTrue, "BBC Sinhala", 0.85),
		},
	}}
	r := newTestRetriever(source, nil)

	bundle, err := r.Retrieve(context.Background(), models.DecomposedClaim{
		OriginalText:  "claim",
		TemporalClass: models.TemporalHistorical,
	}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(bundle.Labeled) != 2 {
		t.Fatalf("expected 2 labeled items after filtering, got %d", len(bundle.Labeled))
	}
	for _, item := range bundle.Labeled {
		if item.SourceName == "Facebook" {
			t.Error("low-similarity Facebook evidence should be discarded")
		}
	}
}

func TestRetrieve_WebTriggers(t *testing.T) {
	tests := []struct {
		name      string
		decom     models.DecomposedClaim
		vectorSim float64
		wantWeb   bool
	}{
		{
			"recent claim always searches web",
			models.DecomposedClaim{TemporalClass: models.TemporalRecent, NeedsWebSearch: true},
			0.95,
			true,
		},
		{
			"general claim cross-checks the web",
			models.DecomposedClaim{TemporalClass: models.TemporalGeneral},
			0.95,
			true,
		},
		{
			"low similarity falls back to web",
			models.DecomposedClaim{TemporalClass: models.TemporalHistorical},
			0.30,
			true,
		},
		{
			"confident historical match skips web",
			models.DecomposedClaim{TemporalClass: models.TemporalHistorical},
			0.95,
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.decom.OriginalText = "claim"
			source := &stubSource{items: map[string][]models.EvidenceItem{
				NamespaceDataset: {vectorItem(models.LabelTrue, "BBC Sinhala", tt.vectorSim)},
			}}
			web := &stubWeb{results: []WebResult{{Title: "t", Body: "b", URL: "https://example.com/a"}}}
			r := newTestRetriever(source, web)

			bundle, err := r.Retrieve(context.Background(), tt.decom, 10)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if web.called != tt.wantWeb {
				t.Errorf("web called = %v, want %v", web.called, tt.wantWeb)
			}
			if tt.wantWeb {
				found := false
				for _, item := range bundle.Unlabeled {
					if item.Origin == models.OriginWeb {
						found = true
						if item.Similarity != DefaultConfig().WebSimilarity {
							t.Errorf("web item similarity = %v, want provisional weight", item.Similarity)
						}
					}
				}
				if !found {
					t.Error("expected web snippets in unlabeled context")
				}
			}
		})
	}
}

func TestRetrieve_SourceUnreachableDegrades(t *testing.T) {
	source := &stubSource{err: errors.New("connection refused")}
	r := newTestRetriever(source, nil)

	bundle, err := r.Retrieve(context.Background(), models.DecomposedClaim{
		OriginalText:  "claim",
		TemporalClass: models.TemporalHistorical,
	}, 10)
	if err != nil {
		t.Fatalf("unreachable source must not fail retrieval, got %v", err)
	}
	if !bundle.Empty() {
		t.Error("expected empty bundle")
	}
	if bundle.SimilarityTier != models.TierNone {
		t.Errorf("expected tier none, got %s", bundle.SimilarityTier)
	}
}

func TestRetrieve_CapsListsAtHalfTopK(t *testing.T) {
	var items []models.EvidenceItem
	for i := 0; i < 8; i++ {
		items = append(items, vectorItem(models.LabelTrue, "BBC Sinhala", 0.9-float64(i)*0.01))
	}
	source := &stubSource{items: map[string][]models.EvidenceItem{NamespaceDataset: items}}
	r := newTestRetriever(source, nil)

	bundle, err := r.Retrieve(context.Background(), models.DecomposedClaim{
		OriginalText:  "claim",
		TemporalClass: models.TemporalHistorical,
	}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bundle.Labeled) != 5 {
		t.Errorf("expected labeled list capped at 5, got %d", len(bundle.Labeled))
	}
}
