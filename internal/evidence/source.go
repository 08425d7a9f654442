package evidence

import (
	"context"

	"github.com/claimlens/claimlens/pkg/models"
)

// Logical namespaces in the vector index.
const (
	NamespaceDataset  = "dataset"
	NamespaceLiveNews = "live_news"
)

// Source is a vector similarity search over indexed evidence documents.
// Implementations must normalize scores into the pipeline's [0, 1] range.
type Source interface {
	Search(ctx context.Context, embedding []float32, topK int, namespace string) ([]models.EvidenceItem, error)
}

// WebResult is one ranked snippet from ad-hoc web search.
type WebResult struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url"`
}

// WebSearcher is a best-effort web snippet search. No freshness or
// ordering guarantees.
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]WebResult, error)
}

// Document is an evidence record to be indexed into a Source.
type Document struct {
	ID        string
	Text      string
	Title     string
	Source    string
	URL       string
	Label     models.TruthLabel
	Namespace string
}

// Indexer stores evidence documents with their embeddings.
type Indexer interface {
	Upsert(ctx context.Context, doc Document, embedding []float32) error
}
