package evidence

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/claimlens/claimlens/internal/embeddings"
)

// Ingestor embeds and indexes new evidence documents.
type Ingestor struct {
	embedder embeddings.Provider
	index    Indexer
}

// NewIngestor wires an embedding provider to an evidence index.
func NewIngestor(embedder embeddings.Provider, index Indexer) *Ingestor {
	return &Ingestor{embedder: embedder, index: index}
}

// Ingest embeds the document text and upserts it, returning the
// document ID.
func (i *Ingestor) Ingest(ctx context.Context, doc Document) (string, error) {
	if doc.Text == "" {
		return "", fmt.Errorf("document text is required")
	}
	if doc.Namespace == "" {
		doc.Namespace = NamespaceDataset
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}

	vec, err := i.embedder.Embed(ctx, doc.Text)
	if err != nil {
		return "", fmt.Errorf("failed to embed document: %w", err)
	}

	if err := i.index.Upsert(ctx, doc, vec); err != nil {
		return "", fmt.Errorf("failed to index document: %w", err)
	}
	return doc.ID, nil
}
