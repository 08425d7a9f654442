package evidence

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/claimlens/claimlens/internal/similarity"
	"github.com/claimlens/claimlens/pkg/models"
)

// MemoryStore is an in-process Source and Indexer for local development
// and tests. Search scores by exact cosine similarity.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]memoryDoc // keyed by namespace
}

type memoryDoc struct {
	doc       Document
	embedding []float32
}

// NewMemoryStore creates an empty in-memory evidence store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string][]memoryDoc)}
}

// Upsert stores a document under its namespace, replacing any entry with
// the same ID.
func (s *MemoryStore) Upsert(ctx context.Context, doc Document, embedding []float32) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Namespace == "" {
		doc.Namespace = NamespaceDataset
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.docs[doc.Namespace]
	for i, e := range entries {
		if e.doc.ID == doc.ID {
			entries[i] = memoryDoc{doc: doc, embedding: embedding}
			return nil
		}
	}
	s.docs[doc.Namespace] = append(entries, memoryDoc{doc: doc, embedding: embedding})
	return nil
}

// Search returns the topK most similar documents in a namespace.
func (s *MemoryStore) Search(ctx context.Context, embedding []float32, topK int, namespace string) ([]models.EvidenceItem, error) {
	if topK <= 0 {
		topK = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []models.EvidenceItem
	for _, e := range s.docs[namespace] {
		items = append(items, models.EvidenceItem{
			ID:         e.doc.ID,
			Text:       e.doc.Text,
			Title:      e.doc.Title,
			SourceName: e.doc.Source,
			URL:        e.doc.URL,
			TruthLabel: e.doc.Label,
			Similarity: similarity.Clamp01(similarity.Cosine(embedding, e.embedding)),
			Origin:     models.OriginVectorDB,
			Namespace:  namespace,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Similarity > items[j].Similarity
	})

	if len(items) > topK {
		items = items[:topK]
	}
	return items, nil
}
