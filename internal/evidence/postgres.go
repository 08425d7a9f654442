package evidence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/claimlens/claimlens/internal/similarity"
	"github.com/claimlens/claimlens/pkg/models"
)

// PostgresStore implements Source and Indexer on PostgreSQL with pgvector.
type PostgresStore struct {
	db        *sql.DB
	dimension int
}

// NewPostgresStore creates a pgvector-backed evidence store. The dimension
// must match the embedding provider feeding the index.
func NewPostgresStore(db *sql.DB, dimension int) *PostgresStore {
	return &PostgresStore{db: db, dimension: dimension}
}

// EnsureSchema creates the evidence table and index if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	schema := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;

		CREATE TABLE IF NOT EXISTS evidence (
			id UUID PRIMARY KEY,
			namespace VARCHAR(64) NOT NULL,
			text TEXT NOT NULL,
			title TEXT,
			source VARCHAR(128) NOT NULL,
			url TEXT,
			label VARCHAR(32),
			embedding vector(%d) NOT NULL,
			indexed_at TIMESTAMP NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_evidence_namespace ON evidence(namespace);
	`, s.dimension)

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure evidence schema: %w", err)
	}
	return nil
}

// Search returns up to topK nearest neighbors in a namespace, scored by
// cosine similarity normalized into [0, 1].
func (s *PostgresStore) Search(ctx context.Context, embedding []float32, topK int, namespace string) ([]models.EvidenceItem, error) {
	if topK <= 0 {
		topK = 10
	}

	query := `
		SELECT id, text, COALESCE(title, ''), source, COALESCE(url, ''), COALESCE(label, ''),
			   1 - (embedding <=> $1) AS sim
		FROM evidence
		WHERE namespace = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(embedding), namespace, topK)
	if err != nil {
		return nil, fmt.Errorf("search namespace %s: %w", namespace, err)
	}
	defer rows.Close()

	var items []models.EvidenceItem
	for rows.Next() {
		var item models.EvidenceItem
		var label string
		var sim float64
		err := rows.Scan(
			&item.ID,
			&item.Text,
			&item.Title,
			&item.SourceName,
			&item.URL,
			&label,
			&sim,
		)
		if err != nil {
			return nil, fmt.Errorf("scan evidence row: %w", err)
		}

		item.TruthLabel = models.TruthLabel(label)
		item.Similarity = similarity.Clamp01(sim)
		item.Origin = models.OriginVectorDB
		item.Namespace = namespace
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evidence rows: %w", err)
	}

	return items, nil
}

// Upsert inserts or replaces an evidence document keyed by its ID.
func (s *PostgresStore) Upsert(ctx context.Context, doc Document, embedding []float32) error {
	if len(embedding) != s.dimension {
		return fmt.Errorf("embedding dimension %d does not match index dimension %d", len(embedding), s.dimension)
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.Namespace == "" {
		doc.Namespace = NamespaceDataset
	}

	query := `
		INSERT INTO evidence (id, namespace, text, title, source, url, label, embedding, indexed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			namespace = EXCLUDED.namespace,
			text = EXCLUDED.text,
			title = EXCLUDED.title,
			source = EXCLUDED.source,
			url = EXCLUDED.url,
			label = EXCLUDED.label,
			embedding = EXCLUDED.embedding,
			indexed_at = EXCLUDED.indexed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		doc.ID,
		doc.Namespace,
		doc.Text,
		doc.Title,
		doc.Source,
		doc.URL,
		string(doc.Label),
		pgvector.NewVector(embedding),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("upsert evidence %s: %w", doc.ID, err)
	}
	return nil
}
