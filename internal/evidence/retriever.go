package evidence

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/claimlens/claimlens/internal/embeddings"
	"github.com/claimlens/claimlens/pkg/models"
)

// Config holds the retriever's tunable thresholds.
type Config struct {
	// Similarity tier cut points.
	HighSimilarity   float64
	MediumSimilarity float64
	LowSimilarity    float64

	// Provisional similarity assigned to web snippets, deliberately
	// distinct from vector scores so cross-examination can discount them.
	WebSimilarity float64

	// Labeled evidence from a low-trust source is discarded unless its
	// similarity reaches LowTrustOverride.
	LowTrustPatterns []string
	LowTrustOverride float64

	// Per-source timeout; a timed-out source contributes zero results.
	SourceTimeout time.Duration

	Namespaces []string
	WebLimit   int
}

// DefaultConfig returns the retriever defaults.
func DefaultConfig() Config {
	return Config{
		HighSimilarity:   0.90,
		MediumSimilarity: 0.70,
		LowSimilarity:    0.50,
		WebSimilarity:    0.40,
		LowTrustPatterns: []string{"twitter", "facebook", "tiktok", "reddit", "x.com"},
		LowTrustOverride: 0.88,
		SourceTimeout:    20 * time.Second,
		Namespaces:       []string{NamespaceDataset, NamespaceLiveNews},
		WebLimit:         5,
	}
}

// Retriever queries the vector evidence source and, when warranted, web
// search, and partitions results into labeled history and unlabeled context.
type Retriever struct {
	embedder embeddings.Provider
	source   Source
	web      WebSearcher
	cfg      Config
}

// NewRetriever wires a retriever. web may be nil to disable web search.
func NewRetriever(embedder embeddings.Provider, source Source, web WebSearcher, cfg Config) *Retriever {
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = DefaultConfig().SourceTimeout
	}
	if len(cfg.Namespaces) == 0 {
		cfg.Namespaces = DefaultConfig().Namespaces
	}
	if cfg.WebLimit <= 0 {
		cfg.WebLimit = DefaultConfig().WebLimit
	}
	return &Retriever{
		embedder: embedder,
		source:   source,
		web:      web,
		cfg:      cfg,
	}
}

// Retrieve embeds the claim's canonical query, gathers candidate evidence
// and builds the bundle. An embedding failure is fatal to retrieval and is
// propagated; an unreachable evidence source degrades to an empty bundle.
func (r *Retriever) Retrieve(ctx context.Context, decomposed models.DecomposedClaim, topK int) (models.EvidenceBundle, error) {
	if topK <= 0 {
		topK = 10
	}

	query := decomposed.VectorQuery
	if query == "" {
		query = decomposed.OriginalText
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return emptyBundle(), fmt.Errorf("embed query: %w", err)
	}

	// The vector query always runs. Web search starts concurrently when the
	// trigger is decidable upfront; the similarity-based trigger is
	// evaluated once vector results are in.
	vecCh := make(chan []models.EvidenceItem, 1)
	go func() {
		vecCh <- r.searchVector(ctx, embedding, topK)
	}()

	var webCh chan []models.EvidenceItem
	webUpfront := decomposed.NeedsWebSearch || decomposed.TemporalClass == models.TemporalGeneral
	if webUpfront && r.web != nil {
		webCh = make(chan []models.EvidenceItem, 1)
		go func() {
			webCh <- r.searchWeb(ctx, decomposed)
		}()
	}

	vecItems := <-vecCh

	vectorTop := 0.0
	for _, item := range vecItems {
		if item.Similarity > vectorTop {
			vectorTop = item.Similarity
		}
	}

	var webItems []models.EvidenceItem
	if webCh != nil {
		webItems = <-webCh
	} else if r.web != nil && vectorTop < r.cfg.LowSimilarity {
		webItems = r.searchWeb(ctx, decomposed)
	}

	return r.buildBundle(vecItems, webItems, topK), nil
}

func (r *Retriever) searchVector(ctx context.Context, embedding []float32, topK int) []models.EvidenceItem {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.SourceTimeout)
	defer cancel()

	var items []models.EvidenceItem
	for _, ns := range r.cfg.Namespaces {
		results, err := r.source.Search(ctx, embedding, topK, ns)
		if err != nil {
			log.Printf("[retriever] vector search failed for namespace %s: %v", ns, err)
			continue
		}
		items = append(items, results...)
	}
	return items
}

func (r *Retriever) searchWeb(ctx context.Context, decomposed models.DecomposedClaim) []models.EvidenceItem {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.SourceTimeout)
	defer cancel()

	query := decomposed.TranslatedWebQuery
	if query == "" {
		query = decomposed.WebQuery
	}
	if query == "" {
		query = decomposed.OriginalText
	}

	results, err := r.web.Search(ctx, query, r.cfg.WebLimit)
	if err != nil {
		log.Printf("[retriever] web search failed: %v", err)
		return nil
	}

	items := make([]models.EvidenceItem, 0, len(results))
	for _, res := range results {
		items = append(items, models.EvidenceItem{
			Text:       res.Body,
			Title:      res.Title,
			SourceName: SourceNameFromURL(res.URL),
			URL:        res.URL,
			Similarity: r.cfg.WebSimilarity,
			Origin:     models.OriginWeb,
		})
	}
	return items
}

// buildBundle partitions vector results by label, applies the source
// quality filter, appends web snippets to the unlabeled context and
// computes the similarity tier.
func (r *Retriever) buildBundle(vecItems, webItems []models.EvidenceItem, topK int) models.EvidenceBundle {
	var labeled, unlabeled []models.EvidenceItem
	for _, item := range vecItems {
		if item.Labeled() {
			if r.lowTrust(item.SourceName) && item.Similarity < r.cfg.LowTrustOverride {
				continue
			}
			labeled = append(labeled, item)
		} else {
			unlabeled = append(unlabeled, item)
		}
	}

	sortBySimilarity(labeled)
	sortBySimilarity(unlabeled)

	maxPerList := topK / 2
	if maxPerList < 1 {
		maxPerList = topK
	}
	if len(labeled) > maxPerList {
		labeled = labeled[:maxPerList]
	}
	if len(unlabeled) > maxPerList {
		unlabeled = unlabeled[:maxPerList]
	}

	// Web search never supplies a trust label.
	unlabeled = append(unlabeled, webItems...)

	top := 0.0
	for _, item := range labeled {
		if item.Similarity > top {
			top = item.Similarity
		}
	}
	for _, item := range unlabeled {
		if item.Similarity > top {
			top = item.Similarity
		}
	}

	return models.EvidenceBundle{
		Labeled:        labeled,
		Unlabeled:      unlabeled,
		TopSimilarity:  top,
		SimilarityTier: r.tier(top),
	}
}

func (r *Retriever) lowTrust(source string) bool {
	lower := strings.ToLower(source)
	for _, pattern := range r.cfg.LowTrustPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

func (r *Retriever) tier(top float64) models.SimilarityTier {
	switch {
	case top >= r.cfg.HighSimilarity:
		return models.TierHigh
	case top >= r.cfg.MediumSimilarity:
		return models.TierMedium
	case top >= r.cfg.LowSimilarity:
		return models.TierLow
	default:
		return models.TierNone
	}
}

func sortBySimilarity(items []models.EvidenceItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Similarity > items[j].Similarity
	})
}

func emptyBundle() models.EvidenceBundle {
	return models.EvidenceBundle{SimilarityTier: models.TierNone}
}
