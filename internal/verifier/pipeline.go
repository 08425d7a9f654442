package verifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/claimlens/claimlens/internal/decompose"
	"github.com/claimlens/claimlens/pkg/models"
)

// ErrEmptyClaim mirrors the decomposer's rejection of blank input.
var ErrEmptyClaim = decompose.ErrEmptyClaim

// Decomposer normalizes a raw claim.
type Decomposer interface {
	Decompose(ctx context.Context, raw string) (models.DecomposedClaim, error)
}

// Retriever gathers evidence for a decomposed claim.
type Retriever interface {
	Retrieve(ctx context.Context, decomposed models.DecomposedClaim, topK int) (models.EvidenceBundle, error)
}

// Examiner weighs the evidence into a recommendation.
type Examiner interface {
	Examine(bundle models.EvidenceBundle, decomposed models.DecomposedClaim) models.CrossExamResult
}

// Synthesizer produces the final verdict.
type Synthesizer interface {
	Synthesize(ctx context.Context, decomposed models.DecomposedClaim, bundle models.EvidenceBundle, exam models.CrossExamResult) models.Verdict
}

// ResultCache is the two-tier verification memory.
type ResultCache interface {
	Get(ctx context.Context, claim string) (*models.VerificationResult, bool)
	Put(ctx context.Context, claim string, result *models.VerificationResult)
}

// Pipeline runs one claim through the full verification flow:
// cache lookup, decomposition, retrieval, cross-examination, synthesis,
// then write-through to the cache.
type Pipeline struct {
	decomposer  Decomposer
	retriever   Retriever
	examiner    Examiner
	synthesizer Synthesizer
	cache       ResultCache
	topK        int
	now         func() time.Time
}

// PipelineOption configures the pipeline.
type PipelineOption func(*Pipeline)

// WithTopK sets how many evidence candidates are requested per claim.
func WithTopK(topK int) PipelineOption {
	return func(p *Pipeline) {
		p.topK = topK
	}
}

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		p.now = now
	}
}

// NewPipeline wires the verification stages together. cache may be nil
// to disable result memory.
func NewPipeline(decomposer Decomposer, retriever Retriever, examiner Examiner, synthesizer Synthesizer, cache ResultCache, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		decomposer:  decomposer,
		retriever:   retriever,
		examiner:    examiner,
		synthesizer: synthesizer,
		cache:       cache,
		topK:        10,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Verify runs the full pipeline for one claim. A cached result is
// returned as-is with FromCache set; useCache=false skips the lookup
// but still stores the fresh result. Evidence retrieval failures
// degrade the verdict instead of failing the request; only invalid
// input and context cancellation surface as errors.
func (p *Pipeline) Verify(ctx context.Context, claim string, useCache bool) (*models.VerificationResult, error) {
	if useCache && p.cache != nil {
		if cached, ok := p.cache.Get(ctx, claim); ok {
			cached.FromCache = true
			return cached, nil
		}
	}

	decomposed, err := p.decomposer.Decompose(ctx, claim)
	if err != nil {
		return nil, fmt.Errorf("failed to decompose claim: %w", err)
	}

	var degradation []string
	bundle, err := p.retriever.Retrieve(ctx, decomposed, p.topK)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		log.Printf("[verifier] evidence retrieval degraded: %v", err)
		degradation = append(degradation, "evidence retrieval unavailable")
		bundle = models.EvidenceBundle{SimilarityTier: models.TierNone}
	}

	exam := p.examiner.Examine(bundle, decomposed)
	verdict := p.synthesizer.Synthesize(ctx, decomposed, bundle, exam)

	result := &models.VerificationResult{
		Claim: models.ClaimSummary{
			Original:      decomposed.OriginalText,
			Translated:    decomposed.TranslatedText,
			Keywords:      decomposed.Keywords,
			TemporalClass: decomposed.TemporalClass,
		},
		CrossExam:   exam,
		Verdict:     verdict,
		VerifiedAt:  p.now().UTC(),
		Degradation: degradation,
	}

	if p.cache != nil {
		p.cache.Put(ctx, claim, result)
	}

	return result, nil
}
