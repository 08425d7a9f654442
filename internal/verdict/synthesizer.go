package verdict

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/claimlens/claimlens/pkg/models"
)

const (
	minLLMConfidence = 0.10
	maxLLMConfidence = 0.95
	maxCitations     = 5

	// A verdict produced without any evidence can never be confident.
	noEvidenceConfidence = 0.3
)

// Synthesizer turns a cross-examination result into the final verdict.
// When a reasoner is attached it leads; the heuristic recommendation is
// the fallback when the model is unreachable or replies garbage.
type Synthesizer struct {
	reasoner Reasoner
}

// NewSynthesizer creates a synthesizer. reasoner may be nil, in which
// case every verdict is rule-based.
func NewSynthesizer(reasoner Reasoner) *Synthesizer {
	return &Synthesizer{reasoner: reasoner}
}

// Synthesize produces the user-facing verdict.
func (s *Synthesizer) Synthesize(ctx context.Context, decomposed models.DecomposedClaim, bundle models.EvidenceBundle, exam models.CrossExamResult) models.Verdict {
	citations := buildCitations(bundle)

	if s.reasoner != nil {
		reasoning, err := s.reasoner.Reason(ctx, decomposed, bundle, exam)
		if err != nil {
			log.Printf("[synthesizer] reasoner failed, using heuristic verdict: %v", err)
		} else {
			v := models.Verdict{
				Label:       reasoning.Label,
				Confidence:  clamp(reasoning.Confidence, minLLMConfidence, maxLLMConfidence),
				Explanation: reasoning.Rationale,
				Citations:   citations,
				LLMPowered:  true,
			}
			return applyEvidenceFloor(v, bundle)
		}
	}

	v := models.Verdict{
		Label:       exam.Recommendation,
		Confidence:  exam.ConfidenceHint,
		Explanation: heuristicExplanation(exam, bundle),
		Citations:   citations,
	}
	return applyEvidenceFloor(v, bundle)
}

// applyEvidenceFloor caps verdicts produced from an empty bundle. There
// is nothing to cite, so the label degrades to unverified unless the
// judgment already says the claim is false-leaning.
func applyEvidenceFloor(v models.Verdict, bundle models.EvidenceBundle) models.Verdict {
	if !bundle.Empty() {
		return v
	}
	if v.Confidence > noEvidenceConfidence {
		v.Confidence = noEvidenceConfidence
	}
	switch v.Label {
	case models.RecommendFalse, models.RecommendLikelyFalse:
		v.Label = models.RecommendLikelyFalse
	default:
		v.Label = models.RecommendUnverified
	}
	return v
}

func heuristicExplanation(exam models.CrossExamResult, bundle models.EvidenceBundle) string {
	if exam.Zombie.IsZombie {
		return exam.Zombie.Reason
	}
	if !exam.TopicRelevant {
		return "Retrieved evidence does not cover the claim's topic, so no judgment can be drawn from it."
	}

	var parts []string
	switch exam.Consensus {
	case models.ConsensusAgreeTrue:
		parts = append(parts, fmt.Sprintf("%d matching fact-check(s) support the claim", exam.TrueCount))
	case models.ConsensusAgreeFalse:
		parts = append(parts, fmt.Sprintf("%d matching fact-check(s) contradict the claim", exam.FalseCount))
	case models.ConsensusConflict:
		parts = append(parts, fmt.Sprintf("labeled sources disagree (%d supporting, %d contradicting)", exam.TrueCount, exam.FalseCount))
	default:
		if len(bundle.Unlabeled) > 0 {
			parts = append(parts, "only unlabeled context was found")
		} else {
			parts = append(parts, "no matching evidence was found")
		}
	}

	if len(bundle.Labeled) > 0 || len(bundle.Unlabeled) > 0 {
		parts = append(parts, fmt.Sprintf("top similarity %.0f%%", bundle.TopSimilarity*100))
	}

	return strings.Join(parts, "; ") + "."
}

// buildCitations lists the evidence backing the verdict, labeled items
// first, at most maxCitations entries.
func buildCitations(bundle models.EvidenceBundle) []models.Citation {
	var citations []models.Citation

	add := func(item models.EvidenceItem) {
		citations = append(citations, models.Citation{
			Source:        item.SourceName,
			Label:         string(item.TruthLabel),
			SimilarityPct: int(math.Round(item.Similarity * 100)),
			URL:           item.URL,
		})
	}

	for _, item := range bundle.Labeled {
		if len(citations) >= maxCitations {
			return citations
		}
		add(item)
	}
	for _, item := range bundle.Unlabeled {
		if len(citations) >= maxCitations {
			return citations
		}
		add(item)
	}

	return citations
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
