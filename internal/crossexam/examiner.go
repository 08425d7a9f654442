package crossexam

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/claimlens/claimlens/pkg/models"
)

// Label polarity for scoring: true-like pushes +1, misleading -0.5,
// false-like -1.
var labelPolarity = map[models.TruthLabel]float64{
	models.LabelTrue:       1.0,
	models.LabelReal:       1.0,
	models.LabelVerified:   1.0,
	models.LabelMisleading: -0.5,
	models.LabelFalse:      -1.0,
	models.LabelFake:       -1.0,
}

var evidenceYearPattern = regexp.MustCompile(`\b(19[7-9][0-9]|20[0-4][0-9])\b`)

// Examiner is the decision core. Examine is a pure function over its
// inputs: no I/O, recomputed on every call.
type Examiner struct {
	cfg Config
	now func() time.Time
}

// Option configures the Examiner.
type Option func(*Examiner)

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(e *Examiner) {
		e.now = now
	}
}

// NewExaminer creates an examiner with the given tunables.
func NewExaminer(cfg Config, opts ...Option) *Examiner {
	e := &Examiner{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Examine cross-examines retrieved evidence against the decomposed claim
// and produces a verdict recommendation. A topic mismatch discards labeled
// evidence entirely: it overrides every other signal.
func (e *Examiner) Examine(bundle models.EvidenceBundle, decomposed models.DecomposedClaim) models.CrossExamResult {
	topicRelevant := e.topicRelevant(bundle.Labeled, decomposed)

	labeled := bundle.Labeled
	if !topicRelevant {
		labeled = nil
	}

	zombie := e.checkZombie(labeled, decomposed)
	trueCount, falseCount := countLabels(labeled)
	consensus := determineConsensus(trueCount, falseCount)
	score := e.weightedScore(labeled, bundle.Unlabeled)

	return models.CrossExamResult{
		TopicRelevant:  topicRelevant,
		Zombie:         zombie,
		DateCheck:      dateCheck(decomposed),
		Consensus:      consensus,
		WeightedScore:  score,
		TrueCount:      trueCount,
		FalseCount:     falseCount,
		SourcePriority: sourcePriority(decomposed, len(labeled)),
		Recommendation: e.recommend(labeled, bundle, zombie, consensus, trueCount, falseCount, score),
		ConfidenceHint: e.confidenceHint(labeled, bundle.TopSimilarity),
	}
}

// topicRelevant checks how much of the claim's keyword set actually
// appears in the labeled evidence. With no labeled evidence there is
// nothing to gate, so the claim passes.
func (e *Examiner) topicRelevant(labeled []models.EvidenceItem, decomposed models.DecomposedClaim) bool {
	if len(labeled) == 0 {
		return true
	}

	keywords := keywordSet(decomposed)
	if len(keywords) == 0 {
		return true
	}

	minMatches := e.cfg.TopicMinMatches
	if len(keywords) < minMatches {
		minMatches = len(keywords)
	}

	for _, item := range labeled {
		text := strings.ToLower(item.Text + " " + item.Title)
		matched := 0
		for kw := range keywords {
			if strings.Contains(text, kw) {
				matched++
			}
		}
		if float64(matched)/float64(len(keywords)) >= e.cfg.TopicOverlapRatio {
			return true
		}
		if matched >= minMatches {
			return true
		}
	}

	return false
}

// keywordSet unions original keywords, translated keywords and significant
// words from the translated claim, lowercased.
func keywordSet(decomposed models.DecomposedClaim) map[string]struct{} {
	set := make(map[string]struct{})
	for _, kw := range decomposed.Keywords {
		set[strings.ToLower(kw)] = struct{}{}
	}
	for _, kw := range decomposed.TranslatedKeywords {
		set[strings.ToLower(kw)] = struct{}{}
	}
	for _, w := range strings.Fields(strings.ToLower(decomposed.TranslatedText)) {
		w = strings.Trim(w, ".,!?\"':;()[]{}")
		if len([]rune(w)) >= 3 {
			set[w] = struct{}{}
		}
	}
	return set
}

// checkZombie detects recycled claims. First match wins: a high-similarity
// known-false record, then old true-labeled news resurfacing as recent.
func (e *Examiner) checkZombie(labeled []models.EvidenceItem, decomposed models.DecomposedClaim) models.ZombieCheck {
	for _, item := range labeled {
		if (item.TruthLabel == models.LabelFalse || item.TruthLabel == models.LabelFake) &&
			item.Similarity >= e.cfg.KnownFalseSimilarity {
			return models.ZombieCheck{
				IsZombie: true,
				Kind:     models.ZombieKnownFalse,
				Reason:   fmt.Sprintf("matches known false claim from %s (similarity %.2f)", item.SourceName, item.Similarity),
			}
		}
	}

	if decomposed.TemporalClass == models.TemporalRecent {
		currentYear := e.now().Year()
		for _, item := range labeled {
			if labelPolarity[item.TruthLabel] <= 0 || item.Similarity < e.cfg.RecycledSimilarity {
				continue
			}
			for _, m := range evidenceYearPattern.FindAllString(item.Text+" "+item.Title, -1) {
				year, err := strconv.Atoi(m)
				if err != nil {
					continue
				}
				if currentYear-year > e.cfg.RecencyCutoffYears {
					return models.ZombieCheck{
						IsZombie: true,
						Kind:     models.ZombieRecycledNews,
						Reason:   fmt.Sprintf("claim framed as current but matching evidence dates to %d", year),
					}
				}
			}
		}
	}

	return models.ZombieCheck{}
}

func countLabels(labeled []models.EvidenceItem) (trueCount, falseCount int) {
	for _, item := range labeled {
		switch item.TruthLabel {
		case models.LabelTrue, models.LabelReal, models.LabelVerified:
			trueCount++
		case models.LabelFalse, models.LabelFake:
			falseCount++
		}
	}
	return trueCount, falseCount
}

func determineConsensus(trueCount, falseCount int) models.Consensus {
	switch {
	case trueCount > 0 && falseCount > 0:
		return models.ConsensusConflict
	case trueCount > 0:
		return models.ConsensusAgreeTrue
	case falseCount > 0:
		return models.ConsensusAgreeFalse
	default:
		return models.ConsensusNoLabels
	}
}

// weightedScore is a trust- and similarity-weighted average of evidence
// polarity. Unlabeled evidence adds low-weight mass to the denominator
// only: it can dilute confidence in a polarity but never supply one.
func (e *Examiner) weightedScore(labeled, unlabeled []models.EvidenceItem) float64 {
	var totalScore, totalWeight float64

	for _, item := range labeled {
		polarity, ok := labelPolarity[item.TruthLabel]
		if !ok {
			continue
		}
		weight := item.Similarity * e.cfg.trust(item.SourceName)
		totalScore += polarity * weight
		totalWeight += weight
	}

	for _, item := range unlabeled {
		totalWeight += item.Similarity * e.cfg.UnlabeledWeight
	}

	if totalWeight == 0 {
		return 0
	}
	return totalScore / totalWeight
}

func dateCheck(decomposed models.DecomposedClaim) models.DateCheck {
	switch decomposed.TemporalClass {
	case models.TemporalHistorical:
		return models.DateCheck{TrustDB: true, Message: "historical claim, vector index is authoritative"}
	case models.TemporalRecent:
		return models.DateCheck{TrustDB: false, Message: "recent claim, web search recommended"}
	default:
		return models.DateCheck{TrustDB: true, Message: "general claim, all sources considered"}
	}
}

func sourcePriority(decomposed models.DecomposedClaim, labeledCount int) models.SourcePriority {
	switch {
	case decomposed.TemporalClass == models.TemporalHistorical && labeledCount > 0:
		return models.PriorityLabeledDB
	case decomposed.TemporalClass == models.TemporalRecent:
		return models.PriorityWeb
	case labeledCount > 0:
		return models.PriorityLabeledDB
	default:
		return models.PriorityUnlabeledDB
	}
}

// recommend applies the tier-gated policy. Only the high tier may produce
// unqualified true/false; medium tightens thresholds to likely_*; low and
// none can at best ask for a web check.
func (e *Examiner) recommend(
	labeled []models.EvidenceItem,
	bundle models.EvidenceBundle,
	zombie models.ZombieCheck,
	consensus models.Consensus,
	trueCount, falseCount int,
	score float64,
) models.Recommendation {
	if zombie.IsZombie {
		return models.RecommendFalse
	}

	if len(labeled) == 0 {
		if len(bundle.Unlabeled) > 0 {
			return models.RecommendCheckWeb
		}
		return models.RecommendUnverified
	}

	if consensus == models.ConsensusConflict {
		return models.RecommendNeedsCheck
	}

	switch bundle.SimilarityTier {
	case models.TierHigh:
		switch {
		case score >= e.cfg.DefinitiveScore && trueCount >= e.cfg.MinDefinitiveCount:
			return models.RecommendTrue
		case score <= -e.cfg.DefinitiveScore && falseCount >= e.cfg.MinDefinitiveCount:
			return models.RecommendFalse
		case score >= e.cfg.ModerateScore:
			return models.RecommendLikelyTrue
		case score <= -e.cfg.ModerateScore:
			return models.RecommendLikelyFalse
		default:
			return models.RecommendNeedsCheck
		}

	case models.TierMedium:
		switch {
		case score >= e.cfg.MediumTierScore:
			return models.RecommendLikelyTrue
		case score <= -e.cfg.MediumTierScore:
			return models.RecommendLikelyFalse
		default:
			return models.RecommendNeedsCheck
		}

	default:
		if len(bundle.Unlabeled) > 0 {
			return models.RecommendCheckWeb
		}
		return models.RecommendUnverified
	}
}

// confidenceHint: base 0.5, boosted by the presence and volume of labeled
// evidence and by the top similarity, capped at 1.
func (e *Examiner) confidenceHint(labeled []models.EvidenceItem, topSimilarity float64) float64 {
	confidence := 0.5
	if len(labeled) > 0 {
		confidence += 0.2
	}
	confidence += topSimilarity * 0.2
	if len(labeled) >= 3 {
		confidence += 0.1
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}
