package models

import (
	"time"
)

// TemporalClass categorizes when the events in a claim supposedly happened.
type TemporalClass string

const (
	TemporalRecent     TemporalClass = "recent"
	TemporalHistorical TemporalClass = "historical"
	TemporalGeneral    TemporalClass = "general"
)

// TruthLabel is a prior truth judgment carried by a piece of evidence.
type TruthLabel string

const (
	LabelTrue       TruthLabel = "true"
	LabelReal       TruthLabel = "real"
	LabelVerified   TruthLabel = "verified"
	LabelFalse      TruthLabel = "false"
	LabelFake       TruthLabel = "fake"
	LabelMisleading TruthLabel = "misleading"
	LabelNone       TruthLabel = ""
)

// Origin identifies where an evidence item was retrieved from.
type Origin string

const (
	OriginVectorDB Origin = "vector_db"
	OriginWeb      Origin = "web"
)

// SimilarityTier is a coarse bucket derived from the top similarity score.
type SimilarityTier string

const (
	TierHigh   SimilarityTier = "high"
	TierMedium SimilarityTier = "medium"
	TierLow    SimilarityTier = "low"
	TierNone   SimilarityTier = "none"
)

// Consensus describes how labeled evidence items agree with each other.
type Consensus string

const (
	ConsensusAgreeTrue  Consensus = "agree_true"
	ConsensusAgreeFalse Consensus = "agree_false"
	ConsensusConflict   Consensus = "conflict"
	ConsensusNoLabels   Consensus = "no_labels"
)

// Recommendation is a graded verdict label.
type Recommendation string

const (
	RecommendTrue        Recommendation = "true"
	RecommendLikelyTrue  Recommendation = "likely_true"
	RecommendMisleading  Recommendation = "misleading"
	RecommendNeedsCheck  Recommendation = "needs_verification"
	RecommendLikelyFalse Recommendation = "likely_false"
	RecommendFalse       Recommendation = "false"
	RecommendUnverified  Recommendation = "unverified"
	RecommendCheckWeb    Recommendation = "check_web"
)

// ZombieKind distinguishes the two recycled-claim patterns.
type ZombieKind string

const (
	ZombieKnownFalse   ZombieKind = "known_false"
	ZombieRecycledNews ZombieKind = "recycled_news"
)

// SourcePriority hints which evidence channel the verdict should lean on.
type SourcePriority string

const (
	PriorityLabeledDB   SourcePriority = "labeled_db"
	PriorityWeb         SourcePriority = "web"
	PriorityUnlabeledDB SourcePriority = "unlabeled_db"
)

// DecomposedClaim is the normalized form of a raw claim.
// Created once per verification request and immutable thereafter.
type DecomposedClaim struct {
	OriginalText       string        `json:"original_text"`
	TranslatedText     string        `json:"translated_text,omitempty"`
	Keywords           []string      `json:"keywords"`
	TranslatedKeywords []string      `json:"translated_keywords,omitempty"`
	YearsMentioned     []int         `json:"years_mentioned"`
	TemporalClass      TemporalClass `json:"temporal_class"`
	NeedsWebSearch     bool          `json:"needs_web_search"`

	// Derived query strings consumed by the retriever.
	VectorQuery        string `json:"-"`
	WebQuery           string `json:"-"`
	TranslatedWebQuery string `json:"-"`
}

// EvidenceItem is a single retrieved candidate document.
// Read-only once produced by the retriever.
type EvidenceItem struct {
	ID         string     `json:"id,omitempty"`
	Text       string     `json:"text"`
	Title      string     `json:"title,omitempty"`
	SourceName string     `json:"source_name"`
	URL        string     `json:"url,omitempty"`
	TruthLabel TruthLabel `json:"truth_label,omitempty"`
	Similarity float64    `json:"similarity"`
	Origin     Origin     `json:"origin"`
	Namespace  string     `json:"namespace,omitempty"`
}

// Recognized reports whether the label is one of the known truth labels.
func (l TruthLabel) Recognized() bool {
	switch l {
	case LabelTrue, LabelReal, LabelVerified, LabelFalse, LabelFake, LabelMisleading:
		return true
	}
	return false
}

// Labeled reports whether the item carries a recognized truth label.
func (e EvidenceItem) Labeled() bool {
	return e.TruthLabel.Recognized()
}

// EvidenceBundle partitions retrieved evidence into labeled history and
// unlabeled context. Labeled and Unlabeled are always disjoint, and
// TopSimilarity is the maximum similarity across both lists (0 when empty).
type EvidenceBundle struct {
	Labeled        []EvidenceItem `json:"labeled"`
	Unlabeled      []EvidenceItem `json:"unlabeled"`
	TopSimilarity  float64        `json:"top_similarity"`
	SimilarityTier SimilarityTier `json:"similarity_tier"`
}

// Empty reports whether no evidence was retrieved at all.
func (b EvidenceBundle) Empty() bool {
	return len(b.Labeled) == 0 && len(b.Unlabeled) == 0
}

// ZombieCheck is the result of recycled-claim detection.
type ZombieCheck struct {
	IsZombie bool       `json:"is_zombie"`
	Kind     ZombieKind `json:"kind,omitempty"`
	Reason   string     `json:"reason,omitempty"`
}

// DateCheck records whether the claim's temporal framing lets the
// vector database act as the authoritative source.
type DateCheck struct {
	TrustDB bool   `json:"trust_db"`
	Message string `json:"message"`
}

// CrossExamResult is the output of the decision core. Derived purely from
// an EvidenceBundle and a DecomposedClaim; never persisted directly.
type CrossExamResult struct {
	TopicRelevant  bool           `json:"topic_relevant"`
	Zombie         ZombieCheck    `json:"zombie"`
	DateCheck      DateCheck      `json:"date_check"`
	Consensus      Consensus      `json:"consensus"`
	WeightedScore  float64        `json:"weighted_score"`
	TrueCount      int            `json:"true_count"`
	FalseCount     int            `json:"false_count"`
	SourcePriority SourcePriority `json:"source_priority"`
	Recommendation Recommendation `json:"recommendation"`
	ConfidenceHint float64        `json:"confidence_hint"`
}

// Citation points at a piece of evidence backing a verdict.
type Citation struct {
	Source        string `json:"source"`
	Label         string `json:"label,omitempty"`
	SimilarityPct int    `json:"similarity_pct"`
	URL           string `json:"url,omitempty"`
}

// Verdict is the final user-facing judgment.
type Verdict struct {
	Label       Recommendation `json:"label"`
	Confidence  float64        `json:"confidence"`
	Explanation string         `json:"explanation"`
	Citations   []Citation     `json:"citations"`
	LLMPowered  bool           `json:"llm_powered"`
}

// ClaimSummary is the slice of the decomposed claim kept on the result.
type ClaimSummary struct {
	Original      string        `json:"original"`
	Translated    string        `json:"translated,omitempty"`
	Keywords      []string      `json:"keywords"`
	TemporalClass TemporalClass `json:"temporal_class"`
}

// VerificationResult is the final artifact of one pipeline run. It is
// written to both cache tiers keyed by a hash of the original claim text.
type VerificationResult struct {
	Claim       ClaimSummary    `json:"claim"`
	CrossExam   CrossExamResult `json:"cross_examination"`
	Verdict     Verdict         `json:"verdict"`
	FromCache   bool            `json:"from_cache"`
	VerifiedAt  time.Time       `json:"verified_at"`
	Degradation []string        `json:"degradation,omitempty"`
}
