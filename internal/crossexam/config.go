package crossexam

// Config exposes the examiner's heuristic constants as tunables.
type Config struct {
	// Topic relevance gate.
	TopicOverlapRatio float64
	TopicMinMatches   int

	// Zombie rumor detection.
	KnownFalseSimilarity float64
	RecycledSimilarity   float64
	RecencyCutoffYears   int

	// Tier-gated recommendation thresholds.
	DefinitiveScore    float64
	ModerateScore      float64
	MediumTierScore    float64
	MinDefinitiveCount int

	// Scoring weights.
	UnlabeledWeight float64
	DefaultTrust    float64
	SourceTrust     map[string]float64
}

// DefaultConfig returns the examiner defaults, tuned on the labeled
// news corpus.
func DefaultConfig() Config {
	return Config{
		TopicOverlapRatio: 0.25,
		TopicMinMatches:   2,

		KnownFalseSimilarity: 0.90,
		RecycledSimilarity:   0.85,
		RecencyCutoffYears:   1,

		DefinitiveScore:    0.7,
		ModerateScore:      0.4,
		MediumTierScore:    0.6,
		MinDefinitiveCount: 2,

		UnlabeledWeight: 0.2,
		DefaultTrust:    0.3,
		SourceTrust: map[string]float64{
			"BBC Sinhala": 1.0,
			"Hiru News":   0.9,
			"Ada Derana":  0.9,
			"Lankadeepa":  0.9,
			"ITN News":    0.8,
			"Twitter":     0.5,
			"Facebook":    0.4,
		},
	}
}

// trust returns the reliability weight for a source name.
func (c Config) trust(source string) float64 {
	if w, ok := c.SourceTrust[source]; ok {
		return w
	}
	return c.DefaultTrust
}
