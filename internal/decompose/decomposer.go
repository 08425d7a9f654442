package decompose

import (
	"context"
	"errors"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/claimlens/claimlens/pkg/models"
)

// ErrEmptyClaim is returned when the claim text is blank after trimming.
var ErrEmptyClaim = errors.New("claim text is empty")

const (
	minKeywordLen   = 3
	maxWebQueryLen  = 150
	maxTranslatedKw = 7
	historicalCap   = 2023
)

// Years are matched strictly in the 2010-2029 range.
var yearPattern = regexp.MustCompile(`\b(20[1-2][0-9])\b`)

// Sinhala Unicode block.
var sinhalaPattern = regexp.MustCompile(`[\x{0D80}-\x{0DFF}]`)

// Keywords that mark a claim as being about current events, in every
// supported language.
var recentKeywords = []string{
	"today", "yesterday", "breaking", "just now", "now",
	"අද", "ඊයේ", "දැන්", "මේ මොහොතේ", "නවතම",
}

var stopWords = map[string]struct{}{}

func init() {
	words := []string{
		// English
		"the", "a", "an", "is", "are", "was", "were", "has", "have",
		"will", "be", "been", "being", "that", "this", "it", "and",
		"or", "but", "if", "then", "so", "because", "as", "of", "in",
		"on", "at", "to", "for", "with", "by", "from", "about",

		// Sinhala
		"සහ", "හා", "හෝ", "නිසා", "බැවින්", "විට", "වඩා", "ගැන",
		"තවත්", "මෙම", "ඔබ", "මම", "අපි", "ඔව්", "නැත", "ඇත",
		"වෙත", "සඳහා", "මගින්", "විසින්", "ලෙස", "පිළිබඳ", "පිළිබඳව",
		"තුළ", "මත", "සිට", "දක්වා", "හේතුවෙන්", "කර", "කරන", "කරයි",
	}
	for _, w := range words {
		stopWords[w] = struct{}{}
	}
}

// Decomposer normalizes raw claims into searchable components.
type Decomposer struct {
	translator Translator
	now        func() time.Time
}

// Option configures the Decomposer.
type Option func(*Decomposer)

// WithTranslator sets the translation collaborator.
func WithTranslator(t Translator) Option {
	return func(d *Decomposer) {
		d.translator = t
	}
}

// WithClock overrides the time source (used by tests).
func WithClock(now func() time.Time) Option {
	return func(d *Decomposer) {
		d.now = now
	}
}

// NewDecomposer creates a claim decomposer.
func NewDecomposer(opts ...Option) *Decomposer {
	d := &Decomposer{
		translator: NoOpTranslator{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decompose breaks a raw claim into keywords, year references, a temporal
// classification and, for minority-script claims, a translated variant.
// Translation failures degrade to empty translated fields.
func (d *Decomposer) Decompose(ctx context.Context, raw string) (models.DecomposedClaim, error) {
	claim := strings.TrimSpace(raw)
	if claim == "" {
		return models.DecomposedClaim{}, ErrEmptyClaim
	}

	years := extractYears(claim)
	temporal := d.temporalClass(claim, years)
	keywords := extractKeywords(claim)

	decomposed := models.DecomposedClaim{
		OriginalText:   claim,
		Keywords:       keywords,
		YearsMentioned: years,
		TemporalClass:  temporal,
		NeedsWebSearch: temporal == models.TemporalRecent,
		VectorQuery:    claim,
		WebQuery:       truncateRunes(claim, maxWebQueryLen),
	}

	if sinhalaPattern.MatchString(claim) {
		translated, err := d.translator.Translate(ctx, claim)
		if err != nil {
			log.Printf("[decompose] translation failed: %v", err)
		} else if translated != "" {
			decomposed.TranslatedText = translated
			decomposed.TranslatedKeywords = extractKeywords(translated)
			decomposed.VectorQuery = translated

			kw := decomposed.TranslatedKeywords
			if len(kw) > maxTranslatedKw {
				kw = kw[:maxTranslatedKw]
			}
			decomposed.TranslatedWebQuery = strings.Join(kw, " ")
		}
	}

	return decomposed, nil
}

func extractYears(text string) []int {
	var years []int
	for _, m := range yearPattern.FindAllString(text, -1) {
		y, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		years = append(years, y)
	}
	return years
}

// temporalClass classifies in priority order: immediacy keywords, then a
// year at or past the current one, then all years at or before the
// historical cap, else general.
func (d *Decomposer) temporalClass(claim string, years []int) models.TemporalClass {
	lower := strings.ToLower(claim)
	for _, kw := range recentKeywords {
		if strings.Contains(lower, kw) {
			return models.TemporalRecent
		}
	}

	if len(years) > 0 {
		maxYear := years[0]
		for _, y := range years[1:] {
			if y > maxYear {
				maxYear = y
			}
		}
		if maxYear >= d.now().Year() {
			return models.TemporalRecent
		}
		if maxYear <= historicalCap {
			return models.TemporalHistorical
		}
	}

	return models.TemporalGeneral
}

// extractKeywords splits on whitespace rather than tokenizing on
// punctuation so non-Latin scripts survive intact. Tokens are deduplicated
// preserving first occurrence.
func extractKeywords(claim string) []string {
	var keywords []string
	seen := make(map[string]struct{})

	for _, w := range strings.Fields(claim) {
		clean := strings.Trim(w, ".,!?\"':;()[]{}")
		if len([]rune(clean)) < minKeywordLen {
			continue
		}
		lower := strings.ToLower(clean)
		if _, stop := stopWords[lower]; stop {
			continue
		}
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		keywords = append(keywords, clean)
	}

	return keywords
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n]))
}
