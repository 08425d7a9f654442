package verdict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/claimlens/claimlens/pkg/models"
)

// ErrUnparsableReasoning indicates the language model replied in a shape
// the line parser could not recover a verdict from.
var ErrUnparsableReasoning = errors.New("unparsable reasoning output")

// Reasoning is the structured judgment extracted from a model reply.
type Reasoning struct {
	TopicMatch bool
	Label      models.Recommendation
	Confidence float64
	Rationale  string
	Citations  []string
}

// Reasoner produces a natural-language judgment over the evidence.
type Reasoner interface {
	Reason(ctx context.Context, decomposed models.DecomposedClaim, bundle models.EvidenceBundle, exam models.CrossExamResult) (*Reasoning, error)
}

// ChatClient calls an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// ChatOption configures the chat client.
type ChatOption func(*ChatClient)

// WithChatModel overrides the default model.
func WithChatModel(model string) ChatOption {
	return func(c *ChatClient) {
		c.model = model
	}
}

// WithChatTimeout sets the HTTP timeout.
func WithChatTimeout(timeout time.Duration) ChatOption {
	return func(c *ChatClient) {
		c.httpClient.Timeout = timeout
	}
}

// NewChatClient creates a reasoning client for the given endpoint.
func NewChatClient(baseURL, apiKey string, opts ...ChatOption) *ChatClient {
	c := &ChatClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   "gpt-4o-mini",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

const systemPrompt = `You are a fact-checking analyst. You receive a claim and retrieved evidence.
First decide whether the evidence is actually about the same topic as the claim.
Then judge the claim strictly from the evidence given. Reply in exactly this format:

TOPIC_MATCH: yes or no
VERDICT: one of true, likely_true, misleading, needs_verification, likely_false, false, unverified
CONFIDENCE: a number between 0.0 and 1.0
REASONING: one or two sentences explaining the judgment
CITATIONS: semicolon-separated source names, or none`

// Reason sends the claim and evidence to the model and parses the reply.
func (c *ChatClient) Reason(ctx context.Context, decomposed models.DecomposedClaim, bundle models.EvidenceBundle, exam models.CrossExamResult) (*Reasoning, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(decomposed, bundle, exam)},
		},
		Temperature: 0.1,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse chat response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("chat API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("chat API returned no choices")
	}

	reasoning, err := ParseReasoning(parsed.Choices[0].Message.Content)
	if err != nil {
		log.Printf("[reasoner] discarding model reply: %v", err)
		return nil, err
	}
	return reasoning, nil
}

func buildPrompt(decomposed models.DecomposedClaim, bundle models.EvidenceBundle, exam models.CrossExamResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CLAIM: %s\n", decomposed.OriginalText)
	if decomposed.TranslatedText != "" {
		fmt.Fprintf(&b, "CLAIM (translated): %s\n", decomposed.TranslatedText)
	}
	fmt.Fprintf(&b, "TEMPORAL FRAMING: %s\n\n", decomposed.TemporalClass)

	if len(bundle.Labeled) > 0 {
		b.WriteString("LABELED EVIDENCE:\n")
		for i, item := range bundle.Labeled {
			fmt.Fprintf(&b, "%d. [%s, label=%s, similarity=%.2f] %s\n",
				i+1, item.SourceName, item.TruthLabel, item.Similarity, snippet(item.Text, 300))
		}
		b.WriteString("\n")
	}

	if len(bundle.Unlabeled) > 0 {
		b.WriteString("CONTEXT (no prior label):\n")
		for i, item := range bundle.Unlabeled {
			fmt.Fprintf(&b, "%d. [%s, similarity=%.2f] %s\n",
				i+1, item.SourceName, item.Similarity, snippet(item.Text, 300))
		}
		b.WriteString("\n")
	}

	if bundle.Empty() {
		b.WriteString("NO EVIDENCE WAS FOUND.\n\n")
	}

	fmt.Fprintf(&b, "HEURISTIC ANALYSIS: consensus=%s weighted_score=%.2f recommendation=%s",
		exam.Consensus, exam.WeightedScore, exam.Recommendation)
	if exam.Zombie.IsZombie {
		fmt.Fprintf(&b, " zombie=%s (%s)", exam.Zombie.Kind, exam.Zombie.Reason)
	}
	b.WriteString("\n")

	return b.String()
}

func snippet(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

var validLabels = map[string]models.Recommendation{
	"true":               models.RecommendTrue,
	"likely_true":        models.RecommendLikelyTrue,
	"misleading":         models.RecommendMisleading,
	"needs_verification": models.RecommendNeedsCheck,
	"likely_false":       models.RecommendLikelyFalse,
	"false":              models.RecommendFalse,
	"unverified":         models.RecommendUnverified,
}

// ParseReasoning extracts the structured judgment from a model reply.
// The format is line-oriented with known headers; REASONING may span
// multiple lines up to the next header. A reply declaring a topic
// mismatch is forced to unverified with low confidence regardless of
// the verdict line.
func ParseReasoning(content string) (*Reasoning, error) {
	r := &Reasoning{TopicMatch: true, Confidence: 0.5}
	var rationale []string
	inReasoning := false
	sawVerdict := false

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)

		switch {
		case strings.HasPrefix(upper, "TOPIC_MATCH:"):
			inReasoning = false
			value := strings.ToLower(strings.TrimSpace(trimmed[len("TOPIC_MATCH:"):]))
			r.TopicMatch = !strings.HasPrefix(value, "no")

		case strings.HasPrefix(upper, "VERDICT:"):
			inReasoning = false
			value := strings.ToLower(strings.TrimSpace(trimmed[len("VERDICT:"):]))
			if label, ok := validLabels[value]; ok {
				r.Label = label
				sawVerdict = true
			}

		case strings.HasPrefix(upper, "CONFIDENCE:"):
			inReasoning = false
			value := strings.TrimSpace(trimmed[len("CONFIDENCE:"):])
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				r.Confidence = f
			}

		case strings.HasPrefix(upper, "REASONING:"):
			inReasoning = true
			if rest := strings.TrimSpace(trimmed[len("REASONING:"):]); rest != "" {
				rationale = append(rationale, rest)
			}

		case strings.HasPrefix(upper, "CITATIONS:"):
			inReasoning = false
			value := strings.TrimSpace(trimmed[len("CITATIONS:"):])
			if value != "" && !strings.EqualFold(value, "none") {
				for _, part := range strings.Split(value, ";") {
					if s := strings.TrimSpace(part); s != "" {
						r.Citations = append(r.Citations, s)
					}
				}
			}

		case inReasoning && trimmed != "":
			rationale = append(rationale, trimmed)
		}
	}

	if !sawVerdict {
		return nil, fmt.Errorf("%w: no verdict line in %q", ErrUnparsableReasoning, snippet(content, 120))
	}

	r.Rationale = strings.Join(rationale, " ")

	if !r.TopicMatch {
		r.Label = models.RecommendUnverified
		r.Confidence = 0.3
		if r.Rationale == "" {
			r.Rationale = "Retrieved evidence covers a different topic than the claim."
		}
	}

	if r.Confidence < 0 {
		r.Confidence = 0
	}
	if r.Confidence > 1 {
		r.Confidence = 1
	}

	return r, nil
}
