package decompose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Translator converts claim text into English for broader evidence coverage.
// Implementations are best-effort: a failed translation must never fail
// decomposition.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// NoOpTranslator disables translation.
type NoOpTranslator struct{}

func (NoOpTranslator) Translate(ctx context.Context, text string) (string, error) {
	return "", nil
}

const defaultTranslateTimeout = 10 * time.Second

// HTTPTranslator calls a LibreTranslate-compatible endpoint.
type HTTPTranslator struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewHTTPTranslator creates a translator client for the given endpoint.
func NewHTTPTranslator(baseURL, apiKey string) *HTTPTranslator {
	return &HTTPTranslator{
		httpClient: &http.Client{Timeout: defaultTranslateTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

// Translate converts text to English via the remote service.
func (t *HTTPTranslator) Translate(ctx context.Context, text string) (string, error) {
	reqBody := translateRequest{
		Q:      text,
		Source: "auto",
		Target: "en",
		APIKey: t.apiKey,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+"/translate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translate API error (status %d): %s", resp.StatusCode, string(body))
	}

	var tr translateResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	return tr.TranslatedText, nil
}
