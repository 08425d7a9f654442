package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultWebTimeout = 30 * time.Second

// WebClient queries a SearxNG-compatible metasearch endpoint for snippets.
type WebClient struct {
	httpClient *http.Client
	baseURL    string
	region     string
}

// WebClientOption configures the WebClient.
type WebClientOption func(*WebClient)

// WithWebTimeout sets the HTTP client timeout.
func WithWebTimeout(d time.Duration) WebClientOption {
	return func(c *WebClient) {
		c.httpClient.Timeout = d
	}
}

// WithRegion restricts search to a language/region code.
func WithRegion(region string) WebClientOption {
	return func(c *WebClient) {
		c.region = region
	}
}

// NewWebClient creates a web search client for the given endpoint.
func NewWebClient(baseURL string, opts ...WebClientOption) *WebClient {
	c := &WebClient{
		httpClient: &http.Client{Timeout: defaultWebTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type webSearchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// Search returns up to limit ranked snippets for a query.
func (c *WebClient) Search(ctx context.Context, query string, limit int) ([]WebResult, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("pageno", "1")
	if c.region != "" {
		params.Set("language", c.region)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search API error (status %d): %s", resp.StatusCode, string(body))
	}

	var searchResp webSearchResponse
	if err := json.Unmarshal(body, &searchResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	results := make([]WebResult, 0, limit)
	seen := make(map[string]struct{})
	for _, r := range searchResp.Results {
		if r.URL == "" {
			continue
		}
		if _, dup := seen[r.URL]; dup {
			continue
		}
		seen[r.URL] = struct{}{}

		results = append(results, WebResult{
			Title: r.Title,
			Body:  r.Content,
			URL:   r.URL,
		})
		if len(results) >= limit {
			break
		}
	}

	return results, nil
}

// SourceNameFromURL derives a readable source name from a result URL.
func SourceNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "web"
	}
	host := strings.TrimPrefix(u.Host, "www.")
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	return host
}
