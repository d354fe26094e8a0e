package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// TavilyEndpoint is the Tavily search API URL
const TavilyEndpoint = "https://api.tavily.com/search"

type tavilyRequest struct {
	APIKey     string `json:"api_key"`
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type tavilyResponse struct {
	Query   string `json:"query"`
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Tavily queries the Tavily search API
type Tavily struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

// NewTavily creates a Tavily provider authenticated by apiKey
func NewTavily(apiKey string, client *http.Client) *Tavily {
	if client == nil {
		client = defaultClient()
	}

	return &Tavily{
		apiKey:     apiKey,
		endpoint:   TavilyEndpoint,
		httpClient: client,
	}
}

// WithEndpoint points the provider at a different API URL
func (t *Tavily) WithEndpoint(endpoint string) *Tavily {
	t.endpoint = endpoint
	return t
}

// Name returns the provider name
func (t *Tavily) Name() string {
	return ProviderTavily
}

// Search posts query to the Tavily API
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) (*SearchResponse, error) {
	payload, err := json.Marshal(tavilyRequest{
		APIKey:     t.apiKey,
		Query:      query,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed with status: %d", resp.StatusCode)
	}

	var tr tavilyResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	out := &SearchResponse{
		Query:   query,
		Total:   len(tr.Results),
		Answer:  tr.Answer,
		Results: make([]SearchResult, 0, len(tr.Results)),
	}
	for _, r := range tr.Results {
		out.Results = append(out.Results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Engine:  ProviderTavily,
		})
	}

	if maxResults > 0 && len(out.Results) > maxResults {
		out.Results = out.Results[:maxResults]
	}

	return out, nil
}
