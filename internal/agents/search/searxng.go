package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// SearxResponse represents the full response from SearXNG
type SearxResponse struct {
	Query           string         `json:"query"`
	NumberOfResults int            `json:"number_of_results"`
	Results         []SearchResult `json:"results"`
	Suggestions     []string       `json:"suggestions"`
}

// SearXNG queries a SearXNG meta-search instance
type SearXNG struct {
	baseURL    string
	httpClient *http.Client
}

// NewSearXNG creates a SearXNG provider for the instance at baseURL
func NewSearXNG(baseURL string, client *http.Client) *SearXNG {
	if client == nil {
		client = defaultClient()
	}

	return &SearXNG{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// Name returns the provider name
func (s *SearXNG) Name() string {
	return ProviderSearXNG
}

// Search performs a general category search
func (s *SearXNG) Search(ctx context.Context, query string, maxResults int) (*SearchResponse, error) {
	// Construct search URL
	searchURL := fmt.Sprintf("%s/search?q=%s&format=json&categories=general",
		s.baseURL,
		url.QueryEscape(query),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Make the request
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed with status: %d", resp.StatusCode)
	}

	// Read response
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// Parse JSON response
	var searxResp SearxResponse
	if err := json.Unmarshal(body, &searxResp); err != nil {
		return nil, fmt.Errorf("failed to parse search results: %w", err)
	}

	// Limit results to requested number
	if maxResults > 0 && len(searxResp.Results) > maxResults {
		searxResp.Results = searxResp.Results[:maxResults]
	}

	return &SearchResponse{
		Query:   query,
		Total:   searxResp.NumberOfResults,
		Results: searxResp.Results,
	}, nil
}
