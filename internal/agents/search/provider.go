package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Supported provider names
const (
	ProviderSearXNG = "searxng"
	ProviderTavily  = "tavily"
)

// ErrUnknownProvider is returned for a provider name with no implementation
var ErrUnknownProvider = errors.New("unknown search provider")

// SearchResult represents a single search result
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Engine  string `json:"engine,omitempty"`
}

// SearchResponse is the normalized response of any provider
type SearchResponse struct {
	Query   string         `json:"query"`
	Total   int            `json:"total_found"`
	Answer  string         `json:"answer,omitempty"`
	Results []SearchResult `json:"results"`
}

// Provider performs web searches against one backend
type Provider interface {
	// Name returns the provider name used in configuration
	Name() string

	// Search runs query and returns at most maxResults results
	Search(ctx context.Context, query string, maxResults int) (*SearchResponse, error)
}

// NewProvider creates the named provider. For SearXNG the credential is
// the instance base URL, for Tavily it is the API key
func NewProvider(name, credential string, client *http.Client) (Provider, error) {
	credential = strings.TrimSpace(credential)

	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderSearXNG:
		if credential == "" {
			return nil, errors.New("searxng requires a base URL")
		}
		return NewSearXNG(credential, client), nil
	case ProviderTavily:
		if credential == "" {
			return nil, errors.New("tavily requires an API key")
		}
		return NewTavily(credential, client), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

func defaultClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
	}
}

// ValidProvider reports whether name is a supported provider
func ValidProvider(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case ProviderSearXNG, ProviderTavily:
		return true
	}
	return false
}
