package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ethanbaker/tabletalk/pkg/agent"
	"github.com/ethanbaker/tabletalk/pkg/utils"
	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSearxServer(t *testing.T, status int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		json.NewEncoder(w).Encode(SearxResponse{
			Query:           r.URL.Query().Get("q"),
			NumberOfResults: 3,
			Results: []SearchResult{
				{Title: "One", URL: "https://one.example", Content: "first", Engine: "duckduckgo"},
				{Title: "Two", URL: "https://two.example", Content: "second", Engine: "bing"},
				{Title: "Three", URL: "https://three.example", Content: "third", Engine: "bing"},
			},
		})
	}))
	t.Cleanup(server.Close)

	return server
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name       string
		provider   string
		credential string
		wantName   string
		wantErr    string
	}{
		{name: "searxng", provider: "searxng", credential: "http://localhost:8888", wantName: ProviderSearXNG},
		{name: "tavily case insensitive", provider: " Tavily ", credential: "tvly-key", wantName: ProviderTavily},
		{name: "searxng without url", provider: "searxng", wantErr: "base URL"},
		{name: "tavily without key", provider: "tavily", credential: "  ", wantErr: "API key"},
		{name: "unknown", provider: "bing", credential: "x", wantErr: "unknown search provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.provider, tt.credential, nil)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}

	_, err := NewProvider("bing", "x", nil)
	assert.True(t, errors.Is(err, ErrUnknownProvider))
	assert.True(t, ValidProvider("SEARXNG"))
	assert.False(t, ValidProvider("bing"))
}

func TestSearXNG_Search(t *testing.T) {
	server := newSearxServer(t, http.StatusOK)

	p := NewSearXNG(server.URL+"/", server.Client())
	resp, err := p.Search(context.Background(), "go generics", 2)
	require.NoError(t, err)

	assert.Equal(t, "go generics", resp.Query)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://one.example", resp.Results[0].URL)
}

func TestSearXNG_SearchStatus(t *testing.T) {
	server := newSearxServer(t, http.StatusBadGateway)

	_, err := NewSearXNG(server.URL, server.Client()).Search(context.Background(), "q", 5)
	assert.ErrorContains(t, err, "status: 502")
}

func TestTavily_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req tavilyRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "tvly-key", req.APIKey)
		assert.Equal(t, "weather", req.Query)
		assert.Equal(t, 1, req.MaxResults)

		w.Write([]byte(`{"query":"weather","answer":"Sunny","results":[
			{"title":"A","url":"https://a.example","content":"sunny","score":0.9},
			{"title":"B","url":"https://b.example","content":"cloudy","score":0.4}
		]}`))
	}))
	defer server.Close()

	p := NewTavily("tvly-key", server.Client()).WithEndpoint(server.URL)
	resp, err := p.Search(context.Background(), "weather", 1)
	require.NoError(t, err)

	assert.Equal(t, "Sunny", resp.Answer)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, SearchResult{Title: "A", URL: "https://a.example", Content: "sunny", Engine: ProviderTavily}, resp.Results[0])
}

func TestTavily_SearchUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewTavily("bad", server.Client()).WithEndpoint(server.URL).Search(context.Background(), "q", 5)
	assert.ErrorContains(t, err, "status: 401")
}

func TestNewSearchAgent(t *testing.T) {
	p := NewSearXNG("http://localhost:8888", nil)

	sa, err := NewSearchAgent(p, utils.NewConfig(nil), Options{MaxTurns: 5})
	require.NoError(t, err)

	var _ agent.CustomAgent = sa

	assert.Equal(t, "search-agent", sa.ID())
	assert.Equal(t, uint64(5), sa.MaxTurns())
	assert.Equal(t, DefaultMaxResults, sa.maxResults)
	assert.Same(t, p, sa.Provider())

	require.Len(t, sa.Agent().Tools, 1)
	tool, ok := sa.Agent().Tools[0].(agents.FunctionTool)
	require.True(t, ok)
	assert.Equal(t, "web_search", tool.Name)

	_, err = NewSearchAgent(nil, nil, Options{MaxTurns: 5})
	assert.ErrorContains(t, err, "provider is required")

	_, err = NewSearchAgent(p, nil, Options{})
	assert.ErrorContains(t, err, "max turns")
}

func TestHandleWebSearch(t *testing.T) {
	server := newSearxServer(t, http.StatusOK)

	sa, err := NewSearchAgent(NewSearXNG(server.URL, server.Client()), utils.NewConfig(nil), Options{MaxTurns: 5, MaxResults: 2})
	require.NoError(t, err)

	out, err := sa.handleWebSearch(context.Background(), `{"query": "tabletalk"}`)
	require.NoError(t, err)
	assert.Equal(t, "tabletalk", out["query"])
	assert.Equal(t, 2, out["num_results"])
	assert.Equal(t, ProviderSearXNG, out["search_engine"])

	tests := []struct {
		name      string
		arguments string
		wantMsg   string
	}{
		{name: "bad json", arguments: `{`, wantMsg: "invalid arguments"},
		{name: "blank query", arguments: `{"query": "  "}`, wantMsg: "query parameter is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := sa.handleWebSearch(context.Background(), tt.arguments)
			require.NoError(t, err)
			assert.True(t, strings.Contains(out["error"].(string), tt.wantMsg))
		})
	}
}

func TestHandleWebSearch_ProviderFailure(t *testing.T) {
	server := newSearxServer(t, http.StatusInternalServerError)

	sa, err := NewSearchAgent(NewSearXNG(server.URL, server.Client()), utils.NewConfig(nil), Options{MaxTurns: 5})
	require.NoError(t, err)

	out, err := sa.handleWebSearch(context.Background(), `{"query": "anything"}`)
	require.NoError(t, err)
	assert.Contains(t, out["error"], "status: 500")
}

func TestTruncateContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantLen  int
		wantTail bool
	}{
		{name: "short content is unchanged", content: "plain", wantLen: 5},
		{name: "ascii is cut at the limit", content: strings.Repeat("a", maxContentLength+10), wantLen: maxContentLength + 3, wantTail: true},
		{name: "multibyte runes stay whole", content: strings.Repeat("é", maxContentLength+1), wantLen: maxContentLength + 3, wantTail: true},
		{name: "exact limit is unchanged", content: strings.Repeat("日", maxContentLength), wantLen: maxContentLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := truncateContent(tt.content)
			assert.True(t, utf8.ValidString(out))
			assert.Equal(t, tt.wantLen, utf8.RuneCountInString(out))
			assert.Equal(t, tt.wantTail, strings.HasSuffix(out, "..."))
		})
	}
}
