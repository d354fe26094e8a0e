// tools.go handles registering tools for the SearchAgent
package search

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/openai/openai-go/v2/packages/param"
)

// Limit content length to prevent overwhelming the model
const maxContentLength = 2000

// registerTools registers the single web search tool
func (sa *SearchAgent) registerTools() {
	webSearchTool := agents.FunctionTool{
		Name:        "web_search",
		Description: "Search the internet for up to date information",
		ParamsJSONSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query to execute",
				},
			},
			"additionalProperties": false,
			"required":             []string{"query"},
		},
		StrictJSONSchema: param.NewOpt(true),
		OnInvokeTool: func(ctx context.Context, arguments string) (any, error) {
			return sa.handleWebSearch(ctx, arguments)
		},
		IsEnabled: agents.FunctionToolEnabled(),
	}

	sa.agent.Tools = []agents.Tool{
		webSearchTool,
	}
}

// handleWebSearch performs a web search using the bound provider. Failures
// are reported back to the model in an error field
func (sa *SearchAgent) handleWebSearch(ctx context.Context, arguments string) (map[string]any, error) {
	var params struct {
		Query string `json:"query"`
	}

	if err := json.Unmarshal([]byte(arguments), &params); err != nil {
		return map[string]any{"error": "invalid arguments: " + err.Error()}, nil
	}

	params.Query = strings.TrimSpace(params.Query)
	if params.Query == "" {
		return map[string]any{"error": "query parameter is required"}, nil
	}

	resp, err := sa.provider.Search(ctx, params.Query, sa.maxResults)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		log.Printf("[SEARCH-AGENT]: Search %q via %s failed: %v", params.Query, sa.provider.Name(), err)
		return map[string]any{
			"query": params.Query,
			"error": err.Error(),
		}, nil
	}

	for i := range resp.Results {
		resp.Results[i].Content = truncateContent(resp.Results[i].Content)
	}

	result := map[string]any{
		"query":         params.Query,
		"num_results":   len(resp.Results),
		"total_found":   resp.Total,
		"search_engine": sa.provider.Name(),
		"results":       resp.Results,
	}
	if resp.Answer != "" {
		result["answer"] = resp.Answer
	}

	return result, nil
}

// truncateContent caps content at maxContentLength runes
func truncateContent(content string) string {
	if runes := []rune(content); len(runes) > maxContentLength {
		return string(runes[:maxContentLength]) + "..."
	}
	return content
}
