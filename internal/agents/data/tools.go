// tools.go handles registering tools for the DataAgent
package data

import (
	"context"
	"encoding/json"
	"log"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/openai/openai-go/v2/packages/param"
)

// registerTools registers the single table query tool
func (da *DataAgent) registerTools() {
	queryTableTool := agents.FunctionTool{
		Name:        "query_table",
		Description: "Evaluate a single expression against the uploaded table and return its result",
		ParamsJSONSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"expression": map[string]any{
					"type":        "string",
					"description": "A single expression using the rows, columns and nrows variables and the table functions",
				},
			},
			"additionalProperties": false,
			"required":             []string{"expression"},
		},
		StrictJSONSchema: param.NewOpt(true),
		OnInvokeTool: func(ctx context.Context, arguments string) (any, error) {
			return da.handleQueryTable(ctx, arguments)
		},
		IsEnabled: agents.FunctionToolEnabled(),
	}

	da.agent.Tools = []agents.Tool{
		queryTableTool,
	}
}

// handleQueryTable evaluates one expression. Failures are returned to the
// model as an error field so it can correct the expression
func (da *DataAgent) handleQueryTable(ctx context.Context, arguments string) (map[string]any, error) {
	var params struct {
		Expression string `json:"expression"`
	}

	if err := json.Unmarshal([]byte(arguments), &params); err != nil {
		return map[string]any{"error": "invalid arguments: " + err.Error()}, nil
	}

	result, err := da.evaluator.Evaluate(ctx, params.Expression)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		log.Printf("[DATA-AGENT]: Expression %q failed: %v", params.Expression, err)
		return map[string]any{
			"expression": params.Expression,
			"error":      err.Error(),
		}, nil
	}

	return map[string]any{
		"expression": params.Expression,
		"result":     result.Text,
	}, nil
}
