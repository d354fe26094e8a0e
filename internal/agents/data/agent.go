package data

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/ethanbaker/tabletalk/internal/query"
	"github.com/ethanbaker/tabletalk/internal/table"
	"github.com/ethanbaker/tabletalk/pkg/agent"
	"github.com/ethanbaker/tabletalk/pkg/utils"
	"github.com/nlpodyssey/openai-agents-go/agents"
)

// DefaultInstructions is used when no data system prompt file is configured
const DefaultInstructions = `You are a world-class data analyst. Your purpose is to help the user understand the data in a single table. You must be precise and accurate.

Your only tool is query_table, which evaluates one expression against the table and returns the result.

Operating instructions:
1. Read the question carefully and plan how to answer it with one or more expressions.
2. Every expression must be a single expression that returns a value. Do not write statements or assignments.
   - Correct: total(col("Price"))
   - Incorrect: x = total(col("Price")); x
3. Always answer from a tool result. When you state a number, use the exact value the tool returned.
4. If an expression fails, read the error, fix the expression and try again.
5. Keep the final answer short and human-readable.`

// sampleValues is the number of example cells shown per column in the prompt
const sampleValues = 3

// Options controls how a data agent is built
type Options struct {
	Model        string
	Instructions string
	MaxTurns     uint64
}

// DataAgent answers questions about one table through a query_table tool
type DataAgent struct {
	agent     *agents.Agent
	config    *utils.Config
	evaluator *query.Evaluator
	maxTurns  uint64
}

// NewDataAgent creates a data agent bound to tbl
func NewDataAgent(tbl *table.Table, config *utils.Config, opts Options) (*DataAgent, error) {
	if tbl == nil {
		return nil, errors.New("table is required")
	}
	if opts.MaxTurns == 0 {
		return nil, errors.New("max turns must be positive")
	}

	instructions := opts.Instructions
	if instructions == "" {
		instructions = DefaultInstructions
	}

	da := &DataAgent{
		config:    config,
		evaluator: query.NewEvaluator(tbl),
		maxTurns:  opts.MaxTurns,
	}

	// Create the underlying agent
	da.agent = agents.New("data-agent").
		WithInstructions(BuildPrompt(instructions, tbl)).
		WithModel(opts.Model)

	// Register tools
	da.registerTools()

	return da, nil
}

// BuildPrompt grounds the base instructions in the table's shape
func BuildPrompt(instructions string, tbl *table.Table) string {
	return agent.NewPromptBuilder(instructions).
		AddFact("file", tbl.Name).
		AddFact("rows", strconv.Itoa(tbl.NumRows())).
		AddFact("columns", strconv.Itoa(tbl.NumColumns())).
		AddSection("Columns", tbl.Describe(sampleValues)...).
		AddSection("Expression Variables",
			"rows: list of rows, each a map of column name to value (empty cells are null)",
			"columns: list of column names",
			"nrows: number of rows",
		).
		AddSection("Expression Functions", query.FunctionDocs...).
		AddSection("Expression Examples",
			`count(rows, #.Region == "West")`,
			`total(pluck(filter(rows, #.Region == "West"), "Price"))`,
			fmt.Sprintf("len(rows) == %d", tbl.NumRows()),
		).
		Build()
}

// Agent returns the underlying openai-agents-go instance
func (da *DataAgent) Agent() *agents.Agent {
	return da.agent
}

// ID returns the agent identifier
func (da *DataAgent) ID() string {
	return "data-agent"
}

// Config returns the agent configuration
func (da *DataAgent) Config() *utils.Config {
	return da.config
}

// MaxTurns returns the reasoning cycle cap
func (da *DataAgent) MaxTurns() uint64 {
	return da.maxTurns
}

// Table returns the bound table
func (da *DataAgent) Table() *table.Table {
	return da.evaluator.Table()
}
