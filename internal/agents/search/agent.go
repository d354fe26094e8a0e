package search

import (
	"errors"

	"github.com/ethanbaker/tabletalk/pkg/utils"
	"github.com/nlpodyssey/openai-agents-go/agents"
)

// DefaultInstructions is used when no search system prompt file is configured
const DefaultInstructions = `You are a careful research assistant. Answer the user's question using the web_search tool.

Operating instructions:
1. Search before answering any question about facts, news or current events.
2. Base the answer only on the results returned by the tool. If they do not answer the question, say so.
3. Cite the URLs of the sources you used.
4. Keep the final answer short and human-readable.`

// DefaultMaxResults is the per-search result cap when none is configured
const DefaultMaxResults = 5

// Options controls how a search agent is built
type Options struct {
	Model        string
	Instructions string
	MaxTurns     uint64
	MaxResults   int
}

// SearchAgent provides internet search and information gathering capabilities
type SearchAgent struct {
	agent      *agents.Agent
	config     *utils.Config
	provider   Provider
	maxResults int
	maxTurns   uint64
}

// NewSearchAgent creates a new search agent backed by provider
func NewSearchAgent(provider Provider, config *utils.Config, opts Options) (*SearchAgent, error) {
	if provider == nil {
		return nil, errors.New("search provider is required")
	}
	if opts.MaxTurns == 0 {
		return nil, errors.New("max turns must be positive")
	}

	instructions := opts.Instructions
	if instructions == "" {
		instructions = DefaultInstructions
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	sa := &SearchAgent{
		config:     config,
		provider:   provider,
		maxResults: maxResults,
		maxTurns:   opts.MaxTurns,
	}

	// Create the underlying agent
	sa.agent = agents.New("search-agent").
		WithInstructions(instructions).
		WithModel(opts.Model)

	// Register tools
	sa.registerTools()

	return sa, nil
}

// Agent returns the underlying openai-agents-go instance
func (sa *SearchAgent) Agent() *agents.Agent {
	return sa.agent
}

// ID returns the agent identifier
func (sa *SearchAgent) ID() string {
	return "search-agent"
}

// Config returns the agent configuration
func (sa *SearchAgent) Config() *utils.Config {
	return sa.config
}

// MaxTurns returns the reasoning cycle cap
func (sa *SearchAgent) MaxTurns() uint64 {
	return sa.maxTurns
}

// Provider returns the bound search provider
func (sa *SearchAgent) Provider() Provider {
	return sa.provider
}
