package agent

import (
	"context"

	"github.com/ethanbaker/tabletalk/pkg/utils"
	"github.com/nlpodyssey/openai-agents-go/agents"
)

// CustomAgent defines the interface for all custom agents in the system
type CustomAgent interface {
	// Agent returns the underlying openai-agents-go instance
	Agent() *agents.Agent

	// ID returns the unique identifier for this agent
	ID() string

	// Config returns the configuration for this agent
	Config() *utils.Config

	// MaxTurns caps the reasoning cycles of a single invocation
	MaxTurns() uint64
}

// Handle is a reasoning loop bound to one source and one prompt. A handle
// is never rebound; binding a new source produces a new handle
type Handle interface {
	// Invoke answers input given the prior conversation. history never
	// contains input itself
	Invoke(ctx context.Context, input string, history []Message) (string, error)
}

// HandleFunc adapts a function to the Handle interface
type HandleFunc func(ctx context.Context, input string, history []Message) (string, error)

// Invoke calls f
func (f HandleFunc) Invoke(ctx context.Context, input string, history []Message) (string, error) {
	return f(ctx, input, history)
}
