package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/nlpodyssey/openai-agents-go/agents"
)

// RunnerHandle invokes a CustomAgent through the openai-agents-go runner.
// The agent's tools carry whatever source it was bound to
type RunnerHandle struct {
	agent CustomAgent
}

// NewHandle wraps a custom agent as a Handle
func NewHandle(a CustomAgent) *RunnerHandle {
	return &RunnerHandle{agent: a}
}

// CustomAgent returns the wrapped agent
func (h *RunnerHandle) CustomAgent() CustomAgent {
	return h.agent
}

// Invoke runs one reasoning loop over history plus input
func (h *RunnerHandle) Invoke(ctx context.Context, input string, history []Message) (string, error) {
	runner := agents.Runner{
		Config: agents.RunConfig{
			MaxTurns: h.agent.MaxTurns(),
		},
	}

	resp, err := runner.RunInputs(ctx, h.agent.Agent(), ToInputItems(history, input))
	if err != nil {
		return "", fmt.Errorf("agent execution failed: %w", err)
	}

	if resp == nil || resp.FinalOutput == nil {
		return "", nil
	}
	return strings.TrimSpace(fmt.Sprint(resp.FinalOutput)), nil
}
