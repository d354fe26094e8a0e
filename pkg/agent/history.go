package agent

import (
	"slices"

	"github.com/nlpodyssey/openai-agents-go/agents"
	"github.com/openai/openai-go/v2/responses"
)

// Role identifies the author of a transcript entry or history message
type Role string

const (
	// Transcript roles
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"

	// History roles
	RoleHuman Role = "human"
	RoleAI    Role = "ai"
)

// Entry is one displayed turn of a conversation
type Entry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Message is one item of conversation history given to a reasoning backend
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserEntry creates a user transcript entry
func UserEntry(content string) Entry {
	return Entry{Role: RoleUser, Content: content}
}

// AssistantEntry creates an assistant transcript entry
func AssistantEntry(content string) Entry {
	return Entry{Role: RoleAssistant, Content: content}
}

// ValidRole reports whether r is a transcript role
func ValidRole(r Role) bool {
	return r == RoleUser || r == RoleAssistant
}

// CloneEntries returns an independent copy of entries. A nil input stays nil
func CloneEntries(entries []Entry) []Entry {
	return slices.Clone(entries)
}

// ToHistory maps transcript entries to history messages one to one, in
// order. User entries become human messages, everything else becomes ai
func ToHistory(entries []Entry) []Message {
	history := make([]Message, len(entries))
	for i, e := range entries {
		role := RoleAI
		if e.Role == RoleUser {
			role = RoleHuman
		}
		history[i] = Message{Role: role, Content: e.Content}
	}
	return history
}

// ToInputItems converts history plus the new input into the runner's input
// item list. The new input is always the final item
func ToInputItems(history []Message, input string) []agents.TResponseInputItem {
	items := make([]agents.TResponseInputItem, 0, len(history)+1)
	for _, m := range history {
		role := responses.EasyInputMessageRoleAssistant
		if m.Role == RoleHuman {
			role = responses.EasyInputMessageRoleUser
		}
		items = append(items, responses.ResponseInputItemParamOfMessage(m.Content, role))
	}

	return append(items, responses.ResponseInputItemParamOfMessage(input, responses.EasyInputMessageRoleUser))
}
