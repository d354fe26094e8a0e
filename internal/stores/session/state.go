package session

import (
	"time"

	"github.com/ethanbaker/tabletalk/internal/binding"
	"github.com/ethanbaker/tabletalk/pkg/agent"
)

// MaxIDLength bounds accepted session identifiers
const MaxIDLength = 128

// State is the per-session conversation state
type State struct {
	ID           string        `json:"id"`
	Agent        agent.Handle  `json:"-"`
	Binding      binding.Kind  `json:"binding"`
	Source       string        `json:"source,omitempty"`
	Transcript   []agent.Entry `json:"transcript"`
	CreatedAt    time.Time     `json:"created_at"`
	LastActivity time.Time     `json:"last_activity"`
	Version      uint64        `json:"version"`
}

// Bound reports whether an agent is bound to the session
func (s State) Bound() bool {
	return s.Agent != nil
}

// Bind replaces the agent and resets the transcript to seed
func (s *State) Bind(handle agent.Handle, kind binding.Kind, source string, seed ...agent.Entry) {
	s.Agent = handle
	s.Binding = kind
	s.Source = source
	s.Transcript = append([]agent.Entry{}, seed...)
}

// clone copies the state so callers never share a transcript slice
func (s State) clone() State {
	s.Transcript = agent.CloneEntries(s.Transcript)
	if s.Transcript == nil {
		s.Transcript = []agent.Entry{}
	}
	return s
}

// ValidID reports whether id is usable as a session identifier
func ValidID(id string) bool {
	return id != "" && len(id) <= MaxIDLength
}
