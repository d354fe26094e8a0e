package binding

import (
	"github.com/ethanbaker/tabletalk/internal/table"
)

// Kind identifies what a session's agent is bound to
type Kind string

const (
	KindNone   Kind = "none"
	KindData   Kind = "data"
	KindSearch Kind = "search"
)

// Source is the thing an agent is bound to
type Source interface {
	// Kind returns the agent variant the source needs
	Kind() Kind

	// Name describes the source for display, a filename or provider name
	Name() string
}

// TableSource binds a data agent to a parsed table
type TableSource struct {
	Table *table.Table
}

func (s TableSource) Kind() Kind {
	return KindData
}

func (s TableSource) Name() string {
	if s.Table == nil {
		return ""
	}
	return s.Table.Name
}

// SearchSource binds a search agent to a provider. An empty credential is
// resolved from configuration
type SearchSource struct {
	Provider   string
	Credential string
}

func (s SearchSource) Kind() Kind {
	return KindSearch
}

func (s SearchSource) Name() string {
	return s.Provider
}
