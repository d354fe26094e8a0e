// Package binding builds reasoning handles bound to a data source
package binding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/ethanbaker/tabletalk/internal/agents/data"
	"github.com/ethanbaker/tabletalk/internal/agents/search"
	"github.com/ethanbaker/tabletalk/pkg/agent"
	"github.com/ethanbaker/tabletalk/pkg/utils"
)

// ErrConfiguration is returned when a handle cannot be built from the
// current configuration
var ErrConfiguration = errors.New("agent configuration error")

// Defaults applied when neither config nor profiles say otherwise
const (
	DefaultModel    = "gpt-4o-mini"
	DefaultMaxTurns = 5
)

// Factory creates agent handles. It holds no per-session state
type Factory struct {
	config       *utils.Config
	agentConfigs map[Kind]*utils.Config
	profiles     Profiles
	instructions map[Kind]string
	httpClient   *http.Client
}

// NewFactory creates a factory from configuration. The profile file and
// prompt files are read once here
func NewFactory(cfg *utils.Config) (*Factory, error) {
	f := &Factory{
		config:       cfg,
		agentConfigs: make(map[Kind]*utils.Config, 2),
		profiles:     Profiles{},
		instructions: make(map[Kind]string, 2),
		httpClient: &http.Client{
			Timeout: cfg.GetDurationWithDefault("SEARCH_TIMEOUT", 30*time.Second),
		},
	}

	if path := cfg.Get("AGENT_PROFILES_PATH"); path != "" {
		profiles, err := LoadProfiles(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
		}
		f.profiles = profiles
		log.Printf("[BINDING]: Loaded %d agent profiles from %s", len(profiles), path)
	}

	prompts := []struct {
		kind     Kind
		key      string
		fallback string
	}{
		{KindData, "DATA_SYSPROMPT_PATH", data.DefaultInstructions},
		{KindSearch, "SEARCH_SYSPROMPT_PATH", search.DefaultInstructions},
	}

	for _, p := range prompts {
		path := f.profiles[p.kind].SystemPromptPath
		if path == "" {
			path = cfg.Get(p.key)
		}

		if path == "" {
			f.instructions[p.kind] = p.fallback
			continue
		}

		instructions, err := utils.LoadPrompt(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrConfiguration, p.key, err)
		}
		f.instructions[p.kind] = instructions
	}

	return f, nil
}

// WithHTTPClient sets the client search providers use
func (f *Factory) WithHTTPClient(client *http.Client) *Factory {
	f.httpClient = client
	return f
}

// WithAgentConfig sets the configuration handed to agents of kind. Agents
// without one use the factory's config
func (f *Factory) WithAgentConfig(kind Kind, cfg *utils.Config) *Factory {
	if cfg != nil {
		f.agentConfigs[kind] = cfg
	}
	return f
}

func (f *Factory) agentConfig(kind Kind) *utils.Config {
	if cfg, ok := f.agentConfigs[kind]; ok {
		return cfg
	}
	return f.config
}

// Model returns the model name used for kind
func (f *Factory) Model(kind Kind) string {
	if model := f.profiles[kind].Model; model != "" {
		return model
	}
	return f.agentConfig(kind).GetWithDefault("MODEL", DefaultModel)
}

// MaxTurns returns the reasoning cycle cap for kind. Both variants are
// capped
func (f *Factory) MaxTurns(kind Kind) uint64 {
	if turns := f.profiles[kind].MaxTurns; turns > 0 {
		return turns
	}

	key := "DATA_AGENT_MAX_TURNS"
	if kind == KindSearch {
		key = "SEARCH_AGENT_MAX_TURNS"
	}

	turns := f.agentConfig(kind).GetIntWithDefault(key, DefaultMaxTurns)
	if turns <= 0 {
		turns = DefaultMaxTurns
	}
	return uint64(turns)
}

// Bind builds a fresh handle for source. It has no side effects besides
// returning the handle
func (f *Factory) Bind(ctx context.Context, source Source) (agent.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if f.config.Get("OPENAI_API_KEY") == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set in environment", ErrConfiguration)
	}

	var (
		custom agent.CustomAgent
		err    error
	)

	switch s := source.(type) {
	case TableSource:
		custom, err = f.bindTable(s)
	case *TableSource:
		custom, err = f.bindTable(*s)
	case SearchSource:
		custom, err = f.bindSearch(s)
	case *SearchSource:
		custom, err = f.bindSearch(*s)
	default:
		return nil, fmt.Errorf("%w: unsupported source %T", ErrConfiguration, source)
	}
	if err != nil {
		return nil, err
	}

	log.Printf("[BINDING]: Bound %s to %q (model %s, max turns %d)", custom.ID(), source.Name(), f.Model(source.Kind()), custom.MaxTurns())

	return agent.NewHandle(custom), nil
}

func (f *Factory) bindTable(s TableSource) (agent.CustomAgent, error) {
	if s.Table == nil {
		return nil, fmt.Errorf("%w: table source has no table", ErrConfiguration)
	}

	da, err := data.NewDataAgent(s.Table, f.agentConfig(KindData), data.Options{
		Model:        f.Model(KindData),
		Instructions: f.instructions[KindData],
		MaxTurns:     f.MaxTurns(KindData),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create data agent: %w", err)
	}
	return da, nil
}

func (f *Factory) bindSearch(s SearchSource) (agent.CustomAgent, error) {
	name := f.ResolveProvider(s.Provider)
	if !search.ValidProvider(name) {
		return nil, fmt.Errorf("%w: %w: %q", ErrConfiguration, search.ErrUnknownProvider, name)
	}

	cfg := f.agentConfig(KindSearch)

	credential := strings.TrimSpace(s.Credential)
	if credential == "" {
		switch name {
		case search.ProviderSearXNG:
			credential = cfg.Get("SEARXNG_URL")
		case search.ProviderTavily:
			credential = cfg.Get("TAVILY_API_KEY")
		}
	}
	if credential == "" {
		return nil, fmt.Errorf("%w: no credential configured for search provider %q", ErrConfiguration, name)
	}

	provider, err := search.NewProvider(name, credential, f.httpClient)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	maxResults := f.profiles[KindSearch].MaxResults
	if maxResults <= 0 {
		maxResults = cfg.GetIntWithDefault("SEARCH_MAX_RESULTS", search.DefaultMaxResults)
	}

	sa, err := search.NewSearchAgent(provider, cfg, search.Options{
		Model:        f.Model(KindSearch),
		Instructions: f.instructions[KindSearch],
		MaxTurns:     f.MaxTurns(KindSearch),
		MaxResults:   maxResults,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create search agent: %w", err)
	}
	return sa, nil
}

// ResolveProvider returns the provider name a SearchSource with an empty
// provider resolves to
func (f *Factory) ResolveProvider(provider string) string {
	if strings.TrimSpace(provider) == "" {
		provider = f.agentConfig(KindSearch).GetWithDefault("SEARCH_PROVIDER", search.ProviderSearXNG)
	}
	return strings.ToLower(strings.TrimSpace(provider))
}
