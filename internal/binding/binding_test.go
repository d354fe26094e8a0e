package binding

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethanbaker/tabletalk/internal/agents/data"
	"github.com/ethanbaker/tabletalk/internal/agents/search"
	"github.com/ethanbaker/tabletalk/internal/table"
	"github.com/ethanbaker/tabletalk/pkg/agent"
	"github.com/ethanbaker/tabletalk/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTable(t *testing.T) *table.Table {
	t.Helper()

	tbl, err := table.Parse("sales.csv", strings.NewReader("Region,Price\nWest,10\nEast,4\n"), table.Options{})
	require.NoError(t, err)
	return tbl
}

func newFactory(t *testing.T, values map[string]string) *Factory {
	t.Helper()

	f, err := NewFactory(utils.NewConfig(values))
	require.NoError(t, err)
	return f
}

// unwrap returns the custom agent behind a runner handle
func unwrap(t *testing.T, h agent.Handle) agent.CustomAgent {
	t.Helper()

	runner, ok := h.(*agent.RunnerHandle)
	require.True(t, ok, "expected *agent.RunnerHandle, got %T", h)
	return runner.CustomAgent()
}

func TestFactory_BindTable(t *testing.T) {
	f := newFactory(t, map[string]string{"OPENAI_API_KEY": "sk-test"})
	tbl := newTable(t)

	h, err := f.Bind(context.Background(), TableSource{Table: tbl})
	require.NoError(t, err)

	custom := unwrap(t, h)
	da, ok := custom.(*data.DataAgent)
	require.True(t, ok)
	assert.Same(t, tbl, da.Table())
	assert.Equal(t, uint64(DefaultMaxTurns), da.MaxTurns())
	require.Len(t, da.Agent().Tools, 1)

	// Every bind produces a fresh handle
	other, err := f.Bind(context.Background(), &TableSource{Table: tbl})
	require.NoError(t, err)
	assert.NotSame(t, h, other)
}

func TestFactory_BindSearch(t *testing.T) {
	tests := []struct {
		name         string
		values       map[string]string
		source       SearchSource
		wantProvider string
	}{
		{
			name:         "searxng credential from config",
			values:       map[string]string{"SEARXNG_URL": "http://localhost:8888"},
			source:       SearchSource{Provider: "searxng"},
			wantProvider: search.ProviderSearXNG,
		},
		{
			name:         "tavily explicit credential",
			source:       SearchSource{Provider: "tavily", Credential: "tvly-key"},
			wantProvider: search.ProviderTavily,
		},
		{
			name:         "provider defaults from config",
			values:       map[string]string{"SEARCH_PROVIDER": "Tavily", "TAVILY_API_KEY": "tvly-key"},
			source:       SearchSource{},
			wantProvider: search.ProviderTavily,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string]string{"OPENAI_API_KEY": "sk-test"}
			for k, v := range tt.values {
				values[k] = v
			}

			h, err := newFactory(t, values).Bind(context.Background(), tt.source)
			require.NoError(t, err)

			sa, ok := unwrap(t, h).(*search.SearchAgent)
			require.True(t, ok)
			assert.Equal(t, tt.wantProvider, sa.Provider().Name())
		})
	}
}

func TestFactory_BindErrors(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]string
		source  Source
		wantMsg string
	}{
		{
			name:    "missing api key",
			values:  map[string]string{},
			source:  TableSource{},
			wantMsg: "OPENAI_API_KEY",
		},
		{
			name:    "missing table",
			values:  map[string]string{"OPENAI_API_KEY": "sk-test"},
			source:  TableSource{},
			wantMsg: "no table",
		},
		{
			name:    "missing search credential",
			values:  map[string]string{"OPENAI_API_KEY": "sk-test"},
			source:  SearchSource{Provider: "tavily"},
			wantMsg: "no credential",
		},
		{
			name:    "unknown provider",
			values:  map[string]string{"OPENAI_API_KEY": "sk-test"},
			source:  SearchSource{Provider: "bing", Credential: "x"},
			wantMsg: "unknown search provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newFactory(t, tt.values).Bind(context.Background(), tt.source)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration), "expected ErrConfiguration, got %v", err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestFactory_BindCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newFactory(t, map[string]string{"OPENAI_API_KEY": "sk-test"}).Bind(ctx, TableSource{Table: newTable(t)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFactory_MaxTurns(t *testing.T) {
	tests := []struct {
		name       string
		values     map[string]string
		wantData   uint64
		wantSearch uint64
	}{
		{name: "defaults are uniform", values: map[string]string{}, wantData: 5, wantSearch: 5},
		{
			name:       "configured per kind",
			values:     map[string]string{"DATA_AGENT_MAX_TURNS": "8", "SEARCH_AGENT_MAX_TURNS": "3"},
			wantData:   8,
			wantSearch: 3,
		},
		{
			name:       "non positive falls back",
			values:     map[string]string{"DATA_AGENT_MAX_TURNS": "0", "SEARCH_AGENT_MAX_TURNS": "-2"},
			wantData:   5,
			wantSearch: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFactory(t, tt.values)
			assert.Equal(t, tt.wantData, f.MaxTurns(KindData))
			assert.Equal(t, tt.wantSearch, f.MaxTurns(KindSearch))
		})
	}
}

func TestFactory_WithAgentConfig(t *testing.T) {
	f := newFactory(t, map[string]string{
		"OPENAI_API_KEY": "sk-test",
		"MODEL":          "gpt-4o-mini",
		"SEARXNG_URL":    "http://global.test",
	})

	dataCfg := utils.NewConfig(map[string]string{"MODEL": "gpt-4o", "DATA_AGENT_MAX_TURNS": "7"})
	searchCfg := utils.NewConfig(map[string]string{"SEARXNG_URL": "http://search.test", "SEARCH_PROVIDER": "searxng"})
	f.WithAgentConfig(KindData, dataCfg).WithAgentConfig(KindSearch, searchCfg).WithAgentConfig(KindSearch, nil)

	assert.Equal(t, "gpt-4o", f.Model(KindData))
	assert.Equal(t, uint64(7), f.MaxTurns(KindData))
	assert.Equal(t, DefaultModel, f.Model(KindSearch))

	h, err := f.Bind(context.Background(), TableSource{Table: newTable(t)})
	require.NoError(t, err)
	assert.Same(t, dataCfg, unwrap(t, h).Config())

	h, err = f.Bind(context.Background(), SearchSource{})
	require.NoError(t, err)
	sa, ok := unwrap(t, h).(*search.SearchAgent)
	require.True(t, ok)
	assert.Same(t, searchCfg, sa.Config())
	assert.Equal(t, search.ProviderSearXNG, sa.Provider().Name())
}

func TestFactory_Profiles(t *testing.T) {
	dir := t.TempDir()

	promptPath := filepath.Join(dir, "data.md")
	require.NoError(t, os.WriteFile(promptPath, []byte("Custom data prompt"), 0o644))

	profilesPath := filepath.Join(dir, "profiles.yaml")
	require.NoError(t, os.WriteFile(profilesPath, []byte(`
agents:
  data:
    model: gpt-4o
    max_turns: 9
    system_prompt_path: `+promptPath+`
  search:
    max_results: 3
`), 0o644))

	f := newFactory(t, map[string]string{
		"AGENT_PROFILES_PATH":    profilesPath,
		"MODEL":                  "gpt-4o-mini",
		"SEARCH_AGENT_MAX_TURNS": "4",
	})

	assert.Equal(t, "gpt-4o", f.Model(KindData))
	assert.Equal(t, "gpt-4o-mini", f.Model(KindSearch))
	assert.Equal(t, uint64(9), f.MaxTurns(KindData))
	assert.Equal(t, uint64(4), f.MaxTurns(KindSearch))
	assert.Equal(t, "Custom data prompt", f.instructions[KindData])
	assert.Equal(t, search.DefaultInstructions, f.instructions[KindSearch])
}

func TestNewFactory_Errors(t *testing.T) {
	dir := t.TempDir()

	badProfiles := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(badProfiles, []byte("agents:\n  overseer:\n    model: x\n"), 0o644))

	tests := []struct {
		name    string
		values  map[string]string
		wantMsg string
	}{
		{name: "missing profiles file", values: map[string]string{"AGENT_PROFILES_PATH": filepath.Join(dir, "nope.yaml")}, wantMsg: "failed to read profiles"},
		{name: "unknown profile kind", values: map[string]string{"AGENT_PROFILES_PATH": badProfiles}, wantMsg: "unknown agent kind"},
		{name: "missing prompt file", values: map[string]string{"DATA_SYSPROMPT_PATH": filepath.Join(dir, "none.md")}, wantMsg: "DATA_SYSPROMPT_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFactory(utils.NewConfig(tt.values))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfiguration)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestSource(t *testing.T) {
	tbl := newTable(t)

	assert.Equal(t, KindData, TableSource{Table: tbl}.Kind())
	assert.Equal(t, "sales.csv", TableSource{Table: tbl}.Name())
	assert.Equal(t, "", TableSource{}.Name())
	assert.Equal(t, KindSearch, SearchSource{Provider: "tavily"}.Kind())
	assert.Equal(t, "tavily", SearchSource{Provider: "tavily"}.Name())
}
