package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadPrompt(t *testing.T) {
	dir := t.TempDir()

	promptFile := filepath.Join(dir, "data-agent.md")
	require.NoError(t, os.WriteFile(promptFile, []byte("\n  You are a data analyst.\n"), 0644))

	content, err := LoadPrompt(promptFile)
	require.NoError(t, err)
	assert.Equal(t, "You are a data analyst.", content)

	_, err = LoadPrompt(filepath.Join(dir, "missing.md"))
	assert.ErrorContains(t, err, "does not exist")

	emptyFile := filepath.Join(dir, "empty.md")
	require.NoError(t, os.WriteFile(emptyFile, []byte("   \n"), 0644))
	_, err = LoadPrompt(emptyFile)
	assert.ErrorContains(t, err, "empty")
}
