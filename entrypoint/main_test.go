package main

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConditionsFromModels(t *testing.T) {
	configs, err := conditions(&options{models: []string{"qwen3:8b", "mistral"}})
	require.NoError(t, err)

	names := make([]string, len(configs))
	for i, cfg := range configs {
		names[i] = cfg.Name
	}
	assert.Equal(t, []string{
		"qwen3:8b | negation=OFF",
		"qwen3:8b | negation=ON",
		"mistral | negation=OFF",
		"mistral | negation=ON",
	}, names)
}

func TestConditionsFromConfigDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(path.Join(dir, "strict.yaml"), []byte("model: qwen3:8b\nnegation_filter: true\nnegation:\n  pre_window: 20\n"), 0o644))
	rulesPath := path.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(rulesPath, []byte("post_window: 10\npre_window: 90\n"), 0o644))

	configs, err := conditions(&options{configDir: dir, negationRules: rulesPath, models: []string{"ignored"}})
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "strict", configs[0].Name)
	assert.Equal(t, 20, configs[0].Negation.PreWindow)
	assert.Equal(t, 10, configs[0].Negation.PostWindow)
	assert.NotEmpty(t, configs[0].Negation.PreCues)
}

func TestConditionsEmpty(t *testing.T) {
	_, err := conditions(&options{})
	assert.Error(t, err)

	_, err = conditions(&options{configDir: t.TempDir()})
	assert.Error(t, err)
}

func TestRootCommands(t *testing.T) {
	cmd := rootCmd()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"eval", "debug", "serve", "worker", "submit", "status"}, names)
}
