// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/internal/pipeline"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

func TestDefaultConfigBuildsPipeline(t *testing.T) {
	_, err := pipeline.New(defaultConfig(), formula.DefaultArguments(), pipeline.Options{Log: log})
	require.NoError(t, err)
}

func TestLoadConfigOverlaysFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	path := filepath.Join(t.TempDir(), "deduction-engine.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tree:
  depth: 5
distractor:
  kind: fallback
  size: 2
  timeout: 2s
  children:
    - kind: various_form
tree_bank:
  path: bank.db
exact_validation: false
retry:
  timeout: 5s
`), 0o644))
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Tree.Depth)
	assert.Equal(t, 50, cfg.Tree.MaxStepTrials, "unset keys keep their defaults")
	assert.Equal(t, types.DistractorFallback, cfg.Distractor.Kind)
	assert.Equal(t, 2, cfg.Distractor.Size)
	assert.Equal(t, "2s", cfg.Distractor.Timeout.String())
	require.NotEmpty(t, cfg.Distractor.Children)
	assert.Equal(t, types.DistractorVariousForm, cfg.Distractor.Children[0].Kind)
	assert.Equal(t, "bank.db", cfg.TreeBank.Path)
	assert.False(t, cfg.ExactValidation)
	assert.Equal(t, 5*time.Second, cfg.Retry.Timeout)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
}

func TestDefaultConfigValidatesAndTimesOut(t *testing.T) {
	cfg := defaultConfig()
	assert.True(t, cfg.ExactValidation)
	assert.Positive(t, cfg.Retry.Timeout)
}

func TestLoadArguments(t *testing.T) {
	args, err := loadArguments(types.TreeConfig{})
	require.NoError(t, err)
	assert.Equal(t, len(formula.DefaultArguments()), len(args))

	_, err = loadArguments(types.TreeConfig{ArgumentsFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}
