// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/pdiddy/deduction-engine/internal/formula"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

// defaultConfig is the configuration used when no file overrides it.
func defaultConfig() types.PipelineConfig {
	return types.PipelineConfig{
		Tree: types.TreeConfig{
			Depth:                 3,
			BranchExtensionSteps:  2,
			Depth1ReferenceWeight: 1,
			ComplicationRate:      0.3,
			QuantifierAxiomWeight: 0.2,
			QuantifierAxioms:      []string{"universal_quantifier_elim", "existential_quantifier_intro"},
			MaxStepTrials:         50,
		},
		Distractor: types.DistractorConfig{
			Kind:           types.DistractorMixture,
			Size:           5,
			MaxRepetitions: 6,
			Children: []types.DistractorConfig{
				{Kind: types.DistractorVariousForm},
				{Kind: types.DistractorSimplifiedFormula},
				{Kind: types.DistractorNegativeTree, NegatedHypothesisRate: 0.5},
			},
		},
		Translation:     types.TranslationConfig{Variants: 1},
		Retry:           types.RetryConfig{MaxRetries: 3, Timeout: 30 * time.Second},
		ExactValidation: true,
		UnknownRate:     1.0 / 3,
		DisprovedRate:   1.0 / 3,
	}
}

// loadConfig overlays the viper configuration on the defaults. Keys use
// the yaml names of the pkg/types structs.
func loadConfig() (types.PipelineConfig, error) {
	cfg := defaultConfig()
	err := viper.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
	})
	if err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	return cfg, nil
}

// loadArguments reads the configured argument library, falling back to
// the built-in one.
func loadArguments(cfg types.TreeConfig) ([]*formula.Argument, error) {
	if cfg.ArgumentsFile == "" {
		return formula.DefaultArguments(), nil
	}
	args, err := formula.LoadArgumentsFile(cfg.ArgumentsFile)
	if err != nil {
		return nil, fmt.Errorf("loading arguments from %s: %w", cfg.ArgumentsFile, err)
	}
	return args, nil
}
