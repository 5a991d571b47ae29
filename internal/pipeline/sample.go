// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"github.com/pdiddy/deduction-engine/internal/prooftree"
	"github.com/pdiddy/deduction-engine/internal/translate"
	"github.com/pdiddy/deduction-engine/pkg/types"
)

// Label states what the facts of a sample establish about its hypothesis.
type Label string

const (
	LabelProved    Label = "PROVED"
	LabelDisproved Label = "DISPROVED"
	LabelUnknown   Label = "UNKNOWN"
)

// Sample is one assembled deduction problem. Samples produced by the same
// Run share their logic and differ only in translation.
type Sample struct {
	ID      string `json:"id" yaml:"id"`
	Variant int    `json:"variant" yaml:"variant"`
	Label   Label  `json:"label" yaml:"label"`
	Depth   int    `json:"depth" yaml:"depth"`

	// Hypothesis is the statement to judge. For DISPROVED samples it is the
	// negation of the proof tree root.
	Hypothesis        string `json:"hypothesis" yaml:"hypothesis"`
	NegatedHypothesis string `json:"negated_hypothesis" yaml:"negated_hypothesis"`

	// Facts are the tree leaves shown to the reader; UNKNOWN samples miss
	// at least one of them.
	Facts       []string `json:"facts" yaml:"facts"`
	Distractors []string `json:"distractors" yaml:"distractors"`

	// Proof is the indented rendering of the tree.
	Proof string               `json:"proof" yaml:"proof"`
	Tree  *prooftree.ProofTree `json:"tree" yaml:"-"`

	Sentences              []translate.Sentence `json:"sentences" yaml:"sentences"`
	TranslationDistractors []string             `json:"translation_distractors" yaml:"translation_distractors"`

	Stats types.Stats `json:"stats" yaml:"stats"`
}
