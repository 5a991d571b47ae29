package types

import "time"

// CheckerConfig holds settings for the consistency and provability checker.
type CheckerConfig struct {
	// CacheSize caps each memoization cache; a full cache is cleared (default 100000).
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// MaxProofDepth bounds the forward-chaining closure (default 12).
	MaxProofDepth int `json:"max_proof_depth" yaml:"max_proof_depth"`
}

// VocabularyConfig lists the symbols available for fresh predicates and
// constants. Empty lists select the built-in pools ({A}..{Z}, {a}..{u}).
type VocabularyConfig struct {
	Predicates []string `json:"predicates,omitempty" yaml:"predicates,omitempty"`
	Constants  []string `json:"constants,omitempty" yaml:"constants,omitempty"`
}

// TreeConfig holds settings for proof tree growth.
type TreeConfig struct {
	// ArgumentsFile is a YAML argument library. Empty selects the embedded default.
	ArgumentsFile string `json:"arguments_file,omitempty" yaml:"arguments_file,omitempty"`

	// Depth is the target depth of generated trees.
	Depth int `json:"depth" yaml:"depth"`

	// BranchExtensionSteps is the number of extra extensions applied to
	// non-deepest leaves once the target depth is reached.
	BranchExtensionSteps int `json:"branch_extension_steps" yaml:"branch_extension_steps"`

	// Depth1ReferenceWeight scales the chance of extending a leaf that hangs
	// directly off the root (default 1).
	Depth1ReferenceWeight float64 `json:"depth_1_reference_weight" yaml:"depth_1_reference_weight"`

	// ComplicationRate is the probability of complicating a chosen argument.
	ComplicationRate float64 `json:"complication_rate" yaml:"complication_rate"`

	// QuantifierAxiomWeight is the probability of trying a quantifier axiom
	// generated for the chosen leaf before the library arguments.
	QuantifierAxiomWeight float64 `json:"quantifier_axiom_weight" yaml:"quantifier_axiom_weight"`

	// QuantifierAxioms restricts which quantifier axioms may be generated.
	// Empty allows all four.
	QuantifierAxioms []string `json:"quantifier_axioms,omitempty" yaml:"quantifier_axioms,omitempty"`

	// QuantifyAllAtOnce quantifies every constant of a formula at once.
	QuantifyAllAtOnce bool `json:"quantify_all_at_once" yaml:"quantify_all_at_once"`

	AllowInconsistency                   bool `json:"allow_inconsistency" yaml:"allow_inconsistency"`
	AllowSmallerProofs                   bool `json:"allow_smaller_proofs" yaml:"allow_smaller_proofs"`
	ForceFixIllegalIntermediateConstants bool `json:"force_fix_illegal_intermediate_constants" yaml:"force_fix_illegal_intermediate_constants"`

	// MaxStepTrials bounds the leaf/argument samples tried per extension (default 50).
	MaxStepTrials int `json:"max_step_trials" yaml:"max_step_trials"`

	// MaxMappingsPerArgument bounds the premise symbol mappings tried per
	// argument (default 5).
	MaxMappingsPerArgument int `json:"max_mappings_per_argument" yaml:"max_mappings_per_argument"`

	// MaxBacktracks bounds how often a failed depth step may fall back to
	// the previous snapshot, or to a fresh hypothesis when none was given
	// (default 20).
	MaxBacktracks int `json:"max_backtracks" yaml:"max_backtracks"`

	Vocabulary VocabularyConfig `json:"vocabulary" yaml:"vocabulary"`
}

// DistractorKind selects a distractor strategy.
type DistractorKind string

const (
	DistractorVariousForm       DistractorKind = "various_form"
	DistractorSimplifiedFormula DistractorKind = "simplified_formula"
	DistractorNegativeTree      DistractorKind = "negative_tree"
	DistractorMixture           DistractorKind = "mixture"
	DistractorFallback          DistractorKind = "fallback"
)

// DistractorConfig holds settings for one distractor strategy. Mixture and
// Fallback hold their sub-strategies in Children.
type DistractorConfig struct {
	Kind DistractorKind `json:"kind" yaml:"kind"`

	// Size is the number of distractors requested.
	Size int `json:"size" yaml:"size"`

	// MaxRetry is the number of attempts of the retry harness (default 3).
	MaxRetry int `json:"max_retry" yaml:"max_retry"`

	// Timeout bounds each attempt (default 10s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// PrototypeFormulas replaces the tree formulas as the VariousForm prototype pool.
	PrototypeFormulas []string `json:"prototype_formulas,omitempty" yaml:"prototype_formulas,omitempty"`

	// NegativeTreeDepth is the depth of the auxiliary tree (default 1).
	NegativeTreeDepth int `json:"negative_tree_depth" yaml:"negative_tree_depth"`

	// NegatedHypothesisRate is the probability that the negative tree is
	// rooted at the negated hypothesis rather than a VariousForm sample.
	NegatedHypothesisRate float64 `json:"negated_hypothesis_rate" yaml:"negated_hypothesis_rate"`

	// MaxRepetitions caps how many sub-strategy runs a Mixture performs.
	MaxRepetitions int `json:"max_repetitions" yaml:"max_repetitions"`

	Children []DistractorConfig `json:"children,omitempty" yaml:"children,omitempty"`
}

// TranslationConfig holds settings for the symbolic translator and the
// sentence-level distractors.
type TranslationConfig struct {
	// Variants is the number of translation variants per sample (default 1).
	Variants int `json:"variants" yaml:"variants"`

	// DistractorSize is the number of translation-only distractor sentences.
	DistractorSize int `json:"distractor_size" yaml:"distractor_size"`

	// Sentences is the pool the translation distractor draws from.
	Sentences []string `json:"sentences,omitempty" yaml:"sentences,omitempty"`
}

// TreeBankConfig holds settings for the persisted tree bank.
type TreeBankConfig struct {
	// Path is the SQLite database file. Empty disables the bank.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// MaxBucketSize caps the trees kept per (depth, flags) key; a full
	// bucket is cleared (default 100).
	MaxBucketSize int `json:"max_bucket_size" yaml:"max_bucket_size"`
}

// RetryConfig bounds retry-with-timeout loops.
type RetryConfig struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
}

// PipelineConfig groups all stage configurations for sample generation.
type PipelineConfig struct {
	Tree        TreeConfig        `json:"tree" yaml:"tree"`
	Distractor  DistractorConfig  `json:"distractor" yaml:"distractor"`
	Checker     CheckerConfig     `json:"checker" yaml:"checker"`
	Translation TranslationConfig `json:"translation" yaml:"translation"`
	TreeBank    TreeBankConfig    `json:"tree_bank" yaml:"tree_bank"`
	Retry       RetryConfig       `json:"retry" yaml:"retry"`

	// TreeCacheSize caps the in-memory reusable trees per key (default 100).
	TreeCacheSize int `json:"tree_cache_size" yaml:"tree_cache_size"`

	// UnknownRate is the probability of producing an UNKNOWN sample.
	UnknownRate float64 `json:"unknown_rate" yaml:"unknown_rate"`

	// DisprovedRate is the probability of producing a DISPROVED sample.
	DisprovedRate float64 `json:"disproved_rate" yaml:"disproved_rate"`

	// ExactValidation re-checks each sample with the SAT layer.
	ExactValidation bool `json:"exact_validation" yaml:"exact_validation"`
}
