// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deduction-engine/internal/checker"
	"github.com/pdiddy/deduction-engine/internal/formula"
)

var checkCmd = &cobra.Command{
	Use:   "check FORMULA...",
	Short: "Run the consistency and provability checker on formulas",
	Long: `Check parses each formula, reports whether it is nonsense, and reports
whether the set is consistent. With --target it also reports whether the
formulas prove the target and in how many steps. --exact adds the
SAT-based answers next to the heuristic ones.

Example:
  deduction-engine check '{A}{a}' '(x): {A}x -> {B}x' --target '{B}{a}'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	target, _ := cmd.Flags().GetString("target")
	exact, _ := cmd.Flags().GetBool("exact")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	chk := checker.New(cfg.Checker, log)

	fs := formula.NewAll(args...)
	for _, f := range fs {
		if _, err := f.Node(); err != nil {
			return fmt.Errorf("parsing %q: %w", f.Rep(), err)
		}
		fmt.Fprintf(os.Stdout, "%-40s nonsense=%t\n", f.Rep(), chk.IsNonsense(f))
	}
	fmt.Fprintf(os.Stdout, "consistent (heuristic): %t\n", chk.IsConsistent(fs))
	if exact {
		sat, err := checker.CheckSat(fs...)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "consistent (exact):     %t\n", sat)
	}

	if target == "" {
		return nil
	}
	t := formula.New(target)
	if _, err := t.Node(); err != nil {
		return fmt.Errorf("parsing target %q: %w", target, err)
	}
	if d, ok := chk.ProofDepth(fs, t); ok {
		fmt.Fprintf(os.Stdout, "provable (heuristic):   true in %d steps\n", d)
	} else {
		fmt.Fprintln(os.Stdout, "provable (heuristic):   false")
	}
	if exact {
		ok, err := checker.Entails(fs, t)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "provable (exact):       %t\n", ok)
	}
	return nil
}

func init() {
	checkCmd.Flags().String("target", "", "formula to prove from the arguments")
	checkCmd.Flags().Bool("exact", false, "also answer with the SAT layer")

	rootCmd.AddCommand(checkCmd)
}
