// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deduction-engine/internal/formula"
)

var argumentsCmd = &cobra.Command{
	Use:   "arguments",
	Short: "List the deduction rule library",
	Long: `Arguments prints the rules the tree generator grows proofs with: the
built-in library, or the file named by tree.arguments_file or --file.
With --yaml the library is printed in the file format it is loaded from.`,
	RunE: runArguments,
}

func runArguments(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")
	asYAML, _ := cmd.Flags().GetBool("yaml")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if file != "" {
		cfg.Tree.ArgumentsFile = file
	}
	library, err := loadArguments(cfg.Tree)
	if err != nil {
		return err
	}

	if asYAML {
		return formula.EncodeArguments(os.Stdout, library)
	}

	for _, a := range library {
		fmt.Fprintln(os.Stdout, a.String())
	}
	fmt.Fprintf(os.Stdout, "\n%d arguments\n", len(library))
	return nil
}

func init() {
	argumentsCmd.Flags().String("file", "", "argument library file (overrides tree.arguments_file)")
	argumentsCmd.Flags().Bool("yaml", false, "print the library as YAML")

	rootCmd.AddCommand(argumentsCmd)
}
