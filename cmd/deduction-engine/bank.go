// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/deduction-engine/internal/treebank"
)

var bankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Inspect the persisted tree bank",
	Long: `Bank lists the buckets of the tree bank configured by tree_bank.path
(or --path) with the number of trees each holds. --export writes every
stored tree as YAML to stdout.`,
	RunE: runBank,
}

func runBank(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("path")
	export, _ := cmd.Flags().GetBool("export")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if path != "" {
		cfg.TreeBank.Path = path
	}
	if cfg.TreeBank.Path == "" {
		return fmt.Errorf("no tree bank configured: set tree_bank.path or pass --path")
	}

	store, err := treebank.Open(cfg.TreeBank)
	if err != nil {
		return err
	}
	defer store.Close()

	if export {
		return store.ExportYAML(context.Background(), os.Stdout)
	}

	buckets, err := store.Buckets(context.Background())
	if err != nil {
		return err
	}
	if len(buckets) == 0 {
		fmt.Println("Tree bank is empty.")
		return nil
	}
	fmt.Fprintf(os.Stdout, "%-6s  %s\n", "Trees", "Bucket")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	total := 0
	for _, b := range buckets {
		fmt.Fprintf(os.Stdout, "%-6d  %s\n", b.Trees, b.Bucket)
		total += b.Trees
	}
	fmt.Fprintf(os.Stdout, "\n%d trees in %d buckets\n", total, len(buckets))
	return nil
}

func init() {
	bankCmd.Flags().String("path", "", "tree bank database (overrides tree_bank.path)")
	bankCmd.Flags().Bool("export", false, "write every stored tree as YAML")

	rootCmd.AddCommand(bankCmd)
}
