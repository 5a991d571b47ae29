package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Generate builds the CLI and writes a small batch of samples to data/samples.
func Generate() error {
	if err := Build(); err != nil {
		return err
	}
	if err := Init(); err != nil {
		return err
	}
	out := filepath.Join("data", "samples", "samples.jsonl")
	cmd := exec.Command(filepath.Join(binDir, binName), "generate", "--count", "20", "--workers", "4", "--output", out)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	fmt.Printf("Wrote %s\n", out)
	return nil
}

// Bank prints the buckets of the tree bank at data/bank/trees.db.
func Bank() error {
	cmd := exec.Command(filepath.Join(binDir, binName), "bank", "--path", filepath.Join("data", "bank", "trees.db"))
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("bank: %w", err)
	}
	return nil
}
