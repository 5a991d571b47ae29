// Package main contains Mage build targets for deduction-engine developer tooling.
package main

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// projectDirs lists the working directories the generate and bank targets use.
var projectDirs = []string{
	"data/samples",
	"data/bank",
}

// Init creates the project directory structure for sample generation.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "deduction-engine"
	cmdPkg  = "./cmd/deduction-engine"
)

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	cmd := exec.Command("go", "build", "-o", out, cmdPkg)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the unit tests of every package.
func Test() error {
	cmd := exec.Command("go", "test", "./...")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("go test: %w", err)
	}
	return nil
}

// Stats prints per-package Go line counts, the size of the built-in argument
// library and the number of samples generated so far.
func Stats() error {
	pkgs, err := countGoLines(".")
	if err != nil {
		return err
	}
	names := make([]string, 0, len(pkgs))
	for name := range pkgs {
		names = append(names, name)
	}
	sort.Strings(names)
	var prod, test int
	for _, name := range names {
		c := pkgs[name]
		fmt.Printf("  %-28s %6d prod %6d test\n", name, c.prod, c.test)
		prod += c.prod
		test += c.test
	}
	fmt.Printf("Lines of code (Go, production): %d\n", prod)
	fmt.Printf("Lines of code (Go, tests):      %d\n", test)

	rules, err := countMatchingLines(argumentsFile, func(line string) bool { return strings.HasPrefix(line, "- id:") })
	if err != nil {
		return err
	}
	fmt.Printf("Built-in deduction rules:       %d\n", rules)

	files, _ := filepath.Glob(filepath.Join("data", "samples", "*.jsonl"))
	samples := 0
	for _, f := range files {
		n, err := countMatchingLines(f, func(line string) bool { return line != "" })
		if err != nil {
			return err
		}
		samples += n
	}
	fmt.Printf("Generated samples:              %d\n", samples)
	return nil
}

const argumentsFile = "internal/formula/arguments.yaml"

type lineCount struct{ prod, test int }

// countGoLines counts non-blank lines of Go files per package directory.
func countGoLines(root string) (map[string]lineCount, error) {
	out := map[string]lineCount{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "_examples" || (strings.HasPrefix(d.Name(), ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		n, err := countMatchingLines(path, func(line string) bool { return line != "" })
		if err != nil {
			return err
		}
		c := out[filepath.Dir(path)]
		if strings.HasSuffix(path, "_test.go") {
			c.test += n
		} else {
			c.prod += n
		}
		out[filepath.Dir(path)] = c
		return nil
	})
	return out, err
}

// countMatchingLines counts the trimmed lines of path accepted by keep.
func countMatchingLines(path string, keep func(string) bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		if keep(strings.TrimSpace(sc.Text())) {
			n++
		}
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	return n, nil
}
