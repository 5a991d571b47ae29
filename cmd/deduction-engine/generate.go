// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/deduction-engine/internal/checker"
	"github.com/pdiddy/deduction-engine/internal/pipeline"
	"github.com/pdiddy/deduction-engine/internal/treebank"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate labelled deduction samples as JSON lines",
	Long: `Generate runs the sample pipeline until --count samples have been
written. Each worker owns its own pipeline, tree cache and random seed;
workers share only the checker caches and the tree bank. A sample that
fails after its retries is skipped; a configuration that can never
produce a sample stops the run.`,
	RunE: runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")
	workers, _ := cmd.Flags().GetInt("workers")
	depth, _ := cmd.Flags().GetInt("depth")
	seed, _ := cmd.Flags().GetUint64("seed")
	output, _ := cmd.Flags().GetString("output")
	maxFailures, _ := cmd.Flags().GetInt("max-failures")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	arguments, err := loadArguments(cfg.Tree)
	if err != nil {
		return err
	}

	var bank *treebank.Store
	if cfg.TreeBank.Path != "" {
		if bank, err = treebank.Open(cfg.TreeBank); err != nil {
			return err
		}
		defer bank.Close()
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}
	out := &sampleWriter{enc: json.NewEncoder(w)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	caches := checker.NewCaches(cfg.Checker.CacheSize)
	var remaining, failures atomic.Int64
	remaining.Store(int64(count))

	g, gctx := errgroup.WithContext(ctx)
	for i := range max(workers, 1) {
		p, err := pipeline.New(cfg, arguments, pipeline.Options{
			Bank:   bank,
			Caches: caches,
			Rand:   rand.New(rand.NewPCG(seed, uint64(i))),
			Log:    log.WithField("worker", i),
		})
		if err != nil {
			return err
		}
		g.Go(func() error {
			for remaining.Add(-1) >= 0 {
				samples, err := p.Run(gctx, depth)
				switch {
				case errors.Is(err, pipeline.ErrImpossible):
					return err
				case gctx.Err() != nil:
					return gctx.Err()
				case err != nil:
					n := failures.Add(1)
					log.WithError(err).WithField("worker", i).Debug("sample skipped")
					if maxFailures > 0 && n >= int64(maxFailures) {
						return fmt.Errorf("giving up after %d failed samples: %w", n, err)
					}
					remaining.Add(1)
					continue
				}
				if err := out.write(samples); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"samples":  count,
		"failures": failures.Load(),
	}).Info("generation finished")
	return nil
}

// sampleWriter serialises samples from concurrent workers.
type sampleWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (w *sampleWriter) write(samples []*pipeline.Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range samples {
		if err := w.enc.Encode(s); err != nil {
			return fmt.Errorf("writing sample %s: %w", s.ID, err)
		}
	}
	return nil
}

func init() {
	generateCmd.Flags().IntP("count", "n", 10, "number of samples to generate (variants of one sample count once)")
	generateCmd.Flags().IntP("workers", "w", 1, "number of independent workers")
	generateCmd.Flags().Int("depth", 0, "proof tree depth (0 = use config)")
	generateCmd.Flags().Uint64("seed", 0, "random seed; worker i uses (seed, i)")
	generateCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	generateCmd.Flags().Int("max-failures", 1000, "stop after this many failed samples (0 = never)")

	rootCmd.AddCommand(generateCmd)
}
