// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the deduction-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// log is the CLI logger; --verbose lowers its level to debug.
var log = logrus.New()

// rootCmd is the base command for the deduction-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "deduction-engine",
	Short: "Generate synthetic deductive reasoning samples",
	Long: `deduction-engine grows formal proof trees from a library of deduction
rules, surrounds them with distractor facts that neither shorten the proof
nor prove its negation, and emits labelled samples (PROVED, DISPROVED,
UNKNOWN) with their translations.

Subcommands: generate produces samples, check runs the consistency and
provability checker on formulas, arguments lists the rule library, and bank
inspects the persisted tree bank.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		log.SetOutput(os.Stderr)
		log.SetLevel(logrus.InfoLevel)
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./deduction-engine.yaml or ~/.config/deduction-engine/deduction-engine.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug diagnostics")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("deduction-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "deduction-engine"))
		}
	}

	viper.SetEnvPrefix("DEDUCTION_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
