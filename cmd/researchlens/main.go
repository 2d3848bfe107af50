// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the researchlens CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hagnberger/researchlens/internal/secrets"
	"github.com/hagnberger/researchlens/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the researchlens CLI.
var rootCmd = &cobra.Command{
	Use:   "researchlens",
	Short: "Scholarly paper ingestion, enrichment, and serving",
	Long: `researchlens maintains a local catalog of scholarly papers. It pulls
paper metadata from the arXiv feed, enriches each paper with extracted
keywords and an abstract embedding, links similar papers into a graph,
and serves the catalog over an HTTP API.

Run "researchlens serve" for the API server or "researchlens ingest"
for a one-shot ingestion from the command line.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./researchlens.yaml or ~/.config/researchlens/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("researchlens")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "researchlens"))
		}
	}

	viper.SetEnvPrefix("RESEARCHLENS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig materializes the effective configuration: defaults, overlaid
// by the config file and RESEARCHLENS_* environment variables, with the
// embedding API key falling back to the .secrets/ directory.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing configuration: %w", err)
	}
	if cfg.Enrich.Embedding.APIKey == "" {
		cfg.Enrich.Embedding.APIKey = loadedSecrets["openai-api-key"]
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
