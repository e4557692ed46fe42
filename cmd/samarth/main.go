// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the samarth CLI, the backend for the
// Project Samarth agricultural Q&A service. The serve subcommand runs the
// HTTP API; query answers a single question from the terminal.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrmallick07/project-samarth-backend/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the samarth CLI.
var rootCmd = &cobra.Command{
	Use:   "samarth",
	Short: "Q&A backend over Indian government agricultural and climate datasets",
	Long: `samarth answers natural-language questions about Indian agriculture and
climate by fetching live datasets from data.gov.in and computing the
requested statistic (comparisons, extremes, trends, correlations) with
full source citations.

Run "samarth serve" for the HTTP API the frontend talks to, or
"samarth query" for a one-shot answer on the command line.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A .env file next to the binary is the simplest way to carry the
		// portal key in development; absence is not an error.
		_ = godotenv.Load()

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

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./samarth.yaml or ~/.config/samarth/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("samarth")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "samarth"))
		}
	}

	viper.SetEnvPrefix("SAMARTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
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
