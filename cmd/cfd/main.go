package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/cda-client/cmd/cfd/commands"
	"github.com/fivetwenty-io/cda-client/internal/constants"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "cfd",
	Short: "Content delivery API CLI",
	Long: `A command-line interface for reading published content.

Entries and assets are fetched with their linked includes, resolved into a
connected graph and printed with any links that could not be resolved.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.cfd/config.yml)")
	rootCmd.PersistentFlags().StringP("space", "s", "", "space ID")
	rootCmd.PersistentFlags().StringP("environment", "e", "", "space environment (default \"master\")")
	rootCmd.PersistentFlags().StringP("token", "t", "", "delivery or preview access token")
	rootCmd.PersistentFlags().String("base-url", "", "API host (default is the delivery host)")
	rootCmd.PersistentFlags().Bool("preview", false, "read draft content from the preview host")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format (table, json, yaml, dump)")
	rootCmd.PersistentFlags().String("resolve", "eager", "link resolution policy (eager, selective)")
	rootCmd.PersistentFlags().String("cache", "none", "response cache tiers, fastest first (none, memory, nats, memory,nats)")
	rootCmd.PersistentFlags().String("nats-url", "", "NATS server URL for the nats cache")
	rootCmd.PersistentFlags().Int("rate-limit", 0, "client-side requests per second (0 disables)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	// Bind flags to viper
	for _, name := range []string{
		"config", "space", "environment", "token", "base-url", "preview", "output",
		"resolve", "cache", "nats-url", "rate-limit", "verbose",
	} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	// Add commands
	rootCmd.AddCommand(commands.NewVersionCommand(version, commit, date))
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(commands.NewEntriesCommand())
	rootCmd.AddCommand(commands.NewAssetsCommand())
	rootCmd.AddCommand(commands.NewResolveCommand())
}

func initConfig() {
	cfgFile := viper.GetString("config")

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		// Search config in ~/.cfd/config.yml
		configDir := filepath.Join(home, ".cfd")
		if err := os.MkdirAll(configDir, constants.ConfigDirPerm); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating config directory: %v\n", err)
		}

		viper.AddConfigPath(configDir)
		viper.SetConfigType("yml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match, e.g. CFD_SPACE, CFD_BASE_URL
	viper.SetEnvPrefix("CFD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
