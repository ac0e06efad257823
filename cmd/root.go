package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/IBM/igc-x-json-schema/internal/config"
	"github.com/IBM/igc-x-json-schema/internal/observability"
)

var cfgFile string

// newRootCmd builds the base command with config and logging wired into
// PersistentPreRunE, so every subcommand starts from a resolved Config.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "igc-x-json-schema",
		Short:   "Converts between a metadata catalog's business terms, JSON Schema and asset bundles.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initializeConfig(); err != nil {
				return err
			}

			cfg := config.Default()
			if err := viper.Unmarshal(cfg); err != nil {
				observability.InitializeLogger(config.LoggerConfig{
					Level: "info", Format: "console", ServiceName: "igc-x-json-schema",
				})
				return fmt.Errorf("failed to unmarshal config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting igc-x-json-schema", zap.String("version", Version))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./config.yaml)")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newLoadCmd())
	return rootCmd
}

// Execute runs the root command and exits non-zero on any uncaught failure.
func Execute() {
	defer observability.Sync()
	if err := newRootCmd().Execute(); err != nil {
		if logger := observability.GetLogger(); logger != nil {
			logger.Error("Command execution failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// initializeConfig reads the config file and environment into viper.
func initializeConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("IGCXJS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults, env vars and flags carry the run.
	}
	return nil
}

// resolveConfig re-unmarshals viper after flag binding so command-line
// overrides land with the right precedence.
func resolveConfig() (*config.Config, error) {
	cfg := config.Default()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to resolve config with flag overrides: %w", err)
	}
	return cfg, nil
}

// bindCatalogFlags wires the shared catalog connection flags of a subcommand
// into viper.
func bindCatalogFlags(cmd *cobra.Command) error {
	for flag, key := range map[string]string{
		"url":      "catalog.url",
		"username": "catalog.username",
		"password": "catalog.password",
		"authfile": "catalog.auth_file",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	return nil
}

// addCatalogFlags declares the shared catalog connection flags.
func addCatalogFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "Catalog REST base URL (e.g. https://igc.example.com:9443)")
	cmd.Flags().StringP("username", "u", "", "Catalog username")
	cmd.Flags().StringP("password", "p", "", "Catalog password")
	cmd.Flags().StringP("authfile", "a", "", "Path to a JSON credentials file")
}
