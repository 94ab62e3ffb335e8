package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/pagehunter/internal/config"
	plog "github.com/nao1215/pagehunter/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for pagehunter.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pagehunter",
		Short: "Crawl the web and rank pages with PageRank",
		Long: `pagehunter crawls the web from one or more start URLs, records the link
graph between the pages it visits and ranks them with PageRank.

Crawled pages and rank runs are stored in a SQLite database in the XDG data
directory, or in PostgreSQL when --database-url is set. Stored pages can be
searched from the command line or through a small web front end.

Settings are read from defaults, then PAGEHUNTER_* environment variables
(also loaded from a .env file), then command line flags.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "",
		"Configuration file path (default: .pagehunter in current or home directory)")
	cmd.PersistentFlags().String("env-file", config.DefaultEnvFile,
		"dotenv file with PAGEHUNTER_* variables")
	cmd.PersistentFlags().String("db-dir", "",
		"Directory of the SQLite database (default: XDG data directory)")
	cmd.PersistentFlags().String("database-url", "",
		"PostgreSQL connection URL; overrides the SQLite database")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewRankCmd())
	cmd.AddCommand(NewSearchCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig builds a Config from defaults, the environment and the global
// flags, in that order. Command specific flags are applied by the caller.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}
	lookup, err := config.EnvLookup(envFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", envFile, err)
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	if cfg.Verbose, err = cmd.Flags().GetBool("verbose"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = cmd.Flags().GetString("config"); err != nil {
		return nil, err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	dbURL, err := cmd.Flags().GetString("database-url")
	if err != nil {
		return nil, err
	}
	if dbURL != "" {
		cfg.DatabaseURL = dbURL
	}

	return cfg, nil
}

// loadSiteConfigs loads the YAML configuration file into cfg.SiteConfigs.
// An explicitly given file must exist; otherwise a missing file yields an
// empty configuration.
func loadSiteConfigs(cfg *config.Config) error {
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)

	switch {
	case configPath != "":
		siteConfigs, err := config.LoadConfigFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.SiteConfigs = siteConfigs
	case explicitConfigPath:
		return fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}
	return nil
}

// newLogger creates the structured logger used by every command.
// Logs go to stderr so reports on stdout stay machine readable.
func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	logger := plog.NewSecureLogger(cmd.ErrOrStderr(), verbose)
	slog.SetDefault(logger)
	return logger
}
