package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"articlesearch-backend/lib/configutil"
	"articlesearch-backend/lib/restyutil"
	"articlesearch-backend/lib/serviceutil"
	"articlesearch-backend/lib/telemetry"
	"articlesearch-backend/services/scraper/ptt"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	dumpHttp   string

	cfg Config
	tel telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "articlesearch",
	Short: "articlesearch answers keyword searches over scraped articles, scraping on a cache miss.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		var err error
		tel, err = telemetry.SetupFromEnv(cmd.Context(), "articlesearch")
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}

		cfg, err = configutil.ReadConfigWithDefaults(configPath, DefaultConfig)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		slog.Debug("loaded config", "path", configPath, "driver", cfg.Database.Driver)

		if dumpHttp != "" {
			output, err := restyutil.NewFilesystemOutput(dumpHttp)
			if err != nil {
				return fmt.Errorf("create http dump directory: %w", err)
			}
			ptt.SetRestyDumpOutput(output)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := tel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "Path to the config file, a sibling <name>.local.json5 overrides it.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
	rootCmd.PersistentFlags().StringVar(&dumpHttp, "dump-http", "", "Write every http exchange of the scraper to files in this directory.")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		serviceutil.Fatal("articlesearch failed", err)
	}
}
