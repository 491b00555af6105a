package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/amosWeiskopf/seoautomation/internal/config"
	"github.com/amosWeiskopf/seoautomation/pkg/automation"
	"github.com/amosWeiskopf/seoautomation/pkg/metrics"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const shutdownTimeout = 30 * time.Second

var rootCmd = &cobra.Command{
	Use:   "seoautomation",
	Short: "SEO automation for a local practice website",
	Long: `seoautomation keeps a practice website's content fresh, tracks rankings,
traffic and conversions, notifies search engines of changes and reports
the results by email. Each command runs once; schedule them with cron.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// loadConfig reads and validates the configuration named by the global flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
		cfg.Logging.ToConsole = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// withOrchestrator builds and initializes every service, runs fn, then shuts
// the services down
func withOrchestrator(cmd *cobra.Command, fn func(ctx context.Context, orch *automation.Orchestrator) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	metrics.Init("seoautomation", version, cfg.Website.Domain)

	orch := automation.New(cfg)
	ctx := cmd.Context()
	if err := orch.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := orch.Shutdown(sctx); err != nil {
			fmt.Fprintln(os.Stderr, "shutdown:", err)
		}
	}()

	return fn(ctx, orch)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file path")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable verbose output")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
