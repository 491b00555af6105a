package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amosWeiskopf/seoautomation/internal/models"
	"github.com/amosWeiskopf/seoautomation/pkg/automation"
	"github.com/amosWeiskopf/seoautomation/pkg/content"
	"github.com/amosWeiskopf/seoautomation/pkg/dashboard"
	"github.com/amosWeiskopf/seoautomation/pkg/reporter"
	"github.com/amosWeiskopf/seoautomation/pkg/seasonal"
)

var runCmd = &cobra.Command{
	Use:   "run [TASK]",
	Short: "Run one automation task, as a scheduler would",
	Long:  "Run one automation task. Tasks: " + strings.Join(automation.Tasks, ", "),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(cmd, func(ctx context.Context, orch *automation.Orchestrator) error {
			result, err := orch.RunTask(ctx, args[0])
			if result != nil {
				if perr := printJSON(cmd, result); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

var contentUpdateCmd = &cobra.Command{
	Use:   "content-update",
	Short: "Rotate testimonials, refresh seasonal content and schema markup",
	RunE: func(cmd *cobra.Command, args []string) error {
		only, _ := cmd.Flags().GetStringSlice("only")
		season, _ := cmd.Flags().GetString("season")

		opts := content.Options{}
		for _, step := range only {
			opts.Only = append(opts.Only, models.UpdateType(step))
		}
		if season != "" {
			s, err := seasonal.ParseSeason(season)
			if err != nil {
				return err
			}
			opts.Season = s
		}

		return withOrchestrator(cmd, func(ctx context.Context, orch *automation.Orchestrator) error {
			result, err := orch.Content.PerformUpdate(ctx, opts)
			if result != nil {
				if perr := printJSON(cmd, result); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

var monitorCmd = &cobra.Command{
	Use:       "monitor [rankings|traffic|conversions|full]",
	Short:     "Check rankings, traffic or conversions",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"rankings", "traffic", "conversions", "full"},
	RunE: func(cmd *cobra.Command, args []string) error {
		sendAlerts, _ := cmd.Flags().GetBool("alert")

		return withOrchestrator(cmd, func(ctx context.Context, orch *automation.Orchestrator) error {
			var (
				out    any
				alerts []models.Alert
				err    error
			)
			switch args[0] {
			case "rankings":
				r, rerr := orch.Monitor.CheckRankings(ctx)
				out, err = r, rerr
				if r != nil {
					alerts = r.Alerts
				}
			case "traffic":
				r, rerr := orch.Monitor.AnalyzeTraffic(ctx)
				out, err = r, rerr
				if r != nil {
					alerts = r.Alerts
				}
			case "conversions":
				r, rerr := orch.Monitor.MonitorConversions(ctx)
				out, err = r, rerr
				if r != nil {
					alerts = r.Alerts
				}
			case "full":
				r, rerr := orch.Monitor.FullAnalysis(ctx)
				out, err = r, rerr
				if r != nil {
					alerts = r.Alerts
				}
			default:
				return fmt.Errorf("unknown check %q", args[0])
			}

			if perr := printJSON(cmd, out); perr != nil {
				return perr
			}
			if sendAlerts && len(alerts) > 0 {
				if _, aerr := orch.Reporter.SendAlerts(ctx, alerts); aerr != nil {
					fmt.Fprintln(os.Stderr, "alert delivery:", aerr)
				}
			}
			return err
		})
	},
}

var reportCmd = &cobra.Command{
	Use:       "report [weekly|custom]",
	Short:     "Generate the weekly report or a custom report",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"weekly", "custom"},
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		sections, _ := cmd.Flags().GetStringSlice("sections")
		days, _ := cmd.Flags().GetInt("days")
		output, _ := cmd.Flags().GetString("output")

		return withOrchestrator(cmd, func(ctx context.Context, orch *automation.Orchestrator) error {
			switch args[0] {
			case "weekly":
				result, err := orch.Reporter.GenerateWeeklyReport(ctx)
				if result != nil {
					if perr := printJSON(cmd, result); perr != nil {
						return perr
					}
				}
				return err

			case "custom":
				opts := reporter.CustomOptions{Format: format, Sections: sections}
				if days > 0 {
					now := time.Now().UTC()
					opts.Period = &models.Period{
						Start: now.AddDate(0, 0, -days).Format("2006-01-02"),
						End:   now.Format("2006-01-02"),
					}
				}
				result, err := orch.Reporter.GenerateCustomReport(ctx, opts)
				if err != nil {
					return err
				}
				if output == "" {
					_, err = cmd.OutOrStdout().Write(result.Report)
					return err
				}
				if err := os.WriteFile(output, result.Report, 0644); err != nil {
					return fmt.Errorf("failed to write report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report saved to %s\n", output)
				return nil
			}
			return fmt.Errorf("unknown report %q", args[0])
		})
	},
}

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Publish sitemap and robots.txt and notify search engines",
	RunE: func(cmd *cobra.Command, args []string) error {
		urls, _ := cmd.Flags().GetStringSlice("url")

		return withOrchestrator(cmd, func(ctx context.Context, orch *automation.Orchestrator) error {
			result, _, err := orch.Notify(ctx, urls)
			if result != nil {
				if perr := printJSON(cmd, result); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Run the technical SEO audit",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(cmd, func(ctx context.Context, orch *automation.Orchestrator) error {
			result, err := orch.RunTask(ctx, automation.TaskTechnicalAudit)
			if result != nil {
				if perr := printJSON(cmd, result); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Send a manual alert through every configured channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("type")
		severity, _ := cmd.Flags().GetString("severity")
		message, _ := cmd.Flags().GetString("message")

		sev := models.Severity(strings.ToLower(severity))
		switch sev {
		case models.SeverityLow, models.SeverityMedium, models.SeverityHigh:
		default:
			return fmt.Errorf("severity must be low, medium or high, got %q", severity)
		}
		if message == "" {
			return errors.New("--message is required")
		}

		return withOrchestrator(cmd, func(ctx context.Context, orch *automation.Orchestrator) error {
			result, err := orch.Reporter.SendAlert(ctx, models.Alert{
				Type:      kind,
				Severity:  sev,
				Message:   message,
				Timestamp: time.Now().UTC(),
			})
			if result != nil {
				if perr := printJSON(cmd, result); perr != nil {
					return perr
				}
			}
			return err
		})
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect and clean service logs",
}

var logsCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete log files older than --days",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		return withOrchestrator(cmd, func(ctx context.Context, orch *automation.Orchestrator) error {
			removed, err := orch.CleanLogs(days)
			for _, name := range removed {
				fmt.Fprintln(cmd.OutOrStdout(), "removed", name)
			}
			return err
		})
	},
}

var logsShowCmd = &cobra.Command{
	Use:   "show [SERVICE]",
	Short: "Print today's most recent entries for a service",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withOrchestrator(cmd, func(ctx context.Context, orch *automation.Orchestrator) error {
			l, err := orch.Logger(args[0])
			if err != nil {
				return fmt.Errorf("%w (known: %s)", err, strings.Join(orch.Services(), ", "))
			}
			entries, err := l.RecentLogs(limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, entries)
		})
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Report the health of every service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(cmd, func(ctx context.Context, orch *automation.Orchestrator) error {
			h := orch.HealthCheck()
			if err := printJSON(cmd, h); err != nil {
				return err
			}
			if h.Status != "healthy" {
				return fmt.Errorf("status: %s", h.Status)
			}
			return nil
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard API until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(cmd, func(ctx context.Context, orch *automation.Orchestrator) error {
			srv := dashboard.New(orch)

			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				return fmt.Errorf("dashboard shutdown: %w", err)
			}
			return <-errc
		})
	},
}

func init() {
	contentUpdateCmd.Flags().StringSlice("only", nil, "Only run these steps (testimonial_rotation, seasonal_content, schema_markup, ...)")
	contentUpdateCmd.Flags().String("season", "", "Override the detected season (winter, spring, summer, fall)")

	monitorCmd.Flags().Bool("alert", false, "Send the alerts the check raises")

	reportCmd.Flags().String("format", reporter.FormatHTML, "Custom report format (html, json, csv, markdown, xlsx, pdf)")
	reportCmd.Flags().StringSlice("sections", nil, "Custom report sections (rankings, traffic, conversions, technical)")
	reportCmd.Flags().Int("days", 30, "Custom report period in days")
	reportCmd.Flags().String("output", "", "Output file for the custom report")

	notifyCmd.Flags().StringSlice("url", nil, "Submit these URLs instead of recently updated pages")

	alertCmd.Flags().String("type", "manual", "Alert type")
	alertCmd.Flags().String("severity", string(models.SeverityMedium), "Alert severity (low, medium, high)")
	alertCmd.Flags().String("message", "", "Alert message")

	logsCleanCmd.Flags().Int("days", 30, "Days of logs to keep")
	logsShowCmd.Flags().Int("limit", 50, "Maximum entries to print")
	logsCmd.AddCommand(logsCleanCmd, logsShowCmd)

	rootCmd.AddCommand(runCmd, contentUpdateCmd, monitorCmd, reportCmd, notifyCmd,
		auditCmd, alertCmd, logsCmd, healthCmd, serveCmd)
}
