package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"dailybrief/internal/app"
	"dailybrief/internal/config"
	"dailybrief/internal/logging"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dailybrief",
		Short: "Daily newsletter digest pipeline",
		Long: `dailybrief collects the day's newsletter issues, extracts their news
items, merges overlapping stories across sources, ranks them, and
delivers one briefing mail.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("config", "", "path to config file (default $DAILYBRIEF_CONFIG)")
	root.PersistentFlags().String("log-level", "", "override log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "override log format (text, json)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newPreviewCmd())
	root.AddCommand(newSourcesCmd())
	root.AddCommand(newReportsCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	} else {
		cfg = config.Load()
	}

	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v, _ := cmd.Flags().GetString("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	return cfg, nil
}

func buildApp(cfg config.Config) (*app.Application, error) {
	return app.New(cfg, logging.New(cfg.Logging.Level, cfg.Logging.Format))
}

func runDate(cmd *cobra.Command) (time.Time, error) {
	raw, _ := cmd.Flags().GetString("date")
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --date: %w", err)
	}
	return parsed, nil
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute one briefing run and deliver the digest",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			date, err := runDate(cmd)
			if err != nil {
				return err
			}

			application, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			report, runErr := application.RunOnce(cmd.Context(), date)
			if report != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "run %s %s: %d stories from %d candidates, delivered=%t\n",
					report.RunID, report.State, report.TotalItems, report.TotalCandidates, report.Delivered)
			}
			return runErr
		},
	}
	cmd.Flags().String("date", "", "briefing date (YYYY-MM-DD, default today UTC)")
	return cmd
}

func newPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the digest without delivering or persisting anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			date, err := runDate(cmd)
			if err != nil {
				return err
			}

			application, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			doc, _, err := application.Preview(cmd.Context(), date)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Subject: %s\n\n", doc.Subject)
			if html, _ := cmd.Flags().GetBool("html"); html {
				fmt.Fprintln(cmd.OutOrStdout(), doc.HTMLBody)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), doc.TextBody)
			}
			return nil
		},
	}
	cmd.Flags().String("date", "", "briefing date (YYYY-MM-DD, default today UTC)")
	cmd.Flags().Bool("html", false, "print the HTML body instead of plain text")
	return cmd
}

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the configured newsletter sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tSTATE\tLOCATION")
			for _, src := range cfg.DomainSources() {
				state := "enabled"
				if !src.Enabled {
					state = "disabled"
				}
				location := src.Address
				if src.FeedURL != "" {
					location = src.FeedURL
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", src.Name, src.Kind, state, location)
			}
			return w.Flush()
		},
	}
}

func newReportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "List recent run reports from the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			application, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			limit, _ := cmd.Flags().GetInt("limit")
			reports, err := application.RecentReports(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tSTATE\tITEMS\tCANDIDATES\tDELIVERED\tRUN")
			for _, report := range reports {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%t\t%s\n",
					report.Date.Format("2006-01-02"), report.State,
					report.TotalItems, report.TotalCandidates, report.Delivered, report.RunID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().Int("limit", 10, "number of reports to list")
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daily trigger until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			application, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer application.Close()

			return application.Serve(cmd.Context())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dailybrief version %s\n", version)
		},
	}
}
