package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/pagehunter/internal/config"
	"github.com/nao1215/pagehunter/internal/model"
	"github.com/nao1215/pagehunter/internal/report"
	"github.com/spf13/cobra"
)

// addReportFlags registers the report format flags shared by crawl and rank.
func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("top", "n", config.DefaultTopN,
		"Number of ranked pages to list (0 lists all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
}

// readReportFlags copies the report flags into cfg.
func readReportFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	if cfg.TopN, err = cmd.Flags().GetInt("top"); err != nil {
		return err
	}
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	return nil
}

// reportWriter returns the report writer selected by cfg.
func reportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output, report.WithTopN(cfg.TopN))
	default:
		return report.NewSimpleWriter(output,
			report.WithSimpleTopN(cfg.TopN),
			report.WithVerbose(cfg.Verbose),
		)
	}
}

// outputReport writes the run report to cfg.ReportFile, or to stdout.
func outputReport(cmd *cobra.Command, cfg *config.Config, run *model.Run) error {
	output := cmd.OutOrStdout()

	if cfg.ReportFile != "" {
		dir := filepath.Dir(cfg.ReportFile)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	if _, err := reportWriter(cfg, output).Write(run); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
