package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/tally-sh/tally/internal/analysis"
	"github.com/tally-sh/tally/internal/cli"
	"github.com/tally-sh/tally/internal/report"
)

func runCmd() *cobra.Command {
	var (
		format  string
		output  string
		quiet   bool
		noViews bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Ingest, classify, and report on configured statements",
		Long: `Run reads every statement source from the config, normalizes merchant
names against the rules file, classifies each merchant's spending behavior,
and renders a report.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			txns, err := importSources(settings)
			if err != nil {
				return err
			}

			matcher := newMatcher(settings, loadRules(settings))

			bar := newProgressBar(len(txns), quiet)
			matched := 0
			for i := range txns {
				merchant, category, subcategory, info := matcher.NormalizeTransaction(txns[i])
				txns[i].Merchant = merchant
				txns[i].Category = category
				txns[i].Subcategory = subcategory
				if info != nil {
					txns[i].Tags = info.Tags
					matched++
				}
				_ = bar.Add(1)
			}
			slog.Info("matched transactions",
				"total", len(txns),
				"matched", matched,
				"unmatched", len(txns)-matched)

			summary := analysis.Aggregate(txns)
			classes := analysis.ClassifyAll(summary)

			sections := settings.Sections
			if noViews {
				sections = nil
			}
			rep, err := report.NewBuilder(settings.Variables, slog.Default()).
				Build(summary, classes, sections)
			if err != nil {
				return err
			}

			rendered, err := render(rep, format)
			if err != nil {
				return err
			}
			return write(cmd, rendered, output)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format (text, markdown, json)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the progress bar")
	cmd.Flags().BoolVar(&noViews, "no-views", false, "skip configured section views")

	return cmd
}

func render(rep *report.Report, format string) (string, error) {
	switch format {
	case "text":
		return report.RenderText(rep), nil
	case "markdown", "md":
		return report.RenderMarkdown(rep), nil
	case "json":
		return report.RenderJSON(rep)
	}
	return "", fmt.Errorf("unknown output format: %s", format)
}

func write(cmd *cobra.Command, rendered, output string) error {
	if output == "" {
		cmd.Println(rendered)
		return nil
	}
	if err := os.WriteFile(output, []byte(rendered), 0o600); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	cmd.Println(cli.FormatSuccess(fmt.Sprintf("Report written to %s", output)))
	return nil
}

func newProgressBar(total int, quiet bool) *progressbar.ProgressBar {
	if quiet {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Matching transactions...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}
