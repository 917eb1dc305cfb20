package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tally-sh/tally/internal/cli"
	"github.com/tally-sh/tally/internal/engine"
)

func explainCmd() *cobra.Command {
	var (
		amount   float64
		dateStr  string
		asJSON   bool
		allSteps bool
	)

	cmd := &cobra.Command{
		Use:   "explain <description>",
		Short: "Show how a description would be matched, rule by rule",
		Long: `Explain runs one transaction description through the full rule scan and
prints every rule consulted, in order, with the reason it did or did not
match. The final decision is identical to what a real run would produce.`,
		Example: `  tally explain "SQ *BLUE BOTTLE COFFEE"
  tally explain --amount 250 --date 2025-12-24 "COSTCO WHSE #1021"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			matcher := newMatcher(settings, loadRules(settings))

			description := strings.Join(args, " ")

			var amountArg *float64
			if cmd.Flags().Changed("amount") {
				amountArg = &amount
			}
			var dateArg *time.Time
			if dateStr != "" {
				d, err := time.Parse("2006-01-02", dateStr)
				if err != nil {
					return fmt.Errorf("invalid --date %q (use YYYY-MM-DD)", dateStr)
				}
				dateArg = &d
			}

			trace := matcher.Explain(description, amountArg, dateArg)

			if asJSON {
				data, err := json.MarshalIndent(trace, "", "  ")
				if err != nil {
					return err
				}
				cmd.Println(string(data))
				return nil
			}

			cmd.Println(renderTrace(trace, allSteps))
			return nil
		},
	}

	cmd.Flags().Float64Var(&amount, "amount", 0, "transaction amount for amount-dependent rules")
	cmd.Flags().StringVar(&dateStr, "date", "", "transaction date (YYYY-MM-DD) for date-dependent rules")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit the trace as JSON")
	cmd.Flags().BoolVar(&allSteps, "all", false, "show rules whose pattern never hit, not just near misses")

	return cmd
}

func renderTrace(trace *engine.Trace, allSteps bool) string {
	var b strings.Builder

	b.WriteString(cli.TitleStyle.Render(fmt.Sprintf("Explain: %s", trace.Description)))
	b.WriteString("\n")
	if trace.Cleaned != trace.Description {
		b.WriteString(cli.SubtleStyle.Render(fmt.Sprintf("cleaned: %s", trace.Cleaned)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	shown := 0
	for _, step := range trace.Steps {
		if !allSteps && !step.PatternHit && step.Error == "" {
			continue
		}
		shown++
		b.WriteString(fmt.Sprintf("  %s %s\n", stepMark(step), describeStep(step)))
	}
	if shown == 0 {
		b.WriteString(cli.SubtleStyle.Render("  no rule patterns hit (use --all to list every rule)"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if trace.IsUnknown {
		b.WriteString(cli.FormatWarning(fmt.Sprintf(
			"no rule matched; falls back to %q / %s", trace.Merchant, trace.Category)))
	} else {
		b.WriteString(cli.FormatSuccess(fmt.Sprintf(
			"matches %q (%s / %s)", trace.Merchant, trace.Category, trace.Subcategory)))
	}
	return b.String()
}

func stepMark(step engine.RuleTrace) string {
	switch {
	case step.Matched:
		return cli.SuccessStyle.Render("✓")
	case step.Error != "":
		return cli.ErrorStyle.Render("!")
	default:
		return cli.SubtleStyle.Render("·")
	}
}

func describeStep(step engine.RuleTrace) string {
	kind := "pattern"
	if step.IsExpr {
		kind = "expression"
	}

	switch {
	case step.Error != "":
		return fmt.Sprintf("%s %q: %s", kind, step.Pattern, step.Error)
	case step.Matched:
		detail := ""
		if step.Variant != "" {
			detail = fmt.Sprintf(" on %s description", step.Variant)
		}
		return fmt.Sprintf("%s %q matched%s → %s", kind, step.Pattern, detail, step.Merchant)
	case step.ModifierFailed:
		return fmt.Sprintf("%s %q hit but its modifier conditions failed", kind, step.Pattern)
	case step.PatternHit:
		return fmt.Sprintf("%s %q hit but did not win", kind, step.Pattern)
	default:
		return cli.SubtleStyle.Render(fmt.Sprintf("%s %q did not hit", kind, step.Pattern))
	}
}
