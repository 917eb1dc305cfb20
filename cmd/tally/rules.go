package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tally-sh/tally/internal/cli"
	"github.com/tally-sh/tally/internal/rules"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and validate the merchant rules file",
	}
	cmd.AddCommand(rulesLintCmd())
	return cmd
}

func rulesLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint [path]",
		Short: "Check the rules file for syntax problems",
		Long: `Lint parses the rules CSV and validates every pattern: regex rules must
compile, expression rules must parse, and modifier suffixes must be well
formed. Broken rules never match at runtime, so fix everything listed here.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			} else {
				settings, err := loadSettings()
				if err != nil {
					return err
				}
				path = settings.RulesPath
			}
			if path == "" {
				return fmt.Errorf("no rules file: pass a path or set rules_path in config")
			}

			diag := rules.Diagnose(path)

			if !diag.Exists {
				cmd.Println(cli.FormatError(fmt.Sprintf("%s does not exist", path)))
				return fmt.Errorf("rules file not found")
			}

			cmd.Println(cli.BoldStyle.Render(path))
			cmd.Printf("  %d lines, %d rules", diag.LineCount, diag.RuleCount)
			if diag.HasHeader {
				cmd.Printf(", header row detected")
			}
			cmd.Println()
			cmd.Println()

			if diag.OK() {
				cmd.Println(cli.FormatSuccess("all rules are valid"))
				return nil
			}

			for _, problem := range diag.Errors {
				cmd.Println(cli.FormatError(problem))
			}
			return fmt.Errorf("%d problem(s) found", len(diag.Errors))
		},
	}
}
