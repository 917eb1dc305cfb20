package rules

import (
	"fmt"
	"os"
	"regexp"

	"github.com/tally-sh/tally/internal/engine"
	"github.com/tally-sh/tally/internal/expr"
	"github.com/tally-sh/tally/internal/modifier"
)

// Diagnostics reports everything a `rules lint` pass learned about a rules
// file: structural problems, per-line validation errors, and counts. Errors
// never prevent loadable rules from loading.
type Diagnostics struct {
	Path      string
	Exists    bool
	HasHeader bool
	LineCount int
	RuleCount int
	Errors    []string
}

// OK reports whether the file loaded without any problems.
func (d *Diagnostics) OK() bool {
	return d.Exists && len(d.Errors) == 0
}

// Diagnose loads a rules file and validates every pattern: modifier syntax
// must parse and the base pattern must compile as a case-insensitive regex.
// Unlike Load, validation failures are recorded per line rather than logged.
func Diagnose(path string) *Diagnostics {
	diag := &Diagnostics{Path: path}

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			diag.Errors = append(diag.Errors, fmt.Sprintf("opening file: %v", err))
		}
		return diag
	}
	defer func() { _ = f.Close() }()

	loaded, parseDiag := parse(f, SourceUser)
	*diag = *parseDiag
	diag.Path = path

	for _, rule := range loaded {
		parsed, err := modifier.Parse(rule.Pattern)
		if err != nil {
			diag.Errors = append(diag.Errors, fmt.Sprintf(
				"line %d: invalid modifier in pattern %q: %v", rule.Line, rule.Pattern, err))
			continue
		}

		if engine.LooksLikeExpression(parsed.Base) {
			if _, err := expr.Parse(parsed.Base); err != nil {
				diag.Errors = append(diag.Errors, fmt.Sprintf(
					"line %d: invalid expression %q: %v", rule.Line, rule.Pattern, err))
			}
			continue
		}
		if _, err := regexp.Compile("(?i)" + parsed.Base); err != nil {
			diag.Errors = append(diag.Errors, fmt.Sprintf(
				"line %d: invalid regex pattern %q: %v", rule.Line, parsed.Base, err))
		}
	}
	return diag
}
