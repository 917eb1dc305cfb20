package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tally-sh/tally/internal/cli"
)

// RenderText formats a report for the terminal using the shared styles.
func RenderText(r *Report) string {
	var b strings.Builder

	b.WriteString(cli.TitleStyle.Render("Spending Report"))
	b.WriteString("\n")
	b.WriteString(cli.SubtitleStyle.Render(fmt.Sprintf(
		"%d transactions over %d months, $%.2f total",
		r.Count, r.NumMonths, r.Total)))
	b.WriteString("\n\n")

	if len(r.ByMonth) > 0 {
		b.WriteString(cli.BoldStyle.Render("Monthly totals"))
		b.WriteString("\n")
		for _, month := range sortedMonths(r.ByMonth) {
			b.WriteString(fmt.Sprintf("  %s  $%.2f\n", month, r.ByMonth[month]))
		}
		b.WriteString("\n")
	}

	b.WriteString(cli.BoldStyle.Render("Merchants"))
	b.WriteString("\n")
	writeLinesText(&b, r.Merchants)

	for _, view := range r.Views {
		b.WriteString("\n")
		b.WriteString(cli.BoldStyle.Render(fmt.Sprintf("%s ($%.2f)", view.Name, view.Total)))
		b.WriteString("\n")
		if len(view.Lines) == 0 {
			b.WriteString(cli.SubtleStyle.Render("  (no matching merchants)"))
			b.WriteString("\n")
			continue
		}
		writeLinesText(&b, view.Lines)
	}

	return b.String()
}

func writeLinesText(b *strings.Builder, lines []Line) {
	for _, line := range lines {
		b.WriteString(fmt.Sprintf("  %-30s %-20s %-10s $%10.2f  %s\n",
			truncate(line.Merchant, 30),
			truncate(line.Category, 20),
			line.Class,
			line.Total,
			cli.SubtleStyle.Render(line.Reasoning)))
	}
}

func sortedMonths(byMonth map[string]float64) []string {
	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 1 {
		return s[:max]
	}
	return s[:max-1] + "…"
}
