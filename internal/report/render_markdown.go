package report

import (
	"fmt"
	"strings"
)

// RenderMarkdown formats a report as a markdown document.
func RenderMarkdown(r *Report) string {
	var b strings.Builder

	b.WriteString("# Spending Report\n\n")
	b.WriteString(fmt.Sprintf("Generated %s. %d transactions over %d months, $%.2f total.\n\n",
		r.GeneratedAt.Format("2006-01-02"), r.Count, r.NumMonths, r.Total))

	if len(r.ByMonth) > 0 {
		b.WriteString("## Monthly Totals\n\n")
		b.WriteString("| Month | Total |\n")
		b.WriteString("|-------|------:|\n")
		for _, month := range sortedMonths(r.ByMonth) {
			b.WriteString(fmt.Sprintf("| %s | $%.2f |\n", month, r.ByMonth[month]))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Merchants\n\n")
	writeLinesMarkdown(&b, r.Merchants)

	for _, view := range r.Views {
		b.WriteString(fmt.Sprintf("## %s ($%.2f)\n\n", view.Name, view.Total))
		if len(view.Lines) == 0 {
			b.WriteString("No matching merchants.\n\n")
			continue
		}
		writeLinesMarkdown(&b, view.Lines)
	}

	return b.String()
}

func writeLinesMarkdown(b *strings.Builder, lines []Line) {
	b.WriteString("| Merchant | Category | Class | Total | Months | Why |\n")
	b.WriteString("|----------|----------|-------|------:|-------:|-----|\n")
	for _, line := range lines {
		b.WriteString(fmt.Sprintf("| %s | %s | %s | $%.2f | %d | %s |\n",
			escapeMarkdown(line.Merchant),
			escapeMarkdown(line.Category),
			line.Class,
			line.Total,
			line.MonthsActive,
			escapeMarkdown(line.Reasoning)))
	}
	b.WriteString("\n")
}

func escapeMarkdown(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}
