// Package report renders classification runs as text, markdown, or JSON and
// groups merchants into the named views configured by the user.
package report

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/tally-sh/tally/internal/analysis"
	"github.com/tally-sh/tally/internal/config"
	"github.com/tally-sh/tally/internal/expr"
	"github.com/tally-sh/tally/internal/model"
)

// Line is one merchant row in a report.
type Line struct {
	Merchant     string              `json:"merchant"`
	Category     string              `json:"category"`
	Subcategory  string              `json:"subcategory,omitempty"`
	Class        model.BehaviorClass `json:"class"`
	Reasoning    string              `json:"reasoning"`
	Total        float64             `json:"total"`
	Count        int                 `json:"count"`
	MonthsActive int                 `json:"months_active"`
	CV           float64             `json:"cv"`
	AvgPerMonth  float64             `json:"avg_per_month"`
}

// View is one named group of merchants selected by a filter expression. The
// same merchant can appear in any number of views.
type View struct {
	Name  string  `json:"name"`
	Total float64 `json:"total"`
	Lines []Line  `json:"lines"`
}

// Report is the full output of one classification run.
type Report struct {
	GeneratedAt time.Time          `json:"generated_at"`
	NumMonths   int                `json:"num_months"`
	Total       float64            `json:"total"`
	Count       int                `json:"count"`
	ByMonth     map[string]float64 `json:"by_month"`
	Merchants   []Line             `json:"merchants"`
	Views       []View             `json:"views,omitempty"`
}

// Builder assembles reports from classification output.
type Builder struct {
	variables map[string]any
	cache     *expr.Cache
	logger    *slog.Logger
	now       func() time.Time
}

// NewBuilder creates a report builder. Variables are exposed to view filter
// expressions alongside the aggregate names.
func NewBuilder(variables map[string]any, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		variables: variables,
		cache:     expr.NewCache(),
		logger:    logger,
		now:       time.Now,
	}
}

// Build produces a report from an aggregated summary and its classifications.
// View filters that fail to parse abort the build; per-merchant evaluation
// errors only exclude that merchant from the view.
func (b *Builder) Build(summary *analysis.Summary, classes map[string]model.ClassificationResult, sections []config.Section) (*Report, error) {
	report := &Report{
		GeneratedAt: b.now(),
		NumMonths:   summary.NumMonths,
		Total:       summary.Total,
		Count:       summary.Count,
		ByMonth:     summary.ByMonth,
		Merchants:   b.lines(summary, classes),
	}

	for _, section := range sections {
		view, err := b.buildView(section, summary, classes)
		if err != nil {
			return nil, err
		}
		report.Views = append(report.Views, view)
	}
	return report, nil
}

func (b *Builder) lines(summary *analysis.Summary, classes map[string]model.ClassificationResult) []Line {
	lines := make([]Line, 0, len(summary.Merchants))
	for name, agg := range summary.Merchants {
		lines = append(lines, newLine(agg, classes[name], summary.NumMonths))
	}
	sortLines(lines)
	return lines
}

func (b *Builder) buildView(section config.Section, summary *analysis.Summary, classes map[string]model.ClassificationResult) (View, error) {
	tree, err := b.cache.Expression(section.Filter)
	if err != nil {
		return View{}, fmt.Errorf("view %q: invalid filter: %w", section.Name, err)
	}

	periodData := map[string]float64{"month": float64(summary.NumMonths)}

	view := View{Name: section.Name}
	for name, agg := range summary.Merchants {
		ctx := expr.NewAggContext(agg, b.variables, periodData)
		match, err := expr.EvaluateBool(tree, ctx)
		if err != nil {
			b.logger.Debug("view filter failed for merchant",
				"view", section.Name,
				"merchant", name,
				"error", err)
			continue
		}
		if !match {
			continue
		}
		line := newLine(agg, classes[name], summary.NumMonths)
		view.Lines = append(view.Lines, line)
		view.Total += line.Total
	}
	sortLines(view.Lines)
	return view, nil
}

func newLine(agg *model.MerchantAggregate, result model.ClassificationResult, numMonths int) Line {
	avg := 0.0
	if numMonths > 0 {
		avg = agg.Total / float64(numMonths)
	}
	return Line{
		Merchant:     agg.Merchant,
		Category:     agg.Category,
		Subcategory:  agg.Subcategory,
		Class:        result.Class,
		Reasoning:    result.Reasoning,
		Total:        agg.Total,
		Count:        agg.Count,
		MonthsActive: agg.MonthsActive(),
		CV:           agg.CV,
		AvgPerMonth:  avg,
	}
}

// sortLines orders by total descending, merchant name as tiebreak.
func sortLines(lines []Line) {
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].Total != lines[j].Total {
			return lines[i].Total > lines[j].Total
		}
		return lines[i].Merchant < lines[j].Merchant
	})
}
