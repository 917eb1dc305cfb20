package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/viper"

	"github.com/tally-sh/tally/internal/common"
	"github.com/tally-sh/tally/internal/config"
	"github.com/tally-sh/tally/internal/engine"
	"github.com/tally-sh/tally/internal/ingest"
	"github.com/tally-sh/tally/internal/model"
	"github.com/tally-sh/tally/internal/rules"
)

// loadSettings reads the validated application config from viper.
func loadSettings() (*config.Settings, error) {
	return config.Load(viper.GetViper())
}

// loadRules reads the merchant rules file. A missing file is not fatal: the
// engine still extracts merchant names, every rule just falls through to the
// generated fallback.
func loadRules(settings *config.Settings) []model.MerchantRule {
	if settings.RulesPath == "" {
		slog.Info("no rules_path configured, merchants will use extracted names")
		return nil
	}

	loaded, err := rules.Load(settings.RulesPath)
	if err != nil {
		if errors.Is(err, common.ErrRulesNotFound) {
			slog.Warn("rules file not found, merchants will use extracted names",
				"path", settings.RulesPath)
			return nil
		}
		slog.Warn("failed to load rules", "path", settings.RulesPath, "error", err)
		return nil
	}
	return loaded
}

// newMatcher builds the matching engine from settings and loaded rules.
func newMatcher(settings *config.Settings, merchantRules []model.MerchantRule) *engine.Matcher {
	return engine.NewMatcher(merchantRules,
		engine.WithCleaner(engine.NewCleaner(settings.StripPatterns)),
		engine.WithVariables(settings.Variables),
	)
}

// importSources reads every configured statement file.
func importSources(settings *config.Settings) ([]model.Transaction, error) {
	home := ingest.HomeLocations(settings.HomeLocations)

	var all []model.Transaction
	for _, src := range settings.Sources {
		txns, err := importSource(src, home)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", src.Name, err)
		}
		slog.Info("imported statement", "source", src.Name, "transactions", len(txns))
		all = append(all, txns...)
	}

	if len(all) == 0 {
		return nil, common.ErrNoTransactions
	}
	return all, nil
}

func importSource(src config.Source, home map[string]struct{}) ([]model.Transaction, error) {
	switch src.Type {
	case "ofx":
		imp := &ingest.OFXImporter{Source: src.Name, HomeLocations: home}
		return imp.ImportFile(src.Path)
	case "csv", "":
		imp := &ingest.CSVImporter{
			Source:           src.Name,
			DateLayout:       src.DateLayout,
			DecimalSeparator: src.DecimalSeparatorRune(),
			NegateAmounts:    src.NegateAmounts,
			HomeLocations:    home,
		}
		return imp.ImportFile(src.Path)
	}
	return nil, fmt.Errorf("%w: %s", common.ErrUnknownFormat, src.Type)
}
