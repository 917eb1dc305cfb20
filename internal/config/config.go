package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/tally-sh/tally/internal/common"
)

// Settings is the application configuration, typically read from
// ~/.config/tally/config.yaml via viper.
type Settings struct {
	// RulesPath locates the merchant rules CSV.
	RulesPath string `mapstructure:"rules_path"`
	// HomeLocations are location codes never treated as travel.
	HomeLocations []string `mapstructure:"home_locations"`
	// StripPatterns are extra regexes removed during description cleaning.
	StripPatterns []string `mapstructure:"strip_patterns"`
	// Variables are user values exposed to match expressions.
	Variables map[string]any `mapstructure:"variables"`
	// Sections group merchants into named report views by filter expression.
	Sections []Section `mapstructure:"sections"`
	// Sources describe the statement files to ingest.
	Sources []Source `mapstructure:"sources"`
}

// Section is one named report view. Filter is a match expression evaluated
// in the merchant-aggregate context.
type Section struct {
	Name   string `mapstructure:"name"`
	Filter string `mapstructure:"filter"`
}

// Source is one statement input.
type Source struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
	// Type selects the importer: "csv" (default) or "ofx".
	Type string `mapstructure:"type"`
	// DateLayout is a Go time layout for CSV date columns; empty means
	// auto-detect common layouts.
	DateLayout string `mapstructure:"date_layout"`
	// DecimalSeparator is "." (default) or "," for European exports.
	DecimalSeparator string `mapstructure:"decimal_separator"`
	NegateAmounts    bool   `mapstructure:"negate_amounts"`
}

// Load unmarshals and validates settings from a viper instance.
func Load(v *viper.Viper) (*Settings, error) {
	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidConfig, err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	settings.RulesPath = ExpandPath(settings.RulesPath)
	for i := range settings.Sources {
		settings.Sources[i].Path = ExpandPath(settings.Sources[i].Path)
	}
	return &settings, nil
}

// Validate checks the parts that would otherwise fail deep inside a run.
func (s *Settings) Validate() error {
	for i, section := range s.Sections {
		if section.Name == "" {
			return fmt.Errorf("%w: sections[%d] has no name", common.ErrInvalidConfig, i)
		}
		if section.Filter == "" {
			return fmt.Errorf("%w: section %q has no filter expression", common.ErrInvalidConfig, section.Name)
		}
	}
	for i, source := range s.Sources {
		if source.Path == "" {
			return fmt.Errorf("%w: sources[%d] has no path", common.ErrInvalidConfig, i)
		}
		switch source.Type {
		case "", "csv", "ofx":
		default:
			return fmt.Errorf("%w: source %q has unknown type %q (use csv or ofx)",
				common.ErrInvalidConfig, source.Name, source.Type)
		}
	}
	return nil
}

// DecimalSeparatorRune converts the configured separator to the rune the
// amount parser takes, defaulting to '.'.
func (src *Source) DecimalSeparatorRune() rune {
	if src.DecimalSeparator == "," {
		return ','
	}
	return '.'
}
