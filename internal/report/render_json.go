package report

import (
	"encoding/json"
	"fmt"
)

// RenderJSON formats a report as indented JSON for machine consumption.
func RenderJSON(r *Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	return string(data), nil
}
