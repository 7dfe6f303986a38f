package usecase

import (
	"fmt"
	"strings"

	"featurerag/internal/domain"
)

const notAvailable = "N/A"

// FormatResult renders a matched feature as
// "{name} ({categories}) – How it helps: {how_it_helps}". Empty fields
// render as N/A.
func FormatResult(p domain.FeatureProperties) string {
	name := p.FeatureName
	if name == "" {
		name = notAvailable
	}
	categories := p.Category
	if len(categories) == 0 {
		categories = []string{notAvailable}
	}
	howItHelps := p.HowItHelps
	if howItHelps == "" {
		howItHelps = notAvailable
	}
	return fmt.Sprintf("%s (%s) – How it helps: %s", name, strings.Join(categories, ", "), howItHelps)
}
