package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plutusedu/webisync/internal/clean"
)

// DefaultEnrichment is the compiled-in business mapping: course category
// tokens in match priority order, per-webinar conductor overrides, and the
// approved conductor roster.
func DefaultEnrichment() clean.EnrichmentConfig {
	return clean.EnrichmentConfig{
		Categories: []clean.CategoryRule{
			{Token: "acca", Category: "ACCA"},
			{Token: "cma", Category: "CMA"},
			{Token: "cfa", Category: "CFA"},
			{Token: "cpa", Category: "CPA"},
		},
		Conductors: map[string]string{
			"989 8318 8454": "Sukhpreet Monga",
		},
		ApprovedConductors: []string{
			"Sukhpreet Monga",
			"Satyarth Dwivedi",
			"Khushi Gera",
		},
	}
}

// LoadEnrichment reads the workflow mapping file. An empty path returns the
// compiled-in defaults; a file overrides only the lists it sets.
func LoadEnrichment(path string) (clean.EnrichmentConfig, error) {
	cfg := DefaultEnrichment()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read workflow file: %w", err)
	}

	var loaded clean.EnrichmentConfig
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return cfg, fmt.Errorf("parse workflow file %s: %w", path, err)
	}

	if len(loaded.Categories) > 0 {
		cfg.Categories = loaded.Categories
	}
	if len(loaded.Conductors) > 0 {
		cfg.Conductors = loaded.Conductors
	}
	if len(loaded.ApprovedConductors) > 0 {
		cfg.ApprovedConductors = loaded.ApprovedConductors
	}
	for i, rule := range cfg.Categories {
		if rule.Token == "" {
			return cfg, fmt.Errorf("workflow file %s: category rule %d has an empty token", path, i+1)
		}
	}
	return cfg, nil
}
