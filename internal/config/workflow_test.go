package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnrichment_Defaults(t *testing.T) {
	cfg, err := LoadEnrichment("")
	if err != nil {
		t.Fatalf("LoadEnrichment() error = %v", err)
	}
	if len(cfg.Categories) != 4 || cfg.Categories[0].Token != "acca" {
		t.Errorf("Categories = %+v", cfg.Categories)
	}
	if cfg.Conductors["989 8318 8454"] != "Sukhpreet Monga" {
		t.Errorf("Conductors = %+v", cfg.Conductors)
	}
	if len(cfg.ApprovedConductors) != 3 {
		t.Errorf("ApprovedConductors = %+v", cfg.ApprovedConductors)
	}
}

func TestLoadEnrichment_FileOverridesPreserveOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	content := `categories:
  - token: frm
    category: FRM
  - token: cfa level
    category: CFA
approved_conductors:
  - Someone New
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadEnrichment(path)
	if err != nil {
		t.Fatalf("LoadEnrichment() error = %v", err)
	}
	if len(cfg.Categories) != 2 {
		t.Fatalf("Categories = %+v", cfg.Categories)
	}
	if cfg.Categories[0].Token != "frm" || cfg.Categories[1].Category != "CFA" {
		t.Errorf("rule order not preserved: %+v", cfg.Categories)
	}
	// Unset sections keep the defaults.
	if cfg.Conductors["989 8318 8454"] != "Sukhpreet Monga" {
		t.Errorf("Conductors should fall back to defaults: %+v", cfg.Conductors)
	}
	if len(cfg.ApprovedConductors) != 1 || cfg.ApprovedConductors[0] != "Someone New" {
		t.Errorf("ApprovedConductors = %+v", cfg.ApprovedConductors)
	}
}

func TestLoadEnrichment_EmptyTokenRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	content := `categories:
  - token: ""
    category: Broken
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := LoadEnrichment(path); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestLoadEnrichment_MissingFile(t *testing.T) {
	if _, err := LoadEnrichment(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
