package classify

import (
	"testing"

	"docingest/internal/patterns"
)

func loadSnapshot(t *testing.T) *patterns.Snapshot {
	t.Helper()
	store, err := patterns.Load("../patterns/testdata")
	if err != nil {
		t.Fatalf("loading patterns: %v", err)
	}
	return store.Snapshot()
}

func TestClassifyHPServiceManualByFilename(t *testing.T) {
	snap := loadSnapshot(t)
	result := Classify("hp_laserjet_service_manual.pdf", "", snap)
	if result.Manufacturer != "hp" {
		t.Fatalf("expected manufacturer hp, got %q", result.Manufacturer)
	}
	if result.DocumentType != "service_manual" {
		t.Fatalf("expected service_manual, got %q", result.DocumentType)
	}
}

func TestClassifyKonicaMinoltaBulletinByContent(t *testing.T) {
	snap := loadSnapshot(t)
	text := "This technical bulletin describes a workaround for konica minolta bizhub C450i image quality issues. Symptom: faint output. Workaround: replace the drum unit."
	result := Classify("doc123.pdf", text, snap)
	if result.Manufacturer != "konica_minolta" {
		t.Fatalf("expected konica_minolta, got %q", result.Manufacturer)
	}
	if result.DocumentType != "technical_bulletin" {
		t.Fatalf("expected technical_bulletin, got %q", result.DocumentType)
	}
}

func TestClassifyHybridConfidenceBoundedByOne(t *testing.T) {
	snap := loadSnapshot(t)
	text := "hp service manual C450i Edition 3, 5/2024 laserjet maintenance procedures error codes"
	result := Classify("hp_service_manual.pdf", text, snap)
	if result.HybridConfidence > 1.0 {
		t.Fatalf("hybrid confidence must be capped at 1.0, got %v", result.HybridConfidence)
	}
}
