package models

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

func hasModel(matches []Match, model string) bool {
	for _, m := range matches {
		if m.Model == model {
			return true
		}
	}
	return false
}

func TestExtractExactModel(t *testing.T) {
	snap := loadSnapshot(t)
	result := Extract("Service manual for C450i and C550i", "konica_minolta", snap)
	if !hasModel(result.Models, "C450i") {
		t.Fatalf("expected C450i in %+v", result.Models)
	}
}

func TestExtractPlaceholderExpandsToActualModels(t *testing.T) {
	snap := loadSnapshot(t)
	result := Extract("This applies to the C450i placeholder family", "konica_minolta", snap)
	for _, want := range []string{"C450i", "C550i", "C650i", "C750i"} {
		if !hasModel(result.Models, want) {
			t.Fatalf("expected placeholder expansion to include %s, got %+v", want, result.Models)
		}
	}
}

func TestExtractSeriesInfersMembers(t *testing.T) {
	snap := loadSnapshot(t)
	result := Extract("Applies to the bizhub series of devices", "konica_minolta", snap)
	if len(result.Series) == 0 {
		t.Fatalf("expected a detected series")
	}
	if !hasModel(result.Models, "bizhub C450") {
		t.Fatalf("expected series inference to include bizhub C450, got %+v", result.Models)
	}
}

func TestExtractNoMatchesGivesZeroConfidence(t *testing.T) {
	snap := loadSnapshot(t)
	result := Extract("nothing relevant in this text", "unknown", snap)
	if result.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", result.Confidence)
	}
}
