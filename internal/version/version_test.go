package version

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

func TestExtractEditionDate(t *testing.T) {
	snap := loadSnapshot(t)
	got, conf := Extract("Service Manual Edition 3, 5/2024", "hp", snap)
	if got != "3, 5/2024" {
		t.Fatalf("expected %q, got %q", "3, 5/2024", got)
	}
	if conf <= 0 {
		t.Fatalf("expected positive confidence, got %v", conf)
	}
}

func TestExtractReordersForManufacturer(t *testing.T) {
	snap := loadSnapshot(t)
	got, _ := Extract("Service Manual Edition 3, Rev A1", "konica_minolta", snap)
	if got != "Rev A1" {
		t.Fatalf("expected revision pattern tried first for konica_minolta, got %q", got)
	}
}

func TestExtractReturnsEmptyOnNoMatch(t *testing.T) {
	snap := loadSnapshot(t)
	got, conf := Extract("no version information here at all", "unknown", snap)
	if got != "" || conf != 0 {
		t.Fatalf("expected no match, got %q / %v", got, conf)
	}
}
