package codes

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

func TestExtractHPErrorCodes(t *testing.T) {
	snap := loadSnapshot(t)
	text := "Error Code 13.20.01: Paper jam in duplexer. Error Code 99.99.99 is unlisted."
	codes := ExtractErrorCodes(text, "hp", snap)
	if len(codes) != 2 {
		t.Fatalf("expected 2 matched codes, got %d: %+v", len(codes), codes)
	}
	var found13, found99 bool
	for _, c := range codes {
		if c.Code == "13.20.01" {
			found13 = true
			if c.Description != "Paper jam in duplexer" {
				t.Fatalf("unexpected description: %q", c.Description)
			}
		}
		if c.Code == "99.99.99" {
			found99 = true
			if c.Description != "Unknown" {
				t.Fatalf("expected Unknown description for unlisted code, got %q", c.Description)
			}
		}
	}
	if !found13 || !found99 {
		t.Fatalf("missing expected codes: %+v", codes)
	}
}

func TestExtractErrorCodesDedup(t *testing.T) {
	snap := loadSnapshot(t)
	text := "Error 13.20.01 occurred. See 13.20.01 for details."
	codes := ExtractErrorCodes(text, "hp", snap)
	if len(codes) != 1 {
		t.Fatalf("expected dedup to 1 code, got %d", len(codes))
	}
}

func TestExtractKonicaMinoltaVariants(t *testing.T) {
	snap := loadSnapshot(t)
	text := "Codes observed: C1200, J11-01, E46-01."
	codes := ExtractErrorCodes(text, "konica_minolta", snap)
	if len(codes) != 3 {
		t.Fatalf("expected 3 codes, got %d: %+v", len(codes), codes)
	}
}

func TestExtractPartNumbers(t *testing.T) {
	snap := loadSnapshot(t)
	text := "Replace part C4127-60001 per the service bulletin."
	parts := ExtractPartNumbers(text, "hp", snap)
	if len(parts) != 1 || parts[0].PartNumber != "C4127-60001" {
		t.Fatalf("expected one matched part number, got %+v", parts)
	}
	if parts[0].Description != "Fuser assembly, 110V" {
		t.Fatalf("unexpected description: %q", parts[0].Description)
	}
}

func TestExtractUnknownManufacturerReturnsNil(t *testing.T) {
	snap := loadSnapshot(t)
	if codes := ExtractErrorCodes("anything", "acme", snap); codes != nil {
		t.Fatalf("expected nil for unknown manufacturer, got %+v", codes)
	}
}
