package patterns

import "testing"

func TestLoad(t *testing.T) {
	store, err := Load("testdata")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := store.Snapshot()
	if snap.Generation() != 1 {
		t.Fatalf("expected generation 1, got %d", snap.Generation())
	}

	if _, ok := snap.ErrorPatterns("hp"); !ok {
		t.Fatalf("expected hp error patterns")
	}
	rs, _ := snap.ErrorPatterns("hp")
	desc, cat := rs.Describe("13.20.01")
	if desc == "Unknown" || cat != "paper_jam" {
		t.Fatalf("expected known description for 13.20.01, got %q/%q", desc, cat)
	}
	if desc2, cat2 := rs.Describe("99.99.99"); desc2 != "Unknown" || cat2 != "unknown" {
		t.Fatalf("expected Unknown/unknown for unseen code, got %q/%q", desc2, cat2)
	}
}

func TestVersionSearchOrderReordersForManufacturer(t *testing.T) {
	store, err := Load("testdata")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := store.Snapshot()

	order := snap.VersionSearchOrder("konica_minolta")
	if order[0] != "revision" {
		t.Fatalf("expected revision first for konica_minolta, got %v", order)
	}

	generic := snap.VersionSearchOrder("unknown_manufacturer")
	if generic[0] != "edition_date" {
		t.Fatalf("expected default search order preserved, got %v", generic)
	}
}

func TestChunkSettingsResolution(t *testing.T) {
	store, err := Load("testdata")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	snap := store.Snapshot()

	cs := snap.ChunkSettings("technical_bulletin", "konica_minolta")
	if cs.Strategy != "bulletin" {
		t.Fatalf("expected bulletin strategy, got %q", cs.Strategy)
	}
	if cs.ChunkSize <= 0 {
		t.Fatalf("expected positive chunk size, got %d", cs.ChunkSize)
	}
}

func TestReloadAtomicSwap(t *testing.T) {
	store, err := Load("testdata")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first := store.Snapshot()
	if err := store.Reload(); err != nil {
		t.Fatalf("unexpected reload error: %v", err)
	}
	second := store.Snapshot()
	if second.Generation() != first.Generation()+1 {
		t.Fatalf("expected generation to increment, got %d -> %d", first.Generation(), second.Generation())
	}
	if first.Generation() != 1 {
		t.Fatalf("first snapshot must remain stable after reload")
	}
}

func TestLoadRejectsMissingDirectory(t *testing.T) {
	if _, err := Load("testdata-missing-dir"); err == nil {
		t.Fatalf("expected error loading nonexistent directory")
	}
}
