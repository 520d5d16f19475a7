package chunker

import (
	"strings"
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

func TestChunkIndexIsDenseFromZero(t *testing.T) {
	snap := loadSnapshot(t)
	text := "--- PAGE 1 ---\n" + strings.Repeat("word ", 1200) + "\n--- PAGE 2 ---\n" + strings.Repeat("more ", 1200)
	chunks := Chunk(text, "parts_catalog", "unknown", snap)
	if len(chunks) == 0 {
		t.Fatalf("expected chunks")
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Fatalf("expected dense chunk_index, got %d at position %d", c.ChunkIndex, i)
		}
		if strings.TrimSpace(c.Text) == "" {
			t.Fatalf("chunk %d is empty", i)
		}
	}
}

func TestChunkByBulletinCaseBoundaries(t *testing.T) {
	snap := loadSnapshot(t)
	text := "--- PAGE 1 ---\nCase1: pale images\nDo this and that.\nCase2: faint images\nDo the other thing."
	chunks := Chunk(text, "technical_bulletin", "konica_minolta", snap)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks for 2 cases, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].SectionTitle, "Case1") {
		t.Fatalf("expected section title to reference Case1, got %q", chunks[0].SectionTitle)
	}
}

func TestChunkAttributesPageRange(t *testing.T) {
	snap := loadSnapshot(t)
	text := "--- PAGE 1 ---\nIntro text on page one.\n--- PAGE 2 ---\nMore text on page two."
	chunks := Chunk(text, "parts_catalog", "unknown", snap)
	if len(chunks) == 0 {
		t.Fatalf("expected chunks")
	}
	foundPage2 := false
	for _, c := range chunks {
		if c.PageStart == 2 {
			foundPage2 = true
		}
	}
	if !foundPage2 {
		t.Fatalf("expected a chunk attributed to page 2")
	}
}
