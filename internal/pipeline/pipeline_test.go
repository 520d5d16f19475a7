package pipeline

import (
	"context"
	"testing"

	"docingest/internal/config"
	"docingest/internal/patterns"
	"docingest/internal/store"
)

func loadSnapshot(t *testing.T) *patterns.Store {
	t.Helper()
	st, err := patterns.Load("../patterns/testdata")
	if err != nil {
		t.Fatalf("loading patterns: %v", err)
	}
	return st
}

func TestStagesForModeKnownModes(t *testing.T) {
	for _, mode := range []string{"", "production", "demo", "image_only", "embedding_only", "classification_only", "full_test"} {
		if _, err := stagesForMode(mode); err != nil {
			t.Fatalf("mode %q: unexpected error: %v", mode, err)
		}
	}
	if _, err := stagesForMode("not_a_mode"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestDemoModeDisablesEmbeddingsAndVision(t *testing.T) {
	mc, err := stagesForMode("demo")
	if err != nil {
		t.Fatalf("stagesForMode: %v", err)
	}
	if mc.stages.has(StageGenerateEmbeddings) {
		t.Fatalf("expected demo mode to disable generate_embeddings")
	}
	if mc.vision {
		t.Fatalf("expected demo mode to disable vision")
	}
	if !mc.stages.has(StageProcessImages) {
		t.Fatalf("expected demo mode to still run process_images (extraction/upload, just no vision)")
	}
}

func TestStageErrorFormatting(t *testing.T) {
	e := &StageError{Stage: "extract_content", Kind: "extract_error", Message: "boom"}
	if got := e.Error(); got != "extract_content: extract_error: boom" {
		t.Fatalf("unexpected error string: %q", got)
	}
	e.Hint = "retry later"
	if got := e.Error(); got != "extract_content: extract_error: boom (retry later)" {
		t.Fatalf("unexpected error string with hint: %q", got)
	}
}

func TestProcessDetectsDuplicateBeforeExtraction(t *testing.T) {
	// Duplicate detection (upload_check) only hashes the raw bytes; it must
	// short-circuit before any PDF parsing, so arbitrary non-PDF bytes are
	// a valid fixture here.
	data := []byte("not actually a pdf, but upload_check never looks past the hash")

	memStore := store.NewMemoryStore()
	existing, err := memStore.InsertDocument(context.Background(), store.Document{
		FileName: "original.pdf", FileHash: sha256Hex(data), StorageURL: "s3://docs/existing",
	})
	if err != nil {
		t.Fatalf("seeding existing document: %v", err)
	}

	pstore := loadSnapshot(t)
	p, err := New(memStore, nil, nil, pstore, config.PipelineConfig{ExecutionMode: "production"}, config.S3Config{}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result := p.Process(context.Background(), data, "retry-of-original.pdf")
	if result.Outcome != OutcomeDuplicate {
		t.Fatalf("expected duplicate outcome, got %+v", result)
	}
	if result.ExistingDocumentID != existing.ID {
		t.Fatalf("expected existing document id %s, got %s", existing.ID, result.ExistingDocumentID)
	}

	snap := p.Stats()
	if snap.DocumentsDuplicate != 1 {
		t.Fatalf("expected duplicate counter to increment, got %+v", snap)
	}
}

func TestProcessReturnsCanceledWhenAdmissionBlocked(t *testing.T) {
	memStore := store.NewMemoryStore()
	pstore := loadSnapshot(t)
	p, err := New(memStore, nil, nil, pstore, config.PipelineConfig{ExecutionMode: "production", MaxConcurrentDocuments: 1}, config.S3Config{}, nil, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Saturate admission so the only ready select case is ctx.Done().
	p.docSem <- struct{}{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := p.Process(ctx, []byte("irrelevant"), "doc.pdf")
	if result.Outcome != OutcomeError || result.Err == nil || result.Err.Kind != "canceled" {
		t.Fatalf("expected canceled error outcome, got %+v", result)
	}
}
