package store

import (
	"context"
	"testing"
)

func TestInsertDocumentDedupesByHash(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	first, err := s.InsertDocument(ctx, Document{FileName: "a.pdf", FileHash: "hash1", StorageURL: "u1"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	second, err := s.InsertDocument(ctx, Document{FileName: "b.pdf", FileHash: "hash1", StorageURL: "u2"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected duplicate insert to reuse document id, got %s vs %s", first.ID, second.ID)
	}

	found, ok, err := s.FindDocumentByHash(ctx, "hash1")
	if err != nil || !ok {
		t.Fatalf("expected to find document by hash, ok=%v err=%v", ok, err)
	}
	if found.FileName != "a.pdf" {
		t.Fatalf("expected original file name retained, got %q", found.FileName)
	}
}

func TestInsertChunksKeepsDenseIndex(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	doc, _ := s.InsertDocument(ctx, Document{FileName: "doc.pdf", FileHash: "h2"})
	chunks := []Chunk{
		{DocumentID: doc.ID, ChunkIndex: 0, TextChunk: "first"},
		{DocumentID: doc.ID, ChunkIndex: 1, TextChunk: "second"},
		{DocumentID: doc.ID, ChunkIndex: 2, TextChunk: "third"},
	}
	if err := s.InsertChunks(ctx, chunks); err != nil {
		t.Fatalf("insert chunks: %v", err)
	}

	got, err := s.ChunksByDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("chunks by document: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(got))
	}
	for i, c := range got {
		if c.ChunkIndex != i {
			t.Fatalf("expected dense chunk index %d, got %d", i, c.ChunkIndex)
		}
	}
}

func TestInsertEmbeddingsOnePerChunkModel(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	doc, _ := s.InsertDocument(ctx, Document{FileName: "doc.pdf", FileHash: "h3"})
	s.InsertChunks(ctx, []Chunk{{DocumentID: doc.ID, ChunkIndex: 0, TextChunk: "x"}})
	chunks, _ := s.ChunksByDocument(ctx, doc.ID)
	chunkID := chunks[0].ID

	err := s.InsertEmbeddings(ctx, []Embedding{
		{ChunkID: chunkID, Vector: []float32{0.1, 0.2}, ModelName: "text-embedding-3"},
	})
	if err != nil {
		t.Fatalf("insert embeddings: %v", err)
	}

	existing, err := s.ExistingEmbeddingChunkIDs(ctx, doc.ID, "text-embedding-3")
	if err != nil {
		t.Fatalf("existing embeddings: %v", err)
	}
	if !existing[chunkID] {
		t.Fatalf("expected chunk %s to be marked embedded", chunkID)
	}

	// Re-embedding under the same model replaces, not duplicates, the row.
	err = s.InsertEmbeddings(ctx, []Embedding{
		{ChunkID: chunkID, Vector: []float32{0.9, 0.9}, ModelName: "text-embedding-3"},
	})
	if err != nil {
		t.Fatalf("re-insert embeddings: %v", err)
	}
	if got := len(s.embeddings[chunkID]); got != 1 {
		t.Fatalf("expected exactly one embedding per (chunk,model), got %d", got)
	}
}

func TestResolveManufacturerIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a, err := s.ResolveManufacturer(ctx, "hp", "HP Inc.")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	b, err := s.ResolveManufacturer(ctx, "hp", "ignored display name")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if a.ID != b.ID || b.DisplayName != "HP Inc." {
		t.Fatalf("expected manufacturer resolution to be idempotent, got %+v vs %+v", a, b)
	}
}

func TestUpdateDocumentClassificationOverwritesClassifierFields(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	doc, err := s.InsertDocument(ctx, Document{FileName: "doc.pdf", FileHash: "h4", DocumentType: DocTypeUnknown})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	meta := DocumentMetadata{Models: []string{"M404"}, ManufacturerConfidence: 0.9}
	if err := s.UpdateDocumentClassification(ctx, doc.ID, DocTypeServiceManual, "mfg-1", "v2.0", meta); err != nil {
		t.Fatalf("update classification: %v", err)
	}

	found, ok, err := s.FindDocumentByHash(ctx, "h4")
	if err != nil || !ok {
		t.Fatalf("expected to find document, ok=%v err=%v", ok, err)
	}
	if found.DocumentType != DocTypeServiceManual || found.ManufacturerID != "mfg-1" || found.VersionString != "v2.0" {
		t.Fatalf("expected classification fields updated, got %+v", found)
	}
	if len(found.Metadata.Models) != 1 || found.Metadata.Models[0] != "M404" {
		t.Fatalf("expected metadata replaced, got %+v", found.Metadata)
	}
}

func TestVectorLiteralFormat(t *testing.T) {
	got := toVectorLiteral([]float32{1, 2.5, -3})
	want := "[1,2.5,-3]"
	if got != want {
		t.Fatalf("toVectorLiteral = %q, want %q", got, want)
	}
	if got := toVectorLiteral(nil); got != "[]" {
		t.Fatalf("toVectorLiteral(nil) = %q, want []", got)
	}
}
