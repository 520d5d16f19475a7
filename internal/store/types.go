// Package store provides pooled, transactional access to the relational
// entities that back document ingestion: manufacturers, products,
// documents, chunks, embeddings, and images, per §3/§4.5.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a lookup finds no matching row.
var ErrNotFound = errors.New("store: not found")

// ProcessingStatus tracks a Document or Chunk through the ingestion pipeline.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// DocumentType is the classifier's output enumeration.
type DocumentType string

const (
	DocTypeServiceManual     DocumentType = "service_manual"
	DocTypePartsCatalog      DocumentType = "parts_catalog"
	DocTypeCPMDDatabase      DocumentType = "cpmd_database"
	DocTypeTechnicalBulletin DocumentType = "technical_bulletin"
	DocTypeUserManual        DocumentType = "user_manual"
	DocTypeUnknown           DocumentType = "unknown"
)

// Manufacturer is created on first sighting and shared across documents.
type Manufacturer struct {
	ID          string
	Name        string
	DisplayName string
	Country     string
}

// Product is a manufacturer's model, unique per (ModelNumber, ManufacturerID).
type Product struct {
	ID             string
	ModelNumber    string
	DisplayName    string
	ManufacturerID string
	ProductType    string
}

// DocumentMetadata is the structured bag attached to a Document: classifier
// output, extracted identifiers, and extraction confidences.
type DocumentMetadata struct {
	Models                 []string `json:"models,omitempty"`
	Series                 string   `json:"series,omitempty"`
	Placeholders           []string `json:"placeholders,omitempty"`
	Images                 []string `json:"images,omitempty"`
	ManufacturerConfidence float64        `json:"manufacturer_confidence,omitempty"`
	DocumentTypeConfidence float64        `json:"document_type_confidence,omitempty"`
	VersionConfidence      float64        `json:"version_confidence,omitempty"`
	HybridConfidence       float64        `json:"hybrid_confidence,omitempty"`
	ErrorCodes             []MetadataCode `json:"error_codes,omitempty"`
	PartNumbers            []MetadataCode `json:"part_numbers,omitempty"`
}

// MetadataCode is an inlined ExtractedCode/ExtractedPart (§3): the spec
// allows either a tabled representation or inlining into Document.metadata;
// this adapter inlines, since no downstream component queries codes
// independently of their document.
type MetadataCode struct {
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Models      []string `json:"models,omitempty"`
}

// Document is the top-level ingested unit. FileHash is unique: a second
// ingestion of the same bytes must reuse the existing row (§3 invariant).
type Document struct {
	ID                 string
	FileName           string
	FileHash           string
	StorageURL         string
	SizeBytes          int64
	TotalPages         int
	DocumentType       DocumentType
	ManufacturerID     string
	Language           string
	ProcessingStatus   ProcessingStatus
	ProcessingProgress int
	VersionString      string
	Metadata           DocumentMetadata
	CreatedAt          time.Time
	ProcessedAt        *time.Time
}

// Chunk is one overlapping, size-bounded slice of a Document's text.
// (DocumentID, ChunkIndex) is unique; ChunkIndex is dense from 0.
type Chunk struct {
	ID               string
	DocumentID       string
	ChunkIndex       int
	PageStart        int
	PageEnd          int
	TextChunk        string
	TokenCount       int
	Fingerprint      string
	SectionTitle     string
	ProcessingStatus ProcessingStatus
}

// Embedding is a chunk's dense vector under a named model. At most one
// embedding exists per (ChunkID, ModelName); Degraded marks a zero-vector
// placeholder produced after a permanent embedding failure.
type Embedding struct {
	ID           string
	ChunkID      string
	Vector       []float32
	ModelName    string
	ModelVersion string
	Degraded     bool
	CreatedAt    time.Time
}

// Image is one raster extracted from a Document page. (DocumentID,
// PageNumber, ImageIndex) is unique; FileHash is content-addressed on the
// object store.
type Image struct {
	ID            string
	DocumentID    string
	PageNumber    int
	ImageIndex    int
	StorageURL    string
	FileHash      string
	Width         int
	Height        int
	Colorspace    string
	SizeBytes     int64
	AIDescription string
}

// ExtractedCode is a validated error code or part number found in a
// Document's text, per §4.9.
type ExtractedCode struct {
	Code         string
	Description  string
	Category     string
	Manufacturer string
	IsPart       bool
	Models       []string
}

// Store is the full set of typed operations C5 exposes over §3's entities.
// Implementations: *PGStore (pgxpool-backed) and *MemoryStore (tests).
type Store interface {
	FindDocumentByHash(ctx context.Context, hash string) (Document, bool, error)
	InsertDocument(ctx context.Context, doc Document) (Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status ProcessingStatus, progress int, processedAt *time.Time) error
	UpdateDocumentClassification(ctx context.Context, id string, docType DocumentType, manufacturerID, version string, meta DocumentMetadata) error

	ResolveManufacturer(ctx context.Context, name, displayName string) (Manufacturer, error)
	ResolveProduct(ctx context.Context, manufacturerID, modelNumber, displayName, productType string) (Product, error)

	InsertChunks(ctx context.Context, chunks []Chunk) error
	InsertImages(ctx context.Context, images []Image) error
	InsertEmbeddings(ctx context.Context, embeddings []Embedding) error

	ChunksByDocument(ctx context.Context, documentID string) ([]Chunk, error)
	ExistingEmbeddingChunkIDs(ctx context.Context, documentID, modelName string) (map[string]bool, error)
}
