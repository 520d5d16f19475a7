package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by pipeline tests, grounded on
// the teacher's in-memory database backends (NewMemorySearch/NewMemoryVector
// pattern): a mutex-guarded map per entity, no persistence.
type MemoryStore struct {
	mu sync.Mutex

	documentsByHash map[string]string
	documents       map[string]Document
	manufacturers   map[string]Manufacturer // keyed by name
	products        map[string]Product      // keyed by manufacturerID+"/"+modelNumber
	chunks          map[string][]Chunk      // keyed by documentID
	embeddings      map[string][]Embedding  // keyed by chunkID
	images          map[string][]Image      // keyed by documentID
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documentsByHash: make(map[string]string),
		documents:       make(map[string]Document),
		manufacturers:   make(map[string]Manufacturer),
		products:        make(map[string]Product),
		chunks:          make(map[string][]Chunk),
		embeddings:      make(map[string][]Embedding),
		images:          make(map[string][]Image),
	}
}

func (s *MemoryStore) FindDocumentByHash(ctx context.Context, hash string) (Document, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.documentsByHash[hash]
	if !ok {
		return Document{}, false, nil
	}
	return s.documents[id], true, nil
}

func (s *MemoryStore) InsertDocument(ctx context.Context, doc Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.documentsByHash[doc.FileHash]; ok {
		return s.documents[existing], nil
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.ProcessingStatus == "" {
		doc.ProcessingStatus = StatusProcessing
	}
	s.documents[doc.ID] = doc
	s.documentsByHash[doc.FileHash] = doc.ID
	return doc, nil
}

func (s *MemoryStore) UpdateDocumentStatus(ctx context.Context, id string, status ProcessingStatus, progress int, processedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return ErrNotFound
	}
	d.ProcessingStatus = status
	d.ProcessingProgress = progress
	d.ProcessedAt = processedAt
	s.documents[id] = d
	return nil
}

func (s *MemoryStore) UpdateDocumentClassification(ctx context.Context, id string, docType DocumentType, manufacturerID, version string, meta DocumentMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return ErrNotFound
	}
	d.DocumentType = docType
	d.ManufacturerID = manufacturerID
	d.VersionString = version
	d.Metadata = meta
	s.documents[id] = d
	return nil
}

func (s *MemoryStore) ResolveManufacturer(ctx context.Context, name, displayName string) (Manufacturer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.manufacturers[name]; ok {
		return m, nil
	}
	if displayName == "" {
		displayName = name
	}
	m := Manufacturer{ID: uuid.New().String(), Name: name, DisplayName: displayName}
	s.manufacturers[name] = m
	return m, nil
}

func (s *MemoryStore) ResolveProduct(ctx context.Context, manufacturerID, modelNumber, displayName, productType string) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := manufacturerID + "/" + modelNumber
	if p, ok := s.products[key]; ok {
		return p, nil
	}
	if displayName == "" {
		displayName = modelNumber
	}
	p := Product{ID: uuid.New().String(), ModelNumber: modelNumber, DisplayName: displayName, ManufacturerID: manufacturerID, ProductType: productType}
	s.products[key] = p
	return p, nil
}

func (s *MemoryStore) InsertChunks(ctx context.Context, chunks []Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.ProcessingStatus == "" {
			c.ProcessingStatus = StatusCompleted
		}
		existing := s.chunks[c.DocumentID]
		replaced := false
		for i, e := range existing {
			if e.ChunkIndex == c.ChunkIndex {
				existing[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, c)
		}
		s.chunks[c.DocumentID] = existing
	}
	return nil
}

func (s *MemoryStore) InsertImages(ctx context.Context, images []Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, img := range images {
		if img.ID == "" {
			img.ID = uuid.New().String()
		}
		existing := s.images[img.DocumentID]
		replaced := false
		for i, e := range existing {
			if e.PageNumber == img.PageNumber && e.ImageIndex == img.ImageIndex {
				existing[i] = img
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, img)
		}
		s.images[img.DocumentID] = existing
	}
	return nil
}

func (s *MemoryStore) InsertEmbeddings(ctx context.Context, embeddings []Embedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range embeddings {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		existing := s.embeddings[e.ChunkID]
		replaced := false
		for i, ex := range existing {
			if ex.ModelName == e.ModelName {
				existing[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, e)
		}
		s.embeddings[e.ChunkID] = existing
	}
	return nil
}

func (s *MemoryStore) ChunksByDocument(ctx context.Context, documentID string) ([]Chunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Chunk, len(s.chunks[documentID]))
	copy(out, s.chunks[documentID])
	return out, nil
}

func (s *MemoryStore) ExistingEmbeddingChunkIDs(ctx context.Context, documentID, modelName string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool)
	for _, c := range s.chunks[documentID] {
		for _, e := range s.embeddings[c.ID] {
			if e.ModelName == modelName {
				out[c.ID] = true
			}
		}
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
