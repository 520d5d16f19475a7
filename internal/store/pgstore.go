package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGStore is the pgxpool-backed implementation of Store, grounded on the
// teacher's pool/factory/vector adapters.
type PGStore struct {
	pool *pgxpool.Pool
}

// Open constructs a bounded connection pool against dsn, pings it, and
// bootstraps the schema. Conservative pool defaults mirror the teacher's
// newPgPool; production deployments should manage migrations with an
// external tool, same caveat the teacher's doc store carries.
func Open(ctx context.Context, dsn string) (*PGStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("store: parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.bootstrap(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *PGStore) Close() { s.pool.Close() }

func (s *PGStore) bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS manufacturers (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			display_name TEXT NOT NULL,
			country TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			model_number TEXT NOT NULL,
			display_name TEXT NOT NULL,
			manufacturer_id TEXT NOT NULL REFERENCES manufacturers(id),
			product_type TEXT,
			UNIQUE (model_number, manufacturer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			file_hash TEXT NOT NULL UNIQUE,
			storage_url TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			total_pages INT NOT NULL DEFAULT 0,
			document_type TEXT NOT NULL DEFAULT 'unknown',
			manufacturer_id TEXT REFERENCES manufacturers(id),
			language TEXT,
			processing_status TEXT NOT NULL DEFAULT 'pending',
			processing_progress INT NOT NULL DEFAULT 0,
			version_string TEXT,
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			processed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			chunk_index INT NOT NULL,
			page_start INT NOT NULL,
			page_end INT NOT NULL,
			text_chunk TEXT NOT NULL,
			token_count INT NOT NULL,
			fingerprint TEXT NOT NULL,
			section_title TEXT,
			processing_status TEXT NOT NULL DEFAULT 'pending',
			UNIQUE (document_id, chunk_index)
		)`,
		`CREATE TABLE IF NOT EXISTS embeddings (
			id TEXT PRIMARY KEY,
			chunk_id TEXT NOT NULL REFERENCES chunks(id) ON DELETE CASCADE,
			vector vector,
			model_name TEXT NOT NULL,
			model_version TEXT,
			degraded BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (chunk_id, model_name)
		)`,
		`CREATE TABLE IF NOT EXISTS images (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			page_number INT NOT NULL,
			image_index INT NOT NULL,
			storage_url TEXT NOT NULL,
			file_hash TEXT NOT NULL,
			width INT,
			height INT,
			colorspace TEXT,
			size_bytes BIGINT,
			ai_description TEXT,
			UNIQUE (document_id, page_number, image_index)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("store: bootstrap: %w", err)
		}
	}
	return nil
}

// toVectorLiteral serializes a vector to Postgres' pgvector literal syntax,
// e.g. "[1,2.5,-3]". This is the primary encoding path for inserts.
func toVectorLiteral(v []float32) string {
	if len(v) == 0 {
		return "[]"
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%g", x)
	}
	b.WriteByte(']')
	return b.String()
}

// vectorTyped is the alternative encoding path via pgvector-go's typed
// wrapper, exercised by SimilarChunks below instead of the raw literal.
func vectorTyped(v []float32) pgvector.Vector { return pgvector.NewVector(v) }

func metadataJSON(m DocumentMetadata) []byte {
	b, err := json.Marshal(m)
	if err != nil {
		return []byte(`{}`)
	}
	return b
}

func (s *PGStore) FindDocumentByHash(ctx context.Context, hash string) (Document, bool, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, file_name, file_hash, storage_url, size_bytes, total_pages,
		       document_type, COALESCE(manufacturer_id, ''), language,
		       processing_status, processing_progress, version_string,
		       created_at, processed_at
		FROM documents WHERE file_hash = $1`, hash)

	var d Document
	var manufacturerID string
	var processedAt *time.Time
	err := row.Scan(&d.ID, &d.FileName, &d.FileHash, &d.StorageURL, &d.SizeBytes, &d.TotalPages,
		&d.DocumentType, &manufacturerID, &d.Language,
		&d.ProcessingStatus, &d.ProcessingProgress, &d.VersionString,
		&d.CreatedAt, &processedAt)
	if err == pgx.ErrNoRows {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("store: find by hash: %w", err)
	}
	d.ManufacturerID = manufacturerID
	d.ProcessedAt = processedAt
	return d, true, nil
}

func (s *PGStore) InsertDocument(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.ProcessingStatus == "" {
		doc.ProcessingStatus = StatusProcessing
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO documents (id, file_name, file_hash, storage_url, size_bytes, total_pages,
		                        document_type, manufacturer_id, language, processing_status,
		                        processing_progress, version_string, metadata)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8,''),$9,$10,$11,$12,$13)
		ON CONFLICT (file_hash) DO NOTHING`,
		doc.ID, doc.FileName, doc.FileHash, doc.StorageURL, doc.SizeBytes, doc.TotalPages,
		string(doc.DocumentType), doc.ManufacturerID, doc.Language, string(doc.ProcessingStatus),
		doc.ProcessingProgress, doc.VersionString, metadataJSON(doc.Metadata))
	if err != nil {
		return Document{}, fmt.Errorf("store: insert document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		existing, found, err := s.FindDocumentByHash(ctx, doc.FileHash)
		if err != nil {
			return Document{}, err
		}
		if found {
			return existing, nil
		}
	}
	return doc, nil
}

func (s *PGStore) UpdateDocumentStatus(ctx context.Context, id string, status ProcessingStatus, progress int, processedAt *time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE documents SET processing_status=$2, processing_progress=$3, processed_at=$4
		WHERE id=$1`, id, string(status), progress, processedAt)
	if err != nil {
		return fmt.Errorf("store: update document status: %w", err)
	}
	return nil
}

func (s *PGStore) UpdateDocumentClassification(ctx context.Context, id string, docType DocumentType, manufacturerID, version string, meta DocumentMetadata) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE documents SET document_type=$2, manufacturer_id=NULLIF($3,''), version_string=$4, metadata=$5
		WHERE id=$1`, id, string(docType), manufacturerID, version, metadataJSON(meta))
	if err != nil {
		return fmt.Errorf("store: update document classification: %w", err)
	}
	return nil
}

func (s *PGStore) ResolveManufacturer(ctx context.Context, name, displayName string) (Manufacturer, error) {
	if displayName == "" {
		displayName = name
	}
	m := Manufacturer{ID: uuid.New().String(), Name: name, DisplayName: displayName}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO manufacturers (id, name, display_name)
		VALUES ($1,$2,$3)
		ON CONFLICT (name) DO UPDATE SET name=manufacturers.name
		RETURNING id, name, display_name, COALESCE(country,'')`,
		m.ID, name, displayName)
	if err := row.Scan(&m.ID, &m.Name, &m.DisplayName, &m.Country); err != nil {
		return Manufacturer{}, fmt.Errorf("store: resolve manufacturer: %w", err)
	}
	return m, nil
}

func (s *PGStore) ResolveProduct(ctx context.Context, manufacturerID, modelNumber, displayName, productType string) (Product, error) {
	if displayName == "" {
		displayName = modelNumber
	}
	p := Product{ID: uuid.New().String(), ModelNumber: modelNumber, DisplayName: displayName, ManufacturerID: manufacturerID, ProductType: productType}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO products (id, model_number, display_name, manufacturer_id, product_type)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (model_number, manufacturer_id) DO UPDATE SET model_number=products.model_number
		RETURNING id, model_number, display_name, manufacturer_id, COALESCE(product_type,'')`,
		p.ID, modelNumber, displayName, manufacturerID, productType)
	if err := row.Scan(&p.ID, &p.ModelNumber, &p.DisplayName, &p.ManufacturerID, &p.ProductType); err != nil {
		return Product{}, fmt.Errorf("store: resolve product: %w", err)
	}
	return p, nil
}

// InsertChunks runs in one transaction so a document's chunk set lands
// atomically, per §4.5's per-stage transaction requirement.
func (s *PGStore) InsertChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin chunks tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, c := range chunks {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.ProcessingStatus == "" {
			c.ProcessingStatus = StatusCompleted
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO chunks (id, document_id, chunk_index, page_start, page_end,
			                     text_chunk, token_count, fingerprint, section_title, processing_status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (document_id, chunk_index) DO UPDATE SET text_chunk=EXCLUDED.text_chunk`,
			c.ID, c.DocumentID, c.ChunkIndex, c.PageStart, c.PageEnd,
			c.TextChunk, c.TokenCount, c.Fingerprint, c.SectionTitle, string(c.ProcessingStatus))
		if err != nil {
			return fmt.Errorf("store: insert chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PGStore) InsertImages(ctx context.Context, images []Image) error {
	if len(images) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin images tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, img := range images {
		if img.ID == "" {
			img.ID = uuid.New().String()
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO images (id, document_id, page_number, image_index, storage_url, file_hash,
			                     width, height, colorspace, size_bytes, ai_description)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (document_id, page_number, image_index) DO UPDATE SET storage_url=EXCLUDED.storage_url`,
			img.ID, img.DocumentID, img.PageNumber, img.ImageIndex, img.StorageURL, img.FileHash,
			img.Width, img.Height, img.Colorspace, img.SizeBytes, img.AIDescription)
		if err != nil {
			return fmt.Errorf("store: insert image (page %d, idx %d): %w", img.PageNumber, img.ImageIndex, err)
		}
	}
	return tx.Commit(ctx)
}

// InsertEmbeddings persists one embedding per chunk, transactionally. Vectors
// are serialized via the literal-string path (toVectorLiteral); see
// SimilarChunks for the alternative pgvector-go typed path.
func (s *PGStore) InsertEmbeddings(ctx context.Context, embeddings []Embedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin embeddings tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range embeddings {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO embeddings (id, chunk_id, vector, model_name, model_version, degraded)
			VALUES ($1,$2,$3::vector,$4,$5,$6)
			ON CONFLICT (chunk_id, model_name) DO UPDATE SET vector=EXCLUDED.vector, degraded=EXCLUDED.degraded`,
			e.ID, e.ChunkID, toVectorLiteral(e.Vector), e.ModelName, e.ModelVersion, e.Degraded)
		if err != nil {
			return fmt.Errorf("store: insert embedding for chunk %s: %w", e.ChunkID, err)
		}
	}
	return tx.Commit(ctx)
}

func (s *PGStore) ChunksByDocument(ctx context.Context, documentID string) ([]Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, document_id, chunk_index, page_start, page_end, text_chunk,
		       token_count, fingerprint, COALESCE(section_title,''), processing_status
		FROM chunks WHERE document_id=$1 ORDER BY chunk_index`, documentID)
	if err != nil {
		return nil, fmt.Errorf("store: chunks by document: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ChunkIndex, &c.PageStart, &c.PageEnd,
			&c.TextChunk, &c.TokenCount, &c.Fingerprint, &c.SectionTitle, &c.ProcessingStatus); err != nil {
			return nil, fmt.Errorf("store: scan chunk: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) ExistingEmbeddingChunkIDs(ctx context.Context, documentID, modelName string) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.chunk_id FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		WHERE c.document_id = $1 AND e.model_name = $2`, documentID, modelName)
	if err != nil {
		return nil, fmt.Errorf("store: existing embeddings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan embedding chunk id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// SimilarChunks runs a cosine-distance nearest-neighbor query using
// pgvector-go's typed Vector rather than the raw literal string, so both
// grounded vector encodings are exercised by the adapter.
func (s *PGStore) SimilarChunks(ctx context.Context, queryVector []float32, modelName string, k int) ([]string, error) {
	if k <= 0 {
		k = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id FROM embeddings
		WHERE model_name = $2
		ORDER BY vector <=> $1 LIMIT $3`, vectorTyped(queryVector), modelName, k)
	if err != nil {
		return nil, fmt.Errorf("store: similar chunks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: scan similar chunk: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

var _ Store = (*PGStore)(nil)
