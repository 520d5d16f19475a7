// Package pipeline drives the per-document ingestion stage sequence (C11):
// upload_check through finalize, with stage-level progress reporting,
// bounded concurrency, and per-stage failure semantics, per §4.11/§5.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docingest/internal/classify"
	"docingest/internal/chunker"
	"docingest/internal/codes"
	"docingest/internal/config"
	"docingest/internal/modelgateway"
	"docingest/internal/objectstore"
	"docingest/internal/observability"
	"docingest/internal/patterns"
	"docingest/internal/pdfextract"
	"docingest/internal/progress"
	"docingest/internal/store"
)

// Pipeline is the C11 orchestrator: one instance per process, shared across
// concurrent Process calls.
type Pipeline struct {
	store    store.Store
	objects  objectstore.ObjectStore
	gateway  *modelgateway.Gateway
	patterns *patterns.Store
	cfg      config.PipelineConfig
	buckets  config.S3Config
	tracker  *progress.Tracker
	stats    *progress.Stats

	mode      modeConfig
	docSem    chan struct{}
	chunkConc int
}

// New constructs a Pipeline for the execution mode named in cfg.ExecutionMode.
// An unrecognized mode is a construction-time error (fail-fast, matching C1's
// own validation posture).
func New(st store.Store, objects objectstore.ObjectStore, gw *modelgateway.Gateway, pstore *patterns.Store,
	cfg config.PipelineConfig, buckets config.S3Config, tracker *progress.Tracker, stats *progress.Stats) (*Pipeline, error) {

	mode, err := stagesForMode(cfg.ExecutionMode)
	if err != nil {
		return nil, err
	}
	if tracker == nil {
		tracker = progress.NewTracker(nil)
	}
	if stats == nil {
		stats = &progress.Stats{}
	}

	maxDocs := cfg.MaxConcurrentDocuments
	if maxDocs <= 0 {
		maxDocs = 3
	}
	chunkConc := cfg.MaxConcurrentChunks
	if chunkConc <= 0 {
		chunkConc = 10
	}

	return &Pipeline{
		store: st, objects: objects, gateway: gw, patterns: pstore,
		cfg: cfg, buckets: buckets, tracker: tracker, stats: stats,
		mode: mode, docSem: make(chan struct{}, maxDocs), chunkConc: chunkConc,
	}, nil
}

// Stats returns a snapshot of the process-wide counters.
func (p *Pipeline) Stats() progress.Snapshot { return p.stats.Snapshot() }

func stageTimeout(cfg config.PipelineConfig) time.Duration {
	if cfg.StageTimeout > 0 {
		return cfg.StageTimeout
	}
	return 10 * time.Minute
}

// withStageTimeout derives a per-stage deadline from the document's context,
// per §5's soft per-stage timeout. Stages that only touch in-process data
// (classification, chunking) don't need it; stages that call out to the
// object store or the model runtime do.
func (p *Pipeline) withStageTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, stageTimeout(p.cfg))
}

// Process runs the full stage sequence for one document's bytes and
// filename, admission-controlled by max_concurrent_documents.
func (p *Pipeline) Process(ctx context.Context, data []byte, filename string) Result {
	select {
	case p.docSem <- struct{}{}:
	case <-ctx.Done():
		return Result{Outcome: OutcomeError, Err: &StageError{Stage: StageUploadCheck.String(), Kind: "canceled", Message: ctx.Err().Error()}}
	}
	defer func() { <-p.docSem }()

	documentID := uuid.New().String()
	defer p.tracker.Forget(documentID)

	log := observability.LoggerWithTrace(ctx).With().Str("document_id", documentID).Str("file_name", filename).Logger()

	// Stage 1: upload_check.
	p.report(documentID, StageUploadCheck, 0, "hashing")
	hash := sha256Hex(data)
	existing, found, err := p.store.FindDocumentByHash(ctx, hash)
	if err != nil {
		p.stats.IncDocumentsFailed()
		return p.fail(StageUploadCheck, "store_error", err, "")
	}
	if found {
		log.Info().Str("existing_document_id", existing.ID).Msg("duplicate document, skipping ingestion")
		p.stats.IncDocumentsDuplicate()
		return Result{Outcome: OutcomeDuplicate, ExistingDocumentID: existing.ID}
	}

	// Stage 2: upload_document.
	p.report(documentID, StageUploadDocument, 10, "uploading to object store")
	uploadCtx, cancel := p.withStageTimeout(ctx)
	upload, err := objectstore.UploadContentAddressed(uploadCtx, p.objects, data, filepath.Ext(filename), "application/pdf")
	cancel()
	if err != nil {
		p.stats.IncDocumentsFailed()
		return p.fail(StageUploadDocument, "upload_error", err, "")
	}
	storageURL := p.urlFor(p.buckets.DocumentsBucket, upload.Key)

	// Stage 3: extract_content.
	p.report(documentID, StageExtractContent, 25, "extracting text and images")
	extracted, err := pdfextract.Extract(data)
	if err != nil {
		p.stats.IncDocumentsFailed()
		return p.fail(StageExtractContent, "extract_error", err, "")
	}
	for _, w := range extracted.Warnings {
		log.Warn().Str("stage", "extract_content").Msg(w)
	}

	snap := p.patterns.Snapshot()

	// Stage 4: process_images.
	var images []store.Image
	imagesOK, imagesFailed := 0, 0
	if p.mode.stages.has(StageProcessImages) {
		p.report(documentID, StageProcessImages, 35, fmt.Sprintf("processing %d images", len(extracted.Images)))
		imgCtx, cancel := p.withStageTimeout(ctx)
		images, imagesOK, imagesFailed = p.processImages(imgCtx, documentID, extracted.Images)
		cancel()
	}
	p.stats.AddImagesProcessed(imagesOK)
	p.stats.AddImagesFailed(imagesFailed)

	// Stage 5: classify_document.
	var classification classify.Result
	if p.mode.stages.has(StageClassifyDocument) {
		p.report(documentID, StageClassifyDocument, 50, "classifying document")
		classification = classify.Classify(filename, extracted.Text, snap)
	} else {
		classification = classify.Result{DocumentType: string(store.DocTypeUnknown), Manufacturer: ""}
	}

	// Stage 6: extract_metadata (version + models already computed by
	// Classify; this stage additionally runs the error-code/part-number
	// extractor (C9), which has no stage of its own in §4.11's numbered
	// list).
	meta := store.DocumentMetadata{
		Models:                 classification.Models,
		Series:                 classification.Series.DetectedSeries,
		ManufacturerConfidence: classification.ManufacturerConfidence,
		DocumentTypeConfidence: classification.DocumentTypeConfidence,
		VersionConfidence:      classification.VersionConfidence,
		HybridConfidence:       classification.HybridConfidence,
	}
	if p.mode.stages.has(StageExtractMetadata) {
		p.report(documentID, StageExtractMetadata, 58, "extracting codes and part numbers")
		meta.ErrorCodes = toMetadataCodes(codes.ExtractErrorCodes(extracted.Text, classification.Manufacturer, snap))
		meta.PartNumbers = toMetadataCodes(codes.ExtractPartNumbers(extracted.Text, classification.Manufacturer, snap))
	}

	// Stage 7: store_document.
	p.report(documentID, StageStoreDocument, 65, "persisting document row")
	storeCtx, cancel := p.withStageTimeout(ctx)
	defer cancel()
	var manufacturerID string
	if classification.Manufacturer != "" {
		m, err := p.store.ResolveManufacturer(storeCtx, classification.Manufacturer, "")
		if err != nil {
			p.stats.IncDocumentsFailed()
			return p.fail(StageStoreDocument, "store_error", err, "")
		}
		manufacturerID = m.ID
		for _, model := range classification.Models {
			if _, err := p.store.ResolveProduct(storeCtx, manufacturerID, model, "", ""); err != nil {
				log.Warn().Err(err).Str("model", model).Msg("failed to resolve product, continuing")
			}
		}
	}

	doc := store.Document{
		ID: documentID, FileName: filename, FileHash: hash, StorageURL: storageURL,
		SizeBytes: int64(len(data)), TotalPages: extracted.Pages,
		DocumentType: store.DocumentType(classification.DocumentType), ManufacturerID: manufacturerID,
		ProcessingStatus: store.StatusProcessing, VersionString: classification.Version, Metadata: meta,
	}
	doc, err = p.store.InsertDocument(storeCtx, doc)
	if err != nil {
		p.stats.IncDocumentsFailed()
		return p.fail(StageStoreDocument, "store_error", err, "")
	}
	for i := range images {
		images[i].DocumentID = doc.ID
	}
	if err := p.store.InsertImages(storeCtx, images); err != nil {
		p.stats.IncDocumentsFailed()
		return p.fail(StageStoreDocument, "store_error", err, "")
	}

	// Stage 8: process_chunks.
	var chunkRows []store.Chunk
	if p.mode.stages.has(StageProcessChunks) {
		p.report(documentID, StageProcessChunks, 75, "chunking text")
		rawChunks := chunker.Chunk(extracted.Text, string(doc.DocumentType), classification.Manufacturer, snap)
		chunkRows = make([]store.Chunk, len(rawChunks))
		for i, c := range rawChunks {
			chunkRows[i] = store.Chunk{
				DocumentID: doc.ID, ChunkIndex: c.ChunkIndex, PageStart: c.PageStart, PageEnd: c.PageEnd,
				TextChunk: c.Text, TokenCount: c.TokenCount, Fingerprint: c.Fingerprint,
				SectionTitle: c.SectionTitle, ProcessingStatus: store.StatusCompleted,
			}
		}
		if err := p.store.InsertChunks(ctx, chunkRows); err != nil {
			p.stats.IncDocumentsFailed()
			_ = p.store.UpdateDocumentStatus(ctx, doc.ID, store.StatusFailed, doc.ProcessingProgress, nil)
			return p.fail(StageProcessChunks, "chunk_error", err, "")
		}
		p.stats.AddChunksCreated(len(chunkRows))
	}

	// Stage 9: generate_embeddings.
	embeddingsCreated, embeddingsDegraded, skipped := 0, 0, false
	if p.mode.stages.has(StageGenerateEmbeddings) && p.gateway != nil && len(chunkRows) > 0 {
		p.report(documentID, StageGenerateEmbeddings, 88, fmt.Sprintf("embedding %d chunks", len(chunkRows)))
		embedCtx, cancel := p.withStageTimeout(ctx)
		defer cancel()
		persisted, err := p.store.ChunksByDocument(embedCtx, doc.ID)
		if err != nil {
			p.stats.IncDocumentsFailed()
			return p.fail(StageGenerateEmbeddings, "store_error", err, "")
		}
		modelName := p.gateway.EmbeddingModelName()
		existing, err := p.store.ExistingEmbeddingChunkIDs(embedCtx, doc.ID, modelName)
		if err != nil {
			p.stats.IncDocumentsFailed()
			return p.fail(StageGenerateEmbeddings, "store_error", err, "")
		}
		if len(existing) == len(persisted) && len(persisted) > 0 {
			skipped = true
			p.stats.AddEmbeddingsSkipped(len(persisted))
		} else {
			embeddingsCreated, embeddingsDegraded, err = p.generateEmbeddings(embedCtx, persisted)
			if err != nil {
				// Per-chunk failures degrade; only a hard transport/store
				// error at the batch level reaches here.
				log.Warn().Err(err).Msg("embedding generation encountered errors")
			}
			p.stats.AddEmbeddingsCreated(embeddingsCreated)
			p.stats.AddEmbeddingsDegraded(embeddingsDegraded)
		}
	}

	// Stage 10: finalize.
	now := time.Now()
	if err := p.store.UpdateDocumentStatus(ctx, doc.ID, store.StatusCompleted, 100, &now); err != nil {
		return p.fail(StageFinalize, "store_error", err, "document ingested but finalize failed; a supervisor may retry")
	}
	p.report(documentID, StageFinalize, 100, "completed")
	p.stats.IncDocumentsProcessed()

	return Result{
		Outcome: OutcomeSuccess, DocumentID: doc.ID,
		ChunksCreated: len(chunkRows), EmbeddingsCreated: embeddingsCreated,
		EmbeddingsDegraded: embeddingsDegraded, EmbeddingsSkipped: skipped,
		ImagesProcessed: imagesOK, ImagesFailed: imagesFailed,
	}
}

func (p *Pipeline) report(documentID string, stage Stage, percent int, detail string) {
	p.tracker.Report(progress.Event{DocumentID: documentID, Stage: stage.String(), Percent: percent, Detail: detail})
}

func (p *Pipeline) fail(stage Stage, kind string, err error, hint string) Result {
	return Result{Outcome: OutcomeError, Err: &StageError{Stage: stage.String(), Kind: kind, Message: err.Error(), Hint: hint}}
}

func (p *Pipeline) urlFor(bucket, key string) string {
	if p.buckets.Endpoint != "" {
		return strings.TrimRight(p.buckets.Endpoint, "/") + "/" + bucket + "/" + key
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func toMetadataCodes(in any) []store.MetadataCode {
	switch v := in.(type) {
	case []codes.ErrorCode:
		out := make([]store.MetadataCode, len(v))
		for i, c := range v {
			out[i] = store.MetadataCode{Code: c.Code, Description: c.Description, Category: c.Category}
		}
		return out
	case []codes.PartNumber:
		out := make([]store.MetadataCode, len(v))
		for i, c := range v {
			out[i] = store.MetadataCode{Code: c.PartNumber, Description: c.Description, Category: c.Category, Models: c.Models}
		}
		return out
	default:
		return nil
	}
}

// processImages fans image analysis/upload out up to chunkConc at a time,
// collecting results into a pre-sized slice so insertion order matches
// (page_number, image_index) regardless of completion order, per §5.
func (p *Pipeline) processImages(ctx context.Context, documentID string, imgs []pdfextract.Image) ([]store.Image, int, int) {
	out := make([]store.Image, len(imgs))
	ok := make([]bool, len(imgs))

	sem := make(chan struct{}, p.chunkConc)
	var wg sync.WaitGroup
	var seenMu sync.Mutex
	seen := make(map[string]bool)

	for i, img := range imgs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, img pdfextract.Image) {
			defer wg.Done()
			defer func() { <-sem }()

			hash := sha256Hex(img.Bytes)
			seenMu.Lock()
			dup := seen[hash]
			seen[hash] = true
			seenMu.Unlock()
			if dup {
				return
			}

			var description string
			if p.mode.vision && p.gateway != nil {
				text, err := p.gateway.Vision(ctx, "Describe the contents of this technical diagram or photo in one sentence.", img.Bytes, modelgateway.GenerateOptions{})
				if err == nil {
					description = text
				}
			}

			ext := ".png"
			if img.Colorspace == "jpeg" || img.Colorspace == "jpg" {
				ext = ".jpg"
			}
			upload, err := objectstore.UploadContentAddressed(ctx, p.objects, img.Bytes, ext, "image/"+strings.TrimPrefix(ext, "."))
			if err != nil {
				return
			}

			out[i] = store.Image{
				DocumentID: documentID, PageNumber: img.Page, ImageIndex: img.Index,
				StorageURL: p.urlFor(p.buckets.ImagesBucket, upload.Key), FileHash: hash,
				Width: img.Width, Height: img.Height, Colorspace: img.Colorspace,
				SizeBytes: int64(len(img.Bytes)), AIDescription: description,
			}
			ok[i] = true
		}(i, img)
	}
	wg.Wait()

	result := make([]store.Image, 0, len(out))
	okCount, failCount := 0, 0
	for i, o := range out {
		if ok[i] {
			result = append(result, o)
			okCount++
		} else if imgs[i].Bytes != nil {
			failCount++
		}
	}
	return result, okCount, failCount
}

// generateEmbeddings fans out per-chunk embedding calls up to chunkConc,
// collects results in chunk order via a pre-sized slice, then inserts as
// one batch so embedding insertion order matches chunk order, per §5.
func (p *Pipeline) generateEmbeddings(ctx context.Context, chunks []store.Chunk) (created, degraded int, err error) {
	results := make([]modelgateway.EmbedResult, len(chunks))
	sem := make(chan struct{}, p.chunkConc)
	var wg sync.WaitGroup

	for i, c := range chunks {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }()
			res, embErr := p.gateway.Embed(ctx, text)
			if embErr != nil {
				res = modelgateway.EmbedResult{Vector: make([]float32, p.gateway.EmbeddingDim()), Degraded: true}
			}
			results[i] = res
		}(i, c.TextChunk)
	}
	wg.Wait()

	embeddings := make([]store.Embedding, 0, len(chunks))
	for i, c := range chunks {
		r := results[i]
		if !p.cfg.PersistDegraded && r.Degraded {
			continue
		}
		embeddings = append(embeddings, store.Embedding{
			ChunkID: c.ID, Vector: r.Vector, ModelName: modelNameOrDefault(r.ModelName, p.gateway),
			Degraded: r.Degraded,
		})
		if r.Degraded {
			degraded++
		} else {
			created++
		}
	}
	if err := p.store.InsertEmbeddings(ctx, embeddings); err != nil {
		return created, degraded, err
	}
	return created, degraded, nil
}

func modelNameOrDefault(name string, gw *modelgateway.Gateway) string {
	if name != "" {
		return name
	}
	return gw.EmbeddingModelName()
}
