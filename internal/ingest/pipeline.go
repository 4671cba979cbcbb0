// Package ingest turns an uploaded PDF into queryable vector chunks and
// drives the document's ingestion status.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/bull/pdfchat-server/internal/pdftext"
	"github.com/bull/pdfchat-server/internal/store"
	"github.com/bull/pdfchat-server/internal/vectordb"
)

// Fetcher downloads a document's raw bytes from its storage URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor parses PDF bytes into per-page text.
type Extractor interface {
	ExtractPages(data []byte) ([]pdftext.Page, error)
}

// Embedder turns page texts into vectors.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorWriter stores chunks in, and purges, a document's namespace.
type VectorWriter interface {
	UpsertChunks(ctx context.Context, chunks []vectordb.Chunk) error
	DeleteNamespace(ctx context.Context, documentID string) error
}

// StatusStore records the document's terminal ingestion status.
type StatusStore interface {
	SetStatus(ctx context.Context, id string, status store.UploadStatus) error
}

// Pipeline orchestrates fetching, extraction, embedding, and upsert for one
// document and flips the document's status to exactly one of SUCCESS or FAILED.
type Pipeline struct {
	fetcher   Fetcher
	extractor Extractor
	embedder  Embedder
	vectors   VectorWriter
	statuses  StatusStore
	logger    *slog.Logger
}

// NewPipeline creates an ingestion pipeline with the given components.
func NewPipeline(
	fetcher Fetcher,
	extractor Extractor,
	embedder Embedder,
	vectors VectorWriter,
	statuses StatusStore,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		embedder:  embedder,
		vectors:   vectors,
		statuses:  statuses,
		logger:    logger,
	}
}

// Ingest runs the full pipeline for one document. Any failure marks the
// document FAILED and purges whatever chunks were written, so a failed
// ingestion never leaves a partially populated namespace behind. The error
// return is informational; callers running Ingest in the background can log
// it and move on, since the status row is the durable outcome.
func (p *Pipeline) Ingest(ctx context.Context, doc *store.Document) error {
	start := time.Now()
	p.logger.Info("starting ingestion", "document", doc.ID, "name", doc.Name)

	chunkCount, err := p.run(ctx, doc)
	if err != nil {
		p.logger.Warn("ingestion failed", "document", doc.ID, "error", err)

		// Partial chunks must never survive a failed attempt.
		if purgeErr := p.vectors.DeleteNamespace(ctx, doc.ID); purgeErr != nil {
			p.logger.Error("failed to purge namespace", "document", doc.ID, "error", purgeErr)
		}
		if statusErr := p.statuses.SetStatus(ctx, doc.ID, store.StatusFailed); statusErr != nil {
			p.logger.Error("failed to record FAILED status", "document", doc.ID, "error", statusErr)
		}
		return err
	}

	if err := p.statuses.SetStatus(ctx, doc.ID, store.StatusSuccess); err != nil {
		p.logger.Error("failed to record SUCCESS status", "document", doc.ID, "error", err)
		return fmt.Errorf("record status: %w", err)
	}

	p.logger.Info("ingestion complete",
		"document", doc.ID,
		"chunks", chunkCount,
		"duration", time.Since(start),
	)
	return nil
}

// run performs the fallible stages and returns the number of chunks written.
func (p *Pipeline) run(ctx context.Context, doc *store.Document) (int, error) {
	data, err := p.fetcher.Fetch(ctx, doc.URL)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}
	p.logger.Debug("fetched document", "document", doc.ID, "size", len(data))

	pages, err := p.extractor.ExtractPages(data)
	if err != nil {
		return 0, fmt.Errorf("extract: %w", err)
	}
	p.logger.Debug("extracted pages", "document", doc.ID, "pages", len(pages))

	texts := make([]string, len(pages))
	for i, page := range pages {
		texts[i] = page.Text
	}

	embeddings, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	if len(embeddings) != len(pages) {
		return 0, fmt.Errorf("embed: got %d vectors for %d pages", len(embeddings), len(pages))
	}

	chunks := make([]vectordb.Chunk, len(pages))
	for i, page := range pages {
		chunks[i] = vectordb.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Page:       page.Number,
			Text:       page.Text,
			Embedding:  embeddings[i],
		}
	}

	if err := p.vectors.UpsertChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}

	return len(chunks), nil
}
