package vectordb

// Chunk is one page of a document together with its embedding vector.
// Chunks are write-once at ingestion and read-only at query time.
type Chunk struct {
	ID         string    // UUID
	DocumentID string    // Namespace: the owning document's id
	Page       int       // 1-based page number in the source PDF
	Text       string    // Extracted page text
	Embedding  []float32 // 1536-dim vector (text-embedding-3-small)
}

// ScoredChunk is a search hit with its similarity score.
type ScoredChunk struct {
	Chunk Chunk
	Score float32
}

// CollectionName is the single Qdrant collection holding all page chunks.
// Per-document isolation is a payload filter on document_id, not separate
// collections.
const CollectionName = "pdf_chunks"

// VectorDimension is the embedding size for text-embedding-3-small.
const VectorDimension = 1536
