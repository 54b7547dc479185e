package docstore

import (
	"context"
)

// SearchType tags which retrieval leg produced a result.
const (
	SearchTypeSemantic = "semantic"
	SearchTypeKeyword  = "keyword"
	SearchTypeCombined = "combined"
)

// Document is an immutable record owned by the document store. Edits are
// modelled as new documents with new ids.
type Document struct {
	ID           string            `json:"id"`
	Content      string            `json:"content"`
	Title        string            `json:"title"`
	SourceURL    string            `json:"source_url"`
	UniversityID string            `json:"university_id"`
	Embedding    []float32         `json:"embedding,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// SearchResult is an ephemeral per-query projection of a stored document.
type SearchResult struct {
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Title      string  `json:"title"`
	SourceURL  string  `json:"source_url"`
	Similarity float64 `json:"similarity"`
	Rank       int     `json:"rank"`
	SearchType string  `json:"search_type"`
}

// SourceRef is a display-oriented projection of a document, attached to
// answers for attribution.
type SourceRef struct {
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	Similarity     float64 `json:"similarity"`
	ContentPreview string  `json:"content_preview"`
}

// Store is the document store consumed by the retrieval pipeline.
type Store interface {
	// Search runs nearest-neighbor search over document embeddings and
	// returns up to k results ordered by similarity descending.
	Search(ctx context.Context, embedding []float32, k int, filter map[string]string) ([]SearchResult, error)

	// Get returns the document with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Document, error)

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Upsert stores a document with its embedding.
	Upsert(ctx context.Context, doc Document) error
}
