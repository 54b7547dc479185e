package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/askcampus/askcampus/internal/chat/docstore"
	"github.com/askcampus/askcampus/internal/chat/embedcache"
	"github.com/askcampus/askcampus/internal/chat/keyword"
)

// LoadFile reads a JSON array of documents from disk. Documents without an
// id are assigned one so re-ingesting the same file stays idempotent only
// when ids are provided.
func LoadFile(path string) ([]docstore.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var docs []docstore.Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	for i := range docs {
		if docs[i].ID == "" {
			docs[i].ID = uuid.NewString()
		}
	}
	return docs, nil
}

// Ingest embeds documents that lack a vector, upserts them into the
// document store and feeds the keyword index. It returns the number of
// documents stored; a document that fails to embed or upsert is skipped
// and logged, not fatal, so one bad record cannot sink a whole corpus.
func Ingest(ctx context.Context, docs []docstore.Document, store docstore.Store, kw *keyword.Index, embedder *embedcache.Embedder) (int, error) {
	logger := log.New(log.Writer(), "[INGEST] ", log.LstdFlags)

	stored := 0
	for _, doc := range docs {
		if doc.Content == "" {
			logger.Printf("skipping %s: empty content", doc.ID)
			continue
		}
		if len(doc.Embedding) == 0 {
			vec, err := embedder.GetOrCompute(ctx, doc.Content)
			if err != nil {
				logger.Printf("skipping %s: embed failed: %v", doc.ID, err)
				continue
			}
			doc.Embedding = vec
		}
		if err := store.Upsert(ctx, doc); err != nil {
			logger.Printf("skipping %s: upsert failed: %v", doc.ID, err)
			continue
		}
		if kw != nil {
			if err := kw.Add(doc); err != nil {
				logger.Printf("keyword index add failed for %s: %v", doc.ID, err)
			}
		}
		stored++
	}

	if stored == 0 && len(docs) > 0 {
		return 0, fmt.Errorf("ingest: none of %d documents could be stored", len(docs))
	}
	logger.Printf("ingested %d/%d documents", stored, len(docs))
	return stored, nil
}
