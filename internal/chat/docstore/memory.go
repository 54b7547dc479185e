package docstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps documents and vectors in process memory. Suitable for
// small corpora and tests; brute-force cosine over all vectors.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Document)}
}

func (s *MemoryStore) Upsert(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &doc, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs), nil
}

// All returns every stored document; used to feed the keyword index.
func (s *MemoryStore) All(ctx context.Context) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out, nil
}

func (s *MemoryStore) Search(ctx context.Context, embedding []float32, k int, filter map[string]string) ([]SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		doc   Document
		score float64
	}
	var scoreds []scored
	for _, doc := range s.docs {
		if filter != nil {
			if uid, ok := filter["university_id"]; ok && doc.UniversityID != uid {
				continue
			}
		}
		if len(doc.Embedding) == 0 {
			continue
		}
		scoreds = append(scoreds, scored{doc: doc, score: cosine(embedding, doc.Embedding)})
	}
	sort.Slice(scoreds, func(i, j int) bool { return scoreds[i].score > scoreds[j].score })

	var out []SearchResult
	for i, sc := range scoreds {
		if i >= k {
			break
		}
		out = append(out, SearchResult{
			DocumentID: sc.doc.ID,
			Content:    sc.doc.Content,
			Title:      sc.doc.Title,
			SourceURL:  sc.doc.SourceURL,
			Similarity: sc.score,
			Rank:       i + 1,
			SearchType: SearchTypeSemantic,
		})
	}
	return out, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		ai := float64(a[i])
		bi := float64(b[i])
		dot += ai * bi
		na += ai * ai
		nb += bi * bi
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
