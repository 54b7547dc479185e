package keyword

import (
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/askcampus/askcampus/internal/chat/docstore"
	"github.com/askcampus/askcampus/internal/helpers"
)

// Bonus constants for the overlap score.
const (
	substringBonus = 0.3
	titleBonus     = 0.2
)

// Index is a mem-only BM25 index used as a candidate generator for the
// keyword leg. Candidates are rescored with a term-overlap formula so the
// final keyword similarity is comparable to the semantic leg's [0,1] range.
type Index struct {
	mu    sync.RWMutex
	index bleve.Index
	docs  map[string]docstore.Document
}

func NewIndex() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{index: idx, docs: make(map[string]docstore.Document)}, nil
}

// Add indexes a document's title and content.
func (ix *Index) Add(doc docstore.Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs[doc.ID] = doc
	return ix.index.Index(doc.ID, map[string]string{
		"title":   doc.Title,
		"content": doc.Content,
	})
}

// Len returns the number of indexed documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Search returns up to k keyword results for the query. Failures degrade
// to an empty result set: the keyword leg is optional and must never sink
// the whole retrieval.
func (ix *Index) Search(query string, k int) []docstore.SearchResult {
	if k <= 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	q := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequestOptions(q, k*3, 0, false)
	res, err := ix.index.Search(req)
	if err != nil {
		return nil
	}

	var out []docstore.SearchResult
	for _, hit := range res.Hits {
		doc, ok := ix.docs[hit.ID]
		if !ok {
			continue
		}
		out = append(out, docstore.SearchResult{
			DocumentID: doc.ID,
			Content:    doc.Content,
			Title:      doc.Title,
			SourceURL:  doc.SourceURL,
			Similarity: overlapScore(doc, query),
			SearchType: docstore.SearchTypeKeyword,
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > k {
		out = out[:k]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// overlapScore computes |query terms in doc| / |query terms|, boosted for
// exact substring matches and title overlap, clamped to 1.
func overlapScore(doc docstore.Document, query string) float64 {
	terms := helpers.Tokenize(query)
	if len(terms) == 0 {
		return 0
	}

	contentSet := helpers.TokenSet(doc.Content)
	matched := 0
	for _, term := range terms {
		if _, ok := contentSet[term]; ok {
			matched++
		}
	}
	score := float64(matched) / float64(len(terms))

	if strings.Contains(strings.ToLower(doc.Content), strings.ToLower(strings.TrimSpace(query))) {
		score += substringBonus
	}

	titleSet := helpers.TokenSet(doc.Title)
	for _, term := range terms {
		if _, ok := titleSet[term]; ok {
			score += titleBonus
			break
		}
	}

	if score > 1 {
		score = 1
	}
	return score
}
