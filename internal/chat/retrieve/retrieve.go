package retrieve

import (
	"context"
	"log"
	"sort"
	"sync"

	"github.com/askcampus/askcampus/internal/chat/docstore"
	"github.com/askcampus/askcampus/internal/chat/embedcache"
	"github.com/askcampus/askcampus/internal/chat/keyword"
	"github.com/askcampus/askcampus/internal/helpers"
)

// Options tunes the hybrid retriever.
type Options struct {
	// SemanticWeight and OverlapWeight blend vector similarity with
	// question-term overlap in the final reranking score.
	SemanticWeight float64
	OverlapWeight  float64
	// Parallel fans the expanded queries out concurrently.
	Parallel   bool
	MaxWorkers int
}

// Retriever merges semantic and keyword search across expanded queries.
type Retriever struct {
	store    docstore.Store
	embedder *embedcache.Embedder
	keyword  *keyword.Index // nil disables the keyword leg
	opts     Options
	logger   *log.Logger
}

func NewRetriever(store docstore.Store, embedder *embedcache.Embedder, kw *keyword.Index, opts Options) *Retriever {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 4
	}
	return &Retriever{
		store:    store,
		embedder: embedder,
		keyword:  kw,
		opts:     opts,
		logger:   log.New(log.Writer(), "[RETRIEVE] ", log.LstdFlags),
	}
}

// Retrieve runs both search legs for every expanded query, deduplicates by
// document id keeping the best similarity, reranks against the original
// question and returns the top k. Zero results across all queries yields
// an empty slice; callers treat that as "no answer possible".
func (r *Retriever) Retrieve(ctx context.Context, queries []string, originalQuestion string, k int) []docstore.SearchResult {
	if k <= 0 || len(queries) == 0 {
		return nil
	}

	var mu sync.Mutex
	best := make(map[string]docstore.SearchResult)

	merge := func(results []docstore.SearchResult) {
		mu.Lock()
		defer mu.Unlock()
		for _, res := range results {
			prev, seen := best[res.DocumentID]
			if !seen || res.Similarity > prev.Similarity {
				best[res.DocumentID] = res
			}
		}
	}

	runQuery := func(q string) {
		merge(r.semanticLeg(ctx, q, k))
		if r.keyword != nil {
			merge(r.keyword.Search(q, k))
		}
	}

	// Expanded queries often repeat the original as padding; searching a
	// query twice buys nothing.
	seen := make(map[string]struct{}, len(queries))
	var unique []string
	for _, q := range queries {
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		unique = append(unique, q)
	}

	if r.opts.Parallel && len(unique) > 1 {
		sem := make(chan struct{}, r.opts.MaxWorkers)
		var wg sync.WaitGroup
		for _, q := range unique {
			wg.Add(1)
			sem <- struct{}{}
			go func(q string) {
				defer wg.Done()
				defer func() { <-sem }()
				runQuery(q)
			}(q)
		}
		wg.Wait()
	} else {
		for _, q := range unique {
			runQuery(q)
		}
	}

	if len(best) == 0 {
		return nil
	}
	return r.rerank(best, originalQuestion, k)
}

// semanticLeg embeds the query through the cache and over-fetches 2k
// candidates for reranking headroom. Failures degrade to no results.
func (r *Retriever) semanticLeg(ctx context.Context, query string, k int) []docstore.SearchResult {
	vec, err := r.embedder.GetOrCompute(ctx, query)
	if err != nil {
		r.logger.Printf("embedding failed for query %q: %v", helpers.Snippet(query, 80), err)
		return nil
	}
	results, err := r.store.Search(ctx, vec, 2*k, nil)
	if err != nil {
		r.logger.Printf("semantic search failed for query %q: %v", helpers.Snippet(query, 80), err)
		return nil
	}
	return results
}

// rerank blends stored similarity with term overlap against the original
// question. Using the original question, not the expansions, keeps the
// ranking anchored to user intent.
func (r *Retriever) rerank(best map[string]docstore.SearchResult, originalQuestion string, k int) []docstore.SearchResult {
	type scored struct {
		res   docstore.SearchResult
		final float64
	}
	items := make([]scored, 0, len(best))
	for _, res := range best {
		overlap := helpers.TermOverlap(res.Content, originalQuestion)
		final := res.Similarity*r.opts.SemanticWeight + overlap*r.opts.OverlapWeight
		items = append(items, scored{res: res, final: final})
	}

	sort.SliceStable(items, func(i, j int) bool { return items[i].final > items[j].final })
	if len(items) > k {
		items = items[:k]
	}

	out := make([]docstore.SearchResult, 0, len(items))
	for i, item := range items {
		res := item.res
		res.Rank = i + 1
		res.SearchType = docstore.SearchTypeCombined
		out = append(out, res)
	}
	return out
}
