package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/askcampus/askcampus/internal/chat/answer"
	"github.com/askcampus/askcampus/internal/chat/confidence"
	"github.com/askcampus/askcampus/internal/chat/contextsel"
	"github.com/askcampus/askcampus/internal/chat/docstore"
	"github.com/askcampus/askcampus/internal/chat/embedcache"
	"github.com/askcampus/askcampus/internal/chat/expand"
	"github.com/askcampus/askcampus/internal/chat/retrieve"
	"github.com/askcampus/askcampus/session/inmemory"
)

type fakeProvider struct {
	mu         sync.Mutex
	completeFn func(prompt string) (string, error)
	embedFn    func(texts []string) ([][]float32, error)
	prompts    []string
}

func (p *fakeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()
	return p.completeFn(prompt)
}

func (p *fakeProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if p.embedFn != nil {
		return p.embedFn(texts)
	}
	vecs := make([][]float32, len(texts))
	for i := range texts {
		vecs[i] = []float32{1, 0, 0}
	}
	return vecs, nil
}

func scorerOptions() confidence.Options {
	return confidence.Options{
		TopSimilarityWeight: 0.35,
		AvgSimilarityWeight: 0.20,
		CoverageWeight:      0.15,
		LengthWeight:        0.10,
		CertaintyWeight:     0.10,
		DiversityWeight:     0.10,
		GoodSimilarity:      0.65,
		FactualThreshold:    0.6,
		OpenEndedThreshold:  0.45,
		MediumBand:          0.15,
	}
}

func newTestEngine(t *testing.T, p *fakeProvider, docs []docstore.Document) (*Engine, *inmemory.Store) {
	t.Helper()

	store := docstore.NewMemoryStore()
	for _, doc := range docs {
		if err := store.Upsert(context.Background(), doc); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}

	cache := embedcache.NewFileCache(t.TempDir() + "/embeddings.json")
	embedder := embedcache.NewEmbedder(cache, p)
	sessions := inmemory.NewStore(time.Hour, 10)

	eng := NewEngine(EngineDeps{
		Expander:  expand.NewExpander(p, 2),
		Retriever: retrieve.NewRetriever(store, embedder, nil, retrieve.Options{SemanticWeight: 0.6, OverlapWeight: 0.4}),
		Assembler: contextsel.NewAssembler(contextsel.Options{SectionMaxChars: 500, ScoreThreshold: 0.3, MaxSections: 5}),
		Generator: answer.NewGenerator(p, 3),
		Scorer:    confidence.NewScorer(scorerOptions()),
		Sessions:  sessions,
		Store:     store,
		Cache:     cache,
		TopK:      5,
	})
	return eng, sessions
}

func tuitionDocs() []docstore.Document {
	return []docstore.Document{
		{
			ID:        "doc-tuition",
			Title:     "Tuition and Fees",
			Content:   "Tuition for the computer science undergraduate program is $54,000 per academic year. Tuition covers all lecture and laboratory courses.",
			SourceURL: "https://example.edu/tuition",
			Embedding: []float32{1, 0, 0},
		},
		{
			ID:        "doc-aid",
			Title:     "Financial Aid",
			Content:   "Financial aid can offset tuition for computer science students. Awards are based on need and merit.",
			SourceURL: "https://example.edu/aid",
			Embedding: []float32{0.95, 0.05, 0},
		},
		{
			ID:        "doc-calendar",
			Title:     "Academic Calendar",
			Content:   "The computer science department follows the standard academic calendar. Tuition payment deadlines fall two weeks before each term.",
			SourceURL: "https://example.edu/calendar",
			Embedding: []float32{0.9, 0.1, 0},
		},
	}
}

const goodAnswer = "Tuition for the computer science undergraduate program is $54,000 per academic year, covering all lecture and laboratory courses. Financial aid awards can offset this amount based on need and merit."

func TestEngineAnswersFromRelevantDocuments(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{completeFn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Rephrase") {
			return "cost of the computer science degree\ncomputer science tuition fees", nil
		}
		return goodAnswer, nil
	}}
	eng, sessions := newTestEngine(t, p, tuitionDocs())

	resp, err := eng.Answer(context.Background(), "How much is tuition for computer science?", "")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if !resp.ShouldShow {
		t.Fatalf("expected answer to be shown, got confidence %.2f", resp.Confidence)
	}
	if resp.Answer != goodAnswer {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}
	if resp.Confidence < 0.6 {
		t.Fatalf("expected confidence above factual threshold, got %.2f", resp.Confidence)
	}
	if len(resp.Sources) == 0 {
		t.Fatal("expected sources for a shown answer")
	}
	if resp.Sources[0].ContentPreview == "" {
		t.Fatal("expected a content preview on the top source")
	}
	if resp.SessionID == "" {
		t.Fatal("expected a generated session id")
	}

	history, err := sessions.Get(resp.SessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(history) != 1 || history[0].Answer != goodAnswer {
		t.Fatalf("expected the turn to be recorded, got %d turns", len(history))
	}
}

func TestEngineRefusesWithoutDocuments(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{completeFn: func(prompt string) (string, error) {
		return "anything", nil
	}}
	eng, _ := newTestEngine(t, p, nil)

	resp, err := eng.Answer(context.Background(), "What clubs can I join?", "")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.ShouldShow {
		t.Fatal("expected no answer without documents")
	}
	if resp.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %.2f", resp.Confidence)
	}
	if !strings.Contains(resp.Answer, "don't have enough information") {
		t.Fatalf("expected an informative refusal, got %q", resp.Answer)
	}
	if !resp.AskFeedback {
		t.Fatal("expected feedback request on refusal")
	}
}

func TestEngineApologizesOnProviderFailure(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{completeFn: func(prompt string) (string, error) {
		return "", errors.New("upstream unavailable")
	}}
	eng, _ := newTestEngine(t, p, tuitionDocs())

	resp, err := eng.Answer(context.Background(), "How much is tuition for computer science?", "")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.Answer != answer.Apology {
		t.Fatalf("expected the apology, got %q", resp.Answer)
	}
	if resp.Confidence != 0 || resp.ShouldShow {
		t.Fatalf("expected hidden zero-confidence response, got %.2f show=%v", resp.Confidence, resp.ShouldShow)
	}
}

func TestEngineGatesLowConfidence(t *testing.T) {
	t.Parallel()

	docs := []docstore.Document{{
		ID:        "doc-offtopic",
		Title:     "Parking Permits",
		Content:   "Parking permits are issued at the facilities office during business hours.",
		SourceURL: "https://example.edu/parking",
		Embedding: []float32{0.3, 0.954, 0},
	}}
	p := &fakeProvider{completeFn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Rephrase") {
			return "", errors.New("skip expansion")
		}
		return "I'm not sure, campus life might be lively.", nil
	}}
	eng, _ := newTestEngine(t, p, docs)

	resp, err := eng.Answer(context.Background(), "What is campus life like?", "")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if resp.ShouldShow {
		t.Fatalf("expected the gate to hold back a weak answer, confidence %.2f", resp.Confidence)
	}
	if !strings.Contains(resp.Answer, "confidence") {
		t.Fatalf("expected the refusal to quote its confidence, got %q", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Fatal("expected no sources on a refusal")
	}
	if !resp.AskFeedback {
		t.Fatal("expected feedback request on refusal")
	}
}

func TestEngineMaintainsSessionHistory(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{completeFn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Rephrase") {
			return "computer science tuition fees", nil
		}
		return goodAnswer, nil
	}}
	eng, sessions := newTestEngine(t, p, tuitionDocs())

	first, err := eng.Answer(context.Background(), "How much is tuition for computer science?", "session-1")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if first.SessionID != "session-1" {
		t.Fatalf("expected the caller's session id, got %q", first.SessionID)
	}

	second, err := eng.Answer(context.Background(), "Does tuition for computer science include fees?", "session-1")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if second.SessionID != "session-1" {
		t.Fatalf("expected the same session id, got %q", second.SessionID)
	}

	history, err := sessions.Get("session-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(history))
	}
	if history[0].Question == history[1].Question {
		t.Fatal("expected distinct questions in history")
	}

	// The second expansion prompt should carry the earlier exchange.
	p.mu.Lock()
	defer p.mu.Unlock()
	var sawHistory bool
	for _, prompt := range p.prompts {
		if strings.Contains(prompt, "Rephrase") && strings.Contains(prompt, "Recent conversation") {
			sawHistory = true
		}
	}
	if !sawHistory {
		t.Fatal("expected the second expansion to include conversation history")
	}
}

func TestEngineGeneratesDistinctSessionIDs(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{completeFn: func(prompt string) (string, error) {
		return goodAnswer, nil
	}}
	eng, _ := newTestEngine(t, p, tuitionDocs())

	a, err := eng.Answer(context.Background(), "How much is tuition for computer science?", "")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	b, err := eng.Answer(context.Background(), "How much is tuition for computer science?", "")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if a.SessionID == "" || a.SessionID == b.SessionID {
		t.Fatalf("expected distinct generated ids, got %q and %q", a.SessionID, b.SessionID)
	}
}

func TestEngineStats(t *testing.T) {
	t.Parallel()

	p := &fakeProvider{completeFn: func(prompt string) (string, error) {
		return goodAnswer, nil
	}}
	eng, _ := newTestEngine(t, p, tuitionDocs())

	if _, err := eng.Answer(context.Background(), "How much is tuition for computer science?", ""); err != nil {
		t.Fatalf("Answer: %v", err)
	}

	stats, err := eng.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Documents != 3 {
		t.Fatalf("expected 3 documents, got %d", stats.Documents)
	}
	if stats.Sessions != 1 {
		t.Fatalf("expected 1 session, got %d", stats.Sessions)
	}
	if stats.CacheSize == 0 {
		t.Fatal("expected the embedding cache to be populated")
	}
}
