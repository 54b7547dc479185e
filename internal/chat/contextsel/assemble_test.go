package contextsel

import (
	"strings"
	"testing"

	"github.com/askcampus/askcampus/internal/chat/docstore"
)

func defaultAssembler() *Assembler {
	return NewAssembler(Options{SectionMaxChars: 500, ScoreThreshold: 0.3, MaxSections: 5})
}

func TestAssembleSelectsRelevantSections(t *testing.T) {
	t.Parallel()
	a := defaultAssembler()
	results := []docstore.SearchResult{
		{
			Title:   "Tuition and Fees",
			Content: "Tuition cost is 30000 dollars per year. The campus has a large library. Parking permits are sold separately.",
		},
		{
			Title:   "Athletics",
			Content: "The basketball team plays on Fridays. Season tickets go on sale in August.",
		},
	}

	ctx := a.Assemble(results, "What is the tuition cost?")
	if ctx == "" {
		t.Fatalf("expected non-empty context")
	}
	if !strings.Contains(ctx, "[Tuition and Fees]") {
		t.Fatalf("sections must be prefixed with their source title: %q", ctx)
	}
	if !strings.Contains(ctx, "Tuition cost is 30000") {
		t.Fatalf("relevant sentence missing from context: %q", ctx)
	}
	if strings.Contains(ctx, "basketball") {
		t.Fatalf("irrelevant section leaked into context: %q", ctx)
	}
}

func TestAssembleEmptyWhenNothingClearsThreshold(t *testing.T) {
	t.Parallel()
	a := defaultAssembler()
	results := []docstore.SearchResult{
		{Title: "Athletics", Content: "The basketball team plays on Fridays."},
	}
	if ctx := a.Assemble(results, "What is the tuition cost?"); ctx != "" {
		t.Fatalf("expected empty context, got %q", ctx)
	}
}

func TestAssembleEmptyForStopwordOnlyQuestion(t *testing.T) {
	t.Parallel()
	a := defaultAssembler()
	results := []docstore.SearchResult{
		{Title: "Anything", Content: "Some content here."},
	}
	if ctx := a.Assemble(results, "what is the"); ctx != "" {
		t.Fatalf("question with no key terms must yield empty context")
	}
}

func TestAssembleCapsSections(t *testing.T) {
	t.Parallel()
	a := NewAssembler(Options{SectionMaxChars: 500, ScoreThreshold: 0.3, MaxSections: 2})
	var results []docstore.SearchResult
	for i := 0; i < 6; i++ {
		results = append(results, docstore.SearchResult{
			Title:   "Doc",
			Content: "Tuition cost information appears in this sentence.",
		})
	}
	ctx := a.Assemble(results, "tuition cost")
	if got := strings.Count(ctx, "[Doc]"); got != 2 {
		t.Fatalf("expected 2 sections, got %d", got)
	}
}

func TestSplitRespectsSectionCap(t *testing.T) {
	t.Parallel()
	a := NewAssembler(Options{SectionMaxChars: 60, ScoreThreshold: 0.3, MaxSections: 5})
	content := "First sentence about tuition. Second sentence about tuition. Third sentence about tuition."
	sections := a.split(content)
	if len(sections) < 2 {
		t.Fatalf("expected content split into multiple sections, got %d", len(sections))
	}
	for _, s := range sections {
		if len(s) > 70 {
			t.Fatalf("section exceeds cap: %q", s)
		}
	}
}

func TestAssembleOrdersByScore(t *testing.T) {
	t.Parallel()
	a := defaultAssembler()
	results := []docstore.SearchResult{
		{Title: "Partial", Content: "The tuition office is in building two."},
		{Title: "Full", Content: "Tuition cost and deadline details are published yearly."},
	}
	ctx := a.Assemble(results, "tuition cost deadline")
	fullIdx := strings.Index(ctx, "[Full]")
	partialIdx := strings.Index(ctx, "[Partial]")
	if fullIdx == -1 {
		t.Fatalf("high-scoring section missing: %q", ctx)
	}
	if partialIdx != -1 && fullIdx > partialIdx {
		t.Fatalf("sections must be ordered by score descending: %q", ctx)
	}
}
