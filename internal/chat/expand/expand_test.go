package expand

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/askcampus/askcampus/session"
)

type scriptedProvider struct {
	response string
	err      error
	prompts  []string
}

func (p *scriptedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	p.prompts = append(p.prompts, prompt)
	return p.response, p.err
}

func (p *scriptedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

func TestExpandParsesNumberedLines(t *testing.T) {
	t.Parallel()
	prov := &scriptedProvider{response: "1. How much is tuition?\n2) What does enrollment cost?\n- Annual cost of attendance?"}
	e := NewExpander(prov, 3)

	got := e.Expand(context.Background(), "What is the tuition cost?", nil)
	if len(got) != 4 {
		t.Fatalf("expected original + 3 alternatives, got %d: %v", len(got), got)
	}
	if got[0] != "What is the tuition cost?" {
		t.Fatalf("first element must be the original question, got %q", got[0])
	}
	if got[1] != "How much is tuition?" || got[2] != "What does enrollment cost?" {
		t.Fatalf("numbering not stripped: %v", got)
	}
}

func TestExpandFallsBackOnLLMFailure(t *testing.T) {
	t.Parallel()
	prov := &scriptedProvider{err: errors.New("timeout")}
	e := NewExpander(prov, 3)

	got := e.Expand(context.Background(), "What is the tuition cost?", nil)
	if len(got) != 1 || got[0] != "What is the tuition cost?" {
		t.Fatalf("expected exactly [original] on failure, got %v", got)
	}
}

func TestExpandDiscardsEchoesAndPads(t *testing.T) {
	t.Parallel()
	prov := &scriptedProvider{response: "What is the tuition cost?\nHow much is tuition?"}
	e := NewExpander(prov, 3)

	got := e.Expand(context.Background(), "What is the tuition cost?", nil)
	if len(got) != 4 {
		t.Fatalf("expected padding to 4 queries, got %d: %v", len(got), got)
	}
	if got[1] != "How much is tuition?" {
		t.Fatalf("echo of original should be discarded: %v", got)
	}
	if got[2] != "What is the tuition cost?" || got[3] != "What is the tuition cost?" {
		t.Fatalf("missing alternatives should pad with the original: %v", got)
	}
}

func TestExpandIncludesRecentHistoryOnly(t *testing.T) {
	t.Parallel()
	prov := &scriptedProvider{response: "alt one\nalt two\nalt three"}
	e := NewExpander(prov, 3)

	history := []session.Turn{
		{Question: "oldest question", Answer: "oldest answer"},
		{Question: "q2", Answer: "a2"},
		{Question: "q3", Answer: "a3"},
		{Question: "q4", Answer: "a4"},
	}
	e.Expand(context.Background(), "follow up?", history)

	if len(prov.prompts) != 1 {
		t.Fatalf("expected one LLM call")
	}
	prompt := prov.prompts[0]
	if strings.Contains(prompt, "oldest question") {
		t.Fatalf("prompt should only carry the last 3 turns")
	}
	if !strings.Contains(prompt, "q2") || !strings.Contains(prompt, "q4") {
		t.Fatalf("prompt missing recent turns: %s", prompt)
	}
}

func TestExpandZeroAlternativesSkipsLLM(t *testing.T) {
	t.Parallel()
	prov := &scriptedProvider{response: "should not be called"}
	e := NewExpander(prov, 0)

	got := e.Expand(context.Background(), "question", nil)
	if len(got) != 1 {
		t.Fatalf("expected [original], got %v", got)
	}
	if len(prov.prompts) != 0 {
		t.Fatalf("LLM must not be called when expansion is disabled")
	}
}
