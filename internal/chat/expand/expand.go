package expand

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/askcampus/askcampus/internal/helpers"
	"github.com/askcampus/askcampus/provider"
	"github.com/askcampus/askcampus/session"
)

const historyTurns = 3

// Expander widens retrieval recall by asking the LLM for alternative
// phrasings of the user's question.
type Expander struct {
	provider provider.Provider
	maxAlts  int
	logger   *log.Logger
}

func NewExpander(p provider.Provider, maxAlts int) *Expander {
	return &Expander{
		provider: p,
		maxAlts:  maxAlts,
		logger:   log.New(log.Writer(), "[EXPAND] ", log.LstdFlags),
	}
}

// Expand returns the original question followed by up to maxAlts
// alternative phrasings. On any LLM failure it degrades to just the
// original question; expansion is never fatal.
func (e *Expander) Expand(ctx context.Context, question string, history []session.Turn) []string {
	queries := []string{question}
	if e.maxAlts <= 0 {
		return queries
	}

	raw, err := e.provider.Complete(ctx, e.prompt(question, history))
	if err != nil {
		e.logger.Printf("expansion failed, falling back to original query: %v", err)
		return queries
	}

	alts := parseAlternatives(raw, question, e.maxAlts)
	queries = append(queries, alts...)
	// Pad with the original so downstream always sees a fixed fan-out width.
	for len(queries) < 1+e.maxAlts {
		queries = append(queries, question)
	}
	return queries
}

func (e *Expander) prompt(question string, history []session.Turn) string {
	var b strings.Builder
	b.WriteString("Rephrase the following question about a university in ")
	fmt.Fprintf(&b, "%d different ways to improve search recall. ", e.maxAlts)
	b.WriteString("Keep each rephrasing short and specific. ")
	b.WriteString("Respond with one rephrasing per line and nothing else.\n\n")

	if len(history) > 0 {
		start := len(history) - historyTurns
		if start < 0 {
			start = 0
		}
		b.WriteString("Recent conversation:\n")
		for _, turn := range history[start:] {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", turn.Question, helpers.Snippet(turn.Answer, 200))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}

// parseAlternatives extracts one alternative per line, stripping list
// numbering and discarding lines identical to the original question.
func parseAlternatives(raw, original string, max int) []string {
	normOriginal := helpers.Normalize(original)
	var alts []string
	for _, line := range strings.Split(raw, "\n") {
		line = stripNumbering(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		if helpers.Normalize(line) == normOriginal {
			continue
		}
		alts = append(alts, line)
		if len(alts) >= max {
			break
		}
	}
	return alts
}

// stripNumbering removes leading "1.", "2)", "-", "*" style list markers.
func stripNumbering(line string) string {
	trimmed := strings.TrimLeft(line, "-*• \t")
	i := 0
	for i < len(trimmed) && trimmed[i] >= '0' && trimmed[i] <= '9' {
		i++
	}
	if i > 0 && i < len(trimmed) && (trimmed[i] == '.' || trimmed[i] == ')') {
		trimmed = trimmed[i+1:]
	}
	return strings.TrimSpace(trimmed)
}
