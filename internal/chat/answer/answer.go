package answer

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/askcampus/askcampus/internal/helpers"
	"github.com/askcampus/askcampus/provider"
	"github.com/askcampus/askcampus/session"
)

// Apology is returned whenever the LLM call fails; generation failures
// never propagate as errors to the caller.
const Apology = "I'm sorry, I ran into a problem while answering your question. Please try again in a moment."

// NoInformation is the refusal used when retrieval produced no usable context.
const NoInformation = "I don't have enough information to answer that question. Please try rephrasing it or ask about another topic."

// genericPhrases flag boilerplate answers that ignore the actual question.
var genericPhrases = []string{
	"the university offers",
	"based on the context",
	"as an ai",
	"i cannot provide specific",
	"please visit the official website",
	"universities typically",
}

// Generator formats the prompt, invokes the LLM and validates the output
// against generic-response heuristics.
type Generator struct {
	provider        provider.Provider
	maxHistoryTurns int
	logger          *log.Logger
}

func NewGenerator(p provider.Provider, maxHistoryTurns int) *Generator {
	return &Generator{
		provider:        p,
		maxHistoryTurns: maxHistoryTurns,
		logger:          log.New(log.Writer(), "[ANSWER] ", log.LstdFlags),
	}
}

// Generate produces an answer from the assembled context. A generic first
// attempt triggers exactly one stricter regeneration; the second attempt
// is accepted regardless. Empty context short-circuits to a refusal.
func (g *Generator) Generate(ctx context.Context, docContext, question string, history []session.Turn) string {
	if strings.TrimSpace(docContext) == "" {
		return NoInformation
	}

	ans, err := g.provider.Complete(ctx, g.prompt(docContext, question, history, false))
	if err != nil {
		g.logger.Printf("generation failed: %v", err)
		return Apology
	}
	ans = strings.TrimSpace(ans)

	if !IsGeneric(ans, question) {
		return ans
	}

	g.logger.Printf("generic answer detected, regenerating once")
	retry, err := g.provider.Complete(ctx, g.prompt(docContext, question, history, true))
	if err != nil {
		g.logger.Printf("regeneration failed: %v", err)
		return Apology
	}
	return strings.TrimSpace(retry)
}

// IsGeneric reports whether the answer looks like boilerplate: it either
// contains a known filler phrase or shares no key terms with the question.
func IsGeneric(answer, question string) bool {
	lower := strings.ToLower(answer)
	for _, phrase := range genericPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return helpers.TermOverlap(answer, question) == 0
}

func (g *Generator) prompt(docContext, question string, history []session.Turn, strict bool) string {
	var b strings.Builder
	b.WriteString("You are a university information assistant. Answer ONLY the specific question asked, ")
	b.WriteString("using exact details from the context below. ")
	b.WriteString("If the context does not contain the answer, say you don't have enough information. ")
	b.WriteString("Never give generic filler about universities in general.\n")
	if strict {
		b.WriteString("IMPORTANT: your previous answer was too generic. ")
		b.WriteString("Quote concrete facts, names and numbers from the context, and address the question directly.\n")
	}

	if len(history) > 0 {
		start := len(history) - g.maxHistoryTurns
		if start < 0 {
			start = 0
		}
		b.WriteString("\nConversation so far:\n")
		for _, turn := range history[start:] {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.Question, helpers.Snippet(turn.Answer, 200))
		}
	}

	fmt.Fprintf(&b, "\nContext:\n%s\n\nQuestion: %s\nAnswer:", docContext, question)
	return b.String()
}
