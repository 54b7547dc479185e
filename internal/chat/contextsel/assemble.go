package contextsel

import (
	"fmt"
	"sort"
	"strings"

	"github.com/askcampus/askcampus/internal/chat/docstore"
	"github.com/askcampus/askcampus/internal/helpers"
)

// Options tunes section splitting and selection.
type Options struct {
	SectionMaxChars int     // cap per section, split on sentence boundaries
	ScoreThreshold  float64 // minimum key-term coverage to keep a section
	MaxSections     int     // sections concatenated into the final context
}

// Assembler selects the most question-relevant sections of the retrieved
// documents for the LLM prompt.
type Assembler struct {
	opts Options
}

func NewAssembler(opts Options) *Assembler {
	if opts.SectionMaxChars <= 0 {
		opts.SectionMaxChars = 500
	}
	if opts.MaxSections <= 0 {
		opts.MaxSections = 5
	}
	return &Assembler{opts: opts}
}

type section struct {
	title string
	text  string
	score float64
}

// Assemble splits documents into sentence-bounded sections, scores each
// against the question's key terms and concatenates the top survivors,
// each prefixed with its source title. When nothing clears the threshold
// the context is empty; the generator must refuse rather than fabricate.
func (a *Assembler) Assemble(results []docstore.SearchResult, question string) string {
	terms := helpers.KeyTerms(question)
	if len(terms) == 0 {
		return ""
	}

	var sections []section
	for _, res := range results {
		for _, text := range a.split(res.Content) {
			score := a.score(text, terms)
			if score > a.opts.ScoreThreshold {
				sections = append(sections, section{title: res.Title, text: text, score: score})
			}
		}
	}
	if len(sections) == 0 {
		return ""
	}

	sort.SliceStable(sections, func(i, j int) bool { return sections[i].score > sections[j].score })
	if len(sections) > a.opts.MaxSections {
		sections = sections[:a.opts.MaxSections]
	}

	var b strings.Builder
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s] %s", sec.title, sec.text)
	}
	return b.String()
}

// split groups sentences into sections capped at SectionMaxChars. A single
// sentence longer than the cap becomes its own oversized section rather
// than being cut mid-sentence.
func (a *Assembler) split(content string) []string {
	var sections []string
	var b strings.Builder
	for _, sentence := range helpers.SplitSentences(content) {
		if b.Len() > 0 && b.Len()+len(sentence)+1 > a.opts.SectionMaxChars {
			sections = append(sections, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(sentence)
	}
	if b.Len() > 0 {
		sections = append(sections, b.String())
	}
	return sections
}

func (a *Assembler) score(text string, terms []string) float64 {
	set := helpers.TokenSet(text)
	matched := 0
	for _, term := range terms {
		if _, ok := set[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
