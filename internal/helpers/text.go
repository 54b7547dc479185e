package helpers

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

// stopwords is a fixed English stopword list used for key-term extraction.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "her": {}, "was": {}, "one": {},
	"our": {}, "out": {}, "his": {}, "has": {}, "had": {}, "how": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "why": {},
	"with": {}, "this": {}, "that": {}, "these": {}, "those": {}, "there": {},
	"from": {}, "they": {}, "them": {}, "then": {}, "than": {}, "will": {},
	"would": {}, "could": {}, "should": {}, "about": {}, "into": {}, "over": {},
	"does": {}, "do": {}, "is": {}, "it": {}, "its": {}, "be": {}, "been": {},
	"have": {}, "more": {}, "most": {}, "some": {}, "such": {}, "only": {},
	"also": {}, "very": {}, "any": {}, "each": {}, "other": {}, "many": {},
}

// Normalize collapses whitespace and lowercases content to stabilise
// hash comparisons.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	fields := strings.Fields(s)
	return strings.ToLower(strings.Join(fields, " "))
}

// ContentHash computes a SHA-256 hash for the normalised content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(Normalize(content)))
	return hex.EncodeToString(sum[:])
}

// Tokenize splits text into lowercased word tokens, dropping punctuation.
func Tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// TokenSet returns the set of unique tokens in the text.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokenize(s) {
		set[tok] = struct{}{}
	}
	return set
}

// KeyTerms extracts meaningful query terms: lowercased tokens minus
// stopwords, length > 2.
func KeyTerms(s string) []string {
	var terms []string
	seen := make(map[string]struct{})
	for _, tok := range Tokenize(s) {
		if len(tok) <= 2 {
			continue
		}
		if _, ok := stopwords[tok]; ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}

// TermOverlap returns the fraction of the question's key terms present in
// the content. Returns 0 when the question has no key terms.
func TermOverlap(content, question string) float64 {
	terms := KeyTerms(question)
	if len(terms) == 0 {
		return 0
	}
	contentSet := TokenSet(content)
	matched := 0
	for _, term := range terms {
		if _, ok := contentSet[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// SplitSentences splits text on sentence-ending punctuation followed by
// whitespace. Trailing content without a terminator forms a final sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var b strings.Builder
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		b.WriteRune(runes[i])
		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				if s := strings.TrimSpace(b.String()); s != "" {
					sentences = append(sentences, s)
				}
				b.Reset()
			}
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// Snippet truncates content for display previews.
func Snippet(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
