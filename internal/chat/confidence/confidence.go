package confidence

import (
	"fmt"
	"strings"

	"github.com/askcampus/askcampus/internal/chat/docstore"
)

// Options holds the scoring weights and gate thresholds. Weights must sum
// to 1 so the score stays in [0,1].
type Options struct {
	TopSimilarityWeight float64
	AvgSimilarityWeight float64
	CoverageWeight      float64
	LengthWeight        float64
	CertaintyWeight     float64
	DiversityWeight     float64

	// GoodSimilarity is the cutoff for a result to count toward coverage.
	GoodSimilarity float64

	// FactualThreshold gates factual (cost, deadline, numeric) questions;
	// OpenEndedThreshold gates what/how questions. Factual must be higher.
	FactualThreshold   float64
	OpenEndedThreshold float64

	// MediumBand widens the zone above the threshold in which the caller
	// should still solicit user feedback.
	MediumBand float64
}

// QuestionType classifies gate strictness.
type QuestionType string

const (
	QuestionFactual   QuestionType = "factual"
	QuestionOpenEnded QuestionType = "open_ended"
)

// Decision is the gate's verdict for an answer.
type Decision struct {
	Show        bool
	Confidence  float64
	Threshold   float64
	Type        QuestionType
	Answer      string // refusal text when Show is false, empty otherwise
	AskFeedback bool
}

// uncertaintyPhrases penalize hedging language in answers.
var uncertaintyPhrases = []string{
	"i'm not sure",
	"i am not sure",
	"it is unclear",
	"might be",
	"may be",
	"possibly",
	"i don't know",
	"don't have enough information",
	"cannot determine",
}

// factualCues mark questions that demand precise facts.
var factualCues = []string{
	"cost", "price", "tuition", "fee", "fees", "deadline", "date",
	"how much", "how many", "percent", "gpa", "score", "requirement",
	"when is", "when does", "when do",
}

// Scorer computes a multi-factor confidence for an answer and gates
// whether it should be shown.
type Scorer struct {
	opts Options
}

func NewScorer(opts Options) *Scorer {
	return &Scorer{opts: opts}
}

// Score blends retrieval quality and answer-shape signals into [0,1].
// No retrieved results means zero confidence.
func (s *Scorer) Score(results []docstore.SearchResult, question, answer string) float64 {
	if len(results) == 0 {
		return 0
	}

	score := s.opts.TopSimilarityWeight*clamp01(results[0].Similarity) +
		s.opts.AvgSimilarityWeight*rankWeightedAvg(results) +
		s.opts.CoverageWeight*s.coverage(results) +
		s.opts.LengthWeight*lengthFactor(answer) +
		s.opts.CertaintyWeight*certaintyFactor(answer) +
		s.opts.DiversityWeight*diversityFactor(results)

	return clamp01(score)
}

// Gate decides whether to surface the answer. A single cutoff per
// question type keeps the decision monotonic in confidence.
func (s *Scorer) Gate(conf float64, question string) Decision {
	qtype := Classify(question)
	threshold := s.opts.OpenEndedThreshold
	if qtype == QuestionFactual {
		threshold = s.opts.FactualThreshold
	}

	d := Decision{
		Confidence: conf,
		Threshold:  threshold,
		Type:       qtype,
		Show:       conf >= threshold,
	}
	d.AskFeedback = !d.Show || conf < threshold+s.opts.MediumBand
	if !d.Show {
		d.Answer = fmt.Sprintf(
			"I don't have enough information to answer that confidently (confidence %.2f). Could you rephrase the question or ask about something more specific?",
			conf)
	}
	return d
}

// Classify labels a question factual when it carries precise-fact cues.
func Classify(question string) QuestionType {
	lower := strings.ToLower(question)
	for _, cue := range factualCues {
		if strings.Contains(lower, cue) {
			return QuestionFactual
		}
	}
	return QuestionOpenEnded
}

// rankWeightedAvg averages similarities weighted by 1/rank so the head of
// the result list dominates.
func rankWeightedAvg(results []docstore.SearchResult) float64 {
	var sum, weights float64
	for i, res := range results {
		w := 1.0 / float64(i+1)
		sum += clamp01(res.Similarity) * w
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return sum / weights
}

func (s *Scorer) coverage(results []docstore.SearchResult) float64 {
	count := 0
	for _, res := range results {
		if res.Similarity >= s.opts.GoodSimilarity {
			count++
		}
	}
	// Three strong supporting documents are treated as full coverage.
	return clamp01(float64(count) / 3.0)
}

// lengthFactor penalizes both one-liners and rambling answers.
func lengthFactor(answer string) float64 {
	words := len(strings.Fields(answer))
	switch {
	case words < 5:
		return 0.2
	case words < 20:
		return 0.6
	case words <= 150:
		return 1.0
	case words <= 300:
		return 0.7
	default:
		return 0.4
	}
}

func certaintyFactor(answer string) float64 {
	lower := strings.ToLower(answer)
	factor := 1.0
	for _, phrase := range uncertaintyPhrases {
		if strings.Contains(lower, phrase) {
			factor -= 0.25
		}
	}
	if factor < 0 {
		return 0
	}
	return factor
}

func diversityFactor(results []docstore.SearchResult) float64 {
	distinct := make(map[string]struct{})
	for _, res := range results {
		key := res.SourceURL
		if key == "" {
			key = res.DocumentID
		}
		distinct[key] = struct{}{}
	}
	return clamp01(float64(len(distinct)) / 3.0)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
