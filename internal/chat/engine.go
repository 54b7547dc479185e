package chat

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/askcampus/askcampus/internal/chat/answer"
	"github.com/askcampus/askcampus/internal/chat/confidence"
	"github.com/askcampus/askcampus/internal/chat/contextsel"
	"github.com/askcampus/askcampus/internal/chat/docstore"
	"github.com/askcampus/askcampus/internal/chat/embedcache"
	"github.com/askcampus/askcampus/internal/chat/expand"
	"github.com/askcampus/askcampus/internal/chat/retrieve"
	"github.com/askcampus/askcampus/internal/helpers"
	"github.com/askcampus/askcampus/internal/telemetry"
	"github.com/askcampus/askcampus/session"
)

// Response is the engine's contract with the API layer.
type Response struct {
	Answer      string               `json:"answer"`
	Sources     []docstore.SourceRef `json:"sources"`
	Confidence  float64              `json:"confidence"`
	ShouldShow  bool                 `json:"should_show"`
	AskFeedback bool                 `json:"ask_feedback"`
	SessionID   string               `json:"session_id"`
}

// Engine runs the full question-answering pipeline: expand, retrieve,
// assemble, generate, score, gate. One request is processed synchronously
// end to end; only the expanded-query fan-out inside the retriever is
// parallel.
type Engine struct {
	expander  *expand.Expander
	retriever *retrieve.Retriever
	assembler *contextsel.Assembler
	generator *answer.Generator
	scorer    *confidence.Scorer
	sessions  session.Store
	store     docstore.Store
	cache     embedcache.Cache
	tele      *telemetry.Telemetry
	topK      int
	logger    *log.Logger
}

type EngineDeps struct {
	Expander  *expand.Expander
	Retriever *retrieve.Retriever
	Assembler *contextsel.Assembler
	Generator *answer.Generator
	Scorer    *confidence.Scorer
	Sessions  session.Store
	Store     docstore.Store
	Cache     embedcache.Cache
	Telemetry *telemetry.Telemetry
	TopK      int
}

func NewEngine(deps EngineDeps) *Engine {
	topK := deps.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Engine{
		expander:  deps.Expander,
		retriever: deps.Retriever,
		assembler: deps.Assembler,
		generator: deps.Generator,
		scorer:    deps.Scorer,
		sessions:  deps.Sessions,
		store:     deps.Store,
		cache:     deps.Cache,
		tele:      deps.Telemetry,
		topK:      topK,
		logger:    log.New(log.Writer(), "[ENGINE] ", log.LstdFlags),
	}
}

// Answer processes one question for the given session. Pipeline-level
// failures degrade to refusals or apologies; an error return is reserved
// for infrastructure faults the API layer should surface as a 5xx.
func (e *Engine) Answer(ctx context.Context, question, sessionID string) (Response, error) {
	start := time.Now()
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	history, err := e.sessions.Get(sessionID)
	if err != nil {
		e.logger.Printf("session lookup failed for %s: %v", sessionID, err)
		history = nil
	}

	queries := e.expander.Expand(ctx, question, history)
	results := e.retriever.Retrieve(ctx, queries, question, e.topK)
	if e.tele != nil {
		e.tele.RecordRetrieval(len(results))
	}

	if len(results) == 0 {
		resp := Response{
			Answer:      answer.NoInformation,
			Sources:     []docstore.SourceRef{},
			Confidence:  0,
			ShouldShow:  false,
			AskFeedback: true,
			SessionID:   sessionID,
		}
		e.record(telemetry.OutcomeNoDocs, start, 0)
		e.remember(sessionID, question, resp)
		return resp, nil
	}

	docContext := e.assembler.Assemble(results, question)
	ans := e.generator.Generate(ctx, docContext, question, history)

	if ans == answer.Apology {
		resp := Response{
			Answer:      ans,
			Sources:     []docstore.SourceRef{},
			Confidence:  0,
			ShouldShow:  false,
			AskFeedback: true,
			SessionID:   sessionID,
		}
		e.record(telemetry.OutcomeError, start, 0)
		e.remember(sessionID, question, resp)
		return resp, nil
	}

	conf := e.scorer.Score(results, question, ans)
	decision := e.scorer.Gate(conf, question)

	resp := Response{
		Answer:      ans,
		Confidence:  conf,
		ShouldShow:  decision.Show,
		AskFeedback: decision.AskFeedback,
		SessionID:   sessionID,
	}
	if decision.Show {
		resp.Sources = sourceRefs(results)
		e.record(telemetry.OutcomeAnswered, start, conf)
	} else {
		resp.Answer = decision.Answer
		resp.Sources = []docstore.SourceRef{}
		e.record(telemetry.OutcomeRefused, start, conf)
	}

	e.remember(sessionID, question, resp)
	return resp, nil
}

// Stats reports counts for the operational endpoint.
type Stats struct {
	Documents int `json:"documents"`
	Sessions  int `json:"sessions"`
	CacheSize int `json:"cache_size"`
}

func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	docs, err := e.store.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Documents: docs,
		Sessions:  e.sessions.Count(),
		CacheSize: e.cache.Len(),
	}, nil
}

// FlushCache checkpoints the embedding cache; called on shutdown and on
// a periodic ticker by the server.
func (e *Engine) FlushCache() error {
	return e.cache.Flush()
}

func (e *Engine) record(outcome string, start time.Time, conf float64) {
	if e.tele != nil {
		e.tele.RecordRequest(outcome, time.Since(start), conf)
	}
}

func (e *Engine) remember(sessionID, question string, resp Response) {
	turn := session.Turn{
		Question:  question,
		Answer:    resp.Answer,
		Sources:   resp.Sources,
		Timestamp: time.Now(),
	}
	if err := e.sessions.Append(sessionID, turn); err != nil {
		e.logger.Printf("failed to record turn for session %s: %v", sessionID, err)
	}
}

func sourceRefs(results []docstore.SearchResult) []docstore.SourceRef {
	refs := make([]docstore.SourceRef, 0, len(results))
	for _, res := range results {
		refs = append(refs, docstore.SourceRef{
			Title:          res.Title,
			URL:            res.SourceURL,
			Similarity:     res.Similarity,
			ContentPreview: helpers.Snippet(res.Content, 200),
		})
	}
	return refs
}
