package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/askcampus/askcampus/config"
	"github.com/askcampus/askcampus/internal/chat"
	"github.com/askcampus/askcampus/internal/chat/answer"
	"github.com/askcampus/askcampus/internal/chat/confidence"
	"github.com/askcampus/askcampus/internal/chat/contextsel"
	"github.com/askcampus/askcampus/internal/chat/docstore"
	"github.com/askcampus/askcampus/internal/chat/embedcache"
	"github.com/askcampus/askcampus/internal/chat/expand"
	"github.com/askcampus/askcampus/internal/chat/ingest"
	"github.com/askcampus/askcampus/internal/chat/keyword"
	"github.com/askcampus/askcampus/internal/chat/retrieve"
	"github.com/askcampus/askcampus/internal/store"
	"github.com/askcampus/askcampus/internal/telemetry"
	"github.com/askcampus/askcampus/provider"
	"github.com/askcampus/askcampus/session"
	"github.com/askcampus/askcampus/session/inmemory"
	redis_session "github.com/askcampus/askcampus/session/redis"
)

// cacheFlushInterval bounds embedding loss to one checkpoint window if the
// process dies between flushes.
const cacheFlushInterval = 5 * time.Minute

// Run builds the full pipeline from config and serves the HTTP API until
// the listener fails.
func Run(cfgPath, addr string) error {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return err
	}

	ctx := context.Background()
	eng, cleanup, err := BuildEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var fb FeedbackStore
	if dsn := cfg.Storage.Postgres.DSN(); dsn != "" {
		if err := Migrate("file://migrations", dsn, "up", 0); err != nil {
			log.Printf("[HTTP] migrations: %v", err)
		}
		st, err := store.NewWithDSN(ctx, dsn)
		if err != nil {
			return fmt.Errorf("feedback store: %w", err)
		}
		defer st.Close()
		fb = st
	} else {
		log.Printf("[HTTP] postgres not configured, feedback endpoints disabled")
	}

	stop := make(chan struct{})
	defer close(stop)
	go flushLoop(eng, stop)

	e := newEcho()
	registerRoutes(e, eng, fb)

	if addr == "" {
		addr = cfg.General.ListenAddr
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// newEcho builds the echo instance with recovery, CORS and the unified
// JSON error handler.
func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Content-Type"},
	}))

	return e
}

func registerRoutes(e *echo.Echo, eng Answerer, fb FeedbackStore) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	(&ChatHandler{Engine: eng}).Register(api)
	(&FeedbackHandler{Store: fb}).Register(api)
	(&StatsHandler{Engine: eng, Store: fb}).Register(api)
}

// BuildEngine wires provider, caches, stores and pipeline components from
// config. The returned cleanup flushes the embedding cache and closes
// backend connections.
func BuildEngine(ctx context.Context, cfg *config.Config) (*chat.Engine, func(), error) {
	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return nil, nil, err
	}

	tele := telemetry.New(cfg.Telemetry.Enabled)
	llm = telemetry.InstrumentProvider(llm, tele)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	cache, err := buildCache(cfg)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, func() {
		if err := cache.Flush(); err != nil {
			log.Printf("[CACHE] flush on shutdown: %v", err)
		}
	})
	embedder := embedcache.NewEmbedder(cache, llm).WithObserver(tele)

	docStore, closeStore, err := buildDocstore(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	if closeStore != nil {
		closers = append(closers, closeStore)
	}

	var kw *keyword.Index
	if cfg.Retrieval.KeywordEnabled {
		kw, err = keyword.NewIndex()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	if cfg.Storage.CorpusPath != "" {
		if _, err := os.Stat(cfg.Storage.CorpusPath); err == nil {
			docs, err := ingest.LoadFile(cfg.Storage.CorpusPath)
			if err != nil {
				cleanup()
				return nil, nil, err
			}
			if _, err := ingest.Ingest(ctx, docs, docStore, kw, embedder); err != nil {
				cleanup()
				return nil, nil, err
			}
		} else {
			log.Printf("[HTTP] no corpus file at %s, serving existing store only", cfg.Storage.CorpusPath)
		}
	}

	sessions := buildSessions(cfg)
	if sweeper, ok := sessions.(*inmemory.Store); ok {
		stop := make(chan struct{})
		closers = append(closers, func() { close(stop) })
		sweeper.StartSweeper(cfg.Session.SweepInterval, stop)
	}

	eng := chat.NewEngine(chat.EngineDeps{
		Expander:  expand.NewExpander(llm, cfg.Retrieval.MaxExpansions),
		Retriever: retrieve.NewRetriever(docStore, embedder, kw, retrieve.Options{
			SemanticWeight: cfg.Retrieval.SemanticWeight,
			OverlapWeight:  cfg.Retrieval.OverlapWeight,
			Parallel:       cfg.Retrieval.ParallelFanout,
			MaxWorkers:     cfg.Retrieval.MaxFanoutWorkers,
		}),
		Assembler: contextsel.NewAssembler(contextsel.Options{
			SectionMaxChars: cfg.Context.SectionMaxChars,
			ScoreThreshold:  cfg.Context.ScoreThreshold,
			MaxSections:     cfg.Context.MaxSections,
		}),
		Generator: answer.NewGenerator(llm, cfg.Answer.MaxHistoryTurns),
		Scorer: confidence.NewScorer(confidence.Options{
			TopSimilarityWeight: cfg.Gate.TopSimilarityWeight,
			AvgSimilarityWeight: cfg.Gate.AvgSimilarityWeight,
			CoverageWeight:      cfg.Gate.CoverageWeight,
			LengthWeight:        cfg.Gate.LengthWeight,
			CertaintyWeight:     cfg.Gate.CertaintyWeight,
			DiversityWeight:     cfg.Gate.DiversityWeight,
			GoodSimilarity:      cfg.Gate.GoodSimilarity,
			FactualThreshold:    cfg.Gate.FactualThreshold,
			OpenEndedThreshold:  cfg.Gate.OpenEndedThreshold,
			MediumBand:          cfg.Gate.MediumBand,
		}),
		Sessions:  sessions,
		Store:     docStore,
		Cache:     cache,
		Telemetry: tele,
		TopK:      cfg.Retrieval.TopK,
	})

	return eng, cleanup, nil
}

func buildCache(cfg *config.Config) (embedcache.Cache, error) {
	switch cfg.Storage.Cache.Backend {
	case "redis":
		return embedcache.NewRedisCache(
			cfg.Storage.Redis.Addr(),
			cfg.Storage.Redis.Password,
			cfg.Storage.Redis.DB,
			cfg.Storage.Cache.TTL,
		), nil
	default:
		return embedcache.NewFileCache(cfg.Storage.Cache.Path), nil
	}
}

func buildDocstore(ctx context.Context, cfg *config.Config) (docstore.Store, func(), error) {
	switch cfg.Storage.Docstore {
	case "memory":
		return docstore.NewMemoryStore(), nil, nil
	default:
		qs, err := docstore.NewQdrantStore(
			cfg.Storage.Qdrant.Host,
			cfg.Storage.Qdrant.Port,
			cfg.Storage.Qdrant.Collection,
			cfg.Storage.Qdrant.Dimensions,
		)
		if err != nil {
			return nil, nil, err
		}
		if err := qs.EnsureCollection(ctx); err != nil {
			_ = qs.Close()
			return nil, nil, err
		}
		return qs, func() { _ = qs.Close() }, nil
	}
}

func buildSessions(cfg *config.Config) session.Store {
	switch cfg.Session.Backend {
	case "redis":
		return redis_session.NewStore(
			cfg.Storage.Redis.Addr(),
			cfg.Storage.Redis.Password,
			cfg.Storage.Redis.DB,
			cfg.Session.TTL,
			cfg.Session.MaxTurns,
		)
	default:
		return inmemory.NewStore(cfg.Session.TTL, cfg.Session.MaxTurns)
	}
}

func flushLoop(eng *chat.Engine, stop <-chan struct{}) {
	ticker := time.NewTicker(cacheFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := eng.FlushCache(); err != nil {
				log.Printf("[CACHE] periodic flush: %v", err)
			}
		case <-stop:
			return
		}
	}
}
