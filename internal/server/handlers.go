package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/askcampus/askcampus/internal/chat"
	"github.com/askcampus/askcampus/internal/store"
)

// Answerer is the engine surface the handlers need.
type Answerer interface {
	Answer(ctx context.Context, question, sessionID string) (chat.Response, error)
	Stats(ctx context.Context) (chat.Stats, error)
}

// FeedbackStore is the persistence surface for user feedback. A nil store
// disables the feedback endpoints.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, fb store.Feedback) (string, error)
	Stats(ctx context.Context) (store.FeedbackStats, error)
}

type ChatHandler struct {
	Engine Answerer
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/chat", h.chat)
}

func (h *ChatHandler) chat(c echo.Context) error {
	var req struct {
		Question  string `json:"question"`
		SessionID string `json:"session_id"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "question required")
	}

	resp, err := h.Engine.Answer(c.Request().Context(), req.Question, req.SessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, resp)
}

type FeedbackHandler struct {
	Store FeedbackStore
}

func (h *FeedbackHandler) Register(g *echo.Group) {
	g.POST("/feedback", h.create)
}

func (h *FeedbackHandler) create(c echo.Context) error {
	if h.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "feedback storage not configured")
	}

	var req struct {
		SessionID  string  `json:"session_id"`
		Question   string  `json:"question"`
		Answer     string  `json:"answer"`
		Helpful    *bool   `json:"helpful"`
		Comment    string  `json:"comment"`
		Confidence float64 `json:"confidence"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Question) == "" || req.Helpful == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "question and helpful required")
	}

	id, err := h.Store.SaveFeedback(c.Request().Context(), store.Feedback{
		SessionID:  req.SessionID,
		Question:   req.Question,
		Answer:     req.Answer,
		Helpful:    *req.Helpful,
		Comment:    req.Comment,
		Confidence: req.Confidence,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

type StatsHandler struct {
	Engine Answerer
	Store  FeedbackStore
}

func (h *StatsHandler) Register(g *echo.Group) {
	g.GET("/stats", h.stats)
}

func (h *StatsHandler) stats(c echo.Context) error {
	engineStats, err := h.Engine.Stats(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	out := map[string]interface{}{
		"documents":  engineStats.Documents,
		"sessions":   engineStats.Sessions,
		"cache_size": engineStats.CacheSize,
	}
	if h.Store != nil {
		fbStats, err := h.Store.Stats(c.Request().Context())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		out["feedback"] = fbStats
	}
	return c.JSON(http.StatusOK, out)
}
