package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
)

// Store persists user feedback on answers. Feedback is append-only and
// feeds the stats endpoint; losing a row is annoying, not fatal, so
// callers log and continue when a write fails.
type Store struct {
	DB *sql.DB
}

// Feedback is one user verdict on an answer.
type Feedback struct {
	ID         string
	SessionID  string
	Question   string
	Answer     string
	Helpful    bool
	Comment    string
	Confidence float64
	CreatedAt  time.Time
}

// FeedbackStats aggregates verdicts for the stats endpoint.
type FeedbackStats struct {
	Helpful       int     `json:"helpful"`
	Unhelpful     int     `json:"unhelpful"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// New builds the store from the environment, preferring DATABASE_URL.
func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// SaveFeedback records one verdict and returns its id.
func (s *Store) SaveFeedback(ctx context.Context, fb Feedback) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO feedback (session_id, question, answer, helpful, comment, confidence)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`,
		fb.SessionID, fb.Question, fb.Answer, fb.Helpful, fb.Comment, fb.Confidence).Scan(&id)
	return id, err
}

// ListRecentFeedback returns the newest verdicts, capped at limit.
func (s *Store) ListRecentFeedback(ctx context.Context, limit int) ([]Feedback, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, session_id, question, answer, helpful, comment, confidence, created_at
		 FROM feedback ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Feedback
	for rows.Next() {
		var fb Feedback
		if err := rows.Scan(&fb.ID, &fb.SessionID, &fb.Question, &fb.Answer, &fb.Helpful, &fb.Comment, &fb.Confidence, &fb.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, fb)
	}
	return out, rows.Err()
}

// Stats aggregates helpful/unhelpful counts and the mean confidence of
// answers that received feedback.
func (s *Store) Stats(ctx context.Context) (FeedbackStats, error) {
	var st FeedbackStats
	err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE helpful),
		        COUNT(*) FILTER (WHERE NOT helpful),
		        COALESCE(AVG(confidence), 0)
		 FROM feedback`).Scan(&st.Helpful, &st.Unhelpful, &st.AvgConfidence)
	return st, err
}

func (s *Store) Close() error {
	return s.DB.Close()
}
