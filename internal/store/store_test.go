package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func setupStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return &Store{DB: db}, mock, func() { db.Close() }
}

func TestSaveFeedback(t *testing.T) {
	st, mock, cleanup := setupStore(t)
	defer cleanup()

	query := regexp.QuoteMeta(`INSERT INTO feedback (session_id, question, answer, helpful, comment, confidence)
		 VALUES ($1,$2,$3,$4,$5,$6) RETURNING id`)
	mock.ExpectQuery(query).
		WithArgs("sess-1", "How much is tuition?", "Tuition is $54,000.", true, "", 0.82).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("fb-1"))

	id, err := st.SaveFeedback(context.Background(), Feedback{
		SessionID:  "sess-1",
		Question:   "How much is tuition?",
		Answer:     "Tuition is $54,000.",
		Helpful:    true,
		Confidence: 0.82,
	})
	if err != nil {
		t.Fatalf("SaveFeedback: %v", err)
	}
	if id != "fb-1" {
		t.Fatalf("expected fb-1, got %q", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListRecentFeedback(t *testing.T) {
	st, mock, cleanup := setupStore(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "session_id", "question", "answer", "helpful", "comment", "confidence", "created_at"}).
		AddRow("fb-2", "sess-2", "q2", "a2", false, "outdated", 0.3, now).
		AddRow("fb-1", "sess-1", "q1", "a1", true, "", 0.8, now.Add(-time.Hour))

	query := regexp.QuoteMeta(`SELECT id, session_id, question, answer, helpful, comment, confidence, created_at
		 FROM feedback ORDER BY created_at DESC LIMIT $1`)
	mock.ExpectQuery(query).WithArgs(10).WillReturnRows(rows)

	out, err := st.ListRecentFeedback(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecentFeedback: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(out))
	}
	if out[0].ID != "fb-2" || out[0].Helpful {
		t.Fatalf("unexpected first row: %+v", out[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFeedbackStats(t *testing.T) {
	st, mock, cleanup := setupStore(t)
	defer cleanup()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"helpful", "unhelpful", "avg"}).AddRow(7, 2, 0.61))

	stats, err := st.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Helpful != 7 || stats.Unhelpful != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.AvgConfidence < 0.6 || stats.AvgConfidence > 0.62 {
		t.Fatalf("unexpected avg confidence %f", stats.AvgConfidence)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
