package inmemory

import (
	"fmt"
	"testing"
	"time"

	"github.com/askcampus/askcampus/session"
)

func TestAppendAndGetOrdered(t *testing.T) {
	t.Parallel()
	s := NewStore(time.Minute, 10)

	for i := 0; i < 3; i++ {
		err := s.Append("sess", session.Turn{
			Question:  fmt.Sprintf("q%d", i),
			Answer:    fmt.Sprintf("a%d", i),
			Timestamp: time.Now(),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	turns, err := s.Get("sess")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	if turns[0].Question != "q0" || turns[2].Question != "q2" {
		t.Fatalf("turns out of order: %+v", turns)
	}
}

func TestHistoryCappedAtMaxTurns(t *testing.T) {
	t.Parallel()
	s := NewStore(time.Minute, 10)
	for i := 0; i < 15; i++ {
		_ = s.Append("sess", session.Turn{Question: fmt.Sprintf("q%d", i)})
	}
	turns, _ := s.Get("sess")
	if len(turns) != 10 {
		t.Fatalf("expected cap of 10 turns, got %d", len(turns))
	}
	if turns[0].Question != "q5" {
		t.Fatalf("oldest turns should be dropped, first is %s", turns[0].Question)
	}
}

func TestUnknownSessionIsEmptyNotError(t *testing.T) {
	t.Parallel()
	s := NewStore(time.Minute, 10)
	turns, err := s.Get("missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected empty history")
	}
}

func TestEvictExpired(t *testing.T) {
	t.Parallel()
	s := NewStore(10*time.Millisecond, 10)
	_ = s.Append("old", session.Turn{Question: "q"})
	time.Sleep(20 * time.Millisecond)
	_ = s.Append("fresh", session.Turn{Question: "q"})

	if evicted := s.EvictExpired(); evicted != 1 {
		t.Fatalf("expected 1 evicted session, got %d", evicted)
	}
	if s.Count() != 1 {
		t.Fatalf("expected 1 live session, got %d", s.Count())
	}
	turns, _ := s.Get("old")
	if len(turns) != 0 {
		t.Fatalf("evicted session should be empty")
	}
}

func TestExpiredSessionRestartsHistory(t *testing.T) {
	t.Parallel()
	s := NewStore(10*time.Millisecond, 10)
	_ = s.Append("sess", session.Turn{Question: "before"})
	time.Sleep(20 * time.Millisecond)
	_ = s.Append("sess", session.Turn{Question: "after"})

	turns, _ := s.Get("sess")
	if len(turns) != 1 || turns[0].Question != "after" {
		t.Fatalf("expired session should start fresh: %+v", turns)
	}
}
