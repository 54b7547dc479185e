package inmemory

import (
	"sync"
	"time"

	"github.com/askcampus/askcampus/session"
)

type entry struct {
	turns     []session.Turn
	expiresAt time.Time
}

// Store keeps conversation histories in process memory with TTL-based
// eviction and a per-session turn cap.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	maxTurns int
}

func NewStore(ttl time.Duration, maxTurns int) *Store {
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		maxTurns: maxTurns,
	}
}

func (s *Store) Get(id string) ([]session.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, nil
	}
	out := make([]session.Turn, len(e.turns))
	copy(out, e.turns)
	return out, nil
}

func (s *Store) Append(id string, turn session.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok || time.Now().After(e.expiresAt) {
		e = &entry{}
		s.sessions[id] = e
	}
	e.turns = append(e.turns, turn)
	if len(e.turns) > s.maxTurns {
		e.turns = e.turns[len(e.turns)-s.maxTurns:]
	}
	e.expiresAt = time.Now().Add(s.ttl)
	return nil
}

func (s *Store) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	evicted := 0
	for id, e := range s.sessions {
		if now.After(e.expiresAt) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartSweeper runs EvictExpired on the given interval until stop is
// closed. Keeps the session map bounded on long-running servers.
func (s *Store) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.EvictExpired()
			case <-stop:
				return
			}
		}
	}()
}
