package session

import (
	"time"

	"github.com/askcampus/askcampus/internal/chat/docstore"
)

// Turn is a single question/answer exchange in a conversation.
type Turn struct {
	Question  string               `json:"question"`
	Answer    string               `json:"answer"`
	Sources   []docstore.SourceRef `json:"sources,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// Store manages per-session conversation history. Histories are capped at
// a fixed number of recent turns and expire after a TTL; callers must not
// assume persistence across restarts.
type Store interface {
	// Get returns the turns for a session, oldest first. An unknown or
	// expired session yields an empty history, not an error.
	Get(id string) ([]Turn, error)

	// Append adds a turn to the session, creating it if needed and
	// refreshing its TTL.
	Append(id string, turn Turn) error

	// EvictExpired removes sessions whose TTL has lapsed and reports how
	// many were dropped.
	EvictExpired() int

	// Count returns the number of live sessions.
	Count() int
}
