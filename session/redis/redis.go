package redis_session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/askcampus/askcampus/session"
)

// Store keeps conversation histories in Redis. Each session is a JSON
// list under session:<id>:turns with a TTL refreshed on append; Redis
// itself handles expiry, so EvictExpired is a no-op.
type Store struct {
	client   *redis.Client
	ttl      time.Duration
	maxTurns int
}

func NewStore(addr, password string, db int, ttl time.Duration, maxTurns int) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{client: rdb, ttl: ttl, maxTurns: maxTurns}
}

func (s *Store) key(id string) string {
	return fmt.Sprintf("session:%s:turns", id)
}

func (s *Store) Get(id string) ([]session.Turn, error) {
	ctx := context.Background()
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var turns []session.Turn
	if err := json.Unmarshal([]byte(val), &turns); err != nil {
		return nil, fmt.Errorf("decode turns: %w", err)
	}
	return turns, nil
}

func (s *Store) Append(id string, turn session.Turn) error {
	ctx := context.Background()
	turns, err := s.Get(id)
	if err != nil {
		return err
	}
	turns = append(turns, turn)
	if len(turns) > s.maxTurns {
		turns = turns[len(turns)-s.maxTurns:]
	}
	data, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("encode turns: %w", err)
	}
	if err := s.client.Set(ctx, s.key(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) EvictExpired() int { return 0 }

func (s *Store) Count() int {
	keys, err := s.client.Keys(context.Background(), "session:*:turns").Result()
	if err != nil {
		return 0
	}
	return len(keys)
}

func (s *Store) Close() error { return s.client.Close() }
