package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

const sessionKeyPrefix = "chat:"

const (
	TurnTypeUser = "user"
	TurnTypeBot  = "bot"
)

// Turn is one chat message in a session log. Turns are append-only and
// never mutated.
type Turn struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// listStore is the slice of the key-value store the session log needs.
type listStore interface {
	Push(ctx context.Context, key, value string) error
	Range(ctx context.Context, key string) ([]string, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Store keeps a per-session chat log. Internally turns are stored
// most-recent-first for O(1) append; ReadAll restores chronological
// order before returning.
type Store struct {
	kv     listStore
	logger *zap.Logger
}

func NewStore(kv listStore, logger *zap.Logger) *Store {
	return &Store{kv: kv, logger: logger}
}

func (s *Store) Append(ctx context.Context, sessionID string, turn Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("err marshal turn: %w", err)
	}
	if err := s.kv.Push(ctx, sessionKeyPrefix+sessionID, string(data)); err != nil {
		return fmt.Errorf("err append turn: %w", err)
	}
	return nil
}

// ReadAll returns the session's turns oldest-first. Entries that fail to
// deserialize are dropped and logged; one corrupt entry never fails the
// whole read.
func (s *Store) ReadAll(ctx context.Context, sessionID string) ([]Turn, error) {
	raw, err := s.kv.Range(ctx, sessionKeyPrefix+sessionID)
	if err != nil {
		return nil, fmt.Errorf("err read session log: %w", err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, entry := range raw {
		var turn Turn
		if err := json.Unmarshal([]byte(entry), &turn); err != nil {
			s.logger.Warn("Dropping corrupt session entry",
				zap.String("session_id", sessionID),
				zap.Error(err))
			continue
		}
		turns = append(turns, turn)
	}

	// Stored most-recent-first; reverse for chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Clear deletes the session's entire log. A missing session is not an
// error.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.kv.Delete(ctx, sessionKeyPrefix+sessionID); err != nil {
		return fmt.Errorf("err clear session: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}
