package chat

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"
)

// memoryList mimics the redis list commands used by the store, including
// the most-recent-first push order.
type memoryList struct {
	lists map[string][]string
}

func newMemoryList() *memoryList {
	return &memoryList{lists: make(map[string][]string)}
}

func (m *memoryList) Push(ctx context.Context, key, value string) error {
	m.lists[key] = append([]string{value}, m.lists[key]...)
	return nil
}

func (m *memoryList) Range(ctx context.Context, key string) ([]string, error) {
	return m.lists[key], nil
}

func (m *memoryList) Delete(ctx context.Context, key string) error {
	delete(m.lists, key)
	return nil
}

func (m *memoryList) Ping(ctx context.Context) error { return nil }

func TestReadAllChronologicalOrder(t *testing.T) {
	kv := newMemoryList()
	store := NewStore(kv, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		turn := Turn{
			Type:      TurnTypeUser,
			Message:   fmt.Sprintf("message %d", i),
			Timestamp: int64(1000 + i),
		}
		if err := store.Append(ctx, "s1", turn); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	turns, err := store.ReadAll(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 5 {
		t.Fatalf("expected 5 turns, got %d", len(turns))
	}
	for i, turn := range turns {
		want := fmt.Sprintf("message %d", i)
		if turn.Message != want {
			t.Errorf("turn %d: expected %q, got %q", i, want, turn.Message)
		}
	}
}

func TestReadAllDropsCorruptEntries(t *testing.T) {
	kv := newMemoryList()
	store := NewStore(kv, zap.NewNop())
	ctx := context.Background()

	store.Append(ctx, "s1", Turn{Type: TurnTypeUser, Message: "first", Timestamp: 1})
	kv.Push(ctx, "chat:s1", "{not valid json")
	store.Append(ctx, "s1", Turn{Type: TurnTypeBot, Message: "second", Timestamp: 2})

	turns, err := store.ReadAll(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected corrupt entry dropped, got %d turns", len(turns))
	}
	if turns[0].Message != "first" || turns[1].Message != "second" {
		t.Errorf("unexpected order: %q, %q", turns[0].Message, turns[1].Message)
	}
}

func TestClearRemovesSession(t *testing.T) {
	kv := newMemoryList()
	store := NewStore(kv, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		store.Append(ctx, "s1", Turn{Type: TurnTypeUser, Message: "m", Timestamp: int64(i)})
	}
	if err := store.Clear(ctx, "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	turns, err := store.ReadAll(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(turns) != 0 {
		t.Fatalf("expected empty session after clear, got %d turns", len(turns))
	}
}

func TestClearMissingSessionIsNotAnError(t *testing.T) {
	store := NewStore(newMemoryList(), zap.NewNop())
	if err := store.Clear(context.Background(), "never-existed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
