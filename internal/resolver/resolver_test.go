package resolver

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

// fakeStore implements just enough of the store to exercise the
// resolver's validation and delegation.
type fakeStore struct {
	mu            sync.Mutex
	conversations map[string]*types.Conversation // pair key -> conversation
	calls         []string
	err           error
}

func newFakeStore() *fakeStore {
	return &fakeStore{conversations: make(map[string]*types.Conversation)}
}

func (f *fakeStore) FindOrCreateOneToOne(ctx context.Context, pairKey, participantA, participantB string) (*types.Conversation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, false, f.err
	}
	f.calls = append(f.calls, pairKey)
	if c, exists := f.conversations[pairKey]; exists {
		return c, false, nil
	}
	c := &types.Conversation{ID: "conv-" + pairKey, ParticipantIDs: []string{participantA, participantB}}
	f.conversations[pairKey] = c
	return c, true, nil
}

func (f *fakeStore) CreateMessage(ctx context.Context, senderID, conversationID, body string) (*types.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) UpdateLatestMessage(ctx context.Context, conversationID, messageID string) error {
	return errors.New("not implemented")
}

func (f *fakeStore) CreateGroup(ctx context.Context, name, adminID string, memberIDs []string) (*types.Conversation, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) GetConversation(ctx context.Context, conversationID string) (*types.Conversation, error) {
	return nil, types.ErrConversationNotFound
}

func (f *fakeStore) ConversationHistory(ctx context.Context, conversationID string) ([]*types.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) HealthCheck(ctx context.Context) error { return nil }

func TestCanonicalKeyIsOrderIndependent(t *testing.T) {
	if CanonicalKey("u1", "u2") != CanonicalKey("u2", "u1") {
		t.Error("canonical key must not depend on argument order")
	}
	if got, want := CanonicalKey("zed", "alice"), "alice:zed"; got != want {
		t.Errorf("CanonicalKey = %q, want %q", got, want)
	}
}

func TestResolveOneToOneIsIdempotent(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store)
	ctx := context.Background()

	first, err := r.ResolveOneToOne(ctx, "u1", "u2")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	second, err := r.ResolveOneToOne(ctx, "u2", "u1")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("both orders must resolve to the same conversation: %s vs %s", first.ID, second.ID)
	}
}

func TestResolveOneToOneRejectsInvalidInput(t *testing.T) {
	r := NewResolver(newFakeStore())
	ctx := context.Background()

	if _, err := r.ResolveOneToOne(ctx, "u1", "u1"); err != ErrInvalidPair {
		t.Errorf("self-pair should fail with ErrInvalidPair, got %v", err)
	}
	if _, err := r.ResolveOneToOne(ctx, "bad id", "u2"); err != types.ErrInvalidParticipantID {
		t.Errorf("expected ErrInvalidParticipantID, got %v", err)
	}
	if _, err := r.ResolveOneToOne(ctx, "u1", ""); err != types.ErrInvalidParticipantID {
		t.Errorf("expected ErrInvalidParticipantID for empty ID, got %v", err)
	}
}

func TestResolveOneToOneWrapsStoreError(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("disk on fire")
	r := NewResolver(store)

	_, err := r.ResolveOneToOne(context.Background(), "u1", "u2")
	if err == nil || !errors.Is(err, store.err) {
		t.Errorf("store error should be wrapped, got %v", err)
	}
}

func TestConcurrentResolutionsConverge(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store)

	const n = 16
	results := make([]*types.Conversation, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := "u1", "u2"
			if i%2 == 1 {
				a, b = b, a
			}
			c, err := r.ResolveOneToOne(context.Background(), a, b)
			if err != nil {
				t.Errorf("resolve %d failed: %v", i, err)
				return
			}
			results[i] = c
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if results[i] == nil || results[0] == nil {
			t.Fatal("missing result")
		}
		if results[i].ID != results[0].ID {
			t.Fatalf("resolution %d diverged: %s vs %s", i, results[i].ID, results[0].ID)
		}
	}
}
