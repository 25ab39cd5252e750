// Package notify holds the receiver-local message classification logic:
// a delivered message is a live update when the receiving session has
// the message's conversation focused, and a notification otherwise.
package notify

import (
	"sync"

	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

// Classify is a pure function of the session's focused conversation and
// the message's owning conversation. It holds no shared state; every
// receiving session evaluates it independently.
func Classify(focusedConversationID, messageConversationID string) types.Classification {
	if focusedConversationID != "" && focusedConversationID == messageConversationID {
		return types.ClassificationLiveUpdate
	}
	return types.ClassificationNotification
}

// Entry is one pending notification in a session's backlog.
type Entry struct {
	MessageID      string
	ConversationID string
}

// Backlog is a session's ordered, deduplicated sequence of
// notification-classified messages. Entries for a conversation are
// cleared when the session's focus switches to that conversation.
type Backlog struct {
	mu      sync.Mutex
	seen    map[string]bool
	entries []Entry
}

// NewBacklog creates an empty backlog.
func NewBacklog() *Backlog {
	return &Backlog{
		seen: make(map[string]bool),
	}
}

// Add appends a notification entry. It returns false if the message is
// already backlogged, keeping the sequence deduplicated by message ID.
func (b *Backlog) Add(messageID, conversationID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.seen[messageID] {
		return false
	}
	b.seen[messageID] = true
	b.entries = append(b.entries, Entry{MessageID: messageID, ConversationID: conversationID})
	return true
}

// ClearConversation drops all entries belonging to a conversation.
func (b *Backlog) ClearConversation(conversationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.entries[:0]
	for _, e := range b.entries {
		if e.ConversationID == conversationID {
			delete(b.seen, e.MessageID)
			continue
		}
		kept = append(kept, e)
	}
	b.entries = kept
}

// Entries returns a snapshot of the backlog in arrival order.
func (b *Backlog) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Len returns the number of pending entries.
func (b *Backlog) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
