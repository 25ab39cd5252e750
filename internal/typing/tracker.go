// Package typing debounces high-frequency typing signals into at most
// two events per continuous burst: one typing-started when the first
// input arrives, one typing-stopped when the inactivity window elapses
// or the participant leaves the conversation room.
package typing

import (
	"sync"
	"time"

	"github.com/chanchleshkumar/BaatCheet/pkg/interfaces"
	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

// DefaultWindow is the inactivity window after the last input event.
const DefaultWindow = 3 * time.Second

// Tracker holds per (participant, conversation) typing state.
type Tracker struct {
	publisher  interfaces.EventPublisher
	sessionsOf func(participantID string) []string
	window     time.Duration

	mu     sync.Mutex
	active map[string]*time.Timer // typing key -> inactivity timer
}

// NewTracker creates a tracker publishing through the given publisher.
// sessionsOf supplies the typist's own session IDs so their devices do
// not receive their own typing signals. A non-positive window falls
// back to DefaultWindow.
func NewTracker(publisher interfaces.EventPublisher, sessionsOf func(string) []string, window time.Duration) *Tracker {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Tracker{
		publisher:  publisher,
		sessionsOf: sessionsOf,
		window:     window,
		active:     make(map[string]*time.Timer),
	}
}

// Signal records one input event. The first signal of a burst publishes
// typing-started; every further signal only resets the inactivity
// timer, so keystroke count never changes the event rate.
func (t *Tracker) Signal(participantID, conversationID string) {
	key := typingKey(participantID, conversationID)

	t.mu.Lock()
	if timer, exists := t.active[key]; exists {
		timer.Reset(t.window)
		t.mu.Unlock()
		return
	}
	t.active[key] = time.AfterFunc(t.window, func() {
		t.expire(participantID, conversationID)
	})
	t.mu.Unlock()

	t.publish(types.EventTypingStarted, participantID, conversationID)
}

// Stop ends a typing burst immediately, publishing typing-stopped if
// the participant was typing. Called on an explicit stop signal and
// when the participant leaves the conversation room.
func (t *Tracker) Stop(participantID, conversationID string) {
	key := typingKey(participantID, conversationID)

	t.mu.Lock()
	timer, exists := t.active[key]
	if exists {
		timer.Stop()
		delete(t.active, key)
	}
	t.mu.Unlock()

	if exists {
		t.publish(types.EventTypingStopped, participantID, conversationID)
	}
}

// expire fires from the inactivity timer.
func (t *Tracker) expire(participantID, conversationID string) {
	key := typingKey(participantID, conversationID)

	t.mu.Lock()
	_, exists := t.active[key]
	if exists {
		delete(t.active, key)
	}
	t.mu.Unlock()

	// A concurrent Stop may have already ended the burst.
	if exists {
		t.publish(types.EventTypingStopped, participantID, conversationID)
	}
}

func (t *Tracker) publish(eventType, participantID, conversationID string) {
	event := types.NewTypingEvent(eventType, participantID, conversationID)
	t.publisher.Publish(conversationID, event, t.sessionsOf(participantID)...)
}

func typingKey(participantID, conversationID string) string {
	return participantID + "\x00" + conversationID
}
