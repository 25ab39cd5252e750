// Package registry tracks live sessions and their room memberships.
// A room is pure routing state: a participant's personal room (room id
// == participant id) or a conversation room (room id == conversation
// id). Membership is derived entirely from session state; nothing here
// survives a restart, and nothing needs to.
package registry

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/chanchleshkumar/BaatCheet/internal/notify"
	"github.com/chanchleshkumar/BaatCheet/pkg/interfaces"
	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

// Session is one live connection's runtime record. A participant may
// hold any number of concurrent sessions; each carries its own focus
// and notification backlog.
type Session struct {
	ID            string
	ParticipantID string

	sink interfaces.EventSink

	mu      sync.Mutex
	rooms   map[string]bool
	focus   string // conversation room id, "" when no conversation is open
	backlog *notify.Backlog
}

// Focus returns the session's currently focused conversation, or "".
func (s *Session) Focus() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.focus
}

// Rooms returns a snapshot of the room IDs the session is bound to.
func (s *Session) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.rooms))
	for r := range s.rooms {
		out = append(out, r)
	}
	return out
}

// Backlog exposes the session's notification backlog.
func (s *Session) Backlog() *notify.Backlog {
	return s.backlog
}

// Deliver hands an event to the session's sink. Message events are
// classified against the session's focus at this moment; notification-
// classified messages also land in the backlog, deduplicated by message
// ID. Delivery failures are logged and isolated to this one session.
func (s *Session) Deliver(event *types.Event) {
	if event.Type == types.EventMessageDelivered && event.Message != nil {
		s.mu.Lock()
		classification := notify.Classify(s.focus, event.Message.ConversationID)
		if classification == types.ClassificationNotification {
			if !s.backlog.Add(event.Message.ID, event.Message.ConversationID) {
				s.mu.Unlock()
				return // already backlogged, do not deliver twice
			}
		}
		s.mu.Unlock()

		classified := *event
		classified.Classification = classification
		if err := s.sink.Enqueue(&classified, false); err != nil {
			log.Printf("Delivery failed: session=%s event=%s: %v", s.ID, event.Type, err)
		}
		return
	}

	droppable := event.Type == types.EventTypingStarted || event.Type == types.EventTypingStopped
	if err := s.sink.Enqueue(event, droppable); err != nil {
		log.Printf("Delivery failed: session=%s event=%s: %v", s.ID, event.Type, err)
	}
}

// Registry is the in-memory session and room index.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session             // sessionID -> Session
	bySink   map[interfaces.EventSink]string // connection -> sessionID, guards double registration
	rooms    map[string]map[string]*Session  // roomID -> sessionID -> Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		bySink:   make(map[interfaces.EventSink]string),
		rooms:    make(map[string]map[string]*Session),
	}
}

// Register creates a session for a connection and binds it to the
// participant's personal room. Registering the same connection twice
// fails with ErrDuplicateSession.
func (r *Registry) Register(sink interfaces.EventSink, participantID string) (*Session, error) {
	if sink == nil {
		return nil, ErrNilSink
	}
	if !types.IsValidParticipantID(participantID) {
		return nil, ErrInvalidParticipantID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySink[sink]; exists {
		return nil, ErrDuplicateSession
	}

	session := &Session{
		ID:            uuid.New().String(),
		ParticipantID: participantID,
		sink:          sink,
		rooms:         make(map[string]bool),
		backlog:       notify.NewBacklog(),
	}

	r.sessions[session.ID] = session
	r.bySink[sink] = session.ID
	r.addToRoom(session, participantID) // personal room, never focused

	log.Printf("Session registered: session=%s participant=%s", session.ID, participantID)
	return session, nil
}

// JoinRoom adds the session to a conversation room and makes that
// conversation the session's focus, replacing any prior focus. Pending
// notifications for the newly focused conversation are cleared.
func (r *Registry) JoinRoom(sessionID, roomID string) error {
	r.mu.Lock()
	session, exists := r.sessions[sessionID]
	if !exists {
		r.mu.Unlock()
		return ErrUnknownSession
	}
	r.addToRoom(session, roomID)
	r.mu.Unlock()

	session.mu.Lock()
	session.rooms[roomID] = true
	session.focus = roomID
	session.mu.Unlock()

	session.backlog.ClearConversation(roomID)
	return nil
}

// LeaveFocus clears the session's focused conversation without removing
// any room membership. Used when the client navigates away from the
// open conversation.
func (r *Registry) LeaveFocus(sessionID string) error {
	r.mu.RLock()
	session, exists := r.sessions[sessionID]
	r.mu.RUnlock()
	if !exists {
		return ErrUnknownSession
	}

	session.mu.Lock()
	session.focus = ""
	session.mu.Unlock()
	return nil
}

// Deregister removes the session and all of its room memberships. It
// returns the removed session so callers can run follow-up cleanup
// (typing timers) against its former rooms.
func (r *Registry) Deregister(sessionID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[sessionID]
	if !exists {
		return nil, ErrUnknownSession
	}

	delete(r.sessions, sessionID)
	delete(r.bySink, session.sink)

	session.mu.Lock()
	for roomID := range session.rooms {
		r.removeFromRoom(sessionID, roomID)
	}
	r.removeFromRoom(sessionID, session.ParticipantID)
	session.mu.Unlock()

	log.Printf("Session deregistered: session=%s participant=%s", sessionID, session.ParticipantID)
	return session, nil
}

// GetSession returns a session by ID.
func (r *Registry) GetSession(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[sessionID]
	return session, exists
}

// RoomSessions returns a snapshot of the sessions currently bound to a
// room. A room with no members simply yields an empty slice.
func (r *Registry) RoomSessions(roomID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, exists := r.rooms[roomID]
	if !exists {
		return nil
	}
	out := make([]*Session, 0, len(members))
	for _, s := range members {
		out = append(out, s)
	}
	return out
}

// SessionsOf returns the session IDs held by a participant.
func (r *Registry) SessionsOf(participantID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for id, s := range r.sessions {
		if s.ParticipantID == participantID {
			out = append(out, id)
		}
	}
	return out
}

// ParticipantInRoom reports whether any session of the participant is
// still bound to the room.
func (r *Registry) ParticipantInRoom(participantID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.rooms[roomID] {
		if s.ParticipantID == participantID {
			return true
		}
	}
	return false
}

// SessionInRoom reports whether the given session is bound to the room.
func (r *Registry) SessionInRoom(sessionID, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.rooms[roomID][sessionID]
	return exists
}

// Stats returns registry counters for the health endpoint.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"sessions": len(r.sessions),
		"rooms":    len(r.rooms),
	}
}

// addToRoom and removeFromRoom require r.mu held for writing.
func (r *Registry) addToRoom(session *Session, roomID string) {
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]*Session)
	}
	r.rooms[roomID][session.ID] = session
}

func (r *Registry) removeFromRoom(sessionID, roomID string) {
	members, exists := r.rooms[roomID]
	if !exists {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}
