package types

import "time"

// Server-to-client event types.
const (
	EventRegistered       = "registered"
	EventTypingStarted    = "typing-started"
	EventTypingStopped    = "typing-stopped"
	EventMessageDelivered = "message-delivered"
	EventSendFailed       = "send-failed"
	EventError            = "error"
)

// Client-to-server frame types.
const (
	FrameRegister         = "register"
	FrameJoinConversation = "join-conversation"
	FrameLeaveFocus       = "leave-focus"
	FrameTypingStarted    = "typing-started"
	FrameTypingStopped    = "typing-stopped"
	FrameSendMessage      = "send-message"
)

// Event is the payload fanned out to sessions over the wire. Fields are
// populated per event type; Classification is filled in per receiving
// session at delivery time.
type Event struct {
	Type           string         `json:"type"`
	ConversationID string         `json:"conversation_id,omitempty"`
	ParticipantID  string         `json:"participant_id,omitempty"`
	SessionID      string         `json:"session_id,omitempty"`
	Message        *Message       `json:"message,omitempty"`
	Classification Classification `json:"classification,omitempty"`
	Reason         string         `json:"reason,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}

// NewMessageDeliveredEvent builds the fan-out event for a persisted
// message. Classification is left empty until delivery.
func NewMessageDeliveredEvent(msg *Message) *Event {
	return &Event{
		Type:           EventMessageDelivered,
		ConversationID: msg.ConversationID,
		ParticipantID:  msg.SenderID,
		Message:        msg,
		Timestamp:      time.Now(),
	}
}

// NewTypingEvent builds a typing-started or typing-stopped event for a
// participant in a conversation room.
func NewTypingEvent(eventType, participantID, conversationID string) *Event {
	return &Event{
		Type:           eventType,
		ConversationID: conversationID,
		ParticipantID:  participantID,
		Timestamp:      time.Now(),
	}
}

// ClientFrame is a single inbound protocol frame.
type ClientFrame struct {
	Type           string `json:"type"`
	Token          string `json:"token,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	Body           string `json:"body,omitempty"`
}
