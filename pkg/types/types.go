package types

import (
	"time"
)

// Classification is the receiver-local verdict on a delivered message:
// a live update for the conversation the session has open, or a
// notification for everything else.
type Classification string

const (
	ClassificationLiveUpdate   Classification = "live_update"
	ClassificationNotification Classification = "notification"
)

// Participant is the identity handed to the routing core by the auth
// collaborator. The core never mutates it.
type Participant struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Conversation is a delivery channel between two or more participants.
// One-to-one conversations are created by the resolver and are unique
// per unordered participant pair; groups come from the group-creation
// collaborator. Only the latest-message pointer changes after creation.
type Conversation struct {
	ID              string    `json:"id"`
	ParticipantIDs  []string  `json:"participant_ids"`
	IsGroup         bool      `json:"is_group"`
	Name            string    `json:"name,omitempty"`
	AdminID         string    `json:"admin_id,omitempty"`
	LatestMessageID string    `json:"latest_message_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// HasParticipant reports whether id is a member of the conversation.
func (c *Conversation) HasParticipant(id string) bool {
	for _, p := range c.ParticipantIDs {
		if p == id {
			return true
		}
	}
	return false
}

// Message is the canonical persisted record. Immutable after creation
// except for the read-by set, which is maintained outside this core.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	ReadBy         []string  `json:"read_by"`
	CreatedAt      time.Time `json:"created_at"`
}
