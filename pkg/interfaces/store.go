package interfaces

import (
	"context"

	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

// MessageStore is the persistence collaborator contract consumed by the
// routing core. The store is the durability boundary: a message exists
// once CreateMessage returns, and one-to-one conversation uniqueness is
// enforced by a storage-level constraint inside FindOrCreateOneToOne.
type MessageStore interface {
	// CreateMessage durably persists an outbound message and returns
	// the canonical stored record.
	CreateMessage(ctx context.Context, senderID, conversationID, body string) (*types.Message, error)

	// UpdateLatestMessage moves the conversation's latest-activity
	// pointer to the given message.
	UpdateLatestMessage(ctx context.Context, conversationID, messageID string) error

	// FindOrCreateOneToOne returns the single conversation for a
	// canonical pair key, creating it atomically if absent. The boolean
	// reports whether this call created the record.
	FindOrCreateOneToOne(ctx context.Context, pairKey, participantA, participantB string) (*types.Conversation, bool, error)

	// CreateGroup creates a group conversation owned by adminID.
	CreateGroup(ctx context.Context, name, adminID string, participantIDs []string) (*types.Conversation, error)

	// GetConversation loads a conversation with its participant set.
	GetConversation(ctx context.Context, conversationID string) (*types.Conversation, error)

	// ConversationHistory returns all messages of a conversation in
	// persisted order. This is the recovery path for missed deliveries.
	ConversationHistory(ctx context.Context, conversationID string) ([]*types.Message, error)

	// HealthCheck validates storage connectivity.
	HealthCheck(ctx context.Context) error
}
