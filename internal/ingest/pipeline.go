// Package ingest validates and durably persists outbound messages, then
// fans them out. Persist-then-publish is the one hard ordering rule
// here: an unpersisted message is never broadcast, because the store is
// the only source of truth a reconnecting client can replay from.
package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/chanchleshkumar/BaatCheet/pkg/interfaces"
	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

// Pipeline runs the send sequence: membership check, persist, update
// the latest-message pointer, publish to the conversation room.
type Pipeline struct {
	store      interfaces.MessageStore
	publisher  interfaces.EventPublisher
	sessionsOf func(participantID string) []string
	retryDelay time.Duration
}

// NewPipeline creates a pipeline. sessionsOf supplies the sender's own
// session IDs so their message is not echoed back to them.
func NewPipeline(store interfaces.MessageStore, publisher interfaces.EventPublisher, sessionsOf func(string) []string) *Pipeline {
	return &Pipeline{
		store:      store,
		publisher:  publisher,
		sessionsOf: sessionsOf,
		retryDelay: 5 * time.Second,
	}
}

// Send validates, persists and fans out one message.
//
// Failure handling follows the durability boundary: a persistence
// failure aborts with no broadcast; a latest-pointer failure is logged
// and retried asynchronously (a stale pointer is cosmetic, not a
// delivery-correctness problem); individual delivery failures never
// roll anything back and are invisible to the sender.
func (p *Pipeline) Send(ctx context.Context, senderID, conversationID, body string) (*types.Message, error) {
	if err := types.ValidateBody(body); err != nil {
		return nil, err
	}

	conversation, err := p.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if !conversation.HasParticipant(senderID) {
		return nil, ErrNotAMember
	}

	message, err := p.store.CreateMessage(ctx, senderID, conversationID, body)
	if err != nil {
		return nil, fmt.Errorf("failed to persist message: %w", err)
	}

	if err := p.store.UpdateLatestMessage(ctx, conversationID, message.ID); err != nil {
		log.Printf("Latest-message update failed, retrying asynchronously: conversation=%s message=%s: %v",
			conversationID, message.ID, err)
		go p.retryLatestMessage(conversationID, message.ID)
	}

	event := types.NewMessageDeliveredEvent(message)
	p.publisher.Publish(conversationID, event, p.sessionsOf(senderID)...)

	return message, nil
}

// retryLatestMessage retries the pointer update once off the send path.
// Runs on a background context: the update must not be tied to the
// lifetime of the request that triggered it.
func (p *Pipeline) retryLatestMessage(conversationID, messageID string) {
	time.Sleep(p.retryDelay)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := p.store.UpdateLatestMessage(ctx, conversationID, messageID); err != nil {
		log.Printf("Latest-message retry failed: conversation=%s message=%s: %v", conversationID, messageID, err)
	}
}
