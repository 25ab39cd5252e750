// Package resolver maps a participant pair to its single canonical
// one-to-one conversation, creating it exactly once. The atomicity
// lives in the store's uniqueness constraint on the canonical pair key;
// a query-then-create without that guard is exactly the duplicate-
// conversation race this package exists to prevent.
package resolver

import (
	"context"
	"fmt"
	"log"

	"github.com/chanchleshkumar/BaatCheet/pkg/interfaces"
	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

// Resolver resolves one-to-one conversations against the store.
type Resolver struct {
	store interfaces.MessageStore
}

// NewResolver creates a resolver.
func NewResolver(store interfaces.MessageStore) *Resolver {
	return &Resolver{store: store}
}

// CanonicalKey derives the order-independent identifier for a
// participant pair: the two IDs sorted and joined, so (A,B) and (B,A)
// always map to the same conversation.
func CanonicalKey(participantA, participantB string) string {
	if participantA > participantB {
		participantA, participantB = participantB, participantA
	}
	return participantA + ":" + participantB
}

// ResolveOneToOne returns the conversation between two participants,
// creating it if absent. Idempotent and race-safe: concurrent calls for
// the same unordered pair all observe the same record.
func (r *Resolver) ResolveOneToOne(ctx context.Context, participantA, participantB string) (*types.Conversation, error) {
	if !types.IsValidParticipantID(participantA) || !types.IsValidParticipantID(participantB) {
		return nil, types.ErrInvalidParticipantID
	}
	if participantA == participantB {
		return nil, ErrInvalidPair
	}

	conversation, created, err := r.store.FindOrCreateOneToOne(ctx, CanonicalKey(participantA, participantB), participantA, participantB)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conversation: %w", err)
	}

	if created {
		log.Printf("Conversation created: conversation=%s participants=%s,%s", conversation.ID, participantA, participantB)
	}
	return conversation, nil
}
