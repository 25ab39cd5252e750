package interfaces

import "github.com/chanchleshkumar/BaatCheet/pkg/types"

// EventSink is one session's outbound side. Enqueue must never block the
// caller: implementations queue the event and deliver asynchronously.
// Droppable events (typing signals) may be discarded oldest-first under
// backpressure; non-droppable events are only ever delayed.
type EventSink interface {
	Enqueue(event *types.Event, droppable bool) error
}

// EventPublisher delivers an event to every session currently bound to
// a room, minus the excluded session IDs. Delivery is best-effort and
// isolated per recipient.
type EventPublisher interface {
	Publish(roomID string, event *types.Event, excludeSessionIDs ...string)
}

// IdentityVerifier is the identity collaborator contract: it turns an
// opaque token into a participant ID, consumed once at registration.
type IdentityVerifier interface {
	Verify(token string) (string, error)
}
