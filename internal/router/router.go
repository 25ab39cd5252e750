// Package router fans events out to the sessions of a room.
package router

import (
	"github.com/chanchleshkumar/BaatCheet/internal/registry"
	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

// Router delivers events to room members. Pure routing: no persistence,
// no classification (that runs per receiving session), no replay for
// sessions that join after a publish.
type Router struct {
	registry *registry.Registry
}

// NewRouter creates a router over the given session registry.
func NewRouter(reg *registry.Registry) *Router {
	return &Router{registry: reg}
}

// Publish delivers event to every session currently bound to roomID
// except the excluded session IDs. Delivery is best-effort and
// non-blocking per recipient: each session hands the event to its own
// outbound queue, so one slow recipient never stalls the rest.
func (r *Router) Publish(roomID string, event *types.Event, excludeSessionIDs ...string) {
	sessions := r.registry.RoomSessions(roomID)
	if len(sessions) == 0 {
		return
	}

	var excluded map[string]bool
	if len(excludeSessionIDs) > 0 {
		excluded = make(map[string]bool, len(excludeSessionIDs))
		for _, id := range excludeSessionIDs {
			excluded[id] = true
		}
	}

	for _, session := range sessions {
		if excluded[session.ID] {
			continue
		}
		session.Deliver(event)
	}
}
