package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chanchleshkumar/BaatCheet/internal/config"
	"github.com/chanchleshkumar/BaatCheet/internal/hub"
	"github.com/chanchleshkumar/BaatCheet/internal/registry"
	"github.com/chanchleshkumar/BaatCheet/internal/typing"
	"github.com/chanchleshkumar/BaatCheet/pkg/interfaces"
	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is a deployment concern; tighten behind a
		// reverse proxy in production.
		return true
	},
	HandshakeTimeout: 10 * time.Second,
}

// Handler owns the connection protocol: upgrade, register, then a frame
// loop dispatching to the registry, typing tracker and hub.
type Handler struct {
	registry *registry.Registry
	hub      *hub.Hub
	typing   *typing.Tracker
	verifier interfaces.IdentityVerifier
	store    interfaces.MessageStore
	cfg      config.WebSocketConfig
}

// NewHandler creates a handler with its dependencies.
func NewHandler(reg *registry.Registry, h *hub.Hub, tracker *typing.Tracker, verifier interfaces.IdentityVerifier, store interfaces.MessageStore, cfg config.WebSocketConfig) *Handler {
	return &Handler{
		registry: reg,
		hub:      h,
		typing:   tracker,
		verifier: verifier,
		store:    store,
		cfg:      cfg,
	}
}

// HandleWebSocket upgrades the request and runs the connection to
// completion. The first frame must be register{token}; until identity
// verification succeeds, no session exists and nothing is routed.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn := NewConnection(raw, h.cfg.QueueSize, h.cfg.WriteTimeout)

	session, err := h.register(conn, raw)
	if err != nil {
		log.Printf("Registration refused: %v", err)
		_ = conn.Close()
		return
	}

	h.runSession(conn, raw, session)
}

// register reads and verifies the registration frame.
func (h *Handler) register(conn *Connection, raw *websocket.Conn) (*registry.Session, error) {
	if err := raw.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
		return nil, err
	}

	var frame types.ClientFrame
	if err := raw.ReadJSON(&frame); err != nil {
		return nil, err
	}
	if frame.Type != types.FrameRegister {
		return nil, ErrRegisterExpected
	}

	participantID, err := h.verifier.Verify(frame.Token)
	if err != nil {
		// Connection is refused outright; the client sees the close,
		// not a session.
		return nil, err
	}

	session, err := h.registry.Register(conn, participantID)
	if err != nil {
		return nil, err
	}

	ack := &types.Event{
		Type:          types.EventRegistered,
		SessionID:     session.ID,
		ParticipantID: participantID,
		Timestamp:     time.Now(),
	}
	if err := conn.Enqueue(ack, false); err != nil {
		_, _ = h.registry.Deregister(session.ID)
		return nil, err
	}
	return session, nil
}

// runSession owns the read side of one registered connection.
func (h *Handler) runSession(conn *Connection, raw *websocket.Conn, session *registry.Session) {
	defer h.teardown(conn, session)

	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ticker.C:
				if err := raw.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
					return
				}
			case <-conn.Done():
				return
			}
		}
	}()

	for {
		if err := raw.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout)); err != nil {
			return
		}
		var frame types.ClientFrame
		if err := raw.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: session=%s: %v", session.ID, err)
			}
			return
		}
		h.dispatch(conn, session, &frame)
	}
}

// dispatch routes one inbound frame. Registry misuse is logged and
// ignored; the connection may already be racing its own teardown.
func (h *Handler) dispatch(conn *Connection, session *registry.Session, frame *types.ClientFrame) {
	switch frame.Type {
	case types.FrameJoinConversation:
		h.joinConversation(conn, session, frame.ConversationID)

	case types.FrameLeaveFocus:
		if err := h.registry.LeaveFocus(session.ID); err != nil {
			log.Printf("Leave focus ignored: session=%s: %v", session.ID, err)
		}

	case types.FrameTypingStarted:
		if h.registry.SessionInRoom(session.ID, frame.ConversationID) {
			h.typing.Signal(session.ParticipantID, frame.ConversationID)
		}

	case types.FrameTypingStopped:
		if h.registry.SessionInRoom(session.ID, frame.ConversationID) {
			h.typing.Stop(session.ParticipantID, frame.ConversationID)
		}

	case types.FrameSendMessage:
		h.sendMessage(conn, session, frame)

	default:
		h.sendError(conn, "unknown frame type: "+frame.Type)
	}
}

// joinConversation binds the session to a conversation room after a
// membership check against the persisted record.
func (h *Handler) joinConversation(conn *Connection, session *registry.Session, conversationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conversation, err := h.store.GetConversation(ctx, conversationID)
	if err != nil {
		h.sendError(conn, "conversation not found")
		return
	}
	if !conversation.HasParticipant(session.ParticipantID) {
		h.sendError(conn, "not a member of this conversation")
		return
	}

	if err := h.registry.JoinRoom(session.ID, conversationID); err != nil {
		log.Printf("Join room ignored: session=%s room=%s: %v", session.ID, conversationID, err)
	}
}

// sendMessage pushes a send through the hub. The submit context is
// deliberately detached from the connection: a message accepted for
// persistence must complete even if the sender disconnects right after.
func (h *Handler) sendMessage(conn *Connection, session *registry.Session, frame *types.ClientFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := h.hub.Submit(ctx, session.ParticipantID, frame.ConversationID, frame.Body); err != nil {
		// The sender learns the message is unsent; no optimistic
		// success is ever reported.
		failure := &types.Event{
			Type:           types.EventSendFailed,
			ConversationID: frame.ConversationID,
			Reason:         err.Error(),
			Timestamp:      time.Now(),
		}
		if enqErr := conn.Enqueue(failure, false); enqErr != nil {
			log.Printf("Send-failed delivery failed: session=%s: %v", session.ID, enqErr)
		}
	}
}

func (h *Handler) sendError(conn *Connection, reason string) {
	event := &types.Event{
		Type:      types.EventError,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	if err := conn.Enqueue(event, false); err != nil && !errors.Is(err, ErrConnectionClosed) {
		log.Printf("Error delivery failed: %v", err)
	}
}

// teardown removes the session from every room and stops its typing
// timers where no other session of the participant remains.
func (h *Handler) teardown(conn *Connection, session *registry.Session) {
	removed, err := h.registry.Deregister(session.ID)
	_ = conn.Close()
	if err != nil {
		return // already deregistered by a racing teardown
	}

	for _, roomID := range removed.Rooms() {
		if roomID == removed.ParticipantID {
			continue // personal room, no typing state
		}
		if !h.registry.ParticipantInRoom(removed.ParticipantID, roomID) {
			h.typing.Stop(removed.ParticipantID, roomID)
		}
	}
}
