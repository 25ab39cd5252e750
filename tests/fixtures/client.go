// Package fixtures provides a WebSocket test client for end-to-end
// scenarios against a running server.
package fixtures

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

// TestClient is a scripted WebSocket participant. It registers with a
// token on connect and collects every server event for assertions.
type TestClient struct {
	ParticipantID string
	SessionID     string

	serverURL string
	token     string

	conn   *websocket.Conn
	events chan *types.Event
	done   chan struct{}

	mu        sync.Mutex
	closed    bool
	connected bool
}

// NewTestClient creates a client for the given participant token.
func NewTestClient(participantID, token, serverURL string) *TestClient {
	return &TestClient{
		ParticipantID: participantID,
		serverURL:     serverURL,
		token:         token,
		events:        make(chan *types.Event, 100),
		done:          make(chan struct{}),
	}
}

// Connect dials the server, sends the register frame and waits for the
// registered acknowledgement.
func (tc *TestClient) Connect(ctx context.Context) error {
	tc.mu.Lock()
	if tc.connected {
		tc.mu.Unlock()
		return fmt.Errorf("client already connected")
	}
	tc.mu.Unlock()

	u, err := url.Parse(tc.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if err := conn.WriteJSON(&types.ClientFrame{Type: types.FrameRegister, Token: tc.token}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to send register frame: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var ack types.Event
	if err := conn.ReadJSON(&ack); err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to read registration ack: %w", err)
	}
	if ack.Type != types.EventRegistered {
		_ = conn.Close()
		return fmt.Errorf("expected %s ack, got %s", types.EventRegistered, ack.Type)
	}
	tc.SessionID = ack.SessionID

	tc.mu.Lock()
	tc.conn = conn
	tc.connected = true
	tc.mu.Unlock()

	go tc.readLoop()
	return nil
}

func (tc *TestClient) readLoop() {
	defer close(tc.done)

	for {
		tc.mu.Lock()
		conn, closed := tc.conn, tc.closed
		tc.mu.Unlock()
		if closed || conn == nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		var event types.Event
		if err := conn.ReadJSON(&event); err != nil {
			return
		}

		select {
		case tc.events <- &event:
		default:
			// Event buffer full; scenarios never get close to this.
		}
	}
}

// JoinConversation binds the client's session to a conversation room
// and makes it the focused conversation.
func (tc *TestClient) JoinConversation(conversationID string) error {
	return tc.writeFrame(&types.ClientFrame{Type: types.FrameJoinConversation, ConversationID: conversationID})
}

// LeaveFocus clears the focused conversation.
func (tc *TestClient) LeaveFocus() error {
	return tc.writeFrame(&types.ClientFrame{Type: types.FrameLeaveFocus})
}

// SendMessage submits a message over the socket.
func (tc *TestClient) SendMessage(conversationID, body string) error {
	return tc.writeFrame(&types.ClientFrame{Type: types.FrameSendMessage, ConversationID: conversationID, Body: body})
}

// StartTyping signals one input event.
func (tc *TestClient) StartTyping(conversationID string) error {
	return tc.writeFrame(&types.ClientFrame{Type: types.FrameTypingStarted, ConversationID: conversationID})
}

// StopTyping ends the typing burst.
func (tc *TestClient) StopTyping(conversationID string) error {
	return tc.writeFrame(&types.ClientFrame{Type: types.FrameTypingStopped, ConversationID: conversationID})
}

func (tc *TestClient) writeFrame(frame *types.ClientFrame) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if !tc.connected || tc.conn == nil {
		return fmt.Errorf("client not connected")
	}
	return tc.conn.WriteJSON(frame)
}

// WaitForEvent blocks until an event of the given type arrives or the
// timeout elapses. Other event types received meanwhile are discarded.
func (tc *TestClient) WaitForEvent(eventType string, timeout time.Duration) (*types.Event, error) {
	deadline := time.After(timeout)
	for {
		select {
		case event := <-tc.events:
			if event.Type == eventType {
				return event, nil
			}
		case <-deadline:
			return nil, fmt.Errorf("timed out waiting for %s", eventType)
		case <-tc.done:
			return nil, fmt.Errorf("connection closed while waiting for %s", eventType)
		}
	}
}

// ExpectNoEvent asserts that no event of the given type arrives within
// the window. Other event types are ignored.
func (tc *TestClient) ExpectNoEvent(eventType string, window time.Duration) error {
	deadline := time.After(window)
	for {
		select {
		case event := <-tc.events:
			if event.Type == eventType {
				return fmt.Errorf("unexpected %s event", eventType)
			}
		case <-deadline:
			return nil
		case <-tc.done:
			return nil
		}
	}
}

// Close tears the connection down.
func (tc *TestClient) Close() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.closed {
		return
	}
	tc.closed = true
	if tc.conn != nil {
		_ = tc.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = tc.conn.Close()
	}
}
