package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chanchleshkumar/BaatCheet/internal/auth"
	"github.com/chanchleshkumar/BaatCheet/internal/hub"
	"github.com/chanchleshkumar/BaatCheet/internal/ingest"
	"github.com/chanchleshkumar/BaatCheet/internal/registry"
	"github.com/chanchleshkumar/BaatCheet/internal/resolver"
	"github.com/chanchleshkumar/BaatCheet/internal/router"
	"github.com/chanchleshkumar/BaatCheet/internal/store"
)

type testEnv struct {
	server   *Server
	verifier *auth.Verifier
	store    *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := store.NewStore(&store.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	reg := registry.NewRegistry()
	rtr := router.NewRouter(reg)
	pipeline := ingest.NewPipeline(st, rtr, reg.SessionsOf)
	h := hub.NewHub(pipeline)
	require.NoError(t, h.Start(context.Background()))
	t.Cleanup(func() { _ = h.Stop() })

	verifier := auth.NewVerifier("test-secret", "baatcheet", time.Hour)
	server := NewServer(st, verifier, resolver.NewResolver(st), h, reg)

	return &testEnv{server: server, verifier: verifier, store: st}
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) token(t *testing.T, participantID string) string {
	t.Helper()

	token, err := e.verifier.GenerateToken(participantID, "")
	require.NoError(t, err)
	return token
}

func TestDirectConversationEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "u1")

	rec := env.request(t, http.MethodPost, "/api/conversations/direct", token, DirectConversationRequest{PeerID: "u2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var first ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.ElementsMatch(t, []string{"u1", "u2"}, first.Conversation.ParticipantIDs)
	assert.False(t, first.Conversation.IsGroup)

	// The peer resolving from their side lands on the same conversation.
	rec = env.request(t, http.MethodPost, "/api/conversations/direct", env.token(t, "u2"), DirectConversationRequest{PeerID: "u1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var second ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.Conversation.ID, second.Conversation.ID)
}

func TestDirectConversationRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "u1")

	// Self-pair.
	rec := env.request(t, http.MethodPost, "/api/conversations/direct", token, DirectConversationRequest{PeerID: "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Invalid peer ID.
	rec = env.request(t, http.MethodPost, "/api/conversations/direct", token, DirectConversationRequest{PeerID: "not valid!"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Wrong method.
	rec = env.request(t, http.MethodGet, "/api/conversations/direct", token, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/conversations/direct", "", DirectConversationRequest{PeerID: "u2"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodPost, "/api/conversations/direct", "garbage-token", DirectConversationRequest{PeerID: "u2"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGroupConversationEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "admin")

	rec := env.request(t, http.MethodPost, "/api/conversations/group", token, GroupConversationRequest{
		Name:           "team",
		ParticipantIDs: []string{"u1", "u2"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Conversation.IsGroup)
	assert.Equal(t, "admin", resp.Conversation.AdminID)
	assert.ElementsMatch(t, []string{"admin", "u1", "u2"}, resp.Conversation.ParticipantIDs)

	// Empty name rejected.
	rec = env.request(t, http.MethodPost, "/api/conversations/group", token, GroupConversationRequest{ParticipantIDs: []string{"u1"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Invalid member ID rejected.
	rec = env.request(t, http.MethodPost, "/api/conversations/group", token, GroupConversationRequest{
		Name:           "team",
		ParticipantIDs: []string{"bad id"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendAndHistory(t *testing.T) {
	env := newTestEnv(t)
	tokenU1 := env.token(t, "u1")

	rec := env.request(t, http.MethodPost, "/api/conversations/direct", tokenU1, DirectConversationRequest{PeerID: "u2"})
	require.Equal(t, http.StatusOK, rec.Code)
	var conv ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	convID := conv.Conversation.ID

	rec = env.request(t, http.MethodPost, "/api/conversations/"+convID+"/messages", tokenU1, SendMessageRequest{Body: "hello"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sent SendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))
	assert.Equal(t, "hello", sent.Message.Body)
	assert.Equal(t, "u1", sent.Message.SenderID)

	rec = env.request(t, http.MethodGet, "/api/conversations/"+convID+"/messages", env.token(t, "u2"), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var history HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Messages, 1)
	assert.Equal(t, sent.Message.ID, history.Messages[0].ID)
}

func TestConversationAccessControl(t *testing.T) {
	env := newTestEnv(t)
	tokenU1 := env.token(t, "u1")

	rec := env.request(t, http.MethodPost, "/api/conversations/direct", tokenU1, DirectConversationRequest{PeerID: "u2"})
	require.Equal(t, http.StatusOK, rec.Code)
	var conv ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	convID := conv.Conversation.ID

	// Non-member cannot read or send.
	outsider := env.token(t, "u3")
	rec = env.request(t, http.MethodGet, "/api/conversations/"+convID+"/messages", outsider, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.request(t, http.MethodPost, "/api/conversations/"+convID+"/messages", outsider, SendMessageRequest{Body: "hi"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Unknown conversation.
	rec = env.request(t, http.MethodGet, "/api/conversations/missing/messages", tokenU1, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSendValidation(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "u1")

	rec := env.request(t, http.MethodPost, "/api/conversations/direct", token, DirectConversationRequest{PeerID: "u2"})
	require.Equal(t, http.StatusOK, rec.Code)
	var conv ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))

	rec = env.request(t, http.MethodPost, "/api/conversations/"+conv.Conversation.ID+"/messages", token, SendMessageRequest{Body: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.request(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "connected", health.Database)
	assert.Contains(t, health.Sessions, "sessions")
}
