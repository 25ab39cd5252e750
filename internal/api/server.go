// Package api is the HTTP surface over the routing core: conversation
// resolution, group creation, history fetch and sends. No business
// logic lives here, only HTTP handling and JSON serialization.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/chanchleshkumar/BaatCheet/internal/hub"
	"github.com/chanchleshkumar/BaatCheet/internal/ingest"
	"github.com/chanchleshkumar/BaatCheet/internal/resolver"
	"github.com/chanchleshkumar/BaatCheet/pkg/interfaces"
	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

// Registry is the slice of session-registry behavior the API needs.
type Registry interface {
	Stats() map[string]int
}

// Server handles the REST endpoints.
type Server struct {
	store    interfaces.MessageStore
	verifier interfaces.IdentityVerifier
	resolver *resolver.Resolver
	hub      *hub.Hub
	registry Registry
	router   *http.ServeMux
}

// NewServer wires routes and middleware.
func NewServer(store interfaces.MessageStore, verifier interfaces.IdentityVerifier, res *resolver.Resolver, h *hub.Hub, reg Registry) *Server {
	s := &Server{
		store:    store,
		verifier: verifier,
		resolver: res,
		hub:      h,
		registry: reg,
		router:   http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Handle("/api/conversations/direct", s.corsMiddleware(s.jsonMiddleware(s.authMiddleware(s.handleDirect))))
	s.router.Handle("/api/conversations/group", s.corsMiddleware(s.jsonMiddleware(s.authMiddleware(s.handleGroup))))
	s.router.Handle("/api/conversations/", s.corsMiddleware(s.jsonMiddleware(s.authMiddleware(s.handleConversation))))
	s.router.Handle("/health", s.corsMiddleware(s.jsonMiddleware(http.HandlerFunc(s.healthCheck))))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Request/response types for JSON serialization.

type DirectConversationRequest struct {
	PeerID string `json:"peer_id"`
}

type GroupConversationRequest struct {
	Name           string   `json:"name"`
	ParticipantIDs []string `json:"participant_ids"`
}

type ConversationResponse struct {
	Conversation *types.Conversation `json:"conversation"`
}

type HistoryResponse struct {
	Messages []*types.Message `json:"messages"`
}

type SendMessageRequest struct {
	Body string `json:"body"`
}

type SendMessageResponse struct {
	Message *types.Message `json:"message"`
}

type HealthResponse struct {
	Status    string         `json:"status"`
	Timestamp time.Time      `json:"timestamp"`
	Database  string         `json:"database"`
	Sessions  map[string]int `json:"sessions"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// POST /api/conversations/direct — resolve the canonical one-to-one
// conversation with a peer, creating it exactly once.
func (s *Server) handleDirect(w http.ResponseWriter, r *http.Request, participantID string) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req DirectConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	conversation, err := s.resolver.ResolveOneToOne(r.Context(), participantID, req.PeerID)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrInvalidPair), errors.Is(err, types.ErrInvalidParticipantID):
			s.sendError(w, err.Error(), http.StatusBadRequest)
		default:
			log.Printf("Conversation resolution failed: %v", err)
			s.sendError(w, "Failed to resolve conversation", http.StatusInternalServerError)
		}
		return
	}

	s.sendJSON(w, ConversationResponse{Conversation: conversation}, http.StatusOK)
}

// POST /api/conversations/group — create a group conversation with the
// caller as admin.
func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request, participantID string) {
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req GroupConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.Name == "" || len(req.Name) > 200 {
		s.sendError(w, "Group name must be 1-200 characters", http.StatusBadRequest)
		return
	}
	for _, id := range req.ParticipantIDs {
		if !types.IsValidParticipantID(id) {
			s.sendError(w, "Invalid participant ID: "+id, http.StatusBadRequest)
			return
		}
	}

	conversation, err := s.store.CreateGroup(r.Context(), req.Name, participantID, req.ParticipantIDs)
	if err != nil {
		log.Printf("Group creation failed: %v", err)
		s.sendError(w, "Failed to create group", http.StatusInternalServerError)
		return
	}

	s.sendJSON(w, ConversationResponse{Conversation: conversation}, http.StatusCreated)
}

// /api/conversations/{id}/messages — GET history, POST a send.
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request, participantID string) {
	path := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "messages" {
		s.sendError(w, "Not found", http.StatusNotFound)
		return
	}
	conversationID := parts[0]

	conversation, err := s.store.GetConversation(r.Context(), conversationID)
	if err != nil {
		if errors.Is(err, types.ErrConversationNotFound) {
			s.sendError(w, "Conversation not found", http.StatusNotFound)
			return
		}
		log.Printf("Conversation lookup failed: %v", err)
		s.sendError(w, "Failed to load conversation", http.StatusInternalServerError)
		return
	}
	if !conversation.HasParticipant(participantID) {
		s.sendError(w, "Not a member of this conversation", http.StatusForbidden)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.history(w, r, conversationID)
	case http.MethodPost:
		s.sendMessage(w, r, participantID, conversationID)
	default:
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// history is the replay path for deliveries a client missed while
// disconnected or saturated.
func (s *Server) history(w http.ResponseWriter, r *http.Request, conversationID string) {
	messages, err := s.store.ConversationHistory(r.Context(), conversationID)
	if err != nil {
		log.Printf("History fetch failed: conversation=%s: %v", conversationID, err)
		s.sendError(w, "Failed to load history", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []*types.Message{}
	}
	s.sendJSON(w, HistoryResponse{Messages: messages}, http.StatusOK)
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request, participantID, conversationID string) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Detached context: an accepted send runs to completion even if
	// the HTTP client goes away.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	message, err := s.hub.Submit(ctx, participantID, conversationID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrEmptyBody), errors.Is(err, types.ErrBodyTooLarge):
			s.sendError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, ingest.ErrNotAMember):
			s.sendError(w, err.Error(), http.StatusForbidden)
		default:
			log.Printf("Send failed: sender=%s conversation=%s: %v", participantID, conversationID, err)
			s.sendError(w, "Message not sent", http.StatusInternalServerError)
		}
		return
	}

	s.sendJSON(w, SendMessageResponse{Message: message}, http.StatusCreated)
}

// GET /health
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Database:  "connected",
		Sessions:  s.registry.Stats(),
	}

	status := http.StatusOK
	if err := s.store.HealthCheck(r.Context()); err != nil {
		response.Status = "unhealthy"
		response.Database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	s.sendJSON(w, response, status)
}

// authHandler is an http.HandlerFunc with the verified participant.
type authHandler func(w http.ResponseWriter, r *http.Request, participantID string)

// authMiddleware verifies the Bearer token and passes the participant
// identity down; the core trusts it for the rest of the request.
func (s *Server) authMiddleware(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		header := r.Header.Get("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			s.sendError(w, "Missing bearer token", http.StatusUnauthorized)
			return
		}

		participantID, err := s.verifier.Verify(token)
		if err != nil {
			s.sendError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		next(w, r, participantID)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sendJSON(w http.ResponseWriter, payload interface{}, status int) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, status int) {
	s.sendJSON(w, ErrorResponse{Error: message, Code: status}, status)
}
