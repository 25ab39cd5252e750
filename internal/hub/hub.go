// Package hub serializes message sends through a single processing
// loop. With one goroutine running persist-then-publish, the publish
// order on every conversation room matches the persisted order, which
// is the per-room delivery-ordering guarantee recipients rely on.
package hub

import (
	"context"
	"log"
	"sync"

	"github.com/chanchleshkumar/BaatCheet/internal/ingest"
	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

// sendRequest is one queued send with its result channel.
type sendRequest struct {
	ctx            context.Context
	senderID       string
	conversationID string
	body           string
	result         chan sendResult
}

type sendResult struct {
	message *types.Message
	err     error
}

// Hub owns the send loop.
type Hub struct {
	requests chan *sendRequest
	shutdown chan struct{}
	pipeline *ingest.Pipeline

	mu      sync.RWMutex
	running bool
}

// NewHub creates a hub over the ingestion pipeline.
func NewHub(pipeline *ingest.Pipeline) *Hub {
	return &Hub{
		requests: make(chan *sendRequest, 1000), // buffer absorbs send bursts
		shutdown: make(chan struct{}),
		pipeline: pipeline,
	}
}

// Start begins hub processing.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return ErrHubAlreadyRunning
	}
	h.running = true
	h.mu.Unlock()

	log.Println("Starting message hub...")
	go h.run(ctx)
	return nil
}

// Stop shuts the hub down. Queued requests fail with ErrHubNotRunning.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return ErrHubNotRunning
	}
	h.running = false

	select {
	case <-h.shutdown:
	default:
		close(h.shutdown)
	}
	return nil
}

// Submit queues a send and waits for its outcome. Persistence failures
// surface here, synchronously, to the initiating request; the caller
// reports the message as unsent. Delivery failures never do.
func (h *Hub) Submit(ctx context.Context, senderID, conversationID, body string) (*types.Message, error) {
	h.mu.RLock()
	if !h.running {
		h.mu.RUnlock()
		return nil, ErrHubNotRunning
	}
	h.mu.RUnlock()

	req := &sendRequest{
		ctx:            ctx,
		senderID:       senderID,
		conversationID: conversationID,
		body:           body,
		result:         make(chan sendResult, 1),
	}

	select {
	case h.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.shutdown:
		return nil, ErrHubNotRunning
	}

	// The result channel is buffered: once queued, the send runs to
	// completion in the loop even if this caller gives up waiting.
	select {
	case res := <-req.result:
		return res.message, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.shutdown:
		return nil, ErrHubNotRunning
	}
}

// run is the single processing loop.
func (h *Hub) run(ctx context.Context) {
	defer log.Println("Hub processing stopped")

	for {
		select {
		case req := <-h.requests:
			message, err := h.pipeline.Send(req.ctx, req.senderID, req.conversationID, req.body)
			if err != nil {
				log.Printf("Send failed: sender=%s conversation=%s: %v", req.senderID, req.conversationID, err)
			}
			req.result <- sendResult{message: message, err: err}

		case <-h.shutdown:
			return

		case <-ctx.Done():
			log.Println("Hub context cancelled")
			return
		}
	}
}
