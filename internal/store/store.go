// Package store is the SQLite persistence collaborator. All writes pass
// through a single writer goroutine; reads run concurrently on the
// connection pool. The store is the durability boundary of the system:
// the routing core never broadcasts anything this package has not
// persisted first.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/chanchleshkumar/BaatCheet/pkg/types"
)

// Config holds store settings.
type Config struct {
	Path            string
	MaxConnections  int
	ConnMaxLifetime time.Duration
}

// Store implements interfaces.MessageStore on SQLite.
type Store struct {
	db           *sql.DB
	writeChannel chan writeOperation
	shutdown     chan struct{}
	wg           sync.WaitGroup
	retryDelay   time.Duration

	mu     sync.RWMutex
	closed bool
}

// writeOperation is one queued write with its result channel.
type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewStore opens the database, applies migrations and starts the single
// writer goroutine.
func NewStore(cfg *Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.Path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := applyPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	s := newStoreWithDB(db)
	return s, nil
}

// newStoreWithDB wires the writer loop around an open handle. Split out
// so tests can inject a mocked *sql.DB.
func newStoreWithDB(db *sql.DB) *Store {
	s := &Store{
		db:           db,
		writeChannel: make(chan writeOperation, 100),
		shutdown:     make(chan struct{}),
		retryDelay:   5 * time.Second,
	}
	s.wg.Add(1)
	go s.writeLoop()
	return s
}

// writeLoop processes all write operations in a single goroutine.
// SQLite allows one writer at a time; serializing here avoids busy
// errors under concurrent sends.
func (s *Store) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeChannel:
			err := op.operation(s.db)
			if err != nil {
				log.Printf("Store write failed, retrying in %v: %v", s.retryDelay, err)
				time.Sleep(s.retryDelay)
				err = op.operation(s.db) // retry once
				if err != nil {
					log.Printf("Store write failed after retry: %v", err)
				}
			}
			op.result <- err

		case <-s.shutdown:
			log.Println("Store write loop shutting down")
			return
		}
	}
}

// executeWrite queues a write operation and waits for completion.
func (s *Store) executeWrite(ctx context.Context, operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrStoreClosed
	}
	s.mu.RUnlock()

	result := make(chan error, 1)

	select {
	case s.writeChannel <- writeOperation{operation: operation, result: result}:
		// A queued write runs to completion even if the caller's
		// context dies meanwhile: a sent message must not vanish
		// because the sender disconnected right after sending.
		return <-result
	case <-ctx.Done():
		return ctx.Err()
	case <-s.shutdown:
		return ErrStoreClosed
	}
}

// CreateMessage persists a new message and returns the canonical record.
func (s *Store) CreateMessage(ctx context.Context, senderID, conversationID, body string) (*types.Message, error) {
	message := &types.Message{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		ReadBy:         []string{},
		CreatedAt:      time.Now().UTC(),
	}

	err := s.executeWrite(ctx, func(db *sql.DB) error {
		readByJSON, err := json.Marshal(message.ReadBy)
		if err != nil {
			return fmt.Errorf("failed to marshal read_by: %w", err)
		}

		_, err = db.ExecContext(ctx, `
			INSERT INTO messages (id, conversation_id, sender_id, body, read_by, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, message.ID, message.ConversationID, message.SenderID, message.Body, string(readByJSON), message.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return message, nil
}

// UpdateLatestMessage moves the conversation's latest-activity pointer.
func (s *Store) UpdateLatestMessage(ctx context.Context, conversationID, messageID string) error {
	return s.executeWrite(ctx, func(db *sql.DB) error {
		result, err := db.ExecContext(ctx, `
			UPDATE conversations SET latest_message_id = ? WHERE id = ?
		`, messageID, conversationID)
		if err != nil {
			return fmt.Errorf("failed to update latest message: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check latest message update: %w", err)
		}
		if rows == 0 {
			return types.ErrConversationNotFound
		}
		return nil
	})
}

// FindOrCreateOneToOne inserts a one-to-one conversation if the pair
// key is absent and returns the surviving record either way. The
// ON CONFLICT DO NOTHING against the unique pair_key index keeps this
// atomic at the storage layer, so concurrent resolutions across
// goroutines or processes converge on one row.
func (s *Store) FindOrCreateOneToOne(ctx context.Context, pairKey, participantA, participantB string) (*types.Conversation, bool, error) {
	created := false

	err := s.executeWrite(ctx, func(db *sql.DB) error {
		created = false

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		result, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, pair_key, is_group, created_at)
			VALUES (?, ?, 0, ?)
			ON CONFLICT(pair_key) DO NOTHING
		`, uuid.New().String(), pairKey, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("failed to insert conversation: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check conversation insert: %w", err)
		}
		if rows == 0 {
			// Lost the race (or the pair already existed); the
			// read below returns the surviving record.
			return nil
		}

		var conversationID string
		if err := tx.QueryRowContext(ctx, "SELECT id FROM conversations WHERE pair_key = ?", pairKey).Scan(&conversationID); err != nil {
			return fmt.Errorf("failed to read inserted conversation: %w", err)
		}

		for _, participantID := range []string{participantA, participantB} {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO conversation_participants (conversation_id, participant_id)
				VALUES (?, ?)
			`, conversationID, participantID); err != nil {
				return fmt.Errorf("failed to insert participant: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit conversation creation: %w", err)
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	conversation, err := s.getConversationByPairKey(ctx, pairKey)
	if err != nil {
		return nil, false, err
	}
	return conversation, created, nil
}

// CreateGroup creates a group conversation with the admin included in
// the participant set.
func (s *Store) CreateGroup(ctx context.Context, name, adminID string, participantIDs []string) (*types.Conversation, error) {
	conversation := &types.Conversation{
		ID:        uuid.New().String(),
		IsGroup:   true,
		Name:      name,
		AdminID:   adminID,
		CreatedAt: time.Now().UTC(),
	}

	members := make(map[string]bool, len(participantIDs)+1)
	members[adminID] = true
	conversation.ParticipantIDs = append(conversation.ParticipantIDs, adminID)
	for _, id := range participantIDs {
		if !members[id] {
			members[id] = true
			conversation.ParticipantIDs = append(conversation.ParticipantIDs, id)
		}
	}
	if len(conversation.ParticipantIDs) < 2 {
		return nil, ErrTooFewParticipants
	}

	err := s.executeWrite(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, is_group, name, admin_id, created_at)
			VALUES (?, 1, ?, ?, ?)
		`, conversation.ID, conversation.Name, conversation.AdminID, conversation.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert group conversation: %w", err)
		}

		for _, participantID := range conversation.ParticipantIDs {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO conversation_participants (conversation_id, participant_id)
				VALUES (?, ?)
			`, conversation.ID, participantID); err != nil {
				return fmt.Errorf("failed to insert participant: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit group creation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return conversation, nil
}

// GetConversation loads a conversation with its participant set.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*types.Conversation, error) {
	return s.scanConversation(ctx, `
		SELECT id, is_group, name, admin_id, latest_message_id, created_at
		FROM conversations
		WHERE id = ?
	`, conversationID)
}

func (s *Store) getConversationByPairKey(ctx context.Context, pairKey string) (*types.Conversation, error) {
	return s.scanConversation(ctx, `
		SELECT id, is_group, name, admin_id, latest_message_id, created_at
		FROM conversations
		WHERE pair_key = ?
	`, pairKey)
}

func (s *Store) scanConversation(ctx context.Context, query string, arg string) (*types.Conversation, error) {
	row := s.db.QueryRowContext(ctx, query, arg)

	var conversation types.Conversation
	var name, adminID, latestMessageID sql.NullString
	err := row.Scan(&conversation.ID, &conversation.IsGroup, &name, &adminID, &latestMessageID, &conversation.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, types.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	conversation.Name = name.String
	conversation.AdminID = adminID.String
	conversation.LatestMessageID = latestMessageID.String

	rows, err := s.db.QueryContext(ctx, `
		SELECT participant_id FROM conversation_participants
		WHERE conversation_id = ?
		ORDER BY participant_id
	`, conversation.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var participantID string
		if err := rows.Scan(&participantID); err != nil {
			return nil, fmt.Errorf("failed to scan participant row: %w", err)
		}
		conversation.ParticipantIDs = append(conversation.ParticipantIDs, participantID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participant rows: %w", err)
	}

	return &conversation, nil
}

// ConversationHistory returns all messages of a conversation in
// persisted order.
func (s *Store) ConversationHistory(ctx context.Context, conversationID string) ([]*types.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, body, read_by, created_at
		FROM messages
		WHERE conversation_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*types.Message
	for rows.Next() {
		var message types.Message
		var readByJSON string
		if err := rows.Scan(&message.ID, &message.ConversationID, &message.SenderID, &message.Body, &readByJSON, &message.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		if err := json.Unmarshal([]byte(readByJSON), &message.ReadBy); err != nil {
			return nil, fmt.Errorf("failed to unmarshal read_by: %w", err)
		}
		messages = append(messages, &message)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return messages, nil
}

// HealthCheck validates database connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if _, err := s.db.QueryContext(ctx, "SELECT COUNT(*) FROM conversations LIMIT 1"); err != nil {
		return fmt.Errorf("database read test failed: %w", err)
	}
	return nil
}

// Close shuts down the writer loop and the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}
	return nil
}
