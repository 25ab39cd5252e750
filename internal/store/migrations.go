package store

import (
	"database/sql"
	"fmt"
)

// Migration is one versioned schema change.
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// migrations are applied in order at startup. The UNIQUE index on
// pair_key is the storage-level guard that keeps one-to-one
// conversations unique per unordered participant pair; it must hold
// even with multiple server processes on the same database. Group
// conversations carry a NULL pair_key, which the index never collides.
var migrations = []Migration{
	{
		Version:     "001",
		Description: "conversations, participants and messages",
		SQL: `
			CREATE TABLE conversations (
				id                TEXT PRIMARY KEY,
				pair_key          TEXT,
				is_group          INTEGER NOT NULL DEFAULT 0,
				name              TEXT,
				admin_id          TEXT,
				latest_message_id TEXT,
				created_at        DATETIME NOT NULL
			);

			CREATE UNIQUE INDEX idx_conversations_pair_key
				ON conversations(pair_key);

			CREATE TABLE conversation_participants (
				conversation_id TEXT NOT NULL REFERENCES conversations(id),
				participant_id  TEXT NOT NULL,
				PRIMARY KEY (conversation_id, participant_id)
			);

			CREATE INDEX idx_participants_participant
				ON conversation_participants(participant_id);

			CREATE TABLE messages (
				id              TEXT PRIMARY KEY,
				conversation_id TEXT NOT NULL REFERENCES conversations(id),
				sender_id       TEXT NOT NULL,
				body            TEXT NOT NULL,
				read_by         TEXT NOT NULL DEFAULT '[]',
				created_at      DATETIME NOT NULL
			);

			CREATE INDEX idx_messages_conversation_time
				ON messages(conversation_id, created_at);
		`,
	},
}

// applyMigrations brings the schema up to date, tracking applied
// versions in schema_migrations.
func applyMigrations(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	for _, migration := range migrations {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", migration.Version).Scan(&count); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", migration.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin migration %s: %w", migration.Version, err)
		}

		if _, err := tx.Exec(migration.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %s (%s) failed: %w", migration.Version, migration.Description, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", migration.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", migration.Version, err)
		}
	}

	return nil
}
