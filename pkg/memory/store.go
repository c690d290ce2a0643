package memory

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists conversation messages across restarts.
type Store interface {
	Append(msg Message) error
	Load(limit int) ([]Message, error)
	Clear() error
	Close() error
}

// SQLiteStore stores messages in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS conversation_messages (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	timestamp TEXT NOT NULL,
	metadata TEXT
);
`

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Append(msg Message) error {
	var metadata []byte
	if msg.Metadata != nil {
		var err error
		metadata, err = json.Marshal(msg.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
	}

	_, err := s.db.Exec(
		`INSERT INTO conversation_messages (id, role, content, timestamp, metadata) VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.Role, msg.Content, msg.Timestamp.Format(time.RFC3339Nano), string(metadata),
	)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

// Load returns the newest limit messages in chronological order.
func (s *SQLiteStore) Load(limit int) ([]Message, error) {
	rows, err := s.db.Query(
		`SELECT id, role, content, timestamp, metadata FROM (
			SELECT * FROM conversation_messages ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var ts, metadata string
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &ts, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if msg.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &msg.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM conversation_messages`); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
