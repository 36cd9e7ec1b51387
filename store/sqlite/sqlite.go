// Package sqlite persists chats and messages for the demo assistant server.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/assistkit/assistpanel/model"
)

// Store manages chat and message persistence in SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chats (
			id            TEXT PRIMARY KEY,
			title         TEXT NOT NULL DEFAULT '',
			current_topic TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS messages (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			chat_id    TEXT NOT NULL,
			role       TEXT NOT NULL,
			content    TEXT NOT NULL,
			meta       TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			FOREIGN KEY (chat_id) REFERENCES chats(id)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_chat_id
			ON messages(chat_id);
	`)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// CreateChat inserts a new chat and returns its summary.
func (s *Store) CreateChat(id model.ID, title string) (model.ChatSummary, error) {
	ts := now()
	_, err := s.db.Exec(
		`INSERT INTO chats (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		string(id), title, ts, ts,
	)
	if err != nil {
		return model.ChatSummary{}, err
	}
	return model.ChatSummary{ID: id, Title: title, CreatedAt: ts, UpdatedAt: ts}, nil
}

// GetChat retrieves a chat summary by ID.
func (s *Store) GetChat(id model.ID) (model.ChatSummary, error) {
	var c model.ChatSummary
	var sid string
	err := s.db.QueryRow(
		`SELECT id, title, current_topic, created_at, updated_at FROM chats WHERE id = ?`,
		string(id),
	).Scan(&sid, &c.Title, &c.CurrentTopic, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.ChatSummary{}, err
	}
	c.ID = model.ID(sid)
	return c, nil
}

// ListChats returns all chats ordered by last activity (newest first).
func (s *Store) ListChats() ([]model.ChatSummary, error) {
	rows, err := s.db.Query(
		`SELECT id, title, current_topic, created_at, updated_at
		 FROM chats ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chats []model.ChatSummary
	for rows.Next() {
		var c model.ChatSummary
		var sid string
		if err := rows.Scan(&sid, &c.Title, &c.CurrentTopic, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.ID = model.ID(sid)
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// SetTitle renames a chat and touches its updated_at.
func (s *Store) SetTitle(id model.ID, title string) error {
	_, err := s.db.Exec(
		`UPDATE chats SET title = ?, updated_at = ? WHERE id = ?`,
		title, now(), string(id),
	)
	return err
}

// Touch bumps a chat's updated_at to now.
func (s *Store) Touch(id model.ID) error {
	_, err := s.db.Exec(`UPDATE chats SET updated_at = ? WHERE id = ?`, now(), string(id))
	return err
}

// DeleteChat removes a chat and its messages.
func (s *Store) DeleteChat(id model.ID) error {
	if _, err := s.db.Exec(`DELETE FROM messages WHERE chat_id = ?`, string(id)); err != nil {
		return err
	}
	res, err := s.db.Exec(`DELETE FROM chats WHERE id = ?`, string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AddMessage appends a message to a chat. The optional meta bag is stored
// as a JSON column. The message's ID and CreatedAt are filled in.
func (s *Store) AddMessage(chatID model.ID, msg *model.Message) error {
	var meta string
	if msg.Meta != nil {
		data, err := json.Marshal(msg.Meta)
		if err != nil {
			return fmt.Errorf("encoding message meta: %w", err)
		}
		meta = string(data)
	}
	if msg.CreatedAt == "" {
		msg.CreatedAt = now()
	}
	result, err := s.db.Exec(
		`INSERT INTO messages (chat_id, role, content, meta, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		string(chatID), string(msg.Role), msg.Content, meta, msg.CreatedAt,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	msg.ID = id
	return nil
}

// GetMessages returns all messages for a chat in insertion order.
func (s *Store) GetMessages(chatID model.ID) ([]model.Message, error) {
	rows, err := s.db.Query(
		`SELECT id, role, content, meta, created_at
		 FROM messages WHERE chat_id = ? ORDER BY id ASC`,
		string(chatID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []model.Message
	for rows.Next() {
		var m model.Message
		var role, meta string
		if err := rows.Scan(&m.ID, &role, &m.Content, &meta, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Role = model.Role(role)
		if meta != "" {
			var mm model.MessageMeta
			if err := json.Unmarshal([]byte(meta), &mm); err != nil {
				return nil, fmt.Errorf("decoding message meta: %w", err)
			}
			m.Meta = &mm
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
