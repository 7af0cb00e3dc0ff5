package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nassor22/maarifaHub/internal/inbox"
	"github.com/nassor22/maarifaHub/internal/models"
)

const memoryDB = ":memory:"

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens dbPath and seeds it from fixtures when it holds no
// conversations yet. If dbPath is empty, defaults to "./data/maarifa.db".
func NewSQLiteStore(ctx context.Context, dbPath string, seed *Fixtures) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/maarifa.db"
	}

	dsn := dbPath
	if dbPath != memoryDB {
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, err
		}
		dsn = dbPath + "?_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if dbPath == memoryDB {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if seed != nil {
		if err := store.seed(ctx, seed); err != nil {
			db.Close()
			return nil, err
		}
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		last_message TEXT DEFAULT '',
		time_label TEXT DEFAULT '',
		unread INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS messages (
		conversation_id TEXT NOT NULL REFERENCES conversations(id),
		seq INTEGER NOT NULL,
		is_own INTEGER DEFAULT 0,
		body TEXT NOT NULL,
		time_label TEXT DEFAULT '',
		PRIMARY KEY (conversation_id, seq)
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		type TEXT NOT NULL,
		text TEXT NOT NULL,
		time_label TEXT DEFAULT '',
		unread INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS reply_phrases (
		position INTEGER PRIMARY KEY,
		phrase TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_position ON conversations(position);
	CREATE INDEX IF NOT EXISTS idx_notifications_position ON notifications(position);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// seed loads fixtures into an empty database in one transaction.
func (s *SQLiteStore) seed(ctx context.Context, f *Fixtures) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversations`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, c := range f.Conversations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, position, name, last_message, time_label, unread)
			VALUES (?, ?, ?, ?, ?, ?)
		`, c.ID, i, c.Name, c.LastMessage, c.Time, c.Unread); err != nil {
			return fmt.Errorf("seed conversation %s: %w", c.ID, err)
		}
		for j, m := range c.Messages {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO messages (conversation_id, seq, is_own, body, time_label)
				VALUES (?, ?, ?, ?, ?)
			`, c.ID, j+1, m.Own, m.Text, m.Time); err != nil {
				return fmt.Errorf("seed message %s/%d: %w", c.ID, j+1, err)
			}
		}
	}
	for i, n := range f.Notifications {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO notifications (id, position, type, text, time_label, unread)
			VALUES (?, ?, ?, ?, ?, ?)
		`, n.ID, i, n.Type, n.Text, n.Time, n.Unread); err != nil {
			return fmt.Errorf("seed notification %s: %w", n.ID, err)
		}
	}
	for i, p := range f.ReplyPhrases {
		if _, err := tx.ExecContext(ctx, `INSERT INTO reply_phrases (position, phrase) VALUES (?, ?)`, i, p); err != nil {
			return fmt.Errorf("seed reply phrase: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Name() string { return "sqlite" }

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// LoadRoster reads conversations in directory order along with their seed
// messages and the reply phrase set.
func (s *SQLiteStore) LoadRoster(ctx context.Context) (inbox.Roster, error) {
	var roster inbox.Roster

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, last_message, time_label, unread
		FROM conversations ORDER BY position
	`)
	if err != nil {
		return roster, err
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.CounterpartName, &c.LastMessagePreview, &c.LastActivityLabel, &c.UnreadCount); err != nil {
			return roster, err
		}
		roster.Conversations = append(roster.Conversations, c)
	}
	if err := rows.Err(); err != nil {
		return roster, err
	}

	msgRows, err := s.db.QueryContext(ctx, `
		SELECT m.conversation_id, m.is_own, m.body, m.time_label
		FROM messages m JOIN conversations c ON c.id = m.conversation_id
		ORDER BY c.position, m.seq
	`)
	if err != nil {
		return roster, err
	}
	defer msgRows.Close()

	for msgRows.Next() {
		var m models.Message
		if err := msgRows.Scan(&m.ConversationID, &m.SenderIsSelf, &m.Body, &m.SentAtLabel); err != nil {
			return roster, err
		}
		roster.Messages = append(roster.Messages, m)
	}
	if err := msgRows.Err(); err != nil {
		return roster, err
	}

	phraseRows, err := s.db.QueryContext(ctx, `SELECT phrase FROM reply_phrases ORDER BY position`)
	if err != nil {
		return roster, err
	}
	defer phraseRows.Close()

	for phraseRows.Next() {
		var p string
		if err := phraseRows.Scan(&p); err != nil {
			return roster, err
		}
		roster.ReplyPhrases = append(roster.ReplyPhrases, p)
	}
	return roster, phraseRows.Err()
}

// ListNotifications returns notifications in load order.
func (s *SQLiteStore) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, type, text, time_label, unread
		FROM notifications ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []models.Notification{}
	for rows.Next() {
		var (
			n        models.Notification
			category string
		)
		if err := rows.Scan(&n.ID, &category, &n.Text, &n.TimeLabel, &n.Unread); err != nil {
			return nil, err
		}
		n.Category = models.ParseCategory(category)
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
