package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nassor22/maarifaHub/internal/inbox"
	"github.com/nassor22/maarifaHub/internal/models"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	name TEXT NOT NULL,
	last_message TEXT NOT NULL DEFAULT '',
	time_label TEXT NOT NULL DEFAULT '',
	unread INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
	conversation_id TEXT NOT NULL REFERENCES conversations(id),
	seq INTEGER NOT NULL,
	is_own BOOLEAN NOT NULL DEFAULT FALSE,
	body TEXT NOT NULL,
	time_label TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (conversation_id, seq)
);

CREATE TABLE IF NOT EXISTS notifications (
	id TEXT PRIMARY KEY,
	position INTEGER NOT NULL,
	type TEXT NOT NULL,
	text TEXT NOT NULL,
	time_label TEXT NOT NULL DEFAULT '',
	unread BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS reply_phrases (
	position INTEGER PRIMARY KEY,
	phrase TEXT NOT NULL
);
`

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool,
// ensures the schema exists and seeds it from fixtures when empty.
func NewPostgresStore(ctx context.Context, databaseURL string, seed *Fixtures) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s := &PostgresStore{pool: pool}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if seed != nil {
		if err := s.seed(ctx, seed); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *PostgresStore) seed(ctx context.Context, f *Fixtures) error {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT TRUE FROM conversations LIMIT 1`).Scan(&exists)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, pgx.ErrNoRows):
		return err
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i, c := range f.Conversations {
			batch.Queue(`
				INSERT INTO conversations (id, position, name, last_message, time_label, unread)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, c.ID, i, c.Name, c.LastMessage, c.Time, c.Unread)
			for j, m := range c.Messages {
				batch.Queue(`
					INSERT INTO messages (conversation_id, seq, is_own, body, time_label)
					VALUES ($1, $2, $3, $4, $5)
				`, c.ID, j+1, m.Own, m.Text, m.Time)
			}
		}
		for i, n := range f.Notifications {
			batch.Queue(`
				INSERT INTO notifications (id, position, type, text, time_label, unread)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, n.ID, i, n.Type, n.Text, n.Time, n.Unread)
		}
		for i, p := range f.ReplyPhrases {
			batch.Queue(`INSERT INTO reply_phrases (position, phrase) VALUES ($1, $2)`, i, p)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func (s *PostgresStore) Name() string { return "postgres" }

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// LoadRoster reads conversations in directory order along with their seed
// messages and the reply phrase set.
func (s *PostgresStore) LoadRoster(ctx context.Context) (inbox.Roster, error) {
	var roster inbox.Roster

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, last_message, time_label, unread
		FROM conversations ORDER BY position
	`)
	if err != nil {
		return roster, err
	}
	roster.Conversations, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Conversation, error) {
		var c models.Conversation
		err := row.Scan(&c.ID, &c.CounterpartName, &c.LastMessagePreview, &c.LastActivityLabel, &c.UnreadCount)
		return c, err
	})
	if err != nil {
		return roster, err
	}

	rows, err = s.pool.Query(ctx, `
		SELECT m.conversation_id, m.is_own, m.body, m.time_label
		FROM messages m JOIN conversations c ON c.id = m.conversation_id
		ORDER BY c.position, m.seq
	`)
	if err != nil {
		return roster, err
	}
	roster.Messages, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Message, error) {
		var m models.Message
		err := row.Scan(&m.ConversationID, &m.SenderIsSelf, &m.Body, &m.SentAtLabel)
		return m, err
	})
	if err != nil {
		return roster, err
	}

	rows, err = s.pool.Query(ctx, `SELECT phrase FROM reply_phrases ORDER BY position`)
	if err != nil {
		return roster, err
	}
	roster.ReplyPhrases, err = pgx.CollectRows(rows, pgx.RowTo[string])
	return roster, err
}

// ListNotifications returns notifications in load order.
func (s *PostgresStore) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, type, text, time_label, unread
		FROM notifications ORDER BY position
	`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Notification, error) {
		var (
			n        models.Notification
			category string
		)
		err := row.Scan(&n.ID, &category, &n.Text, &n.TimeLabel, &n.Unread)
		n.Category = models.ParseCategory(category)
		return n, err
	})
}
