package store

import (
	"context"
	"strings"
	"time"

	"github.com/nassor22/maarifaHub/internal/inbox"
	"github.com/nassor22/maarifaHub/internal/metrics"
	"github.com/nassor22/maarifaHub/internal/models"
)

// RosterSource provides the initial state of a session.
// FixtureStore, SQLiteStore and PostgresStore implement this interface.
type RosterSource interface {
	Name() string

	// Connection management
	Close()
	Ping(ctx context.Context) error

	LoadRoster(ctx context.Context) (inbox.Roster, error)
	ListNotifications(ctx context.Context) ([]models.Notification, error)
}

// Open picks a roster source from a database URL: postgres:// and
// postgresql:// go to PostgreSQL, a sqlite: prefix or a bare path go to
// SQLite, and an empty URL serves the fixtures directly. Database sources
// are seeded from fixtures on first use.
func Open(ctx context.Context, databaseURL string, fixtures *Fixtures) (RosterSource, error) {
	switch {
	case databaseURL == "":
		return NewFixtureStore(fixtures)
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return NewPostgresStore(ctx, databaseURL, fixtures)
	default:
		return NewSQLiteStore(ctx, strings.TrimPrefix(databaseURL, "sqlite:"), fixtures)
	}
}

// Load reads roster and notifications from a source, recording how long it took.
func Load(ctx context.Context, src RosterSource) (inbox.Roster, []models.Notification, error) {
	start := time.Now()
	defer func() {
		metrics.RosterLoadDuration.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())
	}()

	roster, err := src.LoadRoster(ctx)
	if err != nil {
		return inbox.Roster{}, nil, err
	}
	notes, err := src.ListNotifications(ctx)
	if err != nil {
		return inbox.Roster{}, nil, err
	}
	return roster, notes, nil
}
