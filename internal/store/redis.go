package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nassor22/maarifaHub/internal/inbox"
)

const (
	recentEventsKey = "events:recent"
	recentEventsMax = 200
	recentEventsTTL = 24 * time.Hour
)

// RedisStore wraps the Redis client shared by the rate limiter and the
// session event log.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Client returns the underlying Redis client.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// EventRecord is the stored form of a session event.
type EventRecord struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	ConversationID string `json:"conversationId"`
	MessageID      int64  `json:"messageId,omitempty"`
	Unread         int    `json:"unread"`
	Timestamp      int64  `json:"ts"`
}

func newEventRecord(ev inbox.Event, at time.Time) EventRecord {
	rec := EventRecord{
		ID:             ulid.Make().String(),
		Kind:           string(ev.Kind),
		ConversationID: ev.ConversationID,
		Unread:         ev.Unread,
		Timestamp:      at.UnixMilli(),
	}
	if ev.Message != nil {
		rec.MessageID = ev.Message.ID
	}
	return rec
}

// RecordEvent pushes an event onto the capped recent-activity list.
func (s *RedisStore) RecordEvent(ctx context.Context, ev inbox.Event) error {
	data, err := json.Marshal(newEventRecord(ev, time.Now()))
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, recentEventsKey, data)
	pipe.LTrim(ctx, recentEventsKey, 0, recentEventsMax-1)
	pipe.Expire(ctx, recentEventsKey, recentEventsTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentEvents returns up to limit events, newest first.
func (s *RedisStore) RecentEvents(ctx context.Context, limit int) ([]EventRecord, error) {
	if limit <= 0 || limit > recentEventsMax {
		limit = recentEventsMax
	}

	results, err := s.client.LRange(ctx, recentEventsKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, err
	}

	events := make([]EventRecord, 0, len(results))
	for _, data := range results {
		var rec EventRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			continue
		}
		events = append(events, rec)
	}
	return events, nil
}

// MirrorEvents copies session events into Redis until the channel closes
// or ctx is done. Write failures are reported through onError and do not
// stop the mirror.
func (s *RedisStore) MirrorEvents(ctx context.Context, events <-chan inbox.Event, onError func(error)) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := s.RecordEvent(ctx, ev); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
