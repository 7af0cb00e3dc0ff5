package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/nassor22/maarifaHub/internal/inbox"
	"github.com/nassor22/maarifaHub/internal/models"
)

//go:embed fixtures.yaml
var embeddedFixtures []byte

// Fixtures is the YAML form of a roster. It seeds the database sources and
// backs the fixture source directly.
type Fixtures struct {
	Conversations []ConversationFixture `yaml:"conversations"`
	Notifications []NotificationFixture `yaml:"notifications"`
	ReplyPhrases  []string              `yaml:"replyPhrases"`
}

type ConversationFixture struct {
	ID          string           `yaml:"id"`
	Name        string           `yaml:"name"`
	LastMessage string           `yaml:"lastMessage"`
	Time        string           `yaml:"time"`
	Unread      int              `yaml:"unread"`
	Messages    []MessageFixture `yaml:"messages"`
}

type MessageFixture struct {
	Text string `yaml:"text"`
	Time string `yaml:"time"`
	Own  bool   `yaml:"own"`
}

type NotificationFixture struct {
	ID     string `yaml:"id"`
	Type   string `yaml:"type"`
	Text   string `yaml:"text"`
	Time   string `yaml:"time"`
	Unread bool   `yaml:"unread"`
}

// LoadFixtures reads fixtures from path, or the embedded set when path is empty.
func LoadFixtures(path string) (*Fixtures, error) {
	if path == "" {
		return ParseFixtures(embeddedFixtures)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes and validates a fixture document. Notifications
// without an id are given a ULID.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}

	if len(f.Conversations) == 0 {
		return nil, inbox.ErrEmptyRoster
	}
	seen := make(map[string]bool, len(f.Conversations))
	for i, c := range f.Conversations {
		if strings.TrimSpace(c.ID) == "" {
			return nil, fmt.Errorf("fixtures: conversation %d has no id", i)
		}
		if strings.TrimSpace(c.Name) == "" {
			return nil, fmt.Errorf("fixtures: conversation %s: %w", c.ID, inbox.ErrInvalidName)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("fixtures: %w: %s", inbox.ErrDuplicateConversation, c.ID)
		}
		seen[c.ID] = true
		for j, m := range c.Messages {
			if strings.TrimSpace(m.Text) == "" {
				return nil, fmt.Errorf("fixtures: conversation %s message %d: %w", c.ID, j, inbox.ErrEmptyBody)
			}
		}
	}

	for i := range f.Notifications {
		if f.Notifications[i].ID == "" {
			f.Notifications[i].ID = ulid.Make().String()
		}
	}
	return &f, nil
}

// Roster converts the fixtures into session input.
func (f *Fixtures) Roster() inbox.Roster {
	r := inbox.Roster{ReplyPhrases: append([]string(nil), f.ReplyPhrases...)}
	for _, c := range f.Conversations {
		r.Conversations = append(r.Conversations, models.Conversation{
			ID:                 c.ID,
			CounterpartName:    c.Name,
			LastMessagePreview: c.LastMessage,
			LastActivityLabel:  c.Time,
			UnreadCount:        c.Unread,
		})
		for _, m := range c.Messages {
			r.Messages = append(r.Messages, models.Message{
				ConversationID: c.ID,
				SenderIsSelf:   m.Own,
				Body:           m.Text,
				SentAtLabel:    m.Time,
			})
		}
	}
	return r
}

func (f *Fixtures) NotificationList() []models.Notification {
	out := make([]models.Notification, 0, len(f.Notifications))
	for _, n := range f.Notifications {
		out = append(out, models.Notification{
			ID:        n.ID,
			Category:  models.ParseCategory(n.Type),
			Text:      n.Text,
			TimeLabel: n.Time,
			Unread:    n.Unread,
		})
	}
	return out
}

// FixtureStore serves a roster straight from fixtures.
type FixtureStore struct {
	fixtures *Fixtures
}

func NewFixtureStore(f *Fixtures) (*FixtureStore, error) {
	if f == nil {
		return nil, errors.New("fixture store: no fixtures")
	}
	return &FixtureStore{fixtures: f}, nil
}

func (s *FixtureStore) Name() string { return "fixtures" }

func (s *FixtureStore) Close() {}

func (s *FixtureStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *FixtureStore) LoadRoster(ctx context.Context) (inbox.Roster, error) {
	if err := ctx.Err(); err != nil {
		return inbox.Roster{}, err
	}
	return s.fixtures.Roster(), nil
}

func (s *FixtureStore) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fixtures.NotificationList(), nil
}
