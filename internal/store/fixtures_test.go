package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nassor22/maarifaHub/internal/inbox"
	"github.com/nassor22/maarifaHub/internal/models"
)

func TestEmbeddedFixtures(t *testing.T) {
	f, err := LoadFixtures("")
	require.NoError(t, err)

	roster := f.Roster()
	require.Len(t, roster.Conversations, 3)
	assert.Equal(t, "Dr. Amina Kamau", roster.Conversations[0].CounterpartName)
	assert.Equal(t, 2, roster.Conversations[0].UnreadCount)
	assert.Equal(t, "5h ago", roster.Conversations[1].LastActivityLabel)
	assert.Equal(t, 1, roster.Conversations[2].UnreadCount)

	require.Len(t, roster.Messages, 3)
	assert.Equal(t, "10:30 AM", roster.Messages[0].SentAtLabel)
	assert.False(t, roster.Messages[0].SenderIsSelf)
	assert.True(t, roster.Messages[1].SenderIsSelf)
	for _, m := range roster.Messages {
		assert.Equal(t, "conv1", m.ConversationID)
	}
	assert.NotEmpty(t, roster.ReplyPhrases)

	notes := f.NotificationList()
	require.Len(t, notes, 4)
	assert.Equal(t, models.CategoryAnswer, notes[0].Category)
	for _, n := range notes {
		_, err := ulid.Parse(n.ID)
		assert.NoError(t, err, n.ID)
	}
}

func TestFixtureNotificationIDsAreStable(t *testing.T) {
	f, err := ParseFixtures([]byte(`
conversations:
  - id: a
    name: Alice
notifications:
  - id: keep-me
    type: upvote
    text: one
  - type: mystery
    text: two
`))
	require.NoError(t, err)

	first := f.NotificationList()
	second := f.NotificationList()
	assert.Equal(t, first, second)
	assert.Equal(t, "keep-me", first[0].ID)
	assert.Equal(t, models.CategoryOther, first[1].Category)
}

func TestParseFixturesRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		err  error
	}{
		{"empty roster", `conversations: []`, inbox.ErrEmptyRoster},
		{"blank name", "conversations:\n  - id: a\n    name: ' '", inbox.ErrInvalidName},
		{"duplicate id", "conversations:\n  - id: a\n    name: A\n  - id: a\n    name: B", inbox.ErrDuplicateConversation},
		{"blank message", "conversations:\n  - id: a\n    name: A\n    messages:\n      - text: ''", inbox.ErrEmptyBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFixtures([]byte(tt.doc))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	_, err := ParseFixtures([]byte("conversations:\n  - name: A"))
	assert.Error(t, err)
	_, err = ParseFixtures([]byte("conversations: ["))
	assert.Error(t, err)
}

func TestLoadFixturesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.yaml")
	require.NoError(t, os.WriteFile(path, []byte("conversations:\n  - id: x\n    name: Xavier\nreplyPhrases: [ok]\n"), 0o644))

	f, err := LoadFixtures(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, f.Roster().ReplyPhrases)

	_, err = LoadFixtures(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestFixtureStore(t *testing.T) {
	f, err := LoadFixtures("")
	require.NoError(t, err)

	src, err := Open(context.Background(), "", f)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, "fixtures", src.Name())
	assert.NoError(t, src.Ping(context.Background()))

	roster, notes, err := Load(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, roster.Conversations, 3)
	assert.Len(t, notes, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.LoadRoster(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewFixtureStore(nil)
	assert.Error(t, err)
}
