package main

import (
	"context"

	"github.com/nassor22/maarifaHub/clients/go/maarifa"
	"github.com/nassor22/maarifaHub/internal/feed"
	"github.com/nassor22/maarifaHub/internal/inbox"
	"github.com/nassor22/maarifaHub/internal/models"
)

// snapshot is everything the screen shows for one refresh.
type snapshot struct {
	active        string
	conversations []models.Conversation
	messages      []models.Message // log of the active conversation
}

// backend is where the inbox gets its state: an embedded session or a
// remote server.
type backend interface {
	snapshot(ctx context.Context) (snapshot, error)
	notifications(ctx context.Context) ([]models.Notification, error)
	selectConversation(ctx context.Context, id string) error
	send(ctx context.Context, conversationID, body string) error
	start(ctx context.Context, name string) (models.Conversation, error)

	// changes signals session mutations; nil means the caller must poll.
	changes() <-chan inbox.Event
	close()
}

type localBackend struct {
	session *inbox.Session
	feed    *feed.Feed
	events  <-chan inbox.Event
	cancel  func()
}

func newLocalBackend(session *inbox.Session, f *feed.Feed) *localBackend {
	events, cancel := session.Subscribe(64)
	return &localBackend{session: session, feed: f, events: events, cancel: cancel}
}

func (b *localBackend) snapshot(ctx context.Context) (snapshot, error) {
	active := b.session.Active()
	msgs, err := b.session.Messages(active)
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{
		active:        active,
		conversations: b.session.Conversations(),
		messages:      msgs,
	}, nil
}

func (b *localBackend) notifications(ctx context.Context) ([]models.Notification, error) {
	return b.feed.List(), nil
}

func (b *localBackend) selectConversation(ctx context.Context, id string) error {
	return b.session.SelectConversation(id)
}

func (b *localBackend) send(ctx context.Context, conversationID, body string) error {
	_, _, err := b.session.SendMessageTo(conversationID, body)
	return err
}

func (b *localBackend) start(ctx context.Context, name string) (models.Conversation, error) {
	return b.session.StartConversation(name)
}

func (b *localBackend) changes() <-chan inbox.Event { return b.events }

func (b *localBackend) close() {
	b.cancel()
	b.session.Close()
}

type remoteBackend struct {
	client *maarifa.Client
}

func (b *remoteBackend) snapshot(ctx context.Context) (snapshot, error) {
	list, err := b.client.Conversations(ctx)
	if err != nil {
		return snapshot{}, err
	}
	detail, err := b.client.Messages(ctx, list.Active)
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{
		active:        list.Active,
		conversations: list.Conversations,
		messages:      detail.Messages,
	}, nil
}

func (b *remoteBackend) notifications(ctx context.Context) ([]models.Notification, error) {
	resp, err := b.client.Notifications(ctx)
	if err != nil {
		return nil, err
	}
	return resp.Notifications, nil
}

func (b *remoteBackend) selectConversation(ctx context.Context, id string) error {
	_, err := b.client.Select(ctx, id)
	return err
}

func (b *remoteBackend) send(ctx context.Context, conversationID, body string) error {
	_, err := b.client.SendMessage(ctx, conversationID, body)
	return err
}

func (b *remoteBackend) start(ctx context.Context, name string) (models.Conversation, error) {
	c, err := b.client.StartConversation(ctx, name)
	if err != nil {
		return models.Conversation{}, err
	}
	return *c, nil
}

func (b *remoteBackend) changes() <-chan inbox.Event { return nil }

func (b *remoteBackend) close() {}
