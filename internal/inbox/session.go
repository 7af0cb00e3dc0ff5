package inbox

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nassor22/maarifaHub/internal/ids"
	"github.com/nassor22/maarifaHub/internal/metrics"
	"github.com/nassor22/maarifaHub/internal/models"
)

// Roster is the initial state of a session.
type Roster struct {
	Conversations []models.Conversation
	Messages      []models.Message // seed log, grouped by ConversationID
	ReplyPhrases  []string
}

// Options configures a Session.
type Options struct {
	Scheduler     Scheduler
	ReplyMinDelay time.Duration
	ReplyMaxDelay time.Duration
	Rand          *rand.Rand
	Logger        zerolog.Logger
}

// Session is the conversation controller. It owns the directory and the
// message logs; every mutation goes through its entry points so that
// summaries and unread counts stay consistent with the logs.
type Session struct {
	mu        sync.Mutex
	directory *Directory
	store     *MessageStore
	replies   *ReplySimulator
	sched     Scheduler
	logger    zerolog.Logger

	subs    map[int]chan Event
	nextSub int
	closed  bool
}

// NewSession builds a session from a roster. The first conversation of the
// roster becomes active.
func NewSession(roster Roster, opts Options) (*Session, error) {
	if len(roster.Conversations) == 0 {
		return nil, ErrEmptyRoster
	}

	sched := opts.Scheduler
	if sched == nil {
		sched = WallScheduler{}
	}

	s := &Session{
		directory: NewDirectory(),
		store:     NewMessageStore(),
		sched:     sched,
		logger:    opts.Logger,
		subs:      make(map[int]chan Event),
	}

	for _, c := range roster.Conversations {
		if err := s.directory.Add(c); err != nil {
			return nil, err
		}
	}
	for _, m := range roster.Messages {
		if !s.directory.Has(m.ConversationID) {
			return nil, fmt.Errorf("seed message %d: %w: %s", m.ID, ErrUnknownConversation, m.ConversationID)
		}
		s.store.Append(m.ConversationID, m)
	}

	phrases := roster.ReplyPhrases
	if len(phrases) == 0 {
		phrases = DefaultReplyPhrases
	}
	replies, err := NewReplySimulator(SimulatorConfig{
		Scheduler: sched,
		Phrases:   phrases,
		MinDelay:  opts.ReplyMinDelay,
		MaxDelay:  opts.ReplyMaxDelay,
		Rand:      opts.Rand,
		Logger:    opts.Logger,
	}, s.ReceiveMessage)
	if err != nil {
		return nil, err
	}
	s.replies = replies

	first := s.directory.First()
	if err := s.directory.SetActive(first); err != nil {
		return nil, err
	}
	if err := s.directory.ClearUnread(first); err != nil {
		return nil, err
	}
	metrics.UnreadMessages.Set(float64(s.directory.TotalUnread()))

	return s, nil
}

// Conversations returns the directory in insertion order.
func (s *Session) Conversations() []models.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.directory.List()
}

// Conversation returns one directory entry.
func (s *Session) Conversation(id string) (models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.directory.Get(id)
	if !ok {
		return models.Conversation{}, fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	return c, nil
}

// Messages returns the full log of a conversation in append order.
func (s *Session) Messages(conversationID string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.directory.Has(conversationID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConversation, conversationID)
	}
	return s.store.ListFor(conversationID), nil
}

// Active returns the id of the active conversation.
func (s *Session) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.directory.Active()
}

// PendingReplies returns the number of simulated replies not yet fired.
func (s *Session) PendingReplies() int {
	return s.replies.Pending()
}

// SelectConversation makes id the active conversation and clears its
// unread count. Selecting the active conversation again is harmless.
func (s *Session) SelectConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectLocked(id)
}

// SendMessage appends a self-authored message to the active conversation
// and schedules a counterpart reply. A body that is empty after trimming is
// dropped silently and ok is false.
func (s *Session) SendMessage(body string) (msg models.Message, ok bool) {
	body = strings.TrimSpace(body)
	if body == "" {
		return models.Message{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendLocked(body), true
}

// SendMessageTo selects conversationID and sends body to it as one step,
// so no other selection can slip in between. The selection happens even
// when body is dropped for being empty.
func (s *Session) SendMessageTo(conversationID, body string) (msg models.Message, ok bool, err error) {
	body = strings.TrimSpace(body)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.selectLocked(conversationID); err != nil {
		return models.Message{}, false, err
	}
	if body == "" {
		return models.Message{}, false, nil
	}
	return s.sendLocked(body), true, nil
}

func (s *Session) selectLocked(id string) error {
	if err := s.directory.SetActive(id); err != nil {
		return err
	}
	s.directory.ClearUnread(id)
	metrics.UnreadMessages.Set(float64(s.directory.TotalUnread()))

	s.publish(Event{Kind: EventSelected, ConversationID: id})
	return nil
}

func (s *Session) sendLocked(body string) models.Message {
	active := s.directory.Active()
	msg := s.appendLocked(active, body, true)
	metrics.MessagesSent.Inc()

	s.publish(Event{Kind: EventSent, ConversationID: active, Message: &msg})
	s.replies.Schedule(active, msg)

	s.logger.Debug().
		Str("conversation", active).
		Int64("message", msg.ID).
		Msg("message sent")
	return msg
}

// ReceiveMessage appends a counterpart message to a conversation. The
// unread count grows only when the conversation is not active.
func (s *Session) ReceiveMessage(conversationID, body string) (models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return models.Message{}, ErrEmptyBody
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.directory.Has(conversationID) {
		return models.Message{}, fmt.Errorf("%w: %s", ErrUnknownConversation, conversationID)
	}

	msg := s.appendLocked(conversationID, body, false)
	s.directory.IncrementUnread(conversationID)
	metrics.MessagesReceived.Inc()
	metrics.UnreadMessages.Set(float64(s.directory.TotalUnread()))

	c, _ := s.directory.Get(conversationID)
	s.publish(Event{Kind: EventReceived, ConversationID: conversationID, Message: &msg, Unread: c.UnreadCount})
	return msg, nil
}

// StartConversation adds a conversation with a new counterpart at the end
// of the directory. It does not change the active conversation.
func (s *Session) StartConversation(counterpartName string) (models.Conversation, error) {
	name := strings.TrimSpace(counterpartName)
	if name == "" {
		return models.Conversation{}, ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := models.Conversation{
		ID:                ids.NewUUIDv7().String(),
		CounterpartName:   name,
		LastActivityLabel: ActivityJustNow,
		LastActivityAt:    s.sched.Now(),
	}
	if err := s.directory.Add(c); err != nil {
		return models.Conversation{}, err
	}
	metrics.ConversationsStarted.Inc()

	s.publish(Event{Kind: EventStarted, ConversationID: c.ID})
	return c, nil
}

// Subscribe registers an observer for session events. Events are dropped
// for a subscriber whose buffer is full. The returned func unsubscribes and
// closes the channel.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// Close drops pending replies and closes every subscription. State held by
// the session is lost.
func (s *Session) Close() {
	s.replies.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

// appendLocked stores a message and refreshes the conversation summary.
func (s *Session) appendLocked(conversationID, body string, self bool) models.Message {
	now := s.sched.Now()
	msg := s.store.Append(conversationID, models.Message{
		SenderIsSelf: self,
		Body:         body,
		SentAtLabel:  SentAtLabel(now),
		SentAt:       now,
	})
	s.directory.UpdateSummary(conversationID, body, ActivityJustNow)
	s.directory.Touch(conversationID, now)
	return msg
}

// publish fans an event out to subscribers without blocking. Callers hold s.mu.
func (s *Session) publish(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			metrics.EventsDropped.Inc()
		}
	}
}
