package inbox

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nassor22/maarifaHub/internal/metrics"
	"github.com/nassor22/maarifaHub/internal/models"
)

const (
	DefaultReplyMinDelay = 2000 * time.Millisecond
	DefaultReplyMaxDelay = 3000 * time.Millisecond
)

// DefaultReplyPhrases is used when the roster source provides none.
var DefaultReplyPhrases = []string{
	"Thanks for reaching out! Let me look into that.",
	"That's a great question. Could you share a bit more detail?",
	"I'll get back to you with some resources shortly.",
	"Happy to help. Have you tried the approach we discussed?",
	"Interesting point! Let me think about it.",
}

// ReplyState tracks a simulated reply through its lifecycle.
type ReplyState int

const (
	ReplyScheduled ReplyState = iota
	ReplyFired
	ReplyDelivered
)

func (s ReplyState) String() string {
	switch s {
	case ReplyScheduled:
		return "scheduled"
	case ReplyFired:
		return "fired"
	case ReplyDelivered:
		return "delivered"
	default:
		return "unknown"
	}
}

// DeliverFunc hands a counterpart message to the session.
type DeliverFunc func(conversationID, body string) (models.Message, error)

// SimulatorConfig configures a ReplySimulator.
type SimulatorConfig struct {
	Scheduler Scheduler
	Phrases   []string
	MinDelay  time.Duration
	MaxDelay  time.Duration
	Rand      *rand.Rand
	Logger    zerolog.Logger
}

// ReplySimulator fabricates a delayed counterpart reply for every send.
// Pending replies are never cancelled by conversation switches or further
// sends; each one is delivered to the conversation it was scheduled for.
type ReplySimulator struct {
	mu       sync.Mutex
	sched    Scheduler
	deliver  DeliverFunc
	phrases  []string
	minDelay time.Duration
	maxDelay time.Duration
	rng      *rand.Rand
	logger   zerolog.Logger

	seq     uint64
	pending map[uint64]*pendingReply
	closed  bool
}

type pendingReply struct {
	seq            uint64
	conversationID string
	triggerID      int64
	delay          time.Duration
	state          ReplyState
	task           Task
}

// NewReplySimulator creates a simulator that delivers through deliver.
func NewReplySimulator(cfg SimulatorConfig, deliver DeliverFunc) (*ReplySimulator, error) {
	phrases := make([]string, 0, len(cfg.Phrases))
	for _, p := range cfg.Phrases {
		if p = strings.TrimSpace(p); p != "" {
			phrases = append(phrases, p)
		}
	}
	if len(phrases) == 0 {
		return nil, ErrNoReplyPhrases
	}

	minDelay, maxDelay := cfg.MinDelay, cfg.MaxDelay
	if minDelay <= 0 {
		minDelay = DefaultReplyMinDelay
	}
	if maxDelay <= 0 {
		maxDelay = DefaultReplyMaxDelay
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	sched := cfg.Scheduler
	if sched == nil {
		sched = WallScheduler{}
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &ReplySimulator{
		sched:    sched,
		deliver:  deliver,
		phrases:  phrases,
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rng,
		logger:   cfg.Logger,
		pending:  make(map[uint64]*pendingReply),
	}, nil
}

// Schedule arranges one counterpart reply to the triggering send.
func (r *ReplySimulator) Schedule(conversationID string, trigger models.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}

	r.seq++
	p := &pendingReply{
		seq:            r.seq,
		conversationID: conversationID,
		triggerID:      trigger.ID,
		delay:          r.nextDelay(),
		state:          ReplyScheduled,
	}
	r.pending[p.seq] = p
	p.task = r.sched.AfterFunc(p.delay, func() { r.fire(p) })

	metrics.RepliesScheduled.Inc()
	metrics.RepliesPending.Inc()

	r.logger.Debug().
		Str("conversation", conversationID).
		Int64("trigger", trigger.ID).
		Dur("delay", p.delay).
		Msg("reply scheduled")
}

// Pending returns the number of replies that have not fired yet.
func (r *ReplySimulator) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Close drops every pending reply. Replies scheduled afterwards are ignored.
func (r *ReplySimulator) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	for seq, p := range r.pending {
		p.task.Stop()
		delete(r.pending, seq)
		metrics.RepliesPending.Dec()
	}
}

// nextDelay draws uniformly from [minDelay, maxDelay). Callers hold r.mu.
func (r *ReplySimulator) nextDelay() time.Duration {
	span := r.maxDelay - r.minDelay
	if span <= 0 {
		return r.minDelay
	}
	return r.minDelay + time.Duration(r.rng.Int63n(int64(span)))
}

func (r *ReplySimulator) fire(p *pendingReply) {
	r.mu.Lock()
	if _, ok := r.pending[p.seq]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.pending, p.seq)
	p.state = ReplyFired
	body := r.phrases[r.rng.Intn(len(r.phrases))]
	r.mu.Unlock()

	metrics.RepliesPending.Dec()

	msg, err := r.deliver(p.conversationID, body)
	if err != nil {
		// Only ids the session scheduled reach here, so a failure is a caller bug.
		metrics.RepliesFailed.Inc()
		r.logger.Error().
			Err(err).
			Str("conversation", p.conversationID).
			Int64("trigger", p.triggerID).
			Msg("reply delivery failed")
		return
	}

	p.state = ReplyDelivered
	metrics.RepliesDelivered.Inc()

	r.logger.Debug().
		Str("conversation", p.conversationID).
		Int64("trigger", p.triggerID).
		Int64("message", msg.ID).
		Str("state", p.state.String()).
		Msg("reply delivered")
}
