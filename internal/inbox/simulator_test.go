package inbox

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nassor22/maarifaHub/internal/metrics"
	"github.com/nassor22/maarifaHub/internal/models"
)

type delivery struct {
	conversationID string
	body           string
}

type recorder struct {
	mu  sync.Mutex
	got []delivery
}

func (r *recorder) deliver(conversationID, body string) (models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, delivery{conversationID, body})
	return models.Message{ID: int64(len(r.got)), ConversationID: conversationID, Body: body}, nil
}

// scriptedSource replays fixed Int63 values, then zeros.
type scriptedSource struct{ vals []int64 }

func (s *scriptedSource) Int63() int64 {
	if len(s.vals) == 0 {
		return 0
	}
	v := s.vals[0]
	s.vals = s.vals[1:]
	return v
}

func (s *scriptedSource) Seed(int64) {}

// delayDraws builds a rand whose successive delay draws land offset past
// the minimum of a one second window.
func delayDraws(offsets ...time.Duration) *rand.Rand {
	vals := make([]int64, len(offsets))
	for i, d := range offsets {
		vals[i] = int64(d) << 32
	}
	return rand.New(&scriptedSource{vals: vals})
}

func newTestSimulator(t *testing.T, sched Scheduler, rec *recorder) *ReplySimulator {
	t.Helper()
	sim, err := NewReplySimulator(SimulatorConfig{
		Scheduler: sched,
		Phrases:   []string{"alpha", "  ", "beta", "gamma"},
		Rand:      rand.New(rand.NewSource(7)),
		Logger:    zerolog.Nop(),
	}, rec.deliver)
	require.NoError(t, err)
	return sim
}

func TestReplySimulatorDelayWindow(t *testing.T) {
	sched := NewVirtualScheduler(epoch)
	rec := &recorder{}
	sim := newTestSimulator(t, sched, rec)

	const sends = 50
	for i := 0; i < sends; i++ {
		sim.Schedule("c1", models.Message{ID: int64(i + 1)})
	}
	assert.Equal(t, sends, sim.Pending())

	sched.Advance(DefaultReplyMinDelay - time.Millisecond)
	assert.Empty(t, rec.got, "no reply may fire before the minimum delay")

	sched.Advance(DefaultReplyMaxDelay - DefaultReplyMinDelay + time.Millisecond)
	assert.Len(t, rec.got, sends, "every reply fires before the maximum delay")
	assert.Equal(t, 0, sim.Pending())
}

func TestReplySimulatorDefaultWindowSpreads(t *testing.T) {
	sched := NewVirtualScheduler(epoch)
	rec := &recorder{}
	sim := newTestSimulator(t, sched, rec)
	assert.Equal(t, DefaultReplyMinDelay, sim.minDelay)
	assert.Equal(t, DefaultReplyMaxDelay, sim.maxDelay)

	const sends = 50
	for i := 0; i < sends; i++ {
		sim.Schedule("c1", models.Message{ID: int64(i + 1)})
	}

	sched.Advance(DefaultReplyMinDelay + time.Millisecond)
	assert.Less(t, len(rec.got), sends, "delays must spread across the window")
	assert.Greater(t, sim.Pending(), 0)

	sched.Advance(DefaultReplyMaxDelay - DefaultReplyMinDelay)
	assert.Len(t, rec.got, sends)
}

func TestReplySimulatorExplicitMinAboveDefaultMax(t *testing.T) {
	sim, err := NewReplySimulator(SimulatorConfig{
		Scheduler: NewVirtualScheduler(epoch),
		Phrases:   []string{"ok"},
		MinDelay:  5 * time.Second,
		Logger:    zerolog.Nop(),
	}, (&recorder{}).deliver)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, sim.minDelay)
	assert.Equal(t, 5*time.Second, sim.maxDelay)
}

func TestReplySimulatorLaterSendCanReplyFirst(t *testing.T) {
	sched := NewVirtualScheduler(epoch)
	rec := &recorder{}
	sim, err := NewReplySimulator(SimulatorConfig{
		Scheduler: sched,
		Phrases:   []string{"ok"},
		Rand:      delayDraws(900*time.Millisecond, 100*time.Millisecond),
		Logger:    zerolog.Nop(),
	}, rec.deliver)
	require.NoError(t, err)

	sim.Schedule("early", models.Message{ID: 1})
	sim.Schedule("late", models.Message{ID: 2})

	sched.Advance(DefaultReplyMaxDelay)
	require.Len(t, rec.got, 2)
	assert.Equal(t, "late", rec.got[0].conversationID)
	assert.Equal(t, "early", rec.got[1].conversationID)
}

func TestReplySimulatorPicksFromPhraseSet(t *testing.T) {
	sched := NewVirtualScheduler(epoch)
	rec := &recorder{}
	sim := newTestSimulator(t, sched, rec)

	for i := 0; i < 20; i++ {
		sim.Schedule("c1", models.Message{ID: int64(i + 1)})
	}
	sched.Advance(DefaultReplyMaxDelay)

	for _, d := range rec.got {
		assert.Contains(t, []string{"alpha", "beta", "gamma"}, d.body)
		assert.Equal(t, "c1", d.conversationID)
	}
}

func TestReplySimulatorCustomWindow(t *testing.T) {
	sched := NewVirtualScheduler(epoch)
	rec := &recorder{}
	sim, err := NewReplySimulator(SimulatorConfig{
		Scheduler: sched,
		Phrases:   []string{"ok"},
		MinDelay:  time.Second,
		MaxDelay:  time.Second,
		Logger:    zerolog.Nop(),
	}, rec.deliver)
	require.NoError(t, err)

	sim.Schedule("c9", models.Message{ID: 1})
	sched.Advance(999 * time.Millisecond)
	assert.Empty(t, rec.got)
	sched.Advance(time.Millisecond)
	assert.Equal(t, []delivery{{"c9", "ok"}}, rec.got)
}

func TestReplySimulatorClose(t *testing.T) {
	sched := NewVirtualScheduler(epoch)
	rec := &recorder{}
	sim := newTestSimulator(t, sched, rec)

	sim.Schedule("c1", models.Message{ID: 1})
	sim.Schedule("c2", models.Message{ID: 1})
	sim.Close()
	sim.Close()

	assert.Equal(t, 0, sim.Pending())
	assert.Equal(t, 0, sched.Pending())

	sim.Schedule("c1", models.Message{ID: 2})
	sched.Advance(time.Minute)
	assert.Empty(t, rec.got)
}

func TestReplySimulatorRequiresPhrases(t *testing.T) {
	_, err := NewReplySimulator(SimulatorConfig{Phrases: []string{" ", ""}}, nil)
	assert.ErrorIs(t, err, ErrNoReplyPhrases)
}

func TestReplySimulatorDeliveryErrorIsLogged(t *testing.T) {
	sched := NewVirtualScheduler(epoch)
	sim, err := NewReplySimulator(SimulatorConfig{
		Scheduler: sched,
		Phrases:   []string{"hi"},
		Logger:    zerolog.Nop(),
	}, func(string, string) (models.Message, error) {
		return models.Message{}, ErrUnknownConversation
	})
	require.NoError(t, err)

	failed := testutil.ToFloat64(metrics.RepliesFailed)
	sim.Schedule("gone", models.Message{ID: 1})
	assert.Equal(t, 1, sched.Advance(DefaultReplyMaxDelay))
	assert.Equal(t, 0, sim.Pending())
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.RepliesFailed))
}

func TestReplyStateString(t *testing.T) {
	assert.Equal(t, "scheduled", ReplyScheduled.String())
	assert.Equal(t, "fired", ReplyFired.String())
	assert.Equal(t, "delivered", ReplyDelivered.String())
	assert.Equal(t, "unknown", ReplyState(9).String())
}
