package inbox

import (
	"container/heap"
	"sync"
	"time"
)

// Task is a deferred callback that has been handed to a Scheduler.
type Task interface {
	// Stop prevents the task from running. It reports whether the call
	// removed a task that had not run yet.
	Stop() bool
}

// Scheduler runs callbacks after a delay and reports the current time.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Task
}

// WallScheduler schedules tasks on the runtime timer wheel.
type WallScheduler struct{}

// Now returns the wall-clock time.
func (WallScheduler) Now() time.Time {
	return time.Now()
}

// AfterFunc runs fn on its own goroutine once d has elapsed.
func (WallScheduler) AfterFunc(d time.Duration, fn func()) Task {
	return time.AfterFunc(d, fn)
}

// VirtualScheduler is a Scheduler driven by an explicit clock. Tasks only
// run from Advance, on the caller's goroutine, in deadline order. Tasks
// sharing a deadline run in the order they were scheduled.
type VirtualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	queue taskQueue
}

// NewVirtualScheduler creates a scheduler whose clock starts at start.
func NewVirtualScheduler(start time.Time) *VirtualScheduler {
	return &VirtualScheduler{now: start}
}

// Now returns the virtual time.
func (s *VirtualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// AfterFunc queues fn to run once the clock has advanced by d.
func (s *VirtualScheduler) AfterFunc(d time.Duration, fn func()) Task {
	if d < 0 {
		d = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	t := &virtualTask{
		sched: s,
		at:    s.now.Add(d),
		seq:   s.seq,
		fn:    fn,
	}
	heap.Push(&s.queue, t)
	return t
}

// Advance moves the clock forward by d, running every task that falls due.
// Tasks scheduled by a running task are picked up if their deadline is
// still inside the window. It returns the number of tasks run.
func (s *VirtualScheduler) Advance(d time.Duration) int {
	s.mu.Lock()
	target := s.now.Add(d)
	s.mu.Unlock()

	ran := 0
	for {
		s.mu.Lock()
		if len(s.queue) == 0 || s.queue[0].at.After(target) {
			s.now = target
			s.mu.Unlock()
			return ran
		}
		t := heap.Pop(&s.queue).(*virtualTask)
		s.now = t.at
		s.mu.Unlock()

		t.fn()
		ran++
	}
}

// Pending returns the number of queued tasks.
func (s *VirtualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

type virtualTask struct {
	sched *VirtualScheduler
	at    time.Time
	seq   uint64
	fn    func()
	index int
}

// Stop removes the task from the queue if it has not run.
func (t *virtualTask) Stop() bool {
	s := t.sched
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.index < 0 {
		return false
	}
	heap.Remove(&s.queue, t.index)
	return true
}

// taskQueue is a min-heap on (deadline, seq).
type taskQueue []*virtualTask

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x any) {
	t := x.(*virtualTask)
	t.index = len(*q)
	*q = append(*q, t)
}

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*q = old[:n-1]
	return t
}
