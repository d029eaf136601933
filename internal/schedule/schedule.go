// Package schedule runs deferred callbacks on the caller's own thread.
//
// Tasks are queued with a delay and executed by RunDue once the clock has
// reached their due time. Nothing runs in the background: the owner of the
// queue decides when time is checked, so tests and log replay can drive it with
// a ManualClock.
package schedule

import (
	"sort"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock is a Clock that only moves when told to.
type ManualClock struct {
	now time.Time
}

// NewManualClock returns a ManualClock set to start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now implements Clock.
func (c *ManualClock) Now() time.Time { return c.now }

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

// Set moves the clock to t. Times before the current one are ignored.
func (c *ManualClock) Set(t time.Time) {
	if t.After(c.now) {
		c.now = t
	}
}

// Reset moves the clock to t unconditionally.
func (c *ManualClock) Reset(t time.Time) {
	c.now = t
}

type task struct {
	due time.Time
	seq uint64
	fn  func()
}

// Queue holds deferred tasks ordered by due time, FIFO among equal due times.
type Queue struct {
	clock Clock
	tasks []task
	seq   uint64
}

// NewQueue returns an empty queue reading time from clock.
func NewQueue(clock Clock) *Queue {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Queue{clock: clock}
}

// Clock returns the clock the queue reads.
func (q *Queue) Clock() Clock { return q.clock }

// After schedules fn to run once delay has elapsed.
func (q *Queue) After(delay time.Duration, fn func()) {
	q.seq++
	t := task{due: q.clock.Now().Add(delay), seq: q.seq, fn: fn}
	i := sort.Search(len(q.tasks), func(i int) bool {
		return q.tasks[i].due.After(t.due)
	})
	q.tasks = append(q.tasks, task{})
	copy(q.tasks[i+1:], q.tasks[i:])
	q.tasks[i] = t
}

// RunDue runs every task whose due time has passed and returns how many ran.
// Tasks scheduled by a running task run in the same call if already due.
func (q *Queue) RunDue() int {
	ran := 0
	for len(q.tasks) > 0 {
		next := q.tasks[0]
		if next.due.After(q.clock.Now()) {
			break
		}
		q.tasks = q.tasks[1:]
		next.fn()
		ran++
	}
	return ran
}

// Pending returns the number of queued tasks.
func (q *Queue) Pending() int { return len(q.tasks) }

// NextDue returns the due time of the earliest task.
func (q *Queue) NextDue() (time.Time, bool) {
	if len(q.tasks) == 0 {
		return time.Time{}, false
	}
	return q.tasks[0].due, true
}

// Clear drops every queued task without running it.
func (q *Queue) Clear() {
	q.tasks = nil
}
