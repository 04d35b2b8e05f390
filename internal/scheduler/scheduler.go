package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/bilirumine/engine/internal/state"
)

// DefaultWait is the non-blocking ingest timeout used while the pending FIFO
// is non-empty.
const DefaultWait = 100 * time.Millisecond

// Step advances a task's generator by one position. A return of (nil, false)
// is the generator's None: the scheduler re-enqueues the task. A return of
// (out, true) is Some(out): the scheduler publishes out downstream and drops
// the task (terminal-on-Some).
type Step func() (out interface{}, ok bool)

// Task is one in-flight unit of work: the control state that spawned it, the
// stage-specific inputs it closed over, and the generator driving it.
type Task struct {
	State  state.State
	Inputs interface{}
	Step   Step
}

// Result is one completed task's published output.
type Result struct {
	State  state.State
	Inputs interface{}
	Output interface{}
}

// Scheduler runs the cooperative drain-round loop for a single worker.
type Scheduler struct {
	Sets *state.Sets
	In   <-chan Task
	Out  chan<- Result
	Wait time.Duration

	queue   []Task
	pending atomic.Int64
}

// New constructs a Scheduler reading fresh tasks from in and publishing
// completed ones to out, consulting sets for CANCEL/PAUSE decisions.
func New(sets *state.Sets, in <-chan Task, out chan<- Result) *Scheduler {
	return &Scheduler{Sets: sets, In: in, Out: out, Wait: DefaultWait}
}

// Pending reports the current FIFO depth, for the ops surface.
func (s *Scheduler) Pending() int64 {
	return s.pending.Load()
}

func (s *Scheduler) enqueue(t Task) {
	s.queue = append(s.queue, t)
	s.pending.Store(int64(len(s.queue)))
}

func (s *Scheduler) popFront() Task {
	t := s.queue[0]
	s.queue = s.queue[1:]
	s.pending.Store(int64(len(s.queue)))
	return t
}

// Run drives the loop until ctx is cancelled. It is meant to be the entire
// body of a worker goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		if err := s.ingest(ctx); err != nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.drainRound(ctx)
	}
}

// ingest pulls exactly one fresh task: non-blocking (bounded by Wait) when
// the FIFO already has work, blocking otherwise. Returns a non-nil error
// only when ctx is done and no task was available.
func (s *Scheduler) ingest(ctx context.Context) error {
	wait := s.Wait
	if wait <= 0 {
		wait = DefaultWait
	}

	if len(s.queue) == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-s.In:
			if ok {
				s.enqueue(t)
			}
			return nil
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case t, ok := <-s.In:
		if ok {
			s.enqueue(t)
		}
	case <-timer.C:
	}
	return nil
}

// drainRound processes exactly K = len(queue) tasks, where K is snapshotted
// before the round starts, so anything re-enqueued during the round is left
// for next time.
func (s *Scheduler) drainRound(ctx context.Context) {
	k := len(s.queue)
	for i := 0; i < k; i++ {
		t := s.popFront()

		if s.Sets.Cancelled(t.State.Version) {
			continue
		}
		if s.Sets.Paused(t.State.Version) {
			s.enqueue(t)
			continue
		}

		out, ok := t.Step()
		if !ok {
			s.enqueue(t)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case s.Out <- Result{State: t.State, Inputs: t.Inputs, Output: out}:
		}
	}
}
