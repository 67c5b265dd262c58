package schedule

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Task runs once per invocation and returns the delay before it should run
// again. Returning ok=false ends the schedule.
type Task func() (next time.Duration, ok bool)

// Scheduler drives a self-rescheduling task on its own goroutine with a
// single reusable timer, so long sessions never grow a call stack
type Scheduler struct {
	name    string
	task    Task
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.RWMutex
	running bool
	started bool
	runs    uint64
}

// NewScheduler creates a scheduler for task. name is used in logs.
func NewScheduler(name string, task Task) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		name:   name,
		task:   task,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Start runs the task after initialDelay and keeps rescheduling it.
// A scheduler can only be started once.
func (s *Scheduler) Start(initialDelay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("scheduler '%s' was already started", s.name)
	}
	if s.task == nil {
		return fmt.Errorf("scheduler '%s' has no task", s.name)
	}

	s.started = true
	s.running = true

	go s.run(initialDelay)

	log.Printf("[SCHEDULER] '%s' started", s.name)

	return nil
}

// Stop cancels the schedule and waits for an in-flight run to return.
// Stopping never interrupts a run.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	s.cancel()

	if started {
		<-s.done
	}
}

// Done is closed when the run loop has exited
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the run loop exits or ctx is done
func (s *Scheduler) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning returns whether the task is still being scheduled
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.running
}

// Runs returns how many times the task has run
func (s *Scheduler) Runs() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.runs
}

func (s *Scheduler) run(delay time.Duration) {
	timer := time.NewTimer(delay)

	defer func() {
		timer.Stop()

		if r := recover(); r != nil {
			log.Printf("[SCHEDULER] Recovered from panic in '%s': %v", s.name, r)
		}

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()

		close(s.done)
		log.Printf("[SCHEDULER] '%s' stopped", s.name)
	}()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
			next, ok := s.task()

			s.mu.Lock()
			s.runs++
			s.mu.Unlock()

			if !ok {
				return
			}
			timer.Reset(next)
		}
	}
}
