// Package scheduler implements an in-process delay queue: one-shot jobs
// ordered by absolute fire time in a min-heap, popped by a single loop and
// dispatched to bounded worker goroutines.
package scheduler

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Job is one pending delivery.
type Job struct {
	ID     string
	ChatID int64
	UserID int64
	Key    string
	Batch  string // correlates the jobs of one session start in logs
	FireAt time.Time
}

// JobID builds the deterministic identifier for a recipient/key/delay
// combination. Scheduling the same ID again replaces the pending entry.
func JobID(userID int64, key string, delay time.Duration) string {
	return fmt.Sprintf("msg_%d_%s_%d", userID, key, int(delay.Seconds()))
}

// FireFunc is invoked once per job after its delay elapses. Errors are
// logged by the scheduler and never affect sibling jobs.
type FireFunc func(ctx context.Context, job Job) error

type item struct {
	job   Job
	index int // heap position, -1 when removed
}

type jobHeap []*item

func (h jobHeap) Len() int           { return len(h) }
func (h jobHeap) Less(i, j int) bool { return h[i].job.FireAt.Before(h[j].job.FireAt) }
func (h jobHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *jobHeap) Push(x any)        { it := x.(*item); it.index = len(*h); *h = append(*h, it) }
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// Scheduler owns the pending-job heap and the dispatch loop.
type Scheduler struct {
	log *zap.Logger
	sem *semaphore.Weighted

	mu   sync.Mutex
	heap jobHeap
	byID map[string]*item
	wake chan struct{}
}

// New creates a Scheduler. maxInFlight bounds concurrently running fire
// callbacks.
func New(log *zap.Logger, maxInFlight int64) *Scheduler {
	if maxInFlight <= 0 {
		maxInFlight = 1
	}
	return &Scheduler{
		log:  log,
		sem:  semaphore.NewWeighted(maxInFlight),
		byID: make(map[string]*item),
		wake: make(chan struct{}, 1),
	}
}

// Schedule enqueues a job. An existing job with the same ID is replaced.
func (s *Scheduler) Schedule(j Job) {
	s.mu.Lock()
	if old, ok := s.byID[j.ID]; ok {
		heap.Remove(&s.heap, old.index)
	}
	it := &item{job: j}
	heap.Push(&s.heap, it)
	s.byID[j.ID] = it
	s.mu.Unlock()

	s.log.Debug("job scheduled",
		zap.String("job", j.ID),
		zap.String("batch", j.Batch),
		zap.Time("fire_at", j.FireAt),
	)
	s.poke()
}

// Cancel removes a pending job by ID. Returns false when no such job is
// pending (it may have already fired).
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.byID[id]
	if !ok {
		return false
	}
	heap.Remove(&s.heap, it.index)
	delete(s.byID, id)
	return true
}

// CancelRecipient removes every pending job for a user and reports how
// many were dropped.
func (s *Scheduler) CancelRecipient(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doomed []*item
	for _, it := range s.heap {
		if it.job.UserID == userID {
			doomed = append(doomed, it)
		}
	}
	for _, it := range doomed {
		heap.Remove(&s.heap, it.index)
		delete(s.byID, it.job.ID)
	}
	return len(doomed)
}

// Pending reports the number of jobs waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.heap)
}

// Run drives the dispatch loop until ctx is canceled. Due jobs are handed
// to worker goroutines; one job's failure or panic never blocks siblings.
func (s *Scheduler) Run(ctx context.Context, fire FireFunc) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		if job, ok := s.popDue(time.Now()); ok {
			s.dispatch(ctx, &wg, fire, job)
			continue
		}

		wait, pending := s.nextWait()
		if !pending {
			// Nothing pending: sleep until scheduled or canceled.
			select {
			case <-ctx.Done():
				s.log.Info("scheduler stopping")
				return
			case <-s.wake:
			}
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.log.Info("scheduler stopping")
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (s *Scheduler) dispatch(ctx context.Context, wg *sync.WaitGroup, fire FireFunc, job Job) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return
	}
	wg.Add(1)
	go func(j Job) {
		defer wg.Done()
		defer s.sem.Release(1)
		defer func() {
			if p := recover(); p != nil {
				s.log.Error("fire callback panicked",
					zap.String("job", j.ID),
					zap.Any("panic", p),
				)
			}
		}()
		if err := fire(ctx, j); err != nil {
			s.log.Error("fire callback failed",
				zap.String("job", j.ID),
				zap.String("batch", j.Batch),
				zap.Int64("user_id", j.UserID),
				zap.Error(err),
			)
		}
	}(job)
}

// popDue atomically removes and returns the earliest job if it is due.
func (s *Scheduler) popDue(now time.Time) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.heap) == 0 || s.heap[0].job.FireAt.After(now) {
		return Job{}, false
	}
	it := heap.Pop(&s.heap).(*item)
	delete(s.byID, it.job.ID)
	return it.job, true
}

// nextWait reports how long until the earliest pending job is due.
func (s *Scheduler) nextWait() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.heap) == 0 {
		return 0, false
	}
	return time.Until(s.heap[0].job.FireAt), true
}

// poke nudges the run loop after the heap changed.
func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
