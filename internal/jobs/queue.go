package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Job is one receipt-processing request flowing through the queue.
type Job struct {
	ReceiptID string `json:"receiptId"`
	ImagePath string `json:"imagePath"`
	UserID    string `json:"userId"`
	// Attempt counts deliveries of this job, starting at 0.
	Attempt int `json:"attempt"`
}

// Queue is the enqueue side of the job boundary.
type Queue interface {
	// Enqueue submits a job for processing.
	Enqueue(job Job) error
}

// Source is the consume side of the job boundary.
type Source interface {
	// Dequeue blocks for the next job. ok is false once the queue is
	// closed or the context is done.
	Dequeue(ctx context.Context) (job Job, ok bool)
	// Nack reports a failed delivery. It returns true when the job was
	// scheduled for another attempt and false when its attempts are
	// exhausted.
	Nack(job Job) bool
}

// RetryPolicy is the queue-level retry configuration: a bounded number of
// attempts with exponential backoff.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy retries a job three times total with an exponential
// backoff starting at one second.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
}

// Delay returns the backoff before redelivering a job that has already
// been attempted the given number of times.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// MemoryQueue is an in-process Queue and Source backed by a buffered
// channel. It owns the retry policy: nacked jobs are redelivered after a
// backoff until their attempts run out.
type MemoryQueue struct {
	jobs   chan Job
	policy RetryPolicy

	mu     sync.Mutex
	closed bool
	timers map[*time.Timer]struct{}
}

// NewMemoryQueue creates a queue holding at most capacity pending jobs.
func NewMemoryQueue(capacity int, policy RetryPolicy) *MemoryQueue {
	if capacity <= 0 {
		capacity = 128
	}
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}
	return &MemoryQueue{
		jobs:   make(chan Job, capacity),
		policy: policy,
		timers: make(map[*time.Timer]struct{}),
	}
}

// Enqueue submits a job. It fails when the queue is closed or full rather
// than blocking the caller.
func (q *MemoryQueue) Enqueue(job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("queue is closed")
	}
	select {
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue is full")
	}
}

// Dequeue blocks for the next job.
func (q *MemoryQueue) Dequeue(ctx context.Context) (Job, bool) {
	select {
	case job, ok := <-q.jobs:
		return job, ok
	case <-ctx.Done():
		return Job{}, false
	}
}

// Nack schedules the job's next delivery after the policy backoff, or
// reports exhaustion when the attempt budget is spent.
func (q *MemoryQueue) Nack(job Job) bool {
	job.Attempt++
	if job.Attempt >= q.policy.MaxAttempts {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}

	var timer *time.Timer
	timer = time.AfterFunc(q.policy.Delay(job.Attempt), func() {
		q.mu.Lock()
		delete(q.timers, timer)
		q.mu.Unlock()
		if err := q.Enqueue(job); err != nil {
			slog.Warn("dropping retried job", "receipt_id", job.ReceiptID, "error", err)
		}
	})
	q.timers[timer] = struct{}{}
	return true
}

// Close stops deliveries. Pending retry timers are cancelled; jobs already
// in the buffer are still drained by consumers.
func (q *MemoryQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for timer := range q.timers {
		timer.Stop()
	}
	q.timers = nil
	close(q.jobs)
}
