package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, msg EmailPayload) error
}

// Worker drains the email queue into a Sender.
type Worker struct {
	queue   *Queue
	sender  Sender
	logger  *slog.Logger
	poll    time.Duration
	backoff time.Duration
}

// NewWorker creates a delivery worker.
func NewWorker(q *Queue, sender Sender, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		queue:   q,
		sender:  sender,
		logger:  logger.With("component", "delivery_worker"),
		poll:    5 * time.Second,
		backoff: RetryBackoff,
	}
}

// Process delivers one job.
func (w *Worker) Process(ctx context.Context, job *Job) error {
	payload, err := job.Email()
	if err != nil {
		return err
	}
	if payload.RecipientEmail == "" {
		return fmt.Errorf("queue: job %s has no recipient", job.ID)
	}
	return w.sender.Send(ctx, payload)
}

// Step waits for the next job and delivers it. A failed job goes back on the
// queue, or to the DLQ once it has used its attempts. handled is false when
// the wait ended without a job.
func (w *Worker) Step(ctx context.Context) (handled bool, err error) {
	job, err := w.queue.Dequeue(ctx, w.poll)
	if err != nil || job == nil {
		return false, err
	}

	logger := w.logger.With("job_id", job.ID, "attempt", job.Attempt)
	if err := w.Process(ctx, job); err != nil {
		logger.ErrorContext(ctx, "email job failed", "error", err)
		if reErr := w.queue.Retry(ctx, job); reErr != nil {
			return true, fmt.Errorf("retry job %s: %w", job.ID, reErr)
		}
		return true, err
	}
	logger.InfoContext(ctx, "email delivered")
	return true, nil
}

// Run processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.logger.InfoContext(ctx, "delivery worker started")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("delivery worker stopping")
			return
		default:
		}

		if _, err := w.Step(ctx); err != nil && ctx.Err() == nil {
			w.logger.WarnContext(ctx, "delivery step failed", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(w.backoff):
			}
		}
	}
}
