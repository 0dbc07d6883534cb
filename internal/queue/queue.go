// Package queue hands outbound email to a separate delivery worker through a
// Redis list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// QueueEmails is the Redis list key for email jobs.
	QueueEmails = "reservations:emails"
	// QueueDLQ receives jobs that exhausted their retries.
	QueueDLQ = "reservations:dlq"
	// MaxRetries is the number of attempts before a job moves to the DLQ.
	MaxRetries = 3
	// RetryBackoff is how long a worker pauses after a failure.
	RetryBackoff = 2 * time.Second
)

// JobType identifies the job kind.
type JobType string

// JobTypeEmail carries an EmailPayload.
const JobTypeEmail JobType = "email"

// EmailPayload is a plain-text message for one recipient.
type EmailPayload struct {
	EmailType      string `json:"email_type"`
	ReservationID  string `json:"reservation_id,omitempty"`
	RecipientEmail string `json:"recipient_email"`
	Subject        string `json:"subject"`
	BodyText       string `json:"body_text"`
}

// Job is the envelope stored on the list.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Email decodes the payload of an email job.
func (j *Job) Email() (EmailPayload, error) {
	var payload EmailPayload
	if j.Type != JobTypeEmail {
		return payload, fmt.Errorf("queue: job %s is %q, not an email", j.ID, j.Type)
	}
	if err := json.Unmarshal(j.Payload, &payload); err != nil {
		return payload, fmt.Errorf("queue: decode email payload: %w", err)
	}
	return payload, nil
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewQueue creates a Redis-backed job queue.
func NewQueue(client *redis.Client, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{client: client, logger: logger.With("component", "queue"), now: time.Now}
}

// EnqueueEmail appends an email job and returns its id.
func (q *Queue) EnqueueEmail(ctx context.Context, payload EmailPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      JobTypeEmail,
		Payload:   body,
		CreatedAt: q.now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, QueueEmails, raw).Err(); err != nil {
		return "", fmt.Errorf("rpush: %w", err)
	}
	q.logger.DebugContext(ctx, "enqueued email job", "job_id", job.ID, "email_type", payload.EmailType)
	return job.ID, nil
}

// Dequeue waits up to timeout for the next email job. It returns nil, nil
// when the wait ends without a job. Unreadable entries are dropped.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, QueueEmails).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.WarnContext(ctx, "invalid job payload", "raw", result[1], "error", err)
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues job with an incremented attempt, or moves it to the DLQ
// once MaxRetries is reached.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= MaxRetries {
		if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
			q.logger.ErrorContext(ctx, "dlq push failed", "error", err, "job_id", job.ID)
			return err
		}
		q.logger.WarnContext(ctx, "job moved to DLQ", "job_id", job.ID, "attempt", job.Attempt)
		return nil
	}
	if err := q.client.RPush(ctx, QueueEmails, raw).Err(); err != nil {
		return err
	}
	q.logger.InfoContext(ctx, "job retried", "job_id", job.ID, "attempt", job.Attempt)
	return nil
}

// Len reports the number of pending email jobs.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, QueueEmails).Result()
}
