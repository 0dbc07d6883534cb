package reminder

import (
	"context"
	"log/slog"

	"github.com/example/reservation-desk/internal/queue"
)

// LogNotifier writes reminders to the log instead of sending them.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify implements Notifier.
func (n LogNotifier) Notify(ctx context.Context, r Reminder) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "task reminder",
		"to", r.Email,
		"subject", r.Subject(),
		"task_id", r.TaskID,
		"days_left", r.DaysLeft,
	)
	return nil
}

// EmailEnqueuer accepts email jobs for asynchronous delivery.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) (string, error)
}

// QueueNotifier hands reminders to the email delivery queue.
type QueueNotifier struct {
	Queue EmailEnqueuer
}

// Notify implements Notifier.
func (n QueueNotifier) Notify(ctx context.Context, r Reminder) error {
	_, err := n.Queue.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      "task_reminder",
		ReservationID:  r.TaskID,
		RecipientEmail: r.Email,
		Subject:        r.Subject(),
		BodyText:       r.Body(),
	})
	return err
}
