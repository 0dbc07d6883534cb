package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []EmailPayload
	err  error
}

func (s *recordingSender) Send(ctx context.Context, msg EmailPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func newTestWorker(q *Queue, sender Sender) *Worker {
	w := NewWorker(q, sender, slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.poll = 100 * time.Millisecond
	w.backoff = time.Millisecond
	return w
}

func TestWorkerDeliversQueuedEmail(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	if _, err := q.EnqueueEmail(ctx, EmailPayload{EmailType: "task_reminder", RecipientEmail: "kim@example.com", Subject: "Reminder"}); err != nil {
		t.Fatalf("EnqueueEmail returned error: %v", err)
	}

	sender := &recordingSender{}
	handled, err := newTestWorker(q, sender).Step(ctx)
	if err != nil || !handled {
		t.Fatalf("expected job to be handled, got %v %v", handled, err)
	}
	if len(sender.sent) != 1 || sender.sent[0].RecipientEmail != "kim@example.com" {
		t.Fatalf("unexpected deliveries: %+v", sender.sent)
	}
	if n, _ := q.Len(ctx); n != 0 {
		t.Fatalf("expected queue to be drained, got %d", n)
	}
}

func TestWorkerDeadLettersAfterRepeatedFailures(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()
	if _, err := q.EnqueueEmail(ctx, EmailPayload{RecipientEmail: "kim@example.com"}); err != nil {
		t.Fatalf("EnqueueEmail returned error: %v", err)
	}

	relayDown := errors.New("relay down")
	w := newTestWorker(q, &recordingSender{err: relayDown})
	for i := 0; i < MaxRetries; i++ {
		handled, err := w.Step(ctx)
		if !handled || !errors.Is(err, relayDown) {
			t.Fatalf("attempt %d: expected relay failure, got %v %v", i+1, handled, err)
		}
	}

	if n, _ := q.Len(ctx); n != 0 {
		t.Fatalf("expected no pending jobs, got %d", n)
	}
	dlq, err := mr.List(QueueDLQ)
	if err != nil || len(dlq) != 1 {
		t.Fatalf("expected one DLQ entry, got %v %v", dlq, err)
	}
}

func TestWorkerRejectsJobWithoutRecipient(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()
	if _, err := q.EnqueueEmail(ctx, EmailPayload{Subject: "Reminder"}); err != nil {
		t.Fatalf("EnqueueEmail returned error: %v", err)
	}

	sender := &recordingSender{}
	_, err := newTestWorker(q, sender).Step(ctx)
	if err == nil || !strings.Contains(err.Error(), "no recipient") {
		t.Fatalf("expected missing recipient error, got %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected nothing sent, got %+v", sender.sent)
	}
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx, cancel := context.WithCancel(context.Background())
	if _, err := q.EnqueueEmail(ctx, EmailPayload{RecipientEmail: "kim@example.com"}); err != nil {
		t.Fatalf("EnqueueEmail returned error: %v", err)
	}

	sender := &recordingSender{}
	done := make(chan struct{})
	go func() {
		newTestWorker(q, sender).Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		sender.mu.Lock()
		n := len(sender.sent)
		sender.mu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected the queued email to be delivered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected Run to return after cancel")
	}
}
