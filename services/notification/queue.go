package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"doemais/models"

	"github.com/hibiken/asynq"
)

const (
	TypeSendReminder = "reminder:send"
	reminderQueue    = "default"
)

// ReminderTaskID is the queue id of the reminder of a donation. A donation
// has at most one pending reminder.
func ReminderTaskID(donationID string) string {
	return "reminder:" + donationID
}

func NewReminderTask(payload models.ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeSendReminder, b)
	opts := []asynq.Option{asynq.ProcessAt(fireAt), asynq.TaskID(ReminderTaskID(payload.DonationID)), asynq.Queue(reminderQueue)}
	return task, opts, nil
}

// Enqueuer schedules reminder delivery.
type Enqueuer interface {
	EnqueueReminder(ctx context.Context, payload models.ReminderPayload, fireAt time.Time) error
	// CancelReminder drops the pending reminder of a donation. A missing
	// reminder is not an error.
	CancelReminder(ctx context.Context, donationID string) error
}

// QueueClient enqueues reminders on the asynq queue.
type QueueClient struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

func NewQueueClient(opt asynq.RedisClientOpt) *QueueClient {
	return &QueueClient{client: asynq.NewClient(opt), inspector: asynq.NewInspector(opt)}
}

func (q *QueueClient) EnqueueReminder(ctx context.Context, payload models.ReminderPayload, fireAt time.Time) error {
	task, opts, err := NewReminderTask(payload, fireAt)
	if err != nil {
		return fmt.Errorf("build reminder task: %w", err)
	}
	if _, err := q.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue reminder: %w", err)
	}
	return nil
}

func (q *QueueClient) CancelReminder(ctx context.Context, donationID string) error {
	err := q.inspector.DeleteTask(reminderQueue, ReminderTaskID(donationID))
	if err == nil || errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return fmt.Errorf("cancel reminder %s: %w", donationID, err)
}

func (q *QueueClient) Close() error {
	if err := q.inspector.Close(); err != nil {
		_ = q.client.Close()
		return err
	}
	return q.client.Close()
}

// Queued is a reminder held by MemoryQueue.
type Queued struct {
	Payload models.ReminderPayload
	FireAt  time.Time
}

// MemoryQueue keeps reminders in process. It backs the fixture data source.
type MemoryQueue struct {
	mu    sync.Mutex
	items []Queued
}

// EnqueueReminder replaces any reminder already held for the donation.
func (q *MemoryQueue) EnqueueReminder(ctx context.Context, payload models.ReminderPayload, fireAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.drop(payload.DonationID)
	q.items = append(q.items, Queued{Payload: payload, FireAt: fireAt})
	return nil
}

func (q *MemoryQueue) CancelReminder(ctx context.Context, donationID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.drop(donationID)
	return nil
}

// drop must be called with mu held.
func (q *MemoryQueue) drop(donationID string) {
	kept := q.items[:0]
	for _, it := range q.items {
		if it.Payload.DonationID != donationID {
			kept = append(kept, it)
		}
	}
	q.items = kept
}

func (q *MemoryQueue) Items() []Queued {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Queued(nil), q.items...)
}
