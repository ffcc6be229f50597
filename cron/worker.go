// Package cron runs the background reminder worker.
package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"doemais/database/repository"
	"doemais/models"
	"doemais/services/notification"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// DonationLookup reads the current state of a donation.
type DonationLookup interface {
	GetByID(ctx context.Context, id string) (*models.Donation, error)
}

// ReminderWorker consumes queued donation reminders and mails them.
type ReminderWorker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	opt    asynq.RedisClientOpt
	logger *zap.Logger
}

func NewReminderWorker(opt asynq.RedisClientOpt, donations DonationLookup, mailer notification.Mailer, logger *zap.Logger) *ReminderWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(notification.TypeSendReminder, handleReminderTask(donations, mailer, logger))
	return &ReminderWorker{srv: srv, mux: mux, opt: opt, logger: logger}
}

// Start runs the worker in the background, retrying startup with a growing
// delay. It stops when ctx ends.
func (w *ReminderWorker) Start(ctx context.Context) {
	go w.monitorRedisConnection(ctx)

	go func() {
		w.logger.Info("Starting reminder worker")
		const maxAttempts = 5
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err := w.srv.Start(w.mux)
			if err == nil {
				break
			}
			w.logger.Error("Reminder worker failed to start",
				zap.Int("attempt", attempt), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
			if attempt == maxAttempts {
				w.logger.Error("Reminder worker gave up; reminders stay queued")
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt*2) * time.Second):
			}
		}
	}()

	go func() {
		<-ctx.Done()
		w.srv.Shutdown()
	}()
}

func handleReminderTask(donations DonationLookup, mailer notification.Mailer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("Invalid reminder payload", zap.Error(err))
			// A malformed payload will never succeed.
			return fmt.Errorf("decode reminder: %v: %w", err, asynq.SkipRetry)
		}

		// Only a drop-off that is still scheduled gets a reminder.
		d, err := donations.GetByID(ctx, p.DonationID)
		if errors.Is(err, repository.ErrNotFound) {
			logger.Info("Skipping reminder of removed donation", zap.String("donationId", p.DonationID))
			return nil
		}
		if err != nil {
			return fmt.Errorf("load donation %s: %w", p.DonationID, err)
		}
		if d.Status != models.StatusScheduled {
			logger.Info("Skipping reminder", zap.String("donationId", p.DonationID), zap.String("status", string(d.Status)))
			return nil
		}

		logger.Info("Sending donation reminder",
			zap.String("donationId", p.DonationID), zap.String("scheduledDate", p.ScheduledDate),
			zap.Int("recipients", len(p.Recipients)))

		if err := notification.SendReminder(ctx, mailer, p); err != nil {
			logger.Error("Failed to send reminder", zap.String("donationId", p.DonationID), zap.Error(err))
			return err
		}
		return nil
	}
}

// monitorRedisConnection pings the queue database until ctx ends.
func (w *ReminderWorker) monitorRedisConnection(ctx context.Context) {
	client := redis.NewClient(&redis.Options{
		Addr:     w.opt.Addr,
		Password: w.opt.Password,
		DB:       w.opt.DB,
	})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil {
				w.logger.Warn("Reminder queue Redis connection lost", zap.Error(err))
			}
		}
	}
}
