package cron

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"doemais/database/fixtures"
	donationRepo "doemais/database/repository/donation"
	"doemais/models"
	"doemais/services/notification"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func reminderTask(t *testing.T, payload models.ReminderPayload) *asynq.Task {
	t.Helper()
	task, _, err := notification.NewReminderTask(payload, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return task
}

func TestReminderTaskMailsRecipients(t *testing.T) {
	mailer := &notification.LogMailer{}
	donations := donationRepo.NewMemoryDonationRepo(fixtures.Donations()...)
	task := reminderTask(t, models.ReminderPayload{
		DonationID: "donation4",
		Title:      "Lembrete de entrega",
		Body:       "Sua doação será entregue amanhã.",
		Recipients: []string{"maria.silva@email.com", "", "contato@vida.org"},
	})

	require.NoError(t, handleReminderTask(donations, mailer, zap.NewNop())(context.Background(), task))
	sent := mailer.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "maria.silva@email.com", sent[0].To)
	assert.Equal(t, "Lembrete de entrega", sent[0].Subject)
}

func TestReminderTaskSkipsDonationsNoLongerScheduled(t *testing.T) {
	ctx := context.Background()
	donations := donationRepo.NewMemoryDonationRepo(fixtures.Donations()...)
	d, err := donations.GetByID(ctx, "donation4")
	require.NoError(t, err)
	d.Status = models.StatusCancelled
	require.NoError(t, donations.Update(ctx, d))

	mailer := &notification.LogMailer{}
	handler := handleReminderTask(donations, mailer, zap.NewNop())
	recipients := []string{"maria.silva@email.com"}

	require.NoError(t, handler(ctx, reminderTask(t, models.ReminderPayload{DonationID: "donation4", Recipients: recipients})))
	require.NoError(t, handler(ctx, reminderTask(t, models.ReminderPayload{DonationID: "gone", Recipients: recipients})))
	assert.Empty(t, mailer.Sent())
}

func TestReminderTaskRejectsMalformedPayload(t *testing.T) {
	task := asynq.NewTask(notification.TypeSendReminder, []byte("{"))
	donations := donationRepo.NewMemoryDonationRepo()
	err := handleReminderTask(donations, &notification.LogMailer{}, zap.NewNop())(context.Background(), task)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

type failingMailer struct{}

func (failingMailer) Send(context.Context, string, string, string) error {
	return errors.New("smtp down")
}

func TestReminderTaskSurfacesMailErrors(t *testing.T) {
	donations := donationRepo.NewMemoryDonationRepo(fixtures.Donations()...)
	b, err := json.Marshal(models.ReminderPayload{DonationID: "donation4", Recipients: []string{"a@b.org"}})
	require.NoError(t, err)
	err = handleReminderTask(donations, failingMailer{}, zap.NewNop())(context.Background(), asynq.NewTask(notification.TypeSendReminder, b))
	assert.Error(t, err)
}
