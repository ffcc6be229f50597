package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"doemais/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderTaskCarriesPayload(t *testing.T) {
	payload := models.ReminderPayload{DonationID: "d1", Title: "t", Recipients: []string{"a@x.org"}}
	task, opts, err := NewReminderTask(payload, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, TypeSendReminder, task.Type())
	assert.Len(t, opts, 3)

	var decoded models.ReminderPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, payload, decoded)
}

func TestDispatcherScheduled(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mailer := &LogMailer{}
	queue := &MemoryQueue{}
	d := &Dispatcher{Mailer: mailer, Queue: queue, Now: func() time.Time { return now }}

	schedule := models.Schedule{DonationID: "d1", ScheduledDate: now.Add(72 * time.Hour)}
	err := d.DonationScheduled(context.Background(),
		models.Donation{ID: "d1", Title: "Livros"},
		schedule,
		models.Institution{Name: "Casa", Email: "casa@x.org"},
		models.User{Name: "Maria", Email: "maria@x.org"},
	)
	require.NoError(t, err)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "casa@x.org", sent[0].To)

	items := queue.Items()
	require.Len(t, items, 1)
	assert.Equal(t, schedule.ScheduledDate.Add(-ReminderLead), items[0].FireAt)
	assert.Equal(t, []string{"maria@x.org", "casa@x.org"}, items[0].Payload.Recipients)
}

func TestDispatcherSkipsPastReminder(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	queue := &MemoryQueue{}
	d := &Dispatcher{Queue: queue, Now: func() time.Time { return now }}

	err := d.DonationScheduled(context.Background(), models.Donation{ID: "d1"},
		models.Schedule{ScheduledDate: now.Add(2 * time.Hour)}, models.Institution{}, models.User{})
	require.NoError(t, err)
	assert.Empty(t, queue.Items())
}

func TestDispatcherEscapesUserText(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mailer := &LogMailer{}
	d := &Dispatcher{Mailer: mailer, Now: func() time.Time { return now }}

	err := d.DonationScheduled(context.Background(),
		models.Donation{ID: "d1", Title: `<a href="http://evil.example">Livros</a>`},
		models.Schedule{ScheduledDate: now.Add(72 * time.Hour), Notes: "<script>x()</script>"},
		models.Institution{Name: "Casa", Email: "casa@x.org"},
		models.User{Name: "<b>Maria</b>", Email: "maria@x.org"},
	)
	require.NoError(t, err)

	sent := mailer.Sent()
	require.Len(t, sent, 1)
	body := sent[0].Body
	assert.NotContains(t, body, "<a href")
	assert.NotContains(t, body, "<script>")
	assert.NotContains(t, body, "<b>")
	assert.Contains(t, body, "&lt;a href=")
	assert.Contains(t, body, "&lt;b&gt;Maria&lt;/b&gt;")

	require.NoError(t, SendReminder(context.Background(), mailer, models.ReminderPayload{
		Title: "Lembrete", Body: `<a href="http://evil.example">x</a>`, Recipients: []string{"a@x.org"},
	}))
	assert.NotContains(t, mailer.Sent()[1].Body, "<a href")
}

func TestDispatcherCancelledDropsReminder(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	queue := &MemoryQueue{}
	d := &Dispatcher{Queue: queue, Now: func() time.Time { return now }}
	ctx := context.Background()

	for _, id := range []string{"d1", "d2"} {
		require.NoError(t, d.DonationScheduled(ctx, models.Donation{ID: id},
			models.Schedule{ScheduledDate: now.Add(72 * time.Hour)}, models.Institution{}, models.User{}))
	}
	require.Len(t, queue.Items(), 2)

	require.NoError(t, d.DonationCancelled(ctx, models.Donation{ID: "d1"}))
	items := queue.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "d2", items[0].Payload.DonationID)

	require.NoError(t, d.DonationCancelled(ctx, models.Donation{ID: "missing"}))
}

func TestSendReminderSkipsEmptyRecipients(t *testing.T) {
	mailer := &LogMailer{}
	err := SendReminder(context.Background(), mailer, models.ReminderPayload{
		Title: "Lembrete", Body: "amanhã", Recipients: []string{"", "a@x.org"},
	})
	require.NoError(t, err)
	assert.Len(t, mailer.Sent(), 1)
}
