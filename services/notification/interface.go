// Package notification mails donors and institutions about scheduled
// donations and queues reminders for the day before a drop-off.
package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"doemais/models"

	"go.uber.org/zap"
)

// Mailer sends one message to one recipient.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// ReminderLead is how long before the scheduled date a reminder fires.
const ReminderLead = 24 * time.Hour

// Mail bodies. html/template escapes every field, which carries text typed
// by donors and institutions.
var (
	scheduledMail = template.Must(template.New("scheduled").Parse(
		`<p>{{.Donor}} agendou a entrega de <strong>{{.Title}}</strong> para {{.When}}.</p>{{if .Notes}}<p>{{.Notes}}</p>{{end}}`))
	deliveredMail = template.Must(template.New("delivered").Parse(
		`<p>Olá {{.Donor}}, {{.Institution}} confirmou o recebimento de <strong>{{.Title}}</strong>. Obrigado!</p><p>Conte como foi avaliando a instituição.</p>`))
	reminderMail = template.Must(template.New("reminder").Parse(`<p>{{.}}</p>`))
)

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s mail: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// Dispatcher turns donation events into mail and queued reminders.
type Dispatcher struct {
	Mailer Mailer
	Queue  Enqueuer
	Logger *zap.Logger
	Now    func() time.Time
}

func (d *Dispatcher) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// DonationScheduled tells the institution about the drop-off and queues a
// reminder for both parties.
func (d *Dispatcher) DonationScheduled(ctx context.Context, donation models.Donation, schedule models.Schedule, inst models.Institution, donor models.User) error {
	when := schedule.ScheduledDate.Format("02/01/2006 15:04")
	var errs []string

	if d.Mailer != nil && inst.Email != "" {
		body, err := render(scheduledMail, map[string]string{
			"Donor": donor.Name, "Title": donation.Title, "When": when, "Notes": schedule.Notes,
		})
		if err == nil {
			err = d.Mailer.Send(ctx, inst.Email, "Nova doação agendada", body)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	fireAt := schedule.ScheduledDate.Add(-ReminderLead)
	if d.Queue != nil && fireAt.After(d.now()) {
		payload := models.ReminderPayload{
			DonationID:    donation.ID,
			Title:         "Lembrete de doação",
			Body:          fmt.Sprintf("A entrega de %s em %s está marcada para %s.", donation.Title, inst.Name, when),
			FireDate:      fireAt.Format(time.RFC3339),
			ScheduledDate: schedule.ScheduledDate.Format(time.RFC3339),
			Recipients:    []string{donor.Email, inst.Email},
		}
		if err := d.Queue.EnqueueReminder(ctx, payload, fireAt); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify scheduled donation %s: %s", donation.ID, strings.Join(errs, "; "))
	}
	d.logger().Info("Donation schedule notified", zap.String("donationId", donation.ID), zap.Time("fireAt", fireAt))
	return nil
}

// DonationDelivered thanks the donor and invites a rating.
func (d *Dispatcher) DonationDelivered(ctx context.Context, donation models.Donation, inst models.Institution, donor models.User) error {
	if d.Mailer == nil || donor.Email == "" {
		return nil
	}
	body, err := render(deliveredMail, map[string]string{
		"Donor": donor.Name, "Institution": inst.Name, "Title": donation.Title,
	})
	if err != nil {
		return err
	}
	if err := d.Mailer.Send(ctx, donor.Email, "Doação entregue", body); err != nil {
		return fmt.Errorf("notify delivered donation %s: %w", donation.ID, err)
	}
	return nil
}

// DonationCancelled drops the pending reminder of a cancelled donation.
func (d *Dispatcher) DonationCancelled(ctx context.Context, donation models.Donation) error {
	if d.Queue == nil {
		return nil
	}
	if err := d.Queue.CancelReminder(ctx, donation.ID); err != nil {
		return err
	}
	d.logger().Info("Donation reminder cancelled", zap.String("donationId", donation.ID))
	return nil
}

// SendReminder mails a queued reminder to each non-empty recipient. The body
// is plain text and is escaped into the mail.
func SendReminder(ctx context.Context, mailer Mailer, p models.ReminderPayload) error {
	body, err := render(reminderMail, p.Body)
	if err != nil {
		return err
	}
	var errs []string
	for _, to := range p.Recipients {
		if to == "" {
			continue
		}
		if err := mailer.Send(ctx, to, p.Title, body); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", to, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("send reminder %s: %s", p.DonationID, strings.Join(errs, "; "))
	}
	return nil
}
