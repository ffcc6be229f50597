package models

// ReminderPayload is the body of a queued donation reminder.
type ReminderPayload struct {
	DonationID    string `json:"donationId"`
	Title         string `json:"title"`
	Body          string `json:"body"`
	FireDate      string `json:"fireDate"`
	ScheduledDate string `json:"scheduledDate"`
	// Recipients are email addresses; empty ones are skipped.
	Recipients []string `json:"recipients"`
}
