package donationRepo

import (
	"context"

	"doemais/models"
)

// DonationRepository defines methods for donation and schedule data access.
type DonationRepository interface {
	Create(ctx context.Context, d *models.Donation) error
	GetByID(ctx context.Context, id string) (*models.Donation, error)
	// ListByDonor returns the donor's donations, newest first.
	ListByDonor(ctx context.Context, donorID string) ([]models.Donation, error)
	// ListByInstitution returns donations addressed to an institution, newest first.
	ListByInstitution(ctx context.Context, institutionID string) ([]models.Donation, error)
	Update(ctx context.Context, d *models.Donation) error
	Delete(ctx context.Context, id string) error

	CreateSchedule(ctx context.Context, s *models.Schedule) error
	SchedulesByDonation(ctx context.Context, donationID string) ([]models.Schedule, error)
}
