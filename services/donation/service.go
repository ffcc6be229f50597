// Package donation manages the donation lifecycle from offer to delivery.
package donation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"doemais/database/repository"
	categoryRepo "doemais/database/repository/category"
	donationRepo "doemais/database/repository/donation"
	institutionRepo "doemais/database/repository/institution"
	userRepo "doemais/database/repository/user"
	"doemais/models"
	"doemais/services/storage"
	"doemais/utils"

	"go.uber.org/zap"
)

// MaxImages caps the photos attached to one donation.
const MaxImages = 5

var (
	ErrNotDonor      = utils.ForbiddenError("only the donor can change this donation")
	ErrNotReceiver   = utils.ForbiddenError("only the receiving institution can confirm delivery")
	ErrNotPending    = utils.BusinessRuleError("only pending donations can be edited")
	ErrNotRemovable  = utils.BusinessRuleError("only pending or cancelled donations can be deleted")
	ErrTooManyImages = utils.BusinessRuleError(fmt.Sprintf("a donation holds at most %d images", MaxImages))
)

// Notifier is told about schedule, delivery and cancel events. Failures are logged by
// the service and never undo the change.
type Notifier interface {
	DonationScheduled(ctx context.Context, donation models.Donation, schedule models.Schedule, inst models.Institution, donor models.User) error
	DonationDelivered(ctx context.Context, donation models.Donation, inst models.Institution, donor models.User) error
	DonationCancelled(ctx context.Context, donation models.Donation) error
}

type DonationService interface {
	Create(ctx context.Context, donorID string, in CreateInput) (*models.Donation, error)
	Get(ctx context.Context, id string) (*models.Donation, error)
	ListByDonor(ctx context.Context, donorID string) ([]models.Donation, error)
	ListByInstitution(ctx context.Context, institutionID, actorID string) ([]models.Donation, error)
	Update(ctx context.Context, id, donorID string, in UpdateInput) (*models.Donation, error)
	Delete(ctx context.Context, id, donorID string) error
	Schedule(ctx context.Context, id, donorID string, in ScheduleInput) (*models.Donation, error)
	MarkDelivered(ctx context.Context, id, actorID string) (*models.Donation, error)
	Cancel(ctx context.Context, id, donorID string) (*models.Donation, error)
	AddImage(ctx context.Context, id, donorID, url string) (*models.Donation, error)
	UploadImage(ctx context.Context, id, donorID string, r io.Reader, name, contentType string) (*models.Donation, error)
	Stats(ctx context.Context, donorID string) (*models.DonorStats, error)
}

type CreateInput struct {
	Title       string           `json:"title" validate:"required,min=3,max=120"`
	Description string           `json:"description" validate:"max=2000"`
	Category    string           `json:"category" validate:"required"`
	Subcategory string           `json:"subcategory" validate:"required"`
	Condition   models.Condition `json:"condition" validate:"required,oneof=new semi_new used"`
	Images      []string         `json:"images" validate:"max=5,dive,url"`
}

type UpdateInput struct {
	Title       *string           `json:"title" validate:"omitempty,min=3,max=120"`
	Description *string           `json:"description" validate:"omitempty,max=2000"`
	Category    *string           `json:"category"`
	Subcategory *string           `json:"subcategory"`
	Condition   *models.Condition `json:"condition" validate:"omitempty,oneof=new semi_new used"`
}

type ScheduleInput struct {
	InstitutionID string    `json:"institutionId" validate:"required"`
	Date          time.Time `json:"date" validate:"required"`
	Notes         string    `json:"notes" validate:"max=500"`
}

// DefaultDonationService is the production implementation.
type DefaultDonationService struct {
	Repo         donationRepo.DonationRepository
	Institutions institutionRepo.InstitutionRepository
	Categories   categoryRepo.CategoryRepository
	Users        userRepo.UserRepository
	Notifier     Notifier
	Images       storage.ImageStore
	Logger       *zap.Logger
	Now          func() time.Time
}

func (s *DefaultDonationService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *DefaultDonationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// checkCategory requires the category to exist and own the subcategory.
func (s *DefaultDonationService) checkCategory(ctx context.Context, categoryID, subcategoryID string) error {
	cat, err := s.Categories.GetByID(ctx, categoryID)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.ValidationError("unknown category " + categoryID)
	}
	if err != nil {
		return utils.FromStore("category", err)
	}
	if !cat.HasSubcategory(subcategoryID) {
		return utils.ValidationError(fmt.Sprintf("subcategory %s does not belong to category %s", subcategoryID, categoryID))
	}
	return nil
}

func (s *DefaultDonationService) Create(ctx context.Context, donorID string, in CreateInput) (*models.Donation, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, in.Category, in.Subcategory); err != nil {
		return nil, err
	}

	d := &models.Donation{
		ID:          utils.NewID(),
		DonorID:     donorID,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Subcategory: in.Subcategory,
		Condition:   in.Condition,
		Images:      append([]string{}, in.Images...),
		Status:      models.StatusPending,
		CreatedAt:   s.now(),
	}
	if err := s.Repo.Create(ctx, d); err != nil {
		return nil, utils.FromStore("donation", err)
	}
	return d, nil
}

func (s *DefaultDonationService) Get(ctx context.Context, id string) (*models.Donation, error) {
	d, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, utils.FromStore("donation", err)
	}
	return d, nil
}

func (s *DefaultDonationService) ListByDonor(ctx context.Context, donorID string) ([]models.Donation, error) {
	out, err := s.Repo.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, utils.FromStore("donations", err)
	}
	return nonNil(out), nil
}

func (s *DefaultDonationService) ListByInstitution(ctx context.Context, institutionID, actorID string) ([]models.Donation, error) {
	inst, err := s.Institutions.GetByID(ctx, institutionID)
	if err != nil {
		return nil, utils.FromStore("institution", err)
	}
	if inst.UserID != actorID {
		return nil, utils.ForbiddenError("only the institution can list its donations")
	}
	out, err := s.Repo.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, utils.FromStore("donations", err)
	}
	return nonNil(out), nil
}

func nonNil(in []models.Donation) []models.Donation {
	if in == nil {
		return []models.Donation{}
	}
	return in
}

// ownDonation loads a donation that donorID created.
func (s *DefaultDonationService) ownDonation(ctx context.Context, id, donorID string) (*models.Donation, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.DonorID != donorID {
		return nil, ErrNotDonor
	}
	return d, nil
}

func transition(d *models.Donation, next models.DonationStatus) error {
	if !d.Status.CanTransitionTo(next) {
		return utils.BusinessRuleError(fmt.Sprintf("cannot move donation from %s to %s", d.Status, next))
	}
	d.Status = next
	return nil
}

func (s *DefaultDonationService) save(ctx context.Context, d *models.Donation) (*models.Donation, error) {
	if err := s.Repo.Update(ctx, d); err != nil {
		return nil, utils.FromStore("donation", err)
	}
	return d, nil
}

func (s *DefaultDonationService) Update(ctx context.Context, id, donorID string, in UpdateInput) (*models.Donation, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	d, err := s.ownDonation(ctx, id, donorID)
	if err != nil {
		return nil, err
	}
	if d.Status != models.StatusPending {
		return nil, ErrNotPending
	}

	if in.Title != nil {
		d.Title = *in.Title
	}
	if in.Description != nil {
		d.Description = *in.Description
	}
	if in.Condition != nil {
		d.Condition = *in.Condition
	}
	if in.Category != nil || in.Subcategory != nil {
		if in.Category != nil {
			d.Category = *in.Category
		}
		if in.Subcategory != nil {
			d.Subcategory = *in.Subcategory
		}
		if err := s.checkCategory(ctx, d.Category, d.Subcategory); err != nil {
			return nil, err
		}
	}
	return s.save(ctx, d)
}

func (s *DefaultDonationService) Delete(ctx context.Context, id, donorID string) error {
	d, err := s.ownDonation(ctx, id, donorID)
	if err != nil {
		return err
	}
	if d.Status != models.StatusPending && d.Status != models.StatusCancelled {
		return ErrNotRemovable
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		return utils.FromStore("donation", err)
	}
	if s.Images != nil {
		for _, url := range d.Images {
			if err := s.Images.Delete(ctx, url); err != nil {
				s.logger().Warn("Failed to delete donation image", zap.String("donationId", id), zap.Error(err))
			}
		}
	}
	return nil
}

func (s *DefaultDonationService) Schedule(ctx context.Context, id, donorID string, in ScheduleInput) (*models.Donation, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	if !in.Date.After(s.now()) {
		return nil, utils.ValidationError("the drop-off date must be in the future")
	}
	d, err := s.ownDonation(ctx, id, donorID)
	if err != nil {
		return nil, err
	}
	inst, err := s.Institutions.GetByID(ctx, in.InstitutionID)
	if err != nil {
		return nil, utils.FromStore("institution", err)
	}
	if !inst.Accepts(d.Category) {
		return nil, utils.BusinessRuleError(inst.Name + " does not accept this category")
	}
	if err := transition(d, models.StatusScheduled); err != nil {
		return nil, err
	}

	date := in.Date
	d.InstitutionID = inst.ID
	d.ScheduledDate = &date
	schedule := models.Schedule{
		ID:            utils.NewID(),
		DonationID:    d.ID,
		InstitutionID: inst.ID,
		ScheduledDate: date,
		Notes:         in.Notes,
		CreatedAt:     s.now(),
	}
	if err := s.Repo.CreateSchedule(ctx, &schedule); err != nil {
		return nil, utils.FromStore("schedule", err)
	}
	if _, err := s.save(ctx, d); err != nil {
		return nil, err
	}

	if s.Notifier != nil {
		donor := s.donor(ctx, d.DonorID)
		if err := s.Notifier.DonationScheduled(ctx, *d, schedule, *inst, donor); err != nil {
			s.logger().Warn("Failed to notify scheduled donation", zap.String("donationId", d.ID), zap.Error(err))
		}
	}
	return d, nil
}

// donor loads the donor for notifications; a missing account yields an empty user.
func (s *DefaultDonationService) donor(ctx context.Context, id string) models.User {
	if s.Users == nil {
		return models.User{ID: id}
	}
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		s.logger().Warn("Donor not found for notification", zap.String("donorId", id), zap.Error(err))
		return models.User{ID: id}
	}
	return *u
}

func (s *DefaultDonationService) MarkDelivered(ctx context.Context, id, actorID string) (*models.Donation, error) {
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.InstitutionID == "" {
		return nil, utils.BusinessRuleError("the donation has no receiving institution")
	}
	inst, err := s.Institutions.GetByID(ctx, d.InstitutionID)
	if err != nil {
		return nil, utils.FromStore("institution", err)
	}
	if inst.UserID != actorID {
		return nil, ErrNotReceiver
	}
	if err := transition(d, models.StatusDelivered); err != nil {
		return nil, err
	}
	now := s.now()
	d.DeliveredDate = &now
	if _, err := s.save(ctx, d); err != nil {
		return nil, err
	}

	if s.Notifier != nil {
		if err := s.Notifier.DonationDelivered(ctx, *d, *inst, s.donor(ctx, d.DonorID)); err != nil {
			s.logger().Warn("Failed to notify delivered donation", zap.String("donationId", d.ID), zap.Error(err))
		}
	}
	return d, nil
}

func (s *DefaultDonationService) Cancel(ctx context.Context, id, donorID string) (*models.Donation, error) {
	d, err := s.ownDonation(ctx, id, donorID)
	if err != nil {
		return nil, err
	}
	wasScheduled := d.Status == models.StatusScheduled
	if err := transition(d, models.StatusCancelled); err != nil {
		return nil, err
	}
	saved, err := s.save(ctx, d)
	if err != nil {
		return nil, err
	}
	if wasScheduled && s.Notifier != nil {
		if err := s.Notifier.DonationCancelled(ctx, *saved); err != nil {
			s.logger().Warn("Failed to cancel donation reminder", zap.String("donationId", saved.ID), zap.Error(err))
		}
	}
	return saved, nil
}

func (s *DefaultDonationService) AddImage(ctx context.Context, id, donorID, url string) (*models.Donation, error) {
	if err := utils.Validator().Var(url, "required,url"); err != nil {
		return nil, utils.ValidationError("invalid image url")
	}
	d, err := s.ownDonation(ctx, id, donorID)
	if err != nil {
		return nil, err
	}
	if d.Status.Terminal() {
		return nil, utils.BusinessRuleError("images cannot be added to a " + string(d.Status) + " donation")
	}
	if len(d.Images) >= MaxImages {
		return nil, ErrTooManyImages
	}
	d.Images = append(d.Images, url)
	return s.save(ctx, d)
}

func (s *DefaultDonationService) UploadImage(ctx context.Context, id, donorID string, r io.Reader, name, contentType string) (*models.Donation, error) {
	d, err := s.ownDonation(ctx, id, donorID)
	if err != nil {
		return nil, err
	}
	if len(d.Images) >= MaxImages {
		return nil, ErrTooManyImages
	}
	if s.Images == nil {
		return nil, storage.ErrDisabled
	}
	url, err := s.Images.Upload(ctx, r, "donations/"+id, name, contentType)
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, utils.Wrap(utils.KindInternal, "failed to upload image", err)
	}
	return s.AddImage(ctx, id, donorID, url)
}

func (s *DefaultDonationService) Stats(ctx context.Context, donorID string) (*models.DonorStats, error) {
	donations, err := s.Repo.ListByDonor(ctx, donorID)
	if err != nil {
		return nil, utils.FromStore("donations", err)
	}
	stats := &models.DonorStats{Total: len(donations)}
	helped := make(map[string]struct{})
	for _, d := range donations {
		switch d.Status {
		case models.StatusPending:
			stats.Pending++
		case models.StatusScheduled:
			stats.Scheduled++
		case models.StatusDelivered:
			stats.Delivered++
			if d.InstitutionID != "" {
				helped[d.InstitutionID] = struct{}{}
			}
		case models.StatusCancelled:
			stats.Cancelled++
		}
	}
	stats.InstitutionsHelped = len(helped)
	return stats, nil
}
