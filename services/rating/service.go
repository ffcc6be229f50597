// Package rating lets donors review institutions after a delivery.
package rating

import (
	"context"
	"errors"
	"strings"
	"time"

	"doemais/database/repository"
	donationRepo "doemais/database/repository/donation"
	institutionRepo "doemais/database/repository/institution"
	ratingRepo "doemais/database/repository/rating"
	"doemais/models"
	"doemais/utils"

	"go.uber.org/zap"
)

var (
	ErrNotDelivered = utils.BusinessRuleError("you can only rate donations that were delivered")
	ErrAlreadyRated = utils.BusinessRuleError("you have already rated this donation")
	ErrMismatch     = utils.ValidationError("the donation does not belong to this donor and institution")
)

type RatingService interface {
	CheckUserCanRate(ctx context.Context, donorID, institutionID, donationID string) error
	Create(ctx context.Context, donorID string, in CreateInput) (*models.Rating, error)
	ListByInstitution(ctx context.Context, institutionID string) ([]models.Rating, error)
	Respond(ctx context.Context, ratingID, actorID, response string) (*models.Rating, error)
}

type CreateInput struct {
	InstitutionID string `json:"institutionId" validate:"required"`
	DonationID    string `json:"donationId" validate:"required"`
	Score         int    `json:"rating" validate:"gte=1,lte=5"`
	Comment       string `json:"comment" validate:"max=1000"`
}

// DefaultRatingService is the production implementation.
type DefaultRatingService struct {
	Repo         ratingRepo.RatingRepository
	Donations    donationRepo.DonationRepository
	Institutions institutionRepo.InstitutionRepository
	Logger       *zap.Logger
	Now          func() time.Time
}

func (s *DefaultRatingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// CheckUserCanRate returns nil when donorID may rate the donation.
func (s *DefaultRatingService) CheckUserCanRate(ctx context.Context, donorID, institutionID, donationID string) error {
	d, err := s.Donations.GetByID(ctx, donationID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrMismatch
	}
	if err != nil {
		return utils.FromStore("donation", err)
	}
	if d.DonorID != donorID || d.InstitutionID != institutionID {
		return ErrMismatch
	}
	if d.Status != models.StatusDelivered {
		return ErrNotDelivered
	}

	_, err = s.Repo.GetByDonation(ctx, donorID, donationID)
	switch {
	case err == nil:
		return ErrAlreadyRated
	case errors.Is(err, repository.ErrNotFound):
		return nil
	}
	return utils.FromStore("rating", err)
}

func (s *DefaultRatingService) Create(ctx context.Context, donorID string, in CreateInput) (*models.Rating, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	if err := s.CheckUserCanRate(ctx, donorID, in.InstitutionID, in.DonationID); err != nil {
		return nil, err
	}
	inst, err := s.Institutions.GetByID(ctx, in.InstitutionID)
	if err != nil {
		return nil, utils.FromStore("institution", err)
	}

	r := &models.Rating{
		ID:            utils.NewID(),
		DonorID:       donorID,
		InstitutionID: in.InstitutionID,
		DonationID:    in.DonationID,
		Score:         in.Score,
		Comment:       strings.TrimSpace(in.Comment),
		CreatedAt:     s.now(),
	}
	if err := s.Repo.Create(ctx, r); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyRated
		}
		return nil, utils.FromStore("rating", err)
	}

	if err := s.Institutions.AddRating(ctx, inst.ID, in.Score); err != nil {
		// The rating stands; the aggregate catches up on the next review.
		if s.Logger != nil {
			s.Logger.Error("Failed to update rating aggregate", zap.String("institutionId", inst.ID), zap.Error(err))
		}
	}
	return r, nil
}

func (s *DefaultRatingService) ListByInstitution(ctx context.Context, institutionID string) ([]models.Rating, error) {
	out, err := s.Repo.ListByInstitution(ctx, institutionID)
	if err != nil {
		return nil, utils.FromStore("ratings", err)
	}
	if out == nil {
		out = []models.Rating{}
	}
	return out, nil
}

func (s *DefaultRatingService) Respond(ctx context.Context, ratingID, actorID, response string) (*models.Rating, error) {
	response = strings.TrimSpace(response)
	if response == "" || len(response) > 1000 {
		return nil, utils.ValidationError("response must have between 1 and 1000 characters")
	}
	r, err := s.Repo.GetByID(ctx, ratingID)
	if err != nil {
		return nil, utils.FromStore("rating", err)
	}
	inst, err := s.Institutions.GetByID(ctx, r.InstitutionID)
	if err != nil {
		return nil, utils.FromStore("institution", err)
	}
	if inst.UserID != actorID {
		return nil, utils.ForbiddenError("only the rated institution can respond")
	}

	at := s.now()
	if err := s.Repo.SetResponse(ctx, ratingID, response, at); err != nil {
		return nil, utils.FromStore("rating", err)
	}
	r.Response = response
	r.RespondedAt = &at
	return r, nil
}
