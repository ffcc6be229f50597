// Package institution searches institutions and maintains their profiles.
package institution

import (
	"context"
	"time"

	"doemais/config"
	categoryRepo "doemais/database/repository/category"
	institutionRepo "doemais/database/repository/institution"
	ratingRepo "doemais/database/repository/rating"
	"doemais/models"
	"doemais/utils"

	"github.com/graph-gophers/dataloader"
	"go.uber.org/zap"
)

type InstitutionService interface {
	// Search runs the filter pipeline. origin is the user position, if known.
	Search(ctx context.Context, criteria models.FilterCriteria, origin *models.Coordinate) ([]Listing, error)
	GetInstitution(ctx context.Context, id string) (*Detail, error)
	UpdateInstitution(ctx context.Context, id, actorID string, patch ProfilePatch) (*models.Institution, error)
	UpdateWorkingHours(ctx context.Context, id, actorID string, week []models.WorkingHours) (*models.Institution, error)
	UpdateAcceptedCategories(ctx context.Context, id, actorID string, categoryIDs []string) (*models.Institution, error)
}

// DefaultInstitutionService is the production implementation.
type DefaultInstitutionService struct {
	Repo       institutionRepo.InstitutionRepository
	Categories categoryRepo.CategoryRepository
	Ratings    ratingRepo.RatingRepository
	Open       OpenChecker
	Logger     *zap.Logger
}

// Detail is an institution with its reviews, newest first.
type Detail struct {
	models.Institution
	Categories []CategoryRef   `json:"categories"`
	Reviews    []models.Rating `json:"reviews"`
}

// ProfilePatch holds the profile fields an owner may change. Nil fields are kept.
type ProfilePatch struct {
	Name        *string                 `json:"name" validate:"omitempty,min=2,max=120"`
	Description *string                 `json:"description" validate:"omitempty,max=2000"`
	Email       *string                 `json:"email" validate:"omitempty,email"`
	Phone       *string                 `json:"phone" validate:"omitempty,max=30"`
	Type        *models.InstitutionType `json:"type"`
	Avatar      *string                 `json:"avatar" validate:"omitempty,url"`
	Address     *models.Address         `json:"address"`
	Coordinates *models.Coordinate      `json:"coordinates"`
}

// OpenCheckerFromConfig builds the open-now evaluator from AppConfig.
func OpenCheckerFromConfig() OpenChecker {
	return OpenNow{
		Mode:      config.AppConfig.OpenNowMode,
		SampleDay: time.Weekday(config.AppConfig.OpenNowSampleDay % 7),
		Location:  config.Location(),
	}
}

func (s *DefaultInstitutionService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *DefaultInstitutionService) openChecker() OpenChecker {
	if s.Open == nil {
		return OpenNow{}
	}
	return s.Open
}

func (s *DefaultInstitutionService) categoryLoader() *dataloader.Loader {
	if s.Categories == nil {
		return nil
	}
	return newCategoryLoader(s.Categories)
}

func (s *DefaultInstitutionService) Search(ctx context.Context, criteria models.FilterCriteria, origin *models.Coordinate) ([]Listing, error) {
	if err := utils.Validate(criteria); err != nil {
		return nil, err
	}
	if origin != nil && !origin.Valid() {
		return nil, utils.ValidationError("invalid coordinates")
	}

	items, err := s.Repo.Find(ctx, institutionRepo.Query{Types: criteria.Types, MinRating: criteria.MinRating})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, utils.Wrap(utils.KindInternal, "failed to fetch institutions", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	checker := s.openChecker()
	matched := Filter(items, criteria, origin, checker)
	Sort(matched, criteria.SortBy, origin)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	loader := s.categoryLoader()
	pending := make([]func() []CategoryRef, len(matched))
	for i, inst := range matched {
		pending[i] = categoryRefs(ctx, loader, inst.AcceptedCategories)
	}
	listings := make([]Listing, 0, len(matched))
	for i, inst := range matched {
		listings = append(listings, toListing(inst, origin, checker.IsOpen(inst.WorkingHours), pending[i]()))
	}
	s.logger().Debug("Institution search finished",
		zap.Int("fetched", len(items)), zap.Int("matched", len(listings)))
	return listings, nil
}

func (s *DefaultInstitutionService) GetInstitution(ctx context.Context, id string) (*Detail, error) {
	inst, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, utils.FromStore("institution", err)
	}
	detail := &Detail{Institution: *inst, Reviews: []models.Rating{}}
	if s.Ratings != nil {
		reviews, err := s.Ratings.ListByInstitution(ctx, id)
		if err != nil {
			return nil, utils.FromStore("ratings", err)
		}
		if reviews != nil {
			detail.Reviews = reviews
		}
	}
	detail.Categories = categoryRefs(ctx, s.categoryLoader(), inst.AcceptedCategories)()
	return detail, nil
}

// owned loads the institution and checks that actorID owns it.
func (s *DefaultInstitutionService) owned(ctx context.Context, id, actorID string) (*models.Institution, error) {
	inst, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, utils.FromStore("institution", err)
	}
	if inst.UserID != actorID {
		return nil, utils.ForbiddenError("only the institution owner can change it")
	}
	return inst, nil
}

func (s *DefaultInstitutionService) UpdateInstitution(ctx context.Context, id, actorID string, patch ProfilePatch) (*models.Institution, error) {
	if err := utils.Validate(patch); err != nil {
		return nil, err
	}
	if patch.Type != nil && !patch.Type.Valid() {
		return nil, utils.ValidationError("invalid institution type")
	}
	if patch.Coordinates != nil && !patch.Coordinates.Valid() {
		return nil, utils.ValidationError("invalid coordinates")
	}

	inst, err := s.owned(ctx, id, actorID)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		inst.Name = *patch.Name
	}
	if patch.Description != nil {
		inst.Description = *patch.Description
	}
	if patch.Email != nil {
		inst.Email = *patch.Email
	}
	if patch.Phone != nil {
		inst.Phone = *patch.Phone
	}
	if patch.Type != nil {
		inst.Type = *patch.Type
	}
	if patch.Avatar != nil {
		inst.Avatar = *patch.Avatar
	}
	if patch.Address != nil {
		inst.Address = *patch.Address
		if patch.Address.Coordinates != nil && patch.Coordinates == nil {
			c := *patch.Address.Coordinates
			inst.Coordinates = &c
		}
	}
	if patch.Coordinates != nil {
		c := *patch.Coordinates
		inst.Coordinates = &c
	}

	if err := s.Repo.Update(ctx, inst); err != nil {
		return nil, utils.FromStore("institution", err)
	}
	return s.reload(ctx, id)
}

func (s *DefaultInstitutionService) UpdateWorkingHours(ctx context.Context, id, actorID string, week []models.WorkingHours) (*models.Institution, error) {
	if err := models.ValidateWeek(week); err != nil {
		return nil, utils.Wrap(utils.KindValidation, "invalid working hours", err)
	}
	if _, err := s.owned(ctx, id, actorID); err != nil {
		return nil, err
	}
	if err := s.Repo.ReplaceWorkingHours(ctx, id, week); err != nil {
		return nil, utils.FromStore("institution", err)
	}
	return s.reload(ctx, id)
}

func (s *DefaultInstitutionService) UpdateAcceptedCategories(ctx context.Context, id, actorID string, categoryIDs []string) (*models.Institution, error) {
	ids := models.DedupeIDs(categoryIDs)
	if s.Categories != nil && len(ids) > 0 {
		found, err := s.Categories.GetByIDs(ctx, ids)
		if err != nil {
			return nil, utils.FromStore("categories", err)
		}
		if len(found) != len(ids) {
			return nil, utils.ValidationError("unknown category in accepted categories")
		}
	}
	if _, err := s.owned(ctx, id, actorID); err != nil {
		return nil, err
	}
	if err := s.Repo.ReplaceAcceptedCategories(ctx, id, ids); err != nil {
		return nil, utils.FromStore("institution", err)
	}
	return s.reload(ctx, id)
}

func (s *DefaultInstitutionService) reload(ctx context.Context, id string) (*models.Institution, error) {
	inst, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, utils.FromStore("institution", err)
	}
	return inst, nil
}
