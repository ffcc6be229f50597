package institutionRepo

import (
	"context"

	"doemais/models"
)

// Query holds the predicates the store evaluates itself. Everything else is
// filtered by the caller after the fetch.
type Query struct {
	Types     []models.InstitutionType
	MinRating float64
}

// InstitutionRepository defines methods for institution data access.
type InstitutionRepository interface {
	// Find returns institutions matching q in the store's natural order.
	Find(ctx context.Context, q Query) ([]models.Institution, error)
	// GetByID retrieves an institution by its unique ID.
	GetByID(ctx context.Context, id string) (*models.Institution, error)
	// GetByUserID retrieves the institution owned by a user account.
	GetByUserID(ctx context.Context, userID string) (*models.Institution, error)
	// Create inserts a new institution record.
	Create(ctx context.Context, inst *models.Institution) error
	// Update modifies the profile fields of an existing institution.
	Update(ctx context.Context, inst *models.Institution) error
	// Delete removes an institution record by its ID.
	Delete(ctx context.Context, id string) error
	// ReplaceWorkingHours swaps the whole weekly schedule.
	ReplaceWorkingHours(ctx context.Context, id string, hours []models.WorkingHours) error
	// ReplaceAcceptedCategories swaps the accepted category set.
	ReplaceAcceptedCategories(ctx context.Context, id string, categoryIDs []string) error
	// AddRating folds one score into the aggregate rating in a single atomic step.
	AddRating(ctx context.Context, id string, score int) error
}
