// Package category exposes the donation category catalogue.
package category

import (
	"context"

	categoryRepo "doemais/database/repository/category"
	"doemais/models"
	"doemais/utils"
)

type CategoryService interface {
	List(ctx context.Context) ([]models.Category, error)
	Get(ctx context.Context, id string) (*models.Category, error)
	Subcategories(ctx context.Context, categoryID string) ([]models.Subcategory, error)
}

type DefaultCategoryService struct {
	Repo categoryRepo.CategoryRepository
}

func (s *DefaultCategoryService) List(ctx context.Context) ([]models.Category, error) {
	out, err := s.Repo.List(ctx)
	if err != nil {
		return nil, utils.FromStore("categories", err)
	}
	if out == nil {
		out = []models.Category{}
	}
	return out, nil
}

func (s *DefaultCategoryService) Get(ctx context.Context, id string) (*models.Category, error) {
	c, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, utils.FromStore("category", err)
	}
	return c, nil
}

func (s *DefaultCategoryService) Subcategories(ctx context.Context, categoryID string) ([]models.Subcategory, error) {
	c, err := s.Get(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if c.Subcategories == nil {
		return []models.Subcategory{}, nil
	}
	return c.Subcategories, nil
}
