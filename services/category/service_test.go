package category

import (
	"context"
	"testing"

	"doemais/database/fixtures"
	categoryRepo "doemais/database/repository/category"
	"doemais/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService() *DefaultCategoryService {
	return &DefaultCategoryService{Repo: categoryRepo.NewMemoryCategoryRepo(fixtures.Categories()...)}
}

func TestListOrderedByName(t *testing.T) {
	list, err := newService().List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 5)

	names := make([]string, len(list))
	for i, c := range list {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"Alimentos", "Brinquedos", "Livros", "Móveis", "Roupas"}, names)
}

func TestSubcategories(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	subs, err := svc.Subcategories(ctx, "1")
	require.NoError(t, err)
	require.Len(t, subs, 4)
	assert.Equal(t, "1-1", subs[0].ID)
	assert.Equal(t, "1", subs[0].CategoryID)

	_, err = svc.Subcategories(ctx, "99")
	assert.Equal(t, 404, utils.StatusFor(err))
}
