package institution

import (
	"context"
	"errors"
	"testing"
	"time"

	"doemais/database/fixtures"
	categoryRepo "doemais/database/repository/category"
	institutionRepo "doemais/database/repository/institution"
	ratingRepo "doemais/database/repository/rating"
	"doemais/models"
	"doemais/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(items []models.Institution) []string {
	out := make([]string, len(items))
	for i, inst := range items {
		out[i] = inst.Name
	}
	return out
}

func pair() []models.Institution {
	return []models.Institution{
		{ID: "a", Name: "Casa da Esperança", Rating: 4.8, Type: models.InstitutionNGO},
		{ID: "b", Name: "Igreja Comunidade Vida", Rating: 4.6, Type: models.InstitutionChurch},
	}
}

func TestFilterMinRating(t *testing.T) {
	criteria := models.DefaultFilterCriteria()
	criteria.MinRating = 4.7

	assert.Equal(t, []string{"Casa da Esperança"}, names(Filter(pair(), criteria, nil, nil)))
}

func TestFilterSearchIsCaseInsensitive(t *testing.T) {
	criteria := models.DefaultFilterCriteria()
	criteria.Search = "  VIDA "

	assert.Equal(t, []string{"Igreja Comunidade Vida"}, names(Filter(pair(), criteria, nil, nil)))
}

func TestFilterSearchMatchesCityAndNeighborhood(t *testing.T) {
	criteria := models.DefaultFilterCriteria()
	criteria.Search = "jardim das"

	got := Filter(fixtures.Institutions(), criteria, nil, nil)
	assert.Equal(t, []string{"Projeto Crescer Juntos"}, names(got))
}

func TestFilterDistance(t *testing.T) {
	origin := models.Coordinate{Lat: -23.5505, Lng: -46.6333}
	items := []models.Institution{
		{ID: "near", Name: "near", Coordinates: &models.Coordinate{Lat: -23.5560, Lng: -46.6290}},
		{ID: "far", Name: "far", Coordinates: &models.Coordinate{Lat: -23.6505, Lng: -46.7333}},
		{ID: "nowhere", Name: "nowhere"},
	}
	criteria := models.DefaultFilterCriteria()
	criteria.MaxDistanceKm = 1

	assert.Equal(t, []string{"near"}, names(Filter(items, criteria, &origin, nil)))
	// Without a user position the radius is ignored.
	assert.Len(t, Filter(items, criteria, nil, nil), 3)
}

func TestFilterWithoutCriteriaKeepsOrder(t *testing.T) {
	items := fixtures.Institutions()
	got := Filter(items, models.DefaultFilterCriteria(), nil, nil)
	assert.Equal(t, names(items), names(got))
}

func TestFilterIsConjunction(t *testing.T) {
	items := fixtures.Institutions()

	byCategory := models.DefaultFilterCriteria()
	byCategory.Categories = []string{"2"}
	byType := models.DefaultFilterCriteria()
	byType.Types = []models.InstitutionType{models.InstitutionNGO}
	byRating := models.DefaultFilterCriteria()
	byRating.MinRating = 4.75

	both := models.DefaultFilterCriteria()
	both.Categories = byCategory.Categories
	both.Types = byType.Types
	both.MinRating = byRating.MinRating

	combined := names(Filter(items, both, nil, nil))
	for _, single := range []models.FilterCriteria{byCategory, byType, byRating} {
		assert.Subset(t, names(Filter(items, single, nil, nil)), combined)
	}
	assert.Equal(t, []string{"Casa da Esperança"}, combined)
}

func TestOpenNowModes(t *testing.T) {
	week := fixtures.Institutions()[2].WorkingHours // closed on weekends, 07:00-19:00 otherwise
	loc := time.UTC

	at := func(day time.Weekday, hour int) OpenNow {
		// 2024-01-07 is a Sunday.
		ts := time.Date(2024, 1, 7+int(day), hour, 0, 0, 0, loc)
		return OpenNow{Mode: ModeWallClock, Location: loc, Now: func() time.Time { return ts }}
	}
	assert.True(t, at(time.Monday, 8).IsOpen(week))
	assert.False(t, at(time.Monday, 19).IsOpen(week))
	assert.False(t, at(time.Monday, 6).IsOpen(week))
	assert.False(t, at(time.Saturday, 10).IsOpen(week))

	assert.True(t, OpenNow{Mode: ModeSampleDay, SampleDay: time.Monday}.IsOpen(week))
	assert.False(t, OpenNow{Mode: ModeSampleDay, SampleDay: time.Sunday}.IsOpen(week))
	assert.False(t, OpenNow{Mode: ModeSampleDay, SampleDay: time.Monday}.IsOpen(nil))
}

func TestSortIsStable(t *testing.T) {
	items := []models.Institution{
		{Name: "b", Rating: 4},
		{Name: "A", Rating: 5},
		{Name: "c", Rating: 4},
	}
	Sort(items, models.SortRating, nil)
	assert.Equal(t, []string{"A", "b", "c"}, names(items))

	Sort(items, models.SortName, nil)
	assert.Equal(t, []string{"A", "b", "c"}, names(items))

	origin := models.Coordinate{}
	items = []models.Institution{
		{Name: "none"},
		{Name: "far", Coordinates: &models.Coordinate{Lat: 2}},
		{Name: "near", Coordinates: &models.Coordinate{Lat: 1}},
	}
	Sort(items, models.SortDistance, &origin)
	assert.Equal(t, []string{"near", "far", "none"}, names(items))
}

func newService(t *testing.T) (*DefaultInstitutionService, *institutionRepo.MemoryInstitutionRepo, *categoryRepo.MemoryCategoryRepo) {
	t.Helper()
	insts := institutionRepo.NewMemoryInstitutionRepo(fixtures.Institutions()...)
	cats := categoryRepo.NewMemoryCategoryRepo(fixtures.Categories()...)
	svc := &DefaultInstitutionService{
		Repo:       insts,
		Categories: cats,
		Ratings:    ratingRepo.NewMemoryRatingRepo(fixtures.Ratings()...),
		Open:       OpenNow{Mode: ModeSampleDay, SampleDay: time.Monday},
	}
	return svc, insts, cats
}

func TestSearchBuildsListings(t *testing.T) {
	svc, _, cats := newService(t)
	origin := models.Coordinate{Lat: -23.5505, Lng: -46.6333}

	listings, err := svc.Search(context.Background(), models.DefaultFilterCriteria(), &origin)
	require.NoError(t, err)
	require.Len(t, listings, 4)
	assert.Equal(t, "1", listings[0].ID)
	assert.Equal(t, "4", listings[3].ID)

	first := listings[0]
	assert.True(t, first.Mappable)
	require.NotNil(t, first.DistanceKm)
	assert.InDelta(t, 0, *first.DistanceKm, 1e-9)
	assert.NotEmpty(t, first.Geohash)
	assert.Equal(t, []CategoryRef{{"1", "Roupas"}, {"2", "Móveis"}, {"3", "Alimentos"}}, first.Categories)
	assert.LessOrEqual(t, cats.CallCount(), len(listings))
}

func TestSearchRejectsBadInput(t *testing.T) {
	svc, _, _ := newService(t)

	criteria := models.DefaultFilterCriteria()
	criteria.MinRating = 7
	_, err := svc.Search(context.Background(), criteria, nil)
	assert.Equal(t, 400, utils.StatusFor(err))

	_, err = svc.Search(context.Background(), models.DefaultFilterCriteria(), &models.Coordinate{Lat: 120})
	assert.Equal(t, 400, utils.StatusFor(err))
}

func TestSearchReportsFetchFailure(t *testing.T) {
	svc, insts, _ := newService(t)
	insts.FailWith = errors.New("connection reset")

	_, err := svc.Search(context.Background(), models.DefaultFilterCriteria(), nil)
	assert.Error(t, err)
	assert.Equal(t, 500, utils.StatusFor(err))
}

func TestSearchStopsWhenCancelled(t *testing.T) {
	svc, _, _ := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Search(ctx, models.DefaultFilterCriteria(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetInstitutionIncludesReviews(t *testing.T) {
	svc, _, _ := newService(t)

	detail, err := svc.GetInstitution(context.Background(), "1")
	require.NoError(t, err)
	require.Len(t, detail.Reviews, 2)
	assert.Equal(t, "1", detail.Reviews[0].ID)

	_, err = svc.GetInstitution(context.Background(), "missing")
	assert.Equal(t, 404, utils.StatusFor(err))
}

func TestOwnerOnlyUpdates(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	name := "Casa Nova"
	_, err := svc.UpdateInstitution(ctx, "1", "donor1", ProfilePatch{Name: &name})
	assert.Equal(t, 403, utils.StatusFor(err))

	updated, err := svc.UpdateInstitution(ctx, "1", "inst-user-1", ProfilePatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Casa Nova", updated.Name)
}

func TestUpdateWorkingHoursValidatesWeek(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.UpdateWorkingHours(ctx, "1", "inst-user-1", []models.WorkingHours{{Day: 1, OpenTime: "10:00", CloseTime: "09:00"}})
	assert.Equal(t, 400, utils.StatusFor(err))

	week := make([]models.WorkingHours, 7)
	for d := range week {
		week[d] = models.WorkingHours{Day: d, OpenTime: "10:00", CloseTime: "14:00"}
	}
	updated, err := svc.UpdateWorkingHours(ctx, "1", "inst-user-1", week)
	require.NoError(t, err)
	entry, ok := models.EntryFor(updated.WorkingHours, time.Sunday)
	require.True(t, ok)
	assert.Equal(t, "10:00", entry.OpenTime)
}

func TestUpdateAcceptedCategories(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	updated, err := svc.UpdateAcceptedCategories(ctx, "3", "inst-user-3", []string{"4", "4", "1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "1"}, updated.AcceptedCategories)

	_, err = svc.UpdateAcceptedCategories(ctx, "3", "inst-user-3", []string{"99"})
	assert.Equal(t, 400, utils.StatusFor(err))
}
