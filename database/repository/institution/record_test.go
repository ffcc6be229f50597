package institutionRepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"doemais/database/repository"
	"doemais/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func ptr(f float64) *float64 { return &f }

func TestRecordToModelNormalizes(t *testing.T) {
	rec := institutionRecord{
		ID:              "1",
		Name:            "Casa da Esperança",
		InstitutionType: "unknown-kind",
		AverageRating:   7.3,
		TotalRatings:    -4,
		Address: &addressRecord{
			City:      "São Paulo",
			Latitude:  ptr(-23.5505),
			Longitude: ptr(-46.6333),
		},
		AcceptedCategories: []categoryLinkRecord{{"1"}, {"2"}, {"1"}},
		WorkingHours: []workingHoursRecord{
			{DayOfWeek: 3, OpenTime: "08:00", CloseTime: "17:00"},
			{DayOfWeek: 0, IsClosed: true},
		},
	}

	inst := rec.toModel()
	assert.Equal(t, models.InstitutionOther, inst.Type)
	assert.Equal(t, 5.0, inst.Rating)
	assert.Equal(t, 0, inst.TotalRatings)
	require.NotNil(t, inst.Coordinates)
	assert.Equal(t, models.Coordinate{Lat: -23.5505, Lng: -46.6333}, *inst.Coordinates)
	assert.Equal(t, []string{"1", "2"}, inst.AcceptedCategories)
	require.Len(t, inst.WorkingHours, 2)
	assert.Equal(t, 0, inst.WorkingHours[0].Day)
	assert.True(t, inst.WorkingHours[0].Closed)
}

func TestRecordFallsBackToGeoJSONLocation(t *testing.T) {
	p := models.NewGeoPoint(models.Coordinate{Lat: -23.55, Lng: -46.64})
	rec := institutionRecord{ID: "2", InstitutionType: "church", Location: &p}
	inst := rec.toModel()
	require.NotNil(t, inst.Coordinates)
	assert.InDelta(t, -23.55, inst.Coordinates.Lat, 1e-9)
}

func TestRecordWithoutCoordinates(t *testing.T) {
	inst := institutionRecord{ID: "3", InstitutionType: "school", Address: &addressRecord{City: "Recife"}}.toModel()
	assert.Nil(t, inst.Coordinates)
	assert.False(t, inst.Mappable())
}

func TestFromModelRoundTrip(t *testing.T) {
	c := models.Coordinate{Lat: -23.5560, Lng: -46.6290}
	in := models.Institution{
		ID:                 "4",
		Name:               "Lar dos Idosos",
		Type:               models.InstitutionNGO,
		Rating:             4.7,
		TotalRatings:       112,
		Coordinates:        &c,
		AcceptedCategories: []string{"1", "1", "3"},
	}
	out := fromModel(in).toModel()
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Type, out.Type)
	assert.Equal(t, []string{"1", "3"}, out.AcceptedCategories)
	require.NotNil(t, out.Coordinates)
	assert.Equal(t, c, *out.Coordinates)
}

func TestProfileUpdateIsOneDocument(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	c := models.Coordinate{Lat: -8.05, Lng: -34.9}

	withLocation := profileUpdate(models.Institution{ID: "3", Name: "Casa", Coordinates: &c}, now)
	require.Contains(t, withLocation, "$set")
	assert.NotContains(t, withLocation, "$unset")
	set := withLocation["$set"].(bson.M)
	assert.Equal(t, "Casa", set["name"])
	assert.Equal(t, now, set["updated_at"])
	assert.NotNil(t, set["location"])

	withoutLocation := profileUpdate(models.Institution{ID: "3", Name: "Casa"}, now)
	require.Contains(t, withoutLocation, "$set")
	require.Contains(t, withoutLocation, "$unset")
	assert.NotContains(t, withoutLocation["$set"].(bson.M), "location")
	assert.Equal(t, bson.M{"location": ""}, withoutLocation["$unset"])
}

func TestMemoryRepoPushDownAndOrder(t *testing.T) {
	repo := NewMemoryInstitutionRepo(
		models.Institution{ID: "a", Type: models.InstitutionNGO, Rating: 4.8},
		models.Institution{ID: "b", Type: models.InstitutionChurch, Rating: 4.6},
		models.Institution{ID: "c", Type: models.InstitutionNGO, Rating: 4.1},
	)
	ctx := context.Background()

	all, err := repo.Find(ctx, Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(all))

	ngos, err := repo.Find(ctx, Query{Types: []models.InstitutionType{models.InstitutionNGO}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, ids(ngos))

	rated, err := repo.Find(ctx, Query{MinRating: 4.5})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(rated))
}

func TestMemoryRepoMutations(t *testing.T) {
	repo := NewMemoryInstitutionRepo(models.Institution{ID: "a", UserID: "u1", Type: models.InstitutionNGO})
	ctx := context.Background()

	require.NoError(t, repo.ReplaceAcceptedCategories(ctx, "a", []string{"2", "2", "5"}))
	require.NoError(t, repo.AddRating(ctx, "a", 5))
	require.NoError(t, repo.AddRating(ctx, "a", 4))
	inst, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "5"}, inst.AcceptedCategories)
	assert.Equal(t, 4.5, inst.Rating)
	assert.Equal(t, 2, inst.TotalRatings)
	assert.ErrorIs(t, repo.AddRating(ctx, "missing", 3), repository.ErrNotFound)

	err = repo.Create(ctx, &models.Institution{ID: "a"})
	assert.True(t, errors.Is(err, repository.ErrDuplicate))

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func ids(list []models.Institution) []string {
	out := make([]string, len(list))
	for i, inst := range list {
		out[i] = inst.ID
	}
	return out
}
