package rating

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"doemais/database/fixtures"
	donationRepo "doemais/database/repository/donation"
	institutionRepo "doemais/database/repository/institution"
	ratingRepo "doemais/database/repository/rating"
	"doemais/models"
	"doemais/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(extra ...models.Donation) (*DefaultRatingService, *institutionRepo.MemoryInstitutionRepo) {
	insts := institutionRepo.NewMemoryInstitutionRepo(fixtures.Institutions()...)
	svc := &DefaultRatingService{
		Repo:         ratingRepo.NewMemoryRatingRepo(fixtures.Ratings()...),
		Donations:    donationRepo.NewMemoryDonationRepo(append(fixtures.Donations(), extra...)...),
		Institutions: insts,
		Now:          func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) },
	}
	return svc, insts
}

func TestRatingRequiresDelivery(t *testing.T) {
	svc, _ := setup()

	_, err := svc.Create(context.Background(), "donor1", CreateInput{InstitutionID: "2", DonationID: "donation4", Score: 5})
	assert.ErrorIs(t, err, ErrNotDelivered)
	assert.Equal(t, 422, utils.StatusFor(err))
}

func TestRatingOncePerDonation(t *testing.T) {
	svc, _ := setup()

	_, err := svc.Create(context.Background(), "donor1", CreateInput{InstitutionID: "1", DonationID: "donation1", Score: 4})
	assert.ErrorIs(t, err, ErrAlreadyRated)
}

func TestRatingMismatch(t *testing.T) {
	svc, _ := setup()

	err := svc.CheckUserCanRate(context.Background(), "donor2", "1", "donation1")
	assert.ErrorIs(t, err, ErrMismatch)
	assert.Equal(t, 400, utils.StatusFor(err))

	err = svc.CheckUserCanRate(context.Background(), "donor1", "2", "donation1")
	assert.ErrorIs(t, err, ErrMismatch)
}

func TestRatingUpdatesAggregate(t *testing.T) {
	delivered := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	svc, insts := setup(models.Donation{
		ID: "donation9", DonorID: "donor2", InstitutionID: "3", Category: "4",
		Status: models.StatusDelivered, DeliveredDate: &delivered,
	})
	ctx := context.Background()

	r, err := svc.Create(ctx, "donor2", CreateInput{InstitutionID: "3", DonationID: "donation9", Score: 1, Comment: " ok "})
	require.NoError(t, err)
	assert.Equal(t, "ok", r.Comment)

	inst, err := insts.GetByID(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, 235, inst.TotalRatings)
	assert.Equal(t, models.NextAverage(4.9, 234, 1), inst.Rating)

	_, err = svc.Create(ctx, "donor2", CreateInput{InstitutionID: "3", DonationID: "donation9", Score: 5})
	assert.ErrorIs(t, err, ErrAlreadyRated)
}

func TestRatingScoreRange(t *testing.T) {
	svc, _ := setup()
	_, err := svc.Create(context.Background(), "donor1", CreateInput{InstitutionID: "1", DonationID: "donation1", Score: 6})
	assert.Equal(t, 400, utils.StatusFor(err))
}

// slowInstitutions widens the window between reading and writing an institution.
type slowInstitutions struct {
	*institutionRepo.MemoryInstitutionRepo
}

func (s slowInstitutions) GetByID(ctx context.Context, id string) (*models.Institution, error) {
	time.Sleep(20 * time.Millisecond)
	return s.MemoryInstitutionRepo.GetByID(ctx, id)
}

func TestConcurrentRatingsAreAllCounted(t *testing.T) {
	const n = 8
	delivered := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
	var extra []models.Donation
	for i := 0; i < n; i++ {
		extra = append(extra, models.Donation{
			ID: fmt.Sprintf("parallel%d", i), DonorID: fmt.Sprintf("donor%d", 10+i), InstitutionID: "3",
			Category: "4", Status: models.StatusDelivered, DeliveredDate: &delivered,
		})
	}
	svc, insts := setup(extra...)
	svc.Institutions = slowInstitutions{insts}
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, d := range extra {
		wg.Add(1)
		go func(d models.Donation) {
			defer wg.Done()
			_, err := svc.Create(ctx, d.DonorID, CreateInput{InstitutionID: "3", DonationID: d.ID, Score: 5})
			errs <- err
		}(d)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	want := 4.9
	for i := 0; i < n; i++ {
		want = models.NextAverage(want, 234+i, 5)
	}
	inst, err := insts.GetByID(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, 234+n, inst.TotalRatings)
	assert.Equal(t, want, inst.Rating)
}

func TestRespondIsOwnerOnly(t *testing.T) {
	svc, _ := setup()
	ctx := context.Background()

	_, err := svc.Respond(ctx, "2", "inst-user-2", "Obrigado")
	assert.Equal(t, 403, utils.StatusFor(err))

	r, err := svc.Respond(ctx, "2", "inst-user-1", "Obrigado pelo retorno!")
	require.NoError(t, err)
	assert.Equal(t, "Obrigado pelo retorno!", r.Response)
	require.NotNil(t, r.RespondedAt)

	list, err := svc.ListByInstitution(ctx, "1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Obrigado pelo retorno!", list[1].Response)
}
