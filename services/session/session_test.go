package session

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"doemais/database/fixtures"
	"doemais/models"
	"doemais/services/auth"
	"doemais/services/geo"
	"doemais/services/institution"
	"doemais/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	auth    *auth.DefaultAuthService
	search  *institution.DefaultInstitutionService
	manager *Manager
}

func newEnv(t *testing.T) env {
	t.Helper()
	repos, err := fixtures.NewRepositories()
	require.NoError(t, err)
	authSvc := &auth.DefaultAuthService{
		Users:        repos.Users,
		Institutions: repos.Institutions,
		Tokens:       auth.NewMemoryTokenStore(),
		Events:       auth.NewLocalBus(),
		TTL:          time.Hour,
	}
	search := &institution.DefaultInstitutionService{
		Repo:       repos.Institutions,
		Categories: repos.Categories,
		Ratings:    repos.Ratings,
	}
	return env{auth: authSvc, search: search, manager: NewManager(authSvc, search, time.Minute, nil)}
}

func waitReady(t *testing.T, s *Store) {
	t.Helper()
	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("auth check did not finish")
	}
}

func listingNames(items []institution.Listing) []string {
	out := make([]string, len(items))
	for i, l := range items {
		out[i] = l.Name
	}
	return out
}

func TestDeniedLocationFallsBackToDefaultCenter(t *testing.T) {
	e := newEnv(t)
	s, err := e.manager.Open(context.Background(), "")
	require.NoError(t, err)
	waitReady(t, s)

	s.SetLocationState(models.LocationState{Error: geo.MsgPermissionDenied})
	snap := s.Snapshot()
	assert.Equal(t, geo.DefaultCenter, snap.MapCenter)
	assert.Equal(t, "Location access denied by user.", snap.Location.Error)
	assert.False(t, snap.Authenticated)

	// Without a position the radius is not applied.
	got, err := s.RunSearch(context.Background(), models.DefaultFilterCriteria())
	require.NoError(t, err)
	assert.Len(t, got, 4)
	for _, l := range got {
		assert.Nil(t, l.DistanceKm)
	}
}

func TestSearchWithinRadius(t *testing.T) {
	e := newEnv(t)
	s := NewStore("s1", e.auth, e.search, nil)
	require.NoError(t, s.SetUserLocation(&models.Coordinate{Lat: -23.5505, Lng: -46.6333}))

	criteria := models.DefaultFilterCriteria()
	criteria.MaxDistanceKm = 0.6
	got, err := s.RunSearch(context.Background(), criteria)
	require.NoError(t, err)
	assert.Equal(t, []string{"Casa da Esperança", "Projeto Crescer Juntos"}, listingNames(got))
	assert.Equal(t, 2, s.Snapshot().ResultCount)
	assert.Equal(t, 0.6, s.Snapshot().Filters.MaxDistanceKm)
}

func TestSetUserLocationRejectsInvalid(t *testing.T) {
	e := newEnv(t)
	s := NewStore("s1", e.auth, e.search, nil)
	err := s.SetUserLocation(&models.Coordinate{Lat: 91, Lng: 0})
	assert.Equal(t, 400, utils.StatusFor(err))
}

func TestLoginAndLogoutClearSelection(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	s, err := e.manager.Open(ctx, "")
	require.NoError(t, err)
	waitReady(t, s)

	ok, err := s.Login(ctx, "maria.silva@email.com", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Login(ctx, "maria.silva@email.com", fixtures.Password)
	require.NoError(t, err)
	require.True(t, ok)

	inst := fixtures.Institutions()[0]
	s.SetSelectedInstitution(&inst)
	snap := s.Snapshot()
	require.True(t, snap.Authenticated)
	assert.Equal(t, "donor1", snap.User.ID)
	require.NotNil(t, snap.SelectedInstitution)

	token := s.Token()
	s.Logout(ctx)
	snap = s.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.User)
	assert.Nil(t, snap.SelectedInstitution)

	user, err := e.auth.CurrentUser(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestInitRestoresUserFromToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	sess, err := e.auth.SignIn(ctx, "joao.souza@email.com", fixtures.Password)
	require.NoError(t, err)

	s, err := e.manager.Open(ctx, sess.Token)
	require.NoError(t, err)
	waitReady(t, s)

	snap := s.Snapshot()
	assert.True(t, snap.Authenticated)
	assert.False(t, snap.AuthLoading)
	assert.Equal(t, "donor2", snap.User.ID)
}

func TestSignOutElsewhereClearsUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	first, err := e.manager.Open(ctx, "")
	require.NoError(t, err)
	waitReady(t, first)
	ok, err := first.Login(ctx, "ana.lima@email.com", fixtures.Password)
	require.NoError(t, err)
	require.True(t, ok)

	second, err := e.manager.Open(ctx, first.Token())
	require.NoError(t, err)
	waitReady(t, second)
	inst := fixtures.Institutions()[1]
	second.SetSelectedInstitution(&inst)
	require.True(t, second.Snapshot().Authenticated)

	first.Logout(ctx)

	snap := second.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.SelectedInstitution)
}

type blockingSearch struct {
	calls   atomic.Int32
	started chan struct{}
}

func (b *blockingSearch) Search(ctx context.Context, _ models.FilterCriteria, _ *models.Coordinate) ([]institution.Listing, error) {
	if b.calls.Add(1) == 1 {
		close(b.started)
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return []institution.Listing{{ID: "fresh", Name: "fresh"}}, nil
}

func TestNewerSearchSupersedesOlder(t *testing.T) {
	e := newEnv(t)
	search := &blockingSearch{started: make(chan struct{})}
	s := NewStore("s1", e.auth, search, nil)
	ctx := context.Background()

	errs := make(chan error, 1)
	go func() {
		_, err := s.RunSearch(ctx, models.DefaultFilterCriteria())
		errs <- err
	}()
	<-search.started

	got, err := s.RunSearch(ctx, models.DefaultFilterCriteria())
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, listingNames(got))

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(2 * time.Second):
		t.Fatal("first search was not cancelled")
	}
	assert.Equal(t, []string{"fresh"}, listingNames(s.Results()))
}

type failingSearch struct{}

func (failingSearch) Search(context.Context, models.FilterCriteria, *models.Coordinate) ([]institution.Listing, error) {
	return nil, errors.New("backend down")
}

func TestFailedSearchEmptiesResults(t *testing.T) {
	e := newEnv(t)
	s := NewStore("s1", e.auth, e.search, nil)
	ctx := context.Background()

	_, err := s.RunSearch(ctx, models.DefaultFilterCriteria())
	require.NoError(t, err)
	require.NotEmpty(t, s.Results())

	s.search = failingSearch{}
	got, err := s.RunSearch(ctx, models.DefaultFilterCriteria())
	assert.Error(t, err)
	assert.Empty(t, got)
	assert.Empty(t, s.Results())
}

func TestSetFiltersValidates(t *testing.T) {
	e := newEnv(t)
	s := NewStore("s1", e.auth, e.search, nil)

	bad := models.DefaultFilterCriteria()
	bad.MinRating = 7
	assert.Equal(t, 400, utils.StatusFor(s.SetFilters(bad)))

	good := models.DefaultFilterCriteria()
	good.Categories = []string{"1"}
	require.NoError(t, s.SetFilters(good))
	assert.Equal(t, []string{"1"}, s.Snapshot().Filters.Categories)
}

func TestResolveLocationStoresDenial(t *testing.T) {
	e := newEnv(t)
	s := NewStore("s1", e.auth, e.search, nil)
	provider := geo.NewProvider(geo.StaticLocator{Err: &geo.PositionError{Code: geo.CodePermissionDenied}})

	req := s.ResolveLocation(provider, "client")
	<-req.Done()
	assert.Eventually(t, func() bool {
		return s.Snapshot().Location.Error == geo.MsgPermissionDenied
	}, time.Second, 5*time.Millisecond)
	assert.False(t, s.Snapshot().Location.Loading)
	assert.Equal(t, geo.DefaultCenter, s.Snapshot().MapCenter)
}

func TestManagerSweepsIdleStores(t *testing.T) {
	e := newEnv(t)
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	e.manager.now = func() time.Time { return clock }
	ctx := context.Background()

	idle, err := e.manager.Open(ctx, "")
	require.NoError(t, err)
	clock = clock.Add(50 * time.Second)
	active, err := e.manager.Open(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, e.manager.Len())

	clock = clock.Add(30 * time.Second)
	assert.Equal(t, 1, e.manager.sweep())

	_, err = e.manager.Get(idle.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	got, err := e.manager.Get(active.ID())
	require.NoError(t, err)
	assert.Same(t, active, got)

	require.NoError(t, e.manager.Close(active.ID()))
	assert.Equal(t, 0, e.manager.Len())
	assert.Equal(t, 404, utils.StatusFor(e.manager.Close(active.ID())))
}
