package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"doemais/database/fixtures"
	institutionRepo "doemais/database/repository/institution"
	userRepo "doemais/database/repository/user"
	"doemais/models"
	"doemais/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*DefaultAuthService, *userRepo.MemoryUserRepo, *institutionRepo.MemoryInstitutionRepo) {
	t.Helper()
	users, err := fixtures.Users()
	require.NoError(t, err)
	ur := userRepo.NewMemoryUserRepo(users...)
	ir := institutionRepo.NewMemoryInstitutionRepo(fixtures.Institutions()...)
	return &DefaultAuthService{
		Users:        ur,
		Institutions: ir,
		Tokens:       NewMemoryTokenStore(),
		Events:       NewLocalBus(),
		TTL:          time.Hour,
	}, ur, ir
}

func TestSignInIssuesLiveToken(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	sess, err := svc.SignIn(ctx, "Maria.Silva@email.com", fixtures.Password)
	require.NoError(t, err)
	assert.Equal(t, "donor1", sess.User.ID)
	assert.NotEmpty(t, sess.Token)

	user, err := svc.CurrentUser(ctx, sess.Token)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Maria Silva", user.Name)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.SignIn(ctx, "maria.silva@email.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 401, utils.StatusFor(err))

	_, err = svc.SignIn(ctx, "nobody@email.com", fixtures.Password)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignOutRevokesToken(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	var mu sync.Mutex
	var events []Event
	unsubscribe, err := svc.Subscribe(ctx, func(ev Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer unsubscribe()

	sess, err := svc.SignIn(ctx, "ana.lima@email.com", fixtures.Password)
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx, sess.Token))
	// Signing out twice is harmless.
	require.NoError(t, svc.SignOut(ctx, sess.Token))

	user, err := svc.CurrentUser(ctx, sess.Token)
	require.NoError(t, err)
	assert.Nil(t, user)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 2)
	assert.Equal(t, EventSignedIn, events[0].Type)
	assert.Equal(t, EventSignedOut, events[1].Type)
	assert.Equal(t, "donor3", events[1].UserID)
}

func TestCurrentUserWithoutSession(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	user, err := svc.CurrentUser(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = svc.CurrentUser(ctx, "not-a-jwt")
	require.NoError(t, err)
	assert.Nil(t, user)

	// Well-formed but never stored.
	token, err := utils.GenerateToken("donor1", "donor", time.Hour)
	require.NoError(t, err)
	user, err = svc.CurrentUser(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestSignUpDonor(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpInput{
		Name: "Carlos Pereira", Email: " Carlos@Email.com ", Password: "segredo123",
		Type: models.UserDonor, CPF: "456.789.012-33",
	})
	require.NoError(t, err)
	assert.Equal(t, "carlos@email.com", user.Email)
	assert.Empty(t, user.CNPJ)

	_, err = svc.SignIn(ctx, "carlos@email.com", "segredo123")
	require.NoError(t, err)

	_, err = svc.SignUp(ctx, SignUpInput{
		Name: "Outro Carlos", Email: "carlos@email.com", Password: "segredo123",
		Type: models.UserDonor, CPF: "456.789.012-44",
	})
	assert.Equal(t, 409, utils.StatusFor(err))
}

func TestSignUpValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpInput{Name: "Curto", Email: "x@y.com", Password: "123", Type: models.UserDonor, CPF: "1"})
	assert.Equal(t, 400, utils.StatusFor(err))

	_, err = svc.SignUp(ctx, SignUpInput{Name: "Sem CPF", Email: "x@y.com", Password: "segredo123", Type: models.UserDonor})
	assert.Equal(t, 400, utils.StatusFor(err))

	_, err = svc.SignUp(ctx, SignUpInput{
		Name: "Instituto", Email: "i@y.com", Password: "segredo123", Type: models.UserInstitution,
		CNPJ: "11.222.333/0001-44", InstitutionType: "casino",
	})
	assert.Equal(t, 400, utils.StatusFor(err))
}

func TestSignUpInstitutionCreatesProfile(t *testing.T) {
	svc, _, insts := newService(t)
	ctx := context.Background()

	user, err := svc.SignUp(ctx, SignUpInput{
		Name: "Sopa Solidária", Email: "sopa@solidaria.org", Password: "segredo123",
		Type: models.UserInstitution, CNPJ: "55.666.777/0001-88",
		InstitutionType:    models.InstitutionCharity,
		AcceptedCategories: []string{"3", "3", "1"},
		Address:            models.Address{City: "São Paulo", Coordinates: &models.Coordinate{Lat: -23.55, Lng: -46.63}},
	})
	require.NoError(t, err)

	inst, err := insts.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InstitutionCharity, inst.Type)
	assert.Equal(t, []string{"3", "1"}, inst.AcceptedCategories)
	require.NotNil(t, inst.Coordinates)
	assert.Equal(t, 0.0, inst.Rating)
}

type failingInstitutions struct {
	*institutionRepo.MemoryInstitutionRepo
}

func (failingInstitutions) Create(context.Context, *models.Institution) error {
	return errors.New("insert failed")
}

func TestSignUpRollsBackUserOnInstitutionFailure(t *testing.T) {
	svc, users, insts := newService(t)
	svc.Institutions = failingInstitutions{insts}
	ctx := context.Background()

	_, err := svc.SignUp(ctx, SignUpInput{
		Name: "Casa Nova", Email: "casa@nova.org", Password: "segredo123",
		Type: models.UserInstitution, CNPJ: "99.888.777/0001-66",
	})
	assert.Equal(t, 500, utils.StatusFor(err))

	_, err = users.GetByEmail(ctx, "casa@nova.org")
	assert.Error(t, err)
}

func TestMemoryTokenStoreExpiry(t *testing.T) {
	store := NewMemoryTokenStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "h1", "donor1", time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, err := store.Lookup(ctx, "h1")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}
