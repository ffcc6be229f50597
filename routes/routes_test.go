package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"doemais/database/fixtures"
	"doemais/handlers"
	"doemais/models"
	"doemais/services/auth"
	"doemais/services/category"
	"doemais/services/donation"
	"doemais/services/geo"
	"doemais/services/institution"
	"doemais/services/notification"
	"doemais/services/rating"
	"doemais/services/session"
	"doemais/services/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos, err := fixtures.NewRepositories()
	require.NoError(t, err)
	authSvc := &auth.DefaultAuthService{
		Users:        repos.Users,
		Institutions: repos.Institutions,
		Tokens:       auth.NewMemoryTokenStore(),
		Events:       auth.NewLocalBus(),
		TTL:          time.Hour,
	}
	instSvc := &institution.DefaultInstitutionService{
		Repo:       repos.Institutions,
		Categories: repos.Categories,
		Ratings:    repos.Ratings,
		Open:       institution.OpenNow{Mode: institution.ModeSampleDay, SampleDay: time.Monday},
	}
	donSvc := &donation.DefaultDonationService{
		Repo:         repos.Donations,
		Institutions: repos.Institutions,
		Categories:   repos.Categories,
		Users:        repos.Users,
		Notifier:     &notification.Dispatcher{Mailer: &notification.LogMailer{}, Queue: &notification.MemoryQueue{}},
		Images:       storage.Disabled{},
	}
	ratSvc := &rating.DefaultRatingService{Repo: repos.Ratings, Donations: repos.Donations, Institutions: repos.Institutions}
	denied := geo.StaticLocator{Err: &geo.PositionError{Code: geo.CodePermissionDenied}}

	hb := &handlers.HandlerBundle{
		AuthService: authSvc,
		Auth:        &handlers.AuthHandler{AuthService: authSvc},
		Category:    &handlers.CategoryHandler{CategoryService: &category.DefaultCategoryService{Repo: repos.Categories}},
		Institution: &handlers.InstitutionHandler{InstitutionService: instSvc, RatingService: ratSvc, DonationService: donSvc},
		Donation:    &handlers.DonationHandler{DonationService: donSvc},
		Rating:      &handlers.RatingHandler{RatingService: ratSvc},
		Session: &handlers.SessionHandler{
			Sessions:     session.NewManager(authSvc, instSvc, time.Minute, nil),
			Institutions: instSvc,
			Locations:    geo.NewProvider(denied),
		},
	}
	r := gin.New()
	RegisterRoutes(r, hb, 10000)
	return r
}

func do(r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func signIn(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()
	w := do(r, http.MethodPost, "/api/auth/signin", "", gin.H{"email": email, "password": fixtures.Password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sess auth.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	return sess.Token
}

type searchBody struct {
	Count        int                   `json:"count"`
	Institutions []institution.Listing `json:"institutions"`
}

func TestHealth(t *testing.T) {
	w := do(newRouter(t), http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSearchInstitutions(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodGet, "/api/institutions?q=vida", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body searchBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "Igreja Comunidade Vida", body.Institutions[0].Name)

	w = do(r, http.MethodGet, "/api/institutions?minRating=4.7&sortBy=rating", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 3, body.Count)
	assert.Equal(t, "Projeto Crescer Juntos", body.Institutions[0].Name)

	w = do(r, http.MethodGet, "/api/institutions?lat=-23.5505&lng=-46.6333&maxDistance=0.6", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
}

func TestSearchRejectsBadQuery(t *testing.T) {
	r := newRouter(t)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/institutions?lat=10", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/institutions?minRating=9", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/institutions?types=casino", "", nil).Code)
}

func TestInstitutionNotFound(t *testing.T) {
	w := do(newRouter(t), http.MethodGet, "/api/institutions/404", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCategories(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cats []models.Category
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cats))
	assert.Len(t, cats, 5)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/categories/1/subcategories", "", nil).Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	r := newRouter(t)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/donations/mine", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/auth/me", "bogus", nil).Code)
}

func TestDonationAndRatingFlow(t *testing.T) {
	r := newRouter(t)
	donor := signIn(t, r, "joao.souza@email.com")

	w := do(r, http.MethodPost, "/api/donations", donor, gin.H{
		"title": "Livros de história", "category": "4", "subcategory": "4-2", "condition": "used",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var d models.Donation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))

	w = do(r, http.MethodPost, "/api/donations/"+d.ID+"/schedule", donor, gin.H{
		"institutionId": "3", "date": time.Now().Add(48 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Rating before delivery is a business rule violation.
	w = do(r, http.MethodPost, "/api/ratings", donor, gin.H{"institutionId": "3", "donationId": d.ID, "rating": 5})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Only the receiving institution may confirm delivery.
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/donations/"+d.ID+"/deliver", donor, nil).Code)
	inst := signIn(t, r, "contato@crescerjuntos.org")
	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/donations/"+d.ID+"/deliver", inst, nil).Code)

	w = do(r, http.MethodPost, "/api/ratings", donor, gin.H{"institutionId": "3", "donationId": d.ID, "rating": 5, "comment": "Ótimo"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(r, http.MethodPost, "/api/ratings", donor, gin.H{"institutionId": "3", "donationId": d.ID, "rating": 4})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAddImageByURL(t *testing.T) {
	r := newRouter(t)
	donor := signIn(t, r, "maria.silva@email.com")

	w := do(r, http.MethodPost, "/api/donations/donation5/images", donor, gin.H{"url": "https://cdn.example.org/x.jpg"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestSessionLifecycle(t *testing.T) {
	r := newRouter(t)

	w := do(r, http.MethodPost, "/api/sessions", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var snap models.SessionSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.False(t, snap.Authenticated)
	base := "/api/sessions/" + snap.ID

	w = do(r, http.MethodPut, base+"/location", "", gin.H{"code": 1})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, geo.MsgPermissionDenied, snap.Location.Error)
	assert.Equal(t, geo.DefaultCenter, snap.MapCenter)

	w = do(r, http.MethodPost, base+"/login", "", gin.H{"email": "maria.silva@email.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = do(r, http.MethodPost, base+"/login", "", gin.H{"email": "maria.silva@email.com", "password": fixtures.Password})
	require.Equal(t, http.StatusOK, w.Code)

	require.Equal(t, http.StatusOK, do(r, http.MethodPut, base+"/selection", "", gin.H{"institutionId": "2"}).Code)

	w = do(r, http.MethodPost, base+"/search", "", gin.H{"search": "esperança", "maxDistance": 50})
	require.Equal(t, http.StatusOK, w.Code)
	var body searchBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	w = do(r, http.MethodPost, base+"/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.False(t, snap.Authenticated)
	assert.Nil(t, snap.SelectedInstitution)

	require.Equal(t, http.StatusOK, do(r, http.MethodDelete, base, "", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, base, "", nil).Code)
}

func TestResolveLocationFromIP(t *testing.T) {
	r := newRouter(t)
	w := do(r, http.MethodPost, "/api/sessions", "", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var snap models.SessionSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))

	w = do(r, http.MethodPost, "/api/sessions/"+snap.ID+"/location/resolve", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Location  models.LocationState `json:"location"`
		MapCenter models.Coordinate    `json:"mapCenter"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, geo.MsgPermissionDenied, body.Location.Error)
	assert.Equal(t, geo.DefaultCenter, body.MapCenter)
}
