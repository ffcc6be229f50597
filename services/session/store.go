// Package session holds per-client application state: the signed-in user,
// the resolved position, the selected institution and the last search.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"doemais/models"
	"doemais/services/auth"
	"doemais/services/geo"
	"doemais/services/institution"
	"doemais/utils"

	"go.uber.org/zap"
)

// ErrSuperseded is returned by RunSearch when a newer search replaced it.
var ErrSuperseded = utils.ConflictError("search superseded by a newer one")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = utils.BusinessRuleError("session is closed")

const initTimeout = 5 * time.Second

// Searcher runs the institution filter pipeline.
type Searcher interface {
	Search(ctx context.Context, criteria models.FilterCriteria, origin *models.Coordinate) ([]institution.Listing, error)
}

// Store is the state of one client session. It is safe for concurrent use.
type Store struct {
	id     string
	auth   auth.AuthService
	search Searcher
	logger *zap.Logger
	now    func() time.Time

	// life ends when the store is closed.
	life   context.Context
	finish context.CancelFunc
	ready  chan struct{}

	mu           sync.RWMutex
	user         *models.User
	token        string
	authLoading  bool
	authGen      uint64
	location     models.LocationState
	locationGen  uint64
	selected     *models.Institution
	filters      models.FilterCriteria
	results      []institution.Listing
	searchGen    uint64
	cancelSearch context.CancelFunc
	unsubscribe  func()
	lastActivity time.Time
	closed       bool
}

// NewStore creates an unauthenticated store with default filters.
func NewStore(id string, authSvc auth.AuthService, search Searcher, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	life, finish := context.WithCancel(context.Background())
	s := &Store{
		id:      id,
		auth:    authSvc,
		search:  search,
		logger:  logger.With(zap.String("session", id)),
		now:     time.Now,
		life:    life,
		finish:  finish,
		ready:   make(chan struct{}),
		filters: models.DefaultFilterCriteria(),
		results: []institution.Listing{},
	}
	s.lastActivity = s.now()
	return s
}

func (s *Store) ID() string { return s.id }

// touch must be called with mu held.
func (s *Store) touch() {
	s.lastActivity = s.now()
}

// Init subscribes to auth changes and starts resolving token in the
// background. Ready is closed once the check completes.
func (s *Store) Init(ctx context.Context, token string) error {
	unsubscribe, err := s.auth.Subscribe(ctx, s.onAuthEvent)
	if err != nil {
		return utils.Wrap(utils.KindInternal, "failed to subscribe to auth events", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsubscribe()
		return ErrClosed
	}
	s.unsubscribe = unsubscribe
	s.token = token
	s.authLoading = true
	gen := s.authGen
	s.touch()
	s.mu.Unlock()

	go s.resolveUser(token, gen)
	return nil
}

func (s *Store) resolveUser(token string, gen uint64) {
	defer close(s.ready)

	ctx, cancel := context.WithTimeout(s.life, initTimeout)
	defer cancel()
	user, err := s.auth.CurrentUser(ctx, token)
	if err != nil {
		s.logger.Warn("Failed to resolve session user", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.authLoading = false
	// A login or logout since Init wins.
	if gen != s.authGen {
		return
	}
	s.user = user
	if user == nil {
		s.token = ""
	}
}

// Ready is closed once the initial auth check has finished.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

func (s *Store) onAuthEvent(ev auth.Event) {
	if ev.Type != auth.EventSignedOut {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" || utils.HashToken(s.token) != ev.TokenHash {
		return
	}
	s.authGen++
	s.user = nil
	s.token = ""
	s.selected = nil
}

// Login signs in and reports whether the credentials were accepted.
func (s *Store) Login(ctx context.Context, email, password string) (bool, error) {
	sess, err := s.auth.SignIn(ctx, email, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	s.authGen++
	s.user = sess.User
	s.token = sess.Token
	s.touch()
	return true, nil
}

// Token returns the bearer token of the signed-in user, if any.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Logout signs out and clears the user and the selection even when the
// sign-out call fails.
func (s *Store) Logout(ctx context.Context) {
	token := s.Token()
	// No lock here: a local event bus delivers signed_out back into onAuthEvent.
	if err := s.auth.SignOut(ctx, token); err != nil {
		s.logger.Error("Sign out failed", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.authGen++
	s.user = nil
	s.token = ""
	s.selected = nil
	s.touch()
}

// SetUserLocation records a position reported by the client. nil clears it.
func (s *Store) SetUserLocation(coord *models.Coordinate) error {
	state := models.LocationState{}
	if coord != nil {
		if !coord.Valid() {
			return utils.ValidationError("invalid coordinates")
		}
		c := *coord
		at := s.now()
		state.Coordinates = &c
		state.ResolvedAt = &at
	}
	s.SetLocationState(state)
	return nil
}

func (s *Store) SetLocationState(state models.LocationState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocation(state)
}

// setLocation must be called with mu held.
func (s *Store) setLocation(state models.LocationState) uint64 {
	s.location = state
	s.locationGen++
	s.touch()
	return s.locationGen
}

// ResolveLocation activates provider for key and stores the outcome when it
// settles. The store shows a loading state meanwhile.
func (s *Store) ResolveLocation(provider *geo.Provider, key string) *geo.Request {
	s.mu.Lock()
	gen := s.setLocation(models.LocationState{Loading: true})
	s.mu.Unlock()

	req := provider.Activate(key)
	go func() {
		select {
		case <-req.Done():
		case <-s.life.Done():
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		// A later location update wins.
		if s.closed || gen != s.locationGen {
			return
		}
		s.location = req.State()
	}()
	return req
}

func (s *Store) SetSelectedInstitution(inst *models.Institution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inst != nil {
		copied := *inst
		inst = &copied
	}
	s.selected = inst
	s.touch()
}

func (s *Store) SetFilters(criteria models.FilterCriteria) error {
	if err := utils.Validate(criteria); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = criteria
	s.touch()
	return nil
}

// RunSearch searches with criteria from the current position. Starting a
// search cancels the one in flight; a search that finishes after a newer one
// started returns ErrSuperseded and leaves the stored results alone. A failed
// search empties the results.
func (s *Store) RunSearch(ctx context.Context, criteria models.FilterCriteria) ([]institution.Listing, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.cancelSearch != nil {
		s.cancelSearch()
	}
	s.searchGen++
	gen := s.searchGen
	searchCtx, cancel := context.WithCancel(ctx)
	s.cancelSearch = cancel
	s.filters = criteria
	var origin *models.Coordinate
	if c := s.location.Coordinates; c != nil {
		copied := *c
		origin = &copied
	}
	s.touch()
	s.mu.Unlock()

	listings, err := s.search.Search(searchCtx, criteria, origin)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.searchGen {
		cancel()
		return nil, ErrSuperseded
	}
	s.cancelSearch = nil
	cancel()

	if err != nil {
		s.logger.Warn("Institution search failed", zap.Error(err))
		s.results = []institution.Listing{}
		return s.results, err
	}
	if listings == nil {
		listings = []institution.Listing{}
	}
	s.results = listings
	return listings, nil
}

// Results returns the listings of the last completed search.
func (s *Store) Results() []institution.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]institution.Listing, len(s.results))
	copy(out, s.results)
	return out
}

func (s *Store) Snapshot() models.SessionSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := models.SessionSnapshot{
		ID:            s.id,
		Authenticated: s.user != nil,
		AuthLoading:   s.authLoading,
		Location:      s.location,
		MapCenter:     geo.MapCenter(s.location),
		Filters:       s.filters,
		ResultCount:   len(s.results),
		LastActivity:  s.lastActivity,
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	if s.selected != nil {
		inst := *s.selected
		snap.SelectedInstitution = &inst
	}
	return snap
}

func (s *Store) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// Close unsubscribes from auth events and cancels any in-flight search.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.cancelSearch != nil {
		s.cancelSearch()
		s.cancelSearch = nil
	}
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()

	s.finish()
	if unsubscribe != nil {
		unsubscribe()
	}
}
