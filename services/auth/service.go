// Package auth signs users up and in and tracks live tokens.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"doemais/database/repository"
	institutionRepo "doemais/database/repository/institution"
	userRepo "doemais/database/repository/user"
	"doemais/models"
	"doemais/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = utils.UnauthorizedError("invalid email or password")

type AuthService interface {
	SignUp(ctx context.Context, in SignUpInput) (*models.User, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, token string) error
	// CurrentUser returns nil, nil when token does not identify a live session.
	CurrentUser(ctx context.Context, token string) (*models.User, error)
	Subscribe(ctx context.Context, fn func(Event)) (func(), error)
}

type SignUpInput struct {
	Name     string          `json:"name" validate:"required,min=2,max=120"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8,max=72"`
	Phone    string          `json:"phone" validate:"max=30"`
	Type     models.UserType `json:"type" validate:"required,oneof=donor institution"`
	CPF      string          `json:"cpf"`
	CNPJ     string          `json:"cnpj"`
	Address  models.Address  `json:"address"`

	// Institution accounts only.
	InstitutionType    models.InstitutionType `json:"institutionType"`
	Description        string                 `json:"description" validate:"max=2000"`
	AcceptedCategories []string               `json:"acceptedCategories"`
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// DefaultAuthService is the production implementation.
type DefaultAuthService struct {
	Users        userRepo.UserRepository
	Institutions institutionRepo.InstitutionRepository
	Tokens       TokenStore
	Events       EventBus
	TTL          time.Duration
	Logger       *zap.Logger
}

func (s *DefaultAuthService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *DefaultAuthService) ttl() time.Duration {
	if s.TTL <= 0 {
		return utils.DefaultTokenTTL
	}
	return s.TTL
}

func (s *DefaultAuthService) SignUp(ctx context.Context, in SignUpInput) (*models.User, error) {
	if err := utils.Validate(in); err != nil {
		return nil, err
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))

	user := &models.User{
		ID:      utils.NewID(),
		Name:    strings.TrimSpace(in.Name),
		Email:   in.Email,
		Phone:   in.Phone,
		Type:    in.Type,
		CPF:     in.CPF,
		CNPJ:    in.CNPJ,
		Address: in.Address,
	}
	if err := user.ValidateDocument(); err != nil {
		return nil, utils.Wrap(utils.KindValidation, "invalid document", err)
	}
	if c := in.Address.Coordinates; c != nil && !c.Valid() {
		return nil, utils.ValidationError("invalid coordinates")
	}
	instType := in.InstitutionType
	if user.Type == models.UserInstitution {
		if instType == "" {
			instType = models.InstitutionOther
		}
		if !instType.Valid() {
			return nil, utils.ValidationError("invalid institution type")
		}
	}

	if _, err := s.Users.GetByEmail(ctx, in.Email); err == nil {
		return nil, utils.ConflictError("email already registered")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, utils.FromStore("user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, utils.Wrap(utils.KindInternal, "failed to hash password", err)
	}
	user.PasswordHash = string(hash)

	if err := s.Users.Create(ctx, user); err != nil {
		return nil, utils.FromStore("user", err)
	}

	if user.Type == models.UserInstitution {
		inst := &models.Institution{
			ID:                 utils.NewID(),
			UserID:             user.ID,
			Name:               user.Name,
			Description:        in.Description,
			Email:              user.Email,
			Phone:              user.Phone,
			CNPJ:               user.CNPJ,
			Type:               instType,
			Address:            in.Address,
			AcceptedCategories: models.DedupeIDs(in.AcceptedCategories),
			WorkingHours:       []models.WorkingHours{},
		}
		if c := in.Address.Coordinates; c != nil {
			coord := *c
			inst.Coordinates = &coord
		}
		if err := s.Institutions.Create(ctx, inst); err != nil {
			if delErr := s.Users.Delete(ctx, user.ID); delErr != nil {
				s.logger().Error("Failed to roll back user after institution insert failed",
					zap.String("userId", user.ID), zap.Error(delErr))
			}
			return nil, utils.FromStore("institution", err)
		}
	}

	s.logger().Info("User signed up", zap.String("userId", user.ID), zap.String("type", string(user.Type)))
	return user, nil
}

func (s *DefaultAuthService) SignIn(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.Users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, utils.FromStore("user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	ttl := s.ttl()
	token, err := utils.GenerateToken(user.ID, string(user.Type), ttl)
	if err != nil {
		return nil, utils.Wrap(utils.KindInternal, "failed to issue token", err)
	}
	hash := utils.HashToken(token)
	if err := s.Tokens.Save(ctx, hash, user.ID, ttl); err != nil {
		return nil, utils.Wrap(utils.KindInternal, "failed to store session", err)
	}
	s.publish(ctx, Event{Type: EventSignedIn, UserID: user.ID, TokenHash: hash, At: time.Now()})

	return &Session{Token: token, ExpiresAt: time.Now().Add(ttl), User: user}, nil
}

func (s *DefaultAuthService) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	hash := utils.HashToken(token)
	userID, err := s.Tokens.Lookup(ctx, hash)
	if errors.Is(err, ErrTokenNotFound) {
		return nil
	}
	if err != nil {
		return utils.Wrap(utils.KindInternal, "failed to read session", err)
	}
	if err := s.Tokens.Delete(ctx, hash); err != nil {
		return utils.Wrap(utils.KindInternal, "failed to revoke session", err)
	}
	s.publish(ctx, Event{Type: EventSignedOut, UserID: userID, TokenHash: hash, At: time.Now()})
	return nil
}

func (s *DefaultAuthService) publish(ctx context.Context, ev Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.logger().Warn("Failed to publish auth event", zap.String("type", ev.Type), zap.Error(err))
	}
}

func (s *DefaultAuthService) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := utils.ParseToken(token)
	if err != nil {
		return nil, nil
	}

	userID, err := s.Tokens.Lookup(ctx, utils.HashToken(token))
	if errors.Is(err, ErrTokenNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.Wrap(utils.KindInternal, "failed to read session", err)
	}
	if userID != claims.Subject {
		return nil, nil
	}

	user, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.FromStore("user", err)
	}
	return user, nil
}

func (s *DefaultAuthService) Subscribe(ctx context.Context, fn func(Event)) (func(), error) {
	if s.Events == nil {
		return func() {}, nil
	}
	return s.Events.Subscribe(ctx, fn)
}
