// Package service holds the forum's business rules on top of the repositories.
package service

import (
	"context"

	"forum/internal/auth"
	"forum/internal/models"
	"forum/internal/observability"
	"forum/internal/repository"
	"forum/internal/validation"

	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *auth.TokenManager
	hashCost int
}

type RegisterInput struct {
	Username string
	Password string
}

type LoginInput struct {
	Username string
	Password string
}

// NewAuthService returns an AuthService hashing with cost; a cost of zero
// means bcrypt.DefaultCost.
func NewAuthService(userRepo repository.UserRepository, tokens *auth.TokenManager, cost int) *AuthService {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		hashCost: cost,
	}
}

// Register stores a new credential. Only the bcrypt hash is persisted.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) error {
	if err := validation.ValidateUsername(in.Username); err != nil {
		return models.NewValidationError(err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return models.NewValidationError(err.Error())
	}

	existing, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return models.NewDuplicateUsernameError(in.Username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.hashCost)
	if err != nil {
		return models.NewInternalError(err)
	}

	user := &models.User{
		Username:     in.Username,
		PasswordHash: string(hash),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return err
	}

	observability.RecordDomainEvent(observability.EventUserRegistered)
	return nil
}

// Login returns a session token. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (string, error) {
	user, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", models.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return "", models.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return "", models.NewInternalError(err)
	}

	observability.RecordDomainEvent(observability.EventUserLoggedIn)
	return token, nil
}

// Authenticate resolves a bearer token to the acting username.
func (s *AuthService) Authenticate(token string) (string, error) {
	if token == "" {
		return "", models.NewMissingTokenError()
	}
	username, err := s.tokens.Verify(token)
	if err != nil {
		return "", models.NewInvalidTokenError(err)
	}
	return username, nil
}
