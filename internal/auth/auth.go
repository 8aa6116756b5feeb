// Package auth implements account registration, password login and bearer
// token sessions. Chatting and every dashboard endpoint require an
// authenticated user.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pai-labs/pai/internal/db"
	"github.com/pai-labs/pai/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrUnauthorized       = errors.New("auth: not authenticated")
)

// SessionDuration is how long a bearer token stays valid.
const SessionDuration = 24 * time.Hour

type Service struct {
	db     *db.Database
	logger *zap.Logger
}

func New(database *db.Database, logger *zap.Logger) *Service {
	return &Service{db: database, logger: logger}
}

// Register creates an account. The first registered account becomes the
// admin, matching the original single-operator setup.
func (s *Service) Register(email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	if _, err := s.db.GetUserByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := models.RoleUser
	if users, err := s.db.ListUsers(); err == nil && len(users) == 0 {
		role = models.RoleAdmin
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         role,
		Plan:         models.PlanFree,
		PasswordHash: string(hash),
	}
	if err := s.db.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("role", string(role)))
	return user, nil
}

// Login verifies the password and mints a bearer token.
func (s *Service) Login(email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.db.GetUserByEmail(email)
	if errors.Is(err, db.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrInvalidCredentials
	}

	token := uuid.NewString()
	if err := s.db.CreateAuthSession(token, user.ID, time.Now().Add(SessionDuration)); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}
	_ = s.db.TouchUser(user.ID)
	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return token, user, nil
}

// Logout invalidates the token. Unknown tokens are a no-op.
func (s *Service) Logout(token string) error {
	return s.db.DeleteAuthSession(token)
}

// UserForToken resolves a bearer token to its user.
func (s *Service) UserForToken(token string) (*models.User, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	userID, err := s.db.GetAuthSession(token)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	user, err := s.db.GetUser(userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	_ = s.db.TouchUser(user.ID)
	return user, nil
}
