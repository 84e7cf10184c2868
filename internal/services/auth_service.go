package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/booklog/backend/internal/metrics"
	"github.com/booklog/backend/internal/models"
	"github.com/booklog/backend/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgUsernameTaken   = "Please use a different username."
	msgEmailTaken      = "Please use a different email address."
	msgPasswordTooLong = "Field cannot be longer than 72 bytes."
)

// AccountRepository is the interface that wraps methods for the users table used by account management
type AccountRepository interface {
	// Method Create inserts a new user into the database.
	//
	// On success "user.ID" is set to the generated id.
	// If the username or email is already taken, the error wrapping models.ErrDuplicate will be returned.
	Create(ctx context.Context, user *models.User) error
	// Method GetByUsername retrieves a user by exact username.
	//
	// If user with such username does not exist, the error wrapping models.ErrNotFound will be returned together with "nil" value.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// Method ExistsByEmail checks if a user with such email exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Method ExistsByUsername checks if a user with such username exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Method SetAdmin grants ("true") or revokes ("false") the admin flag of user "userID".
	//
	// If user with such ID does not exist, the error wrapping models.ErrNotFound will be returned.
	SetAdmin(ctx context.Context, userID int, isAdmin bool) error
}

// authService implements registration, sign-in and admin flag management
type authService struct {
	userRepo  AccountRepository
	metrics   *metrics.Metrics
	logger    *zap.Logger
	hashCost  int
	dummyHash []byte
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo AccountRepository, m *metrics.Metrics, logger *zap.Logger) *authService {
	return newAuthService(userRepo, m, logger, bcrypt.DefaultCost)
}

func newAuthService(userRepo AccountRepository, m *metrics.Metrics, logger *zap.Logger, hashCost int) *authService {
	// Compared against when the username is unknown so both failure paths cost one bcrypt check
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("booklog-unknown-user"), hashCost)
	if err != nil {
		logger.Warn("failed to prepare dummy password hash", zap.Error(err))
	}

	return &authService{
		userRepo:  userRepo,
		metrics:   m,
		logger:    logger,
		hashCost:  hashCost,
		dummyHash: dummyHash,
	}
}

// Register creates a regular user account from the registration form
func (s *authService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	return s.createUser(ctx, req, false)
}

// CreateAdmin creates an account with the admin flag already set
func (s *authService) CreateAdmin(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	return s.createUser(ctx, req, true)
}

// Login checks the credentials and returns the matching user.
//
// Unknown usernames and wrong passwords both yield models.ErrInvalidCredentials.
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	if err := validation.Login(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, models.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(req.Password))
		s.metrics.LoginFailures.Inc()
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.LoginFailures.Inc()
		return nil, models.ErrInvalidCredentials
	}

	return user, nil
}

// SetAdmin grants or revokes the admin flag of the named user
func (s *authService) SetAdmin(ctx context.Context, username string, isAdmin bool) error {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return err
	}

	if err := s.userRepo.SetAdmin(ctx, user.ID, isAdmin); err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}

	s.logger.Info("admin flag changed", zap.String("username", user.Username), zap.Bool("isAdmin", isAdmin))
	return nil
}

// createUser validates the form, checks uniqueness, hashes the password and stores the user
func (s *authService) createUser(ctx context.Context, req *models.RegisterRequest, isAdmin bool) (*models.User, error) {
	if err := validation.Registration(req); err != nil {
		return nil, err
	}

	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	errs := validation.Errors{}
	usernameTaken, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if usernameTaken {
		errs.Add("username", msgUsernameTaken)
	}
	emailTaken, err := s.userRepo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if emailTaken {
		errs.Add("email", msgEmailTaken)
	}
	if err := errs.Err(); err != nil {
		return nil, err
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, validation.Errors{"password": msgPasswordTooLong}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(passwordHash),
		IsAdmin:      isAdmin,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// Lost a race against a concurrent registration
		if errors.Is(err, models.ErrDuplicate) {
			if taken, _ := s.userRepo.ExistsByEmail(ctx, email); taken {
				return nil, validation.Errors{"email": msgEmailTaken}
			}
			return nil, validation.Errors{"username": msgUsernameTaken}
		}
		return nil, err
	}

	s.metrics.Registrations.Inc()
	s.logger.Info("user registered", zap.Int("userID", user.ID), zap.String("username", user.Username), zap.Bool("isAdmin", isAdmin))
	return user, nil
}
