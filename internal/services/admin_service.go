package services

import (
	"context"
	"fmt"

	"github.com/booklog/backend/internal/models"
	"go.uber.org/zap"
)

// AdminUserRepository is the interface that wraps the user methods of the admin dashboard
type AdminUserRepository interface {
	// Method GetAll retrieves every user ordered by username.
	GetAll(ctx context.Context) ([]models.User, error)
	// Method Delete removes user "userID" together with their posts, borrows and follow edges.
	//
	// If user with such ID does not exist, the error wrapping models.ErrNotFound will be returned.
	Delete(ctx context.Context, userID int) error
}

// UserRegistrar is the interface that wraps account creation with registration rules
type UserRegistrar interface {
	// Method Register validates "req", checks uniqueness and creates a regular user.
	//
	// Field problems are returned as validation.Errors.
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
}

// adminService implements the admin dashboard and user administration
type adminService struct {
	userRepo   AdminUserRepository
	bookRepo   BookRepository
	borrowRepo BorrowRepository
	postRepo   PostRepository
	registrar  UserRegistrar
	perPage    int
	logger     *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(
	userRepo AdminUserRepository,
	bookRepo BookRepository,
	borrowRepo BorrowRepository,
	postRepo PostRepository,
	registrar UserRegistrar,
	perPage int,
	logger *zap.Logger,
) *adminService {
	return &adminService{
		userRepo:   userRepo,
		bookRepo:   bookRepo,
		borrowRepo: borrowRepo,
		postRepo:   postRepo,
		registrar:  registrar,
		perPage:    perPage,
		logger:     logger,
	}
}

// Dashboard returns users, books, borrows and one page of all posts. Admin only.
func (s *adminService) Dashboard(ctx context.Context, viewer *models.Identity, page int) (*models.DashboardResponse, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}

	users, err := s.userRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	books, err := s.bookRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	borrows, err := s.borrowRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrows: %w", err)
	}
	posts, err := paginate(page, s.perPage, func(limit, offset int) ([]models.Post, error) {
		return s.postRepo.ListAll(ctx, limit, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return &models.DashboardResponse{
		Users:   toListItems(users),
		Books:   books,
		Borrows: borrows,
		Posts:   posts,
	}, nil
}

// CreateUser registers a regular user on behalf of an admin
func (s *adminService) CreateUser(ctx context.Context, viewer *models.Identity, req *models.RegisterRequest) (*models.User, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	return s.registrar.Register(ctx, req)
}

// DeleteUser removes a user and everything they own. Admin only; admins cannot delete themselves.
func (s *adminService) DeleteUser(ctx context.Context, viewer *models.Identity, userID int) error {
	if err := requireAdmin(viewer); err != nil {
		return err
	}
	if userID == viewer.UserID {
		return models.ErrSelfDelete
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("user deleted", zap.Int("userID", userID), zap.Int("byUserID", viewer.UserID))
	return nil
}
