package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/booklog/backend/internal/models"
	"github.com/booklog/backend/internal/validation"
	"go.uber.org/zap"
)

// UserRepository is the interface that wraps methods for users and followers data access
type UserRepository interface {
	// Method GetByID retrieves a user by ID.
	//
	// If user with such ID does not exist, the error wrapping models.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, userID int) (*models.User, error)
	// Method GetByUsername retrieves a user by exact username.
	//
	// Please reference GetByID method for more information about error values.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// Method GetAll retrieves every user ordered by username.
	GetAll(ctx context.Context) ([]models.User, error)
	// Method ExistsByUsername checks if a user with such username exists.
	//
	// If some error occurs during check, the error will be returned together with "false" value.
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	// Method UpdateProfile changes the username and about-me text of user "userID".
	//
	// If the new username is taken, the error wrapping models.ErrDuplicate will be returned.
	UpdateProfile(ctx context.Context, userID int, username, aboutMe string) error
	// Method UpdateLastSeen records "seen" as the time of the user's latest request.
	UpdateLastSeen(ctx context.Context, userID int, seen time.Time) error
	// Method Follow makes "followerID" follow "followedID".
	//
	// Following an already followed user leaves a single edge and returns no error.
	Follow(ctx context.Context, followerID, followedID int) error
	// Method Unfollow removes the edge from "followerID" to "followedID".
	//
	// Removing an edge that does not exist is a no-op and returns no error.
	Unfollow(ctx context.Context, followerID, followedID int) error
	// Method IsFollowing reports whether "followerID" follows "followedID".
	IsFollowing(ctx context.Context, followerID, followedID int) (bool, error)
	// Method FollowCounts returns the number of followers of "userID" and the number of users "userID" follows.
	FollowCounts(ctx context.Context, userID int) (followers int, followed int, err error)
}

// AuthorPostRepository is the interface that wraps the per-author post listing
type AuthorPostRepository interface {
	// Method ListByAuthor retrieves up to "limit" posts written by "userID", most recent first, skipping "offset" posts.
	ListByAuthor(ctx context.Context, userID, limit, offset int) ([]models.Post, error)
}

// userService implements profiles, identity loading and the follow graph
type userService struct {
	userRepo UserRepository
	postRepo AuthorPostRepository
	perPage  int
	logger   *zap.Logger
	now      func() time.Time
}

// NewUserService creates a new user service
func NewUserService(userRepo UserRepository, postRepo AuthorPostRepository, perPage int, logger *zap.Logger) *userService {
	return &userService{
		userRepo: userRepo,
		postRepo: postRepo,
		perPage:  perPage,
		logger:   logger,
		now:      time.Now,
	}
}

// LoadIdentity resolves a session user id to the request identity
func (s *userService) LoadIdentity(ctx context.Context, userID int) (*models.Identity, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.Identity{
		UserID:   user.ID,
		Username: user.Username,
		IsAdmin:  user.IsAdmin,
	}, nil
}

// TouchLastSeen stamps the user's last activity with the current UTC time
func (s *userService) TouchLastSeen(ctx context.Context, userID int) error {
	return s.userRepo.UpdateLastSeen(ctx, userID, s.now().UTC())
}

// GetProfile returns the profile page of "username" as seen by viewer
func (s *userService) GetProfile(ctx context.Context, viewer *models.Identity, username string, page int) (*models.ProfileResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	posts, err := paginate(page, s.perPage, func(limit, offset int) ([]models.Post, error) {
		return s.postRepo.ListByAuthor(ctx, user.ID, limit, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	followers, followed, err := s.userRepo.FollowCounts(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count followers: %w", err)
	}

	var following bool
	if viewer != nil && viewer.UserID != user.ID {
		following, err = s.userRepo.IsFollowing(ctx, viewer.UserID, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check follow relation: %w", err)
		}
	}

	users, err := s.userRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return &models.ProfileResponse{
		User:           toListItems([]models.User{*user})[0],
		AboutMe:        user.AboutMe,
		LastSeen:       user.LastSeen,
		IsFollowing:    following,
		FollowersCount: followers,
		FollowedCount:  followed,
		Posts:          posts,
		Users:          toListItems(users),
	}, nil
}

// GetProfileForm returns the profile edit form prefilled with the viewer's current values
func (s *userService) GetProfileForm(ctx context.Context, viewer *models.Identity) (*models.EditProfileRequest, error) {
	user, err := s.userRepo.GetByID(ctx, viewer.UserID)
	if err != nil {
		return nil, err
	}

	return &models.EditProfileRequest{
		Username: user.Username,
		AboutMe:  user.AboutMe,
	}, nil
}

// UpdateProfile saves the viewer's username and about-me text.
//
// A changed username must not belong to another user.
func (s *userService) UpdateProfile(ctx context.Context, viewer *models.Identity, req *models.EditProfileRequest) error {
	if err := validation.EditProfile(req); err != nil {
		return err
	}

	username := strings.TrimSpace(req.Username)
	if username != viewer.Username {
		taken, err := s.userRepo.ExistsByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("failed to check username: %w", err)
		}
		if taken {
			return validation.Errors{"username": msgUsernameTaken}
		}
	}

	if err := s.userRepo.UpdateProfile(ctx, viewer.UserID, username, req.AboutMe); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return validation.Errors{"username": msgUsernameTaken}
		}
		return err
	}

	viewer.Username = username
	return nil
}

// Follow makes the viewer follow "username" and returns the followed user.
//
// Errors: models.ErrNotFound for an unknown user, models.ErrSelfFollow when the target is the viewer.
func (s *userService) Follow(ctx context.Context, viewer *models.Identity, username string) (*models.User, error) {
	target, err := s.followTarget(ctx, viewer, username)
	if err != nil {
		return target, err
	}

	if err := s.userRepo.Follow(ctx, viewer.UserID, target.ID); err != nil {
		return nil, err
	}

	return target, nil
}

// Unfollow removes the viewer's follow edge to "username" and returns that user.
//
// Please reference Follow method for more information about error values.
func (s *userService) Unfollow(ctx context.Context, viewer *models.Identity, username string) (*models.User, error) {
	target, err := s.followTarget(ctx, viewer, username)
	if err != nil {
		return target, err
	}

	if err := s.userRepo.Unfollow(ctx, viewer.UserID, target.ID); err != nil {
		return nil, err
	}

	return target, nil
}

func (s *userService) followTarget(ctx context.Context, viewer *models.Identity, username string) (*models.User, error) {
	target, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if target.ID == viewer.UserID {
		return target, models.ErrSelfFollow
	}
	return target, nil
}
