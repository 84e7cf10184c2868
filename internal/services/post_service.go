package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/booklog/backend/internal/metrics"
	"github.com/booklog/backend/internal/models"
	"github.com/booklog/backend/internal/validation"
	"go.uber.org/zap"
)

// PostRepository is the interface that wraps methods for Posts table data access
type PostRepository interface {
	AuthorPostRepository
	// Method Create inserts a new post. On success "post.ID" is set to the generated id.
	Create(ctx context.Context, post *models.Post) error
	// Method GetByID retrieves a post together with its author's username.
	//
	// If post with such ID does not exist, the error wrapping models.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, postID int) (*models.Post, error)
	// Method UpdateBody replaces the body of post "postID".
	//
	// Please reference GetByID method for more information about error values.
	UpdateBody(ctx context.Context, postID int, body string) error
	// Method Delete removes post "postID".
	//
	// Please reference GetByID method for more information about error values.
	Delete(ctx context.Context, postID int) error
	// Method ListFeed retrieves up to "limit" posts written by "userID" or by users "userID" follows,
	// most recent first, skipping "offset" posts.
	ListFeed(ctx context.Context, userID, limit, offset int) ([]models.Post, error)
	// Method ListAll retrieves up to "limit" posts of every author, most recent first, skipping "offset" posts.
	ListAll(ctx context.Context, limit, offset int) ([]models.Post, error)
}

// postService implements posting, the personal feed and the explore page
type postService struct {
	postRepo   PostRepository
	borrowRepo BorrowRepository
	perPage    int
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewPostService creates a new post service
func NewPostService(postRepo PostRepository, borrowRepo BorrowRepository, perPage int, m *metrics.Metrics, logger *zap.Logger) *postService {
	return &postService{
		postRepo:   postRepo,
		borrowRepo: borrowRepo,
		perPage:    perPage,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// Create publishes a post written by viewer
func (s *postService) Create(ctx context.Context, viewer *models.Identity, req *models.PostRequest) (*models.Post, error) {
	if err := validation.Post(req); err != nil {
		return nil, err
	}

	post := &models.Post{
		Body:      strings.TrimSpace(req.Body),
		UserID:    viewer.UserID,
		Author:    viewer.Username,
		Timestamp: s.now().UTC(),
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	s.metrics.PostsCreated.Inc()
	return post, nil
}

// Feed returns one page of the viewer's own posts and those of the users they follow, plus all borrows
func (s *postService) Feed(ctx context.Context, viewer *models.Identity, page int) (*models.HomeResponse, error) {
	posts, err := paginate(page, s.perPage, func(limit, offset int) ([]models.Post, error) {
		return s.postRepo.ListFeed(ctx, viewer.UserID, limit, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list feed: %w", err)
	}

	return s.withBorrows(ctx, "Home Page", posts)
}

// Explore returns one page of posts by every user, plus all borrows
func (s *postService) Explore(ctx context.Context, page int) (*models.HomeResponse, error) {
	posts, err := paginate(page, s.perPage, func(limit, offset int) ([]models.Post, error) {
		return s.postRepo.ListAll(ctx, limit, offset)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return s.withBorrows(ctx, "Explore", posts)
}

func (s *postService) withBorrows(ctx context.Context, title string, posts models.PostPage) (*models.HomeResponse, error) {
	borrows, err := s.borrowRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrows: %w", err)
	}

	return &models.HomeResponse{
		Title:   title,
		Posts:   posts,
		Borrows: borrows,
	}, nil
}

// GetForEdit returns a post the viewer may edit.
//
// A missing post yields models.ErrNotFound; a post of someone else yields models.ErrForbidden unless viewer is an admin.
func (s *postService) GetForEdit(ctx context.Context, viewer *models.Identity, postID int) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !viewer.CanModify(post.UserID) {
		return nil, models.ErrForbidden
	}
	return post, nil
}

// Update replaces the body of a post owned by viewer (or any post for admins)
func (s *postService) Update(ctx context.Context, viewer *models.Identity, postID int, req *models.PostRequest) error {
	if _, err := s.GetForEdit(ctx, viewer, postID); err != nil {
		return err
	}
	if err := validation.Post(req); err != nil {
		return err
	}

	return s.postRepo.UpdateBody(ctx, postID, strings.TrimSpace(req.Body))
}

// Delete removes a post owned by viewer (or any post for admins)
func (s *postService) Delete(ctx context.Context, viewer *models.Identity, postID int) error {
	post, err := s.GetForEdit(ctx, viewer, postID)
	if err != nil {
		return err
	}

	if err := s.postRepo.Delete(ctx, postID); err != nil {
		return err
	}

	s.logger.Info("post deleted", zap.Int("postID", postID), zap.Int("authorID", post.UserID), zap.Int("byUserID", viewer.UserID))
	return nil
}
