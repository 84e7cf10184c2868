package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/booklog/backend/internal/models"
	"go.uber.org/zap"
)

const postSelect = `
	SELECT p.id, p.body, p.user_id, u.username, p.timestamp
	FROM posts p
	JOIN users u ON u.id = p.user_id
`

// postRepository implements the posts table data access
type postRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *sql.DB, logger *zap.Logger) *postRepository {
	return &postRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new post
func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	query := `INSERT INTO posts (body, user_id, timestamp) VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, post.Body, post.UserID, post.Timestamp)
	if err != nil {
		r.logger.Error("failed to create post", zap.Error(err))
		return fmt.Errorf("failed to create post: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	post.ID = int(id)
	return nil
}

// GetByID retrieves a post with its author's username
func (r *postRepository) GetByID(ctx context.Context, postID int) (*models.Post, error) {
	query := postSelect + ` WHERE p.id = ?`

	post := &models.Post{}
	err := r.db.QueryRowContext(ctx, query, postID).Scan(&post.ID, &post.Body, &post.UserID, &post.Author, &post.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("post %w", models.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get post", zap.Error(err), zap.Int("postID", postID))
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return post, nil
}

// UpdateBody replaces the body of a post
func (r *postRepository) UpdateBody(ctx context.Context, postID int, body string) error {
	query := `UPDATE posts SET body = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, body, postID); err != nil {
		r.logger.Error("failed to update post", zap.Error(err), zap.Int("postID", postID))
		return fmt.Errorf("failed to update post: %w", err)
	}

	return nil
}

// Delete removes a post
func (r *postRepository) Delete(ctx context.Context, postID int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, postID)
	if err != nil {
		r.logger.Error("failed to delete post", zap.Error(err), zap.Int("postID", postID))
		return fmt.Errorf("failed to delete post: %w", err)
	}

	return requireAffected(result, "post")
}

// ListFeed retrieves posts written by userID or by anyone userID follows, most recent first
func (r *postRepository) ListFeed(ctx context.Context, userID, limit, offset int) ([]models.Post, error) {
	query := postSelect + `
		WHERE p.user_id = ?
		   OR p.user_id IN (SELECT followed_id FROM followers WHERE follower_id = ?)
		ORDER BY p.timestamp DESC, p.id DESC
		LIMIT ? OFFSET ?
	`
	return r.list(ctx, query, userID, userID, limit, offset)
}

// ListAll retrieves all posts, most recent first
func (r *postRepository) ListAll(ctx context.Context, limit, offset int) ([]models.Post, error) {
	query := postSelect + `
		ORDER BY p.timestamp DESC, p.id DESC
		LIMIT ? OFFSET ?
	`
	return r.list(ctx, query, limit, offset)
}

// ListByAuthor retrieves posts written by userID, most recent first
func (r *postRepository) ListByAuthor(ctx context.Context, userID, limit, offset int) ([]models.Post, error) {
	query := postSelect + `
		WHERE p.user_id = ?
		ORDER BY p.timestamp DESC, p.id DESC
		LIMIT ? OFFSET ?
	`
	return r.list(ctx, query, userID, limit, offset)
}

func (r *postRepository) list(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query posts", zap.Error(err))
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var post models.Post
		if err := rows.Scan(&post.ID, &post.Body, &post.UserID, &post.Author, &post.Timestamp); err != nil {
			r.logger.Error("failed to scan post", zap.Error(err))
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return posts, nil
}
