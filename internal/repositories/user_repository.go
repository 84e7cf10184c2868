package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/booklog/backend/internal/models"
	"go.uber.org/zap"
)

const userColumns = `id, username, email, password_hash, about_me, last_seen, is_admin`

// userRepository implements the user and follower table data access
type userRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) *userRepository {
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new user into the database
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, about_me, is_admin)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.AboutMe, user.IsAdmin)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("failed to create user: %w", models.ErrDuplicate)
		}
		r.logger.Error("failed to create user", zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	user.ID = int(id)
	return nil
}

// GetByID retrieves a user by ID
func (r *userRepository) GetByID(ctx context.Context, userID int) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.getOne(ctx, query, userID)
}

// GetByUsername retrieves a user by exact username
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ? LIMIT 1`
	return r.getOne(ctx, query, username)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var lastSeen sql.NullTime
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.AboutMe,
		&lastSeen,
		&user.IsAdmin,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %w", models.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get user", zap.Error(err), zap.Any("key", arg))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if lastSeen.Valid {
		user.LastSeen = &lastSeen.Time
	}

	return user, nil
}

// GetAll retrieves every user ordered by username
func (r *userRepository) GetAll(ctx context.Context) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY username`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to query users", zap.Error(err))
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var lastSeen sql.NullTime
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.AboutMe, &lastSeen, &user.IsAdmin); err != nil {
			r.logger.Error("failed to scan user", zap.Error(err))
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if lastSeen.Valid {
			user.LastSeen = &lastSeen.Time
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

// ExistsByEmail checks if a user exists with the given email
func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		r.logger.Error("failed to check email existence", zap.Error(err), zap.String("email", email))
		return false, fmt.Errorf("failed to check email existence: %w", err)
	}

	return exists, nil
}

// ExistsByUsername checks if a user exists with the given username
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username).Scan(&exists); err != nil {
		r.logger.Error("failed to check username existence", zap.Error(err), zap.String("username", username))
		return false, fmt.Errorf("failed to check username existence: %w", err)
	}

	return exists, nil
}

// UpdateProfile changes the username and about-me text of a user
func (r *userRepository) UpdateProfile(ctx context.Context, userID int, username, aboutMe string) error {
	query := `UPDATE users SET username = ?, about_me = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, username, aboutMe, userID); err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("failed to update profile: %w", models.ErrDuplicate)
		}
		r.logger.Error("failed to update profile", zap.Error(err), zap.Int("userID", userID))
		return fmt.Errorf("failed to update profile: %w", err)
	}

	return nil
}

// UpdateLastSeen records the time of the user's latest request
func (r *userRepository) UpdateLastSeen(ctx context.Context, userID int, seen time.Time) error {
	query := `UPDATE users SET last_seen = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, seen, userID); err != nil {
		return fmt.Errorf("failed to update last seen: %w", err)
	}

	return nil
}

// SetAdmin grants or revokes the admin flag
func (r *userRepository) SetAdmin(ctx context.Context, userID int, isAdmin bool) error {
	query := `UPDATE users SET is_admin = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, isAdmin, userID)
	if err != nil {
		r.logger.Error("failed to set admin flag", zap.Error(err), zap.Int("userID", userID))
		return fmt.Errorf("failed to set admin flag: %w", err)
	}

	return requireAffected(result, "user")
}

// Delete removes a user together with their follow edges, borrows and posts in one transaction
func (r *userRepository) Delete(ctx context.Context, userID int) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("failed to begin transaction", zap.Error(err))
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("failed to rollback transaction", zap.Error(rbErr))
			}
		}
	}()

	cleanup := []struct {
		query string
		args  []any
	}{
		{`DELETE FROM followers WHERE follower_id = ? OR followed_id = ?`, []any{userID, userID}},
		{`DELETE FROM borrows WHERE user_id = ?`, []any{userID}},
		{`DELETE FROM posts WHERE user_id = ?`, []any{userID}},
	}
	for _, step := range cleanup {
		if _, err = tx.ExecContext(ctx, step.query, step.args...); err != nil {
			r.logger.Error("failed to delete user data", zap.Error(err), zap.Int("userID", userID))
			return fmt.Errorf("failed to delete user data: %w", err)
		}
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		r.logger.Error("failed to delete user", zap.Error(err), zap.Int("userID", userID))
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err = requireAffected(result, "user"); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		r.logger.Error("failed to commit transaction", zap.Error(err))
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Follow adds a follow edge; following an already followed user is a no-op
func (r *userRepository) Follow(ctx context.Context, followerID, followedID int) error {
	query := `INSERT IGNORE INTO followers (follower_id, followed_id) VALUES (?, ?)`

	if _, err := r.db.ExecContext(ctx, query, followerID, followedID); err != nil {
		r.logger.Error("failed to follow user", zap.Error(err), zap.Int("followerID", followerID), zap.Int("followedID", followedID))
		return fmt.Errorf("failed to follow user: %w", err)
	}

	return nil
}

// Unfollow removes a follow edge if present
func (r *userRepository) Unfollow(ctx context.Context, followerID, followedID int) error {
	query := `DELETE FROM followers WHERE follower_id = ? AND followed_id = ?`

	if _, err := r.db.ExecContext(ctx, query, followerID, followedID); err != nil {
		r.logger.Error("failed to unfollow user", zap.Error(err), zap.Int("followerID", followerID), zap.Int("followedID", followedID))
		return fmt.Errorf("failed to unfollow user: %w", err)
	}

	return nil
}

// IsFollowing reports whether followerID follows followedID
func (r *userRepository) IsFollowing(ctx context.Context, followerID, followedID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM followers WHERE follower_id = ? AND followed_id = ?)`

	var following bool
	if err := r.db.QueryRowContext(ctx, query, followerID, followedID).Scan(&following); err != nil {
		r.logger.Error("failed to check follow relation", zap.Error(err))
		return false, fmt.Errorf("failed to check follow relation: %w", err)
	}

	return following, nil
}

// FollowCounts returns how many users follow userID and how many userID follows
func (r *userRepository) FollowCounts(ctx context.Context, userID int) (int, int, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM followers WHERE followed_id = ?),
			(SELECT COUNT(*) FROM followers WHERE follower_id = ?)
	`

	var followers, followed int
	if err := r.db.QueryRowContext(ctx, query, userID, userID).Scan(&followers, &followed); err != nil {
		r.logger.Error("failed to count follow relations", zap.Error(err), zap.Int("userID", userID))
		return 0, 0, fmt.Errorf("failed to count follow relations: %w", err)
	}

	return followers, followed, nil
}

// requireAffected converts a zero-row result into a not found error for entity
func requireAffected(result sql.Result, entity string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %w", entity, models.ErrNotFound)
	}
	return nil
}
