package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/booklog/backend/internal/models"
	"go.uber.org/zap"
)

const borrowSelect = `
	SELECT b.id, b.book, b.user_id, u.username, b.timestamp
	FROM borrows b
	JOIN users u ON u.id = b.user_id
`

// borrowRepository implements the borrows table data access
type borrowRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBorrowRepository creates a new borrow repository
func NewBorrowRepository(db *sql.DB, logger *zap.Logger) *borrowRepository {
	return &borrowRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new borrow request
func (r *borrowRepository) Create(ctx context.Context, borrow *models.Borrow) error {
	query := `INSERT INTO borrows (book, user_id, timestamp) VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, borrow.Book, borrow.UserID, borrow.Timestamp)
	if err != nil {
		r.logger.Error("failed to create borrow", zap.Error(err))
		return fmt.Errorf("failed to create borrow: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	borrow.ID = int(id)
	return nil
}

// GetByID retrieves a borrow with the requester's username
func (r *borrowRepository) GetByID(ctx context.Context, borrowID int) (*models.Borrow, error) {
	query := borrowSelect + ` WHERE b.id = ?`

	borrow := &models.Borrow{}
	err := r.db.QueryRowContext(ctx, query, borrowID).Scan(&borrow.ID, &borrow.Book, &borrow.UserID, &borrow.Username, &borrow.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("borrow %w", models.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get borrow", zap.Error(err), zap.Int("borrowID", borrowID))
		return nil, fmt.Errorf("failed to get borrow: %w", err)
	}

	return borrow, nil
}

// GetAll retrieves every borrow, oldest first
func (r *borrowRepository) GetAll(ctx context.Context) ([]models.Borrow, error) {
	query := borrowSelect + ` ORDER BY b.timestamp, b.id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to query borrows", zap.Error(err))
		return nil, fmt.Errorf("failed to query borrows: %w", err)
	}
	defer rows.Close()

	borrows := []models.Borrow{}
	for rows.Next() {
		var borrow models.Borrow
		if err := rows.Scan(&borrow.ID, &borrow.Book, &borrow.UserID, &borrow.Username, &borrow.Timestamp); err != nil {
			r.logger.Error("failed to scan borrow", zap.Error(err))
			return nil, fmt.Errorf("failed to scan borrow: %w", err)
		}
		borrows = append(borrows, borrow)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return borrows, nil
}

// Update changes the requested title and requester of a borrow
func (r *borrowRepository) Update(ctx context.Context, borrowID int, book string, userID int) error {
	query := `UPDATE borrows SET book = ?, user_id = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, book, userID, borrowID); err != nil {
		r.logger.Error("failed to update borrow", zap.Error(err), zap.Int("borrowID", borrowID))
		return fmt.Errorf("failed to update borrow: %w", err)
	}

	return nil
}

// Delete removes a borrow
func (r *borrowRepository) Delete(ctx context.Context, borrowID int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM borrows WHERE id = ?`, borrowID)
	if err != nil {
		r.logger.Error("failed to delete borrow", zap.Error(err), zap.Int("borrowID", borrowID))
		return fmt.Errorf("failed to delete borrow: %w", err)
	}

	return requireAffected(result, "borrow")
}
