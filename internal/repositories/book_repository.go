package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/booklog/backend/internal/models"
	"go.uber.org/zap"
)

// bookRepository implements the books table data access
type bookRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBookRepository creates a new book repository
func NewBookRepository(db *sql.DB, logger *zap.Logger) *bookRepository {
	return &bookRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new book
func (r *bookRepository) Create(ctx context.Context, book *models.Book) error {
	query := `INSERT INTO books (title, author, type, availability) VALUES (?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, book.Title, book.Author, book.Type, book.Availability)
	if err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("failed to create book: %w", models.ErrDuplicate)
		}
		r.logger.Error("failed to create book", zap.Error(err))
		return fmt.Errorf("failed to create book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		r.logger.Error("failed to get last insert id", zap.Error(err))
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	book.ID = int(id)
	return nil
}

// GetByID retrieves a book by ID
func (r *bookRepository) GetByID(ctx context.Context, bookID int) (*models.Book, error) {
	query := `SELECT id, title, author, type, availability FROM books WHERE id = ?`

	book := &models.Book{}
	err := r.db.QueryRowContext(ctx, query, bookID).Scan(&book.ID, &book.Title, &book.Author, &book.Type, &book.Availability)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("book %w", models.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("failed to get book", zap.Error(err), zap.Int("bookID", bookID))
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	return book, nil
}

// GetAll retrieves every book ordered by title
func (r *bookRepository) GetAll(ctx context.Context) ([]models.Book, error) {
	query := `SELECT id, title, author, type, availability FROM books ORDER BY title`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to query books", zap.Error(err))
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		var book models.Book
		if err := rows.Scan(&book.ID, &book.Title, &book.Author, &book.Type, &book.Availability); err != nil {
			r.logger.Error("failed to scan book", zap.Error(err))
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating rows", zap.Error(err))
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return books, nil
}

// ExistsByTitle checks if a book other than excludeID already uses title.
// Pass 0 as excludeID to check against every book.
func (r *bookRepository) ExistsByTitle(ctx context.Context, title string, excludeID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM books WHERE title = ? AND id <> ?)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, title, excludeID).Scan(&exists); err != nil {
		r.logger.Error("failed to check title existence", zap.Error(err), zap.String("title", title))
		return false, fmt.Errorf("failed to check title existence: %w", err)
	}

	return exists, nil
}

// Update replaces all editable fields of a book
func (r *bookRepository) Update(ctx context.Context, book *models.Book) error {
	query := `UPDATE books SET title = ?, author = ?, type = ?, availability = ? WHERE id = ?`

	if _, err := r.db.ExecContext(ctx, query, book.Title, book.Author, book.Type, book.Availability, book.ID); err != nil {
		if isDuplicateEntry(err) {
			return fmt.Errorf("failed to update book: %w", models.ErrDuplicate)
		}
		r.logger.Error("failed to update book", zap.Error(err), zap.Int("bookID", book.ID))
		return fmt.Errorf("failed to update book: %w", err)
	}

	return nil
}

// Delete removes a book
func (r *bookRepository) Delete(ctx context.Context, bookID int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, bookID)
	if err != nil {
		r.logger.Error("failed to delete book", zap.Error(err), zap.Int("bookID", bookID))
		return fmt.Errorf("failed to delete book: %w", err)
	}

	return requireAffected(result, "book")
}
