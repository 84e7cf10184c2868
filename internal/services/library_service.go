package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/booklog/backend/internal/metrics"
	"github.com/booklog/backend/internal/models"
	"github.com/booklog/backend/internal/validation"
	"go.uber.org/zap"
)

const msgBookExists = "Book exists, try a new book"

// BookRepository is the interface that wraps methods for Books table data access
type BookRepository interface {
	// Method Create inserts a new book. On success "book.ID" is set to the generated id.
	//
	// If the title is already used, the error wrapping models.ErrDuplicate will be returned.
	Create(ctx context.Context, book *models.Book) error
	// Method GetByID retrieves a book by ID.
	//
	// If book with such ID does not exist, the error wrapping models.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, bookID int) (*models.Book, error)
	// Method GetAll retrieves every book ordered by title.
	GetAll(ctx context.Context) ([]models.Book, error)
	// Method ExistsByTitle checks if a book other than "excludeID" has exactly this title.
	//
	// Pass 0 as "excludeID" to check against every book.
	ExistsByTitle(ctx context.Context, title string, excludeID int) (bool, error)
	// Method Update saves all fields of "book".
	//
	// Please reference Create and GetByID methods for more information about error values.
	Update(ctx context.Context, book *models.Book) error
	// Method Delete removes book "bookID".
	Delete(ctx context.Context, bookID int) error
}

// BorrowRepository is the interface that wraps methods for Borrows table data access
type BorrowRepository interface {
	// Method Create inserts a new borrow request. On success "borrow.ID" is set to the generated id.
	Create(ctx context.Context, borrow *models.Borrow) error
	// Method GetByID retrieves a borrow together with the requester's username.
	//
	// If borrow with such ID does not exist, the error wrapping models.ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, borrowID int) (*models.Borrow, error)
	// Method GetAll retrieves every borrow, oldest first.
	GetAll(ctx context.Context) ([]models.Borrow, error)
	// Method Update changes the requested title and the requester of borrow "borrowID".
	Update(ctx context.Context, borrowID int, book string, userID int) error
	// Method Delete removes borrow "borrowID".
	Delete(ctx context.Context, borrowID int) error
}

// UserLookup is the interface that wraps the lookup of a user by username
type UserLookup interface {
	// Method GetByUsername retrieves a user by exact username.
	//
	// If user with such username does not exist, the error wrapping models.ErrNotFound will be returned together with "nil" value.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// libraryService implements the book catalog and borrow requests
type libraryService struct {
	bookRepo   BookRepository
	borrowRepo BorrowRepository
	userRepo   UserLookup
	metrics    *metrics.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewLibraryService creates a new library service
func NewLibraryService(bookRepo BookRepository, borrowRepo BorrowRepository, userRepo UserLookup, m *metrics.Metrics, logger *zap.Logger) *libraryService {
	return &libraryService{
		bookRepo:   bookRepo,
		borrowRepo: borrowRepo,
		userRepo:   userRepo,
		metrics:    m,
		logger:     logger,
		now:        time.Now,
	}
}

// Booklist returns every book and every borrow request
func (s *libraryService) Booklist(ctx context.Context) (*models.BooklistResponse, error) {
	books, err := s.bookRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	borrows, err := s.borrowRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list borrows: %w", err)
	}

	return &models.BooklistResponse{Books: books, Borrows: borrows}, nil
}

// RequestBorrow records a loan request by viewer for the given title
func (s *libraryService) RequestBorrow(ctx context.Context, viewer *models.Identity, req *models.BorrowRequest) (*models.Borrow, error) {
	if err := validation.Borrow(req); err != nil {
		return nil, err
	}

	borrow := &models.Borrow{
		Book:      strings.TrimSpace(req.Book),
		UserID:    viewer.UserID,
		Username:  viewer.Username,
		Timestamp: s.now().UTC(),
	}
	if err := s.borrowRepo.Create(ctx, borrow); err != nil {
		return nil, err
	}

	s.metrics.BorrowsRequested.Inc()
	return borrow, nil
}

// CreateBook adds a book to the catalog. Admin only.
func (s *libraryService) CreateBook(ctx context.Context, viewer *models.Identity, req *models.BookRequest) (*models.Book, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	if err := validation.Book(req); err != nil {
		return nil, err
	}

	book := bookFromRequest(req)
	if err := s.checkTitle(ctx, book.Title, 0); err != nil {
		return nil, err
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, validation.Errors{"book": msgBookExists}
		}
		return nil, err
	}

	s.logger.Info("book added", zap.Int("bookID", book.ID), zap.String("title", book.Title))
	return book, nil
}

// GetBook returns a book for the edit form. Admin only.
func (s *libraryService) GetBook(ctx context.Context, viewer *models.Identity, bookID int) (*models.Book, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	return s.bookRepo.GetByID(ctx, bookID)
}

// UpdateBook saves the edit form of a book. Admin only.
//
// The new title must not belong to another book.
func (s *libraryService) UpdateBook(ctx context.Context, viewer *models.Identity, bookID int, req *models.BookRequest) error {
	if err := requireAdmin(viewer); err != nil {
		return err
	}
	if _, err := s.bookRepo.GetByID(ctx, bookID); err != nil {
		return err
	}
	if err := validation.Book(req); err != nil {
		return err
	}

	book := bookFromRequest(req)
	book.ID = bookID
	if err := s.checkTitle(ctx, book.Title, bookID); err != nil {
		return err
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return validation.Errors{"book": msgBookExists}
		}
		return err
	}
	return nil
}

// DeleteBook removes a book from the catalog. Admin only.
func (s *libraryService) DeleteBook(ctx context.Context, viewer *models.Identity, bookID int) error {
	if err := requireAdmin(viewer); err != nil {
		return err
	}
	return s.bookRepo.Delete(ctx, bookID)
}

// GetBorrow returns a borrow for the edit form. Admin only.
func (s *libraryService) GetBorrow(ctx context.Context, viewer *models.Identity, borrowID int) (*models.Borrow, error) {
	if err := requireAdmin(viewer); err != nil {
		return nil, err
	}
	return s.borrowRepo.GetByID(ctx, borrowID)
}

// UpdateBorrow changes the title and requester of a borrow. Admin only.
//
// The requester is given by username and must exist.
func (s *libraryService) UpdateBorrow(ctx context.Context, viewer *models.Identity, borrowID int, req *models.BorrowEditRequest) error {
	if err := requireAdmin(viewer); err != nil {
		return err
	}
	if _, err := s.borrowRepo.GetByID(ctx, borrowID); err != nil {
		return err
	}
	if err := validation.BorrowEdit(req); err != nil {
		return err
	}

	username := strings.TrimSpace(req.Username)
	user, err := s.userRepo.GetByUsername(ctx, username)
	if errors.Is(err, models.ErrNotFound) {
		return validation.Errors{"user": fmt.Sprintf("User %s not found.", username)}
	}
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}

	return s.borrowRepo.Update(ctx, borrowID, strings.TrimSpace(req.Book), user.ID)
}

// DeleteBorrow removes a borrow request. Admin only.
func (s *libraryService) DeleteBorrow(ctx context.Context, viewer *models.Identity, borrowID int) error {
	if err := requireAdmin(viewer); err != nil {
		return err
	}
	return s.borrowRepo.Delete(ctx, borrowID)
}

func (s *libraryService) checkTitle(ctx context.Context, title string, excludeID int) error {
	exists, err := s.bookRepo.ExistsByTitle(ctx, title, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check book title: %w", err)
	}
	if exists {
		return validation.Errors{"book": msgBookExists}
	}
	return nil
}

func bookFromRequest(req *models.BookRequest) *models.Book {
	return &models.Book{
		Title:        strings.TrimSpace(req.Title),
		Author:       strings.TrimSpace(req.Author),
		Type:         strings.TrimSpace(req.Type),
		Availability: strings.TrimSpace(req.Availability),
	}
}
