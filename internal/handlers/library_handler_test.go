package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/booklog/backend/internal/models"
	"github.com/booklog/backend/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// mockLibraryService is a mock implementation of LibraryService
type mockLibraryService struct {
	list      *models.BooklistResponse
	book      *models.Book
	borrow    *models.Borrow
	err       error
	calls     int
	gotBook   *models.BookRequest
	gotBorrow *models.BorrowRequest
	gotEdit   *models.BorrowEditRequest
	gotID     int
}

func (m *mockLibraryService) Booklist(ctx context.Context) (*models.BooklistResponse, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.list, nil
}

func (m *mockLibraryService) RequestBorrow(ctx context.Context, viewer *models.Identity, req *models.BorrowRequest) (*models.Borrow, error) {
	m.calls++
	m.gotBorrow = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Borrow{ID: 1, Book: req.Book, UserID: viewer.UserID}, nil
}

func (m *mockLibraryService) CreateBook(ctx context.Context, viewer *models.Identity, req *models.BookRequest) (*models.Book, error) {
	m.calls++
	m.gotBook = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Book{ID: 1, Title: req.Title}, nil
}

func (m *mockLibraryService) GetBook(ctx context.Context, viewer *models.Identity, bookID int) (*models.Book, error) {
	m.calls++
	m.gotID = bookID
	if m.err != nil {
		return nil, m.err
	}
	return m.book, nil
}

func (m *mockLibraryService) UpdateBook(ctx context.Context, viewer *models.Identity, bookID int, req *models.BookRequest) error {
	m.calls++
	m.gotID = bookID
	m.gotBook = req
	return m.err
}

func (m *mockLibraryService) DeleteBook(ctx context.Context, viewer *models.Identity, bookID int) error {
	m.calls++
	m.gotID = bookID
	return m.err
}

func (m *mockLibraryService) GetBorrow(ctx context.Context, viewer *models.Identity, borrowID int) (*models.Borrow, error) {
	m.calls++
	m.gotID = borrowID
	if m.err != nil {
		return nil, m.err
	}
	return m.borrow, nil
}

func (m *mockLibraryService) UpdateBorrow(ctx context.Context, viewer *models.Identity, borrowID int, req *models.BorrowEditRequest) error {
	m.calls++
	m.gotID = borrowID
	m.gotEdit = req
	return m.err
}

func (m *mockLibraryService) DeleteBorrow(ctx context.Context, viewer *models.Identity, borrowID int) error {
	m.calls++
	m.gotID = borrowID
	return m.err
}

func newLibraryHandler(t *testing.T, svc *mockLibraryService) *LibraryHandler {
	return NewLibraryHandler(svc, false, zaptest.NewLogger(t))
}

func TestLibraryHandler_Booklist(t *testing.T) {
	svc := &mockLibraryService{list: &models.BooklistResponse{
		Books:   []models.Book{{ID: 1, Title: "Dune", Author: "Herbert", Type: "novel", Availability: "yes"}},
		Borrows: []models.Borrow{},
	}}

	w := serve(t, newLibraryHandler(t, svc), http.MethodGet, "/booklist", nil, alice)

	_, data := decodeView(t, w)
	assert.JSONEq(t, `{"books":[{"id":1,"book":"Dune","author":"Herbert","type":"novel","availability":"yes"}],"borrows":[]}`, string(data))
}

func TestLibraryHandler_RequestBorrow(t *testing.T) {
	t.Run("sent", func(t *testing.T) {
		svc := &mockLibraryService{}
		w := serve(t, newLibraryHandler(t, svc), http.MethodPost, "/borrow", url.Values{"book": {"Dune"}}, alice)

		assertRedirect(t, w, "/booklist", "Your request has been sent")
		assert.Equal(t, &models.BorrowRequest{Book: "Dune"}, svc.gotBorrow)
	})

	t.Run("empty title", func(t *testing.T) {
		svc := &mockLibraryService{err: validation.Errors{"book": "This field is required."}}
		w := serve(t, newLibraryHandler(t, svc), http.MethodPost, "/borrow", url.Values{"book": {""}}, alice)

		assert.Contains(t, decodeFieldErrors(t, w), "book")
	})
}

func TestLibraryHandler_RegisterBookForm(t *testing.T) {
	t.Run("admin", func(t *testing.T) {
		w := serve(t, newLibraryHandler(t, &mockLibraryService{}), http.MethodGet, "/registerbook", nil, root)
		_, data := decodeView(t, w)
		assert.JSONEq(t, `{"title":"Register Book"}`, string(data))
	})

	t.Run("regular user", func(t *testing.T) {
		w := serve(t, newLibraryHandler(t, &mockLibraryService{}), http.MethodGet, "/registerbook", nil, alice)
		assertRedirect(t, w, "/home", msgPermissionDenied)
	})
}

func TestLibraryHandler_RegisterBook(t *testing.T) {
	form := url.Values{"book": {"Dune"}, "author": {"Herbert"}, "type": {"novel"}, "availability": {"yes"}}

	tests := []struct {
		name   string
		svcErr error
		check  func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name: "added",
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assertRedirect(t, w, "/admin", "Congratulations, you have added a book!")
			},
		},
		{
			name:   "duplicate title",
			svcErr: validation.Errors{"book": "Book exists, try a new book"},
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, map[string]string{"book": "Book exists, try a new book"}, decodeFieldErrors(t, w))
			},
		},
		{
			name:   "not an admin",
			svcErr: models.ErrForbidden,
			check: func(t *testing.T, w *httptest.ResponseRecorder) {
				assertRedirect(t, w, "/home", msgPermissionDenied)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockLibraryService{err: tt.svcErr}
			w := serve(t, newLibraryHandler(t, svc), http.MethodPost, "/registerbook", form, root)

			require.NotNil(t, svc.gotBook)
			assert.Equal(t, models.BookRequest{Title: "Dune", Author: "Herbert", Type: "novel", Availability: "yes"}, *svc.gotBook)
			tt.check(t, w)
		})
	}
}

func TestLibraryHandler_Books(t *testing.T) {
	t.Run("edit form", func(t *testing.T) {
		svc := &mockLibraryService{book: &models.Book{ID: 3, Title: "Dune", Author: "Herbert", Type: "novel", Availability: "no"}}
		w := serve(t, newLibraryHandler(t, svc), http.MethodGet, "/book/3", nil, root)

		_, data := decodeView(t, w)
		assert.JSONEq(t, `{"title":"Edit Book","form":{"book":"Dune","author":"Herbert","type":"novel","availability":"no"}}`, string(data))
		assert.Equal(t, 3, svc.gotID)
	})

	t.Run("edit saved", func(t *testing.T) {
		svc := &mockLibraryService{}
		w := serve(t, newLibraryHandler(t, svc), http.MethodPost, "/book/3", url.Values{"book": {"Dune Messiah"}}, root)

		assertRedirect(t, w, "/admin", msgChangesSaved)
		assert.Equal(t, "Dune Messiah", svc.gotBook.Title)
	})

	t.Run("delete", func(t *testing.T) {
		svc := &mockLibraryService{}
		w := serve(t, newLibraryHandler(t, svc), http.MethodGet, "/delete_book/3", nil, root)
		assertRedirect(t, w, "/admin", "The book has been deleted!")
	})

	t.Run("delete missing", func(t *testing.T) {
		svc := &mockLibraryService{err: fmt.Errorf("book %w", models.ErrNotFound)}
		w := serve(t, newLibraryHandler(t, svc), http.MethodPost, "/delete_book/404", nil, root)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		svc := &mockLibraryService{}
		w := serve(t, newLibraryHandler(t, svc), http.MethodGet, "/book/x", nil, root)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Zero(t, svc.calls)
	})
}

func TestLibraryHandler_Borrows(t *testing.T) {
	t.Run("edit form", func(t *testing.T) {
		svc := &mockLibraryService{borrow: &models.Borrow{ID: 7, Book: "Dune", UserID: 2, Username: "bob"}}
		w := serve(t, newLibraryHandler(t, svc), http.MethodGet, "/borrow/7", nil, root)

		_, data := decodeView(t, w)
		assert.JSONEq(t, `{"title":"Edit Loan","form":{"book":"Dune","user":"bob"}}`, string(data))
	})

	t.Run("edit saved", func(t *testing.T) {
		svc := &mockLibraryService{}
		w := serve(t, newLibraryHandler(t, svc), http.MethodPost, "/borrow/7", url.Values{"book": {"Emma"}, "user": {"alice"}}, root)

		assertRedirect(t, w, "/admin", msgChangesSaved)
		assert.Equal(t, &models.BorrowEditRequest{Book: "Emma", Username: "alice"}, svc.gotEdit)
		assert.Equal(t, 7, svc.gotID)
	})

	t.Run("unknown requester", func(t *testing.T) {
		svc := &mockLibraryService{err: validation.Errors{"user": "User zed not found."}}
		w := serve(t, newLibraryHandler(t, svc), http.MethodPost, "/borrow/7", url.Values{"book": {"Emma"}, "user": {"zed"}}, root)

		assert.Equal(t, map[string]string{"user": "User zed not found."}, decodeFieldErrors(t, w))
	})

	t.Run("delete", func(t *testing.T) {
		svc := &mockLibraryService{}
		w := serve(t, newLibraryHandler(t, svc), http.MethodPost, "/delete_borrow/7", nil, root)
		assertRedirect(t, w, "/admin", "The loan has been deleted!")
	})

	t.Run("delete as regular user", func(t *testing.T) {
		svc := &mockLibraryService{err: models.ErrForbidden}
		w := serve(t, newLibraryHandler(t, svc), http.MethodPost, "/delete_borrow/7", nil, alice)
		assertRedirect(t, w, "/home", msgPermissionDenied)
	})
}
