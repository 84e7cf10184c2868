package handlers

import (
	"context"
	"net/http"

	"github.com/booklog/backend/internal/middleware"
	"github.com/booklog/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// LibraryService is the interface that wraps methods for book catalog and borrow business logic.
//
// Every method taking an id or a book form is admin only and returns models.ErrForbidden for anyone else,
// before looking anything up.
type LibraryService interface {
	// Method Booklist returns every book and every borrow request.
	Booklist(ctx context.Context) (*models.BooklistResponse, error)
	// Method RequestBorrow records a loan request by "viewer". Any signed-in user may call it.
	RequestBorrow(ctx context.Context, viewer *models.Identity, req *models.BorrowRequest) (*models.Borrow, error)
	// Method CreateBook adds a book. A title already in the catalog is returned as validation.Errors.
	CreateBook(ctx context.Context, viewer *models.Identity, req *models.BookRequest) (*models.Book, error)
	// Method GetBook returns book "bookID" or an error wrapping models.ErrNotFound.
	GetBook(ctx context.Context, viewer *models.Identity, bookID int) (*models.Book, error)
	// Method UpdateBook saves book "bookID". Please reference CreateBook and GetBook methods for error values.
	UpdateBook(ctx context.Context, viewer *models.Identity, bookID int, req *models.BookRequest) error
	// Method DeleteBook removes book "bookID". Please reference GetBook method for error values.
	DeleteBook(ctx context.Context, viewer *models.Identity, bookID int) error
	// Method GetBorrow returns borrow "borrowID" or an error wrapping models.ErrNotFound.
	GetBorrow(ctx context.Context, viewer *models.Identity, borrowID int) (*models.Borrow, error)
	// Method UpdateBorrow changes the title and requester of borrow "borrowID".
	//
	// An unknown requester username is returned as validation.Errors on field "user".
	UpdateBorrow(ctx context.Context, viewer *models.Identity, borrowID int, req *models.BorrowEditRequest) error
	// Method DeleteBorrow removes borrow "borrowID". Please reference GetBorrow method for error values.
	DeleteBorrow(ctx context.Context, viewer *models.Identity, borrowID int) error
}

// LibraryHandler handles the book list, borrow requests and catalog administration
type LibraryHandler struct {
	BaseHandler
	libraryService LibraryService
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(libraryService LibraryService, secureCookie bool, logger *zap.Logger) *LibraryHandler {
	return &LibraryHandler{
		BaseHandler:    BaseHandler{logger: logger, secureCookie: secureCookie},
		libraryService: libraryService,
	}
}

// RegisterRoutes registers all library handler routes. The router must require a signed-in user.
func (h *LibraryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/booklist", h.Booklist)
	r.Get("/borrow", h.BorrowForm)
	r.Post("/borrow", h.RequestBorrow)

	r.Get("/registerbook", h.RegisterBookForm)
	r.Post("/registerbook", h.RegisterBook)
	r.Get("/book/{id}", h.EditBookForm)
	r.Post("/book/{id}", h.EditBook)
	r.Get("/delete_book/{id}", h.DeleteBook)
	r.Post("/delete_book/{id}", h.DeleteBook)

	r.Get("/borrow/{id}", h.EditBorrowForm)
	r.Post("/borrow/{id}", h.EditBorrow)
	r.Get("/delete_borrow/{id}", h.DeleteBorrow)
	r.Post("/delete_borrow/{id}", h.DeleteBorrow)
}

// Booklist handles GET /booklist
// @Summary Books and borrow requests
// @Tags library
// @Produce json
// @Success 200 {object} viewResponse{data=models.BooklistResponse}
// @Router /booklist [get]
func (h *LibraryHandler) Booklist(w http.ResponseWriter, r *http.Request) {
	list, err := h.libraryService.Booklist(r.Context())
	if h.handleServiceError(w, r, err, "load book list") {
		return
	}

	h.respondView(w, r, list)
}

// BorrowForm handles GET /borrow
// @Summary Borrow request form
// @Tags library
// @Produce json
// @Success 200 {object} viewResponse
// @Router /borrow [get]
func (h *LibraryHandler) BorrowForm(w http.ResponseWriter, r *http.Request) {
	h.respondView(w, r, formView{Title: "Borrow Page"})
}

// RequestBorrow handles POST /borrow
// @Summary Request a book
// @Tags library
// @Accept x-www-form-urlencoded
// @Param book formData string true "Book title"
// @Success 303 "Redirect to /booklist"
// @Failure 400 {object} validationResponse
// @Router /borrow [post]
func (h *LibraryHandler) RequestBorrow(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	_, err := h.libraryService.RequestBorrow(r.Context(), middleware.GetIdentity(r.Context()), &models.BorrowRequest{Book: r.PostFormValue("book")})
	if h.handleServiceError(w, r, err, "request borrow") {
		return
	}

	h.redirect(w, r, "/booklist", "Your request has been sent")
}

// RegisterBookForm handles GET /registerbook
// @Summary Book registration form (admin)
// @Tags admin
// @Produce json
// @Success 200 {object} viewResponse
// @Success 303 "Not an admin, redirect to /home"
// @Router /registerbook [get]
func (h *LibraryHandler) RegisterBookForm(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		h.deny(w, r)
		return
	}
	h.respondView(w, r, formView{Title: "Register Book"})
}

// RegisterBook handles POST /registerbook
// @Summary Add a book (admin)
// @Tags admin
// @Accept x-www-form-urlencoded
// @Param book formData string true "Title"
// @Param author formData string true "Author"
// @Param type formData string true "Type"
// @Param availability formData string true "Availability"
// @Success 303 "Redirect to /admin, or /home when not an admin"
// @Failure 400 {object} validationResponse
// @Router /registerbook [post]
func (h *LibraryHandler) RegisterBook(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	_, err := h.libraryService.CreateBook(r.Context(), middleware.GetIdentity(r.Context()), bookRequestFromForm(r))
	if h.handleServiceError(w, r, err, "create book") {
		return
	}

	h.redirect(w, r, "/admin", "Congratulations, you have added a book!")
}

// EditBookForm handles GET /book/{id}
// @Summary Book edit form (admin)
// @Tags admin
// @Produce json
// @Param id path int true "Book ID"
// @Success 200 {object} viewResponse
// @Failure 404 {object} map[string]string
// @Router /book/{id} [get]
func (h *LibraryHandler) EditBookForm(w http.ResponseWriter, r *http.Request) {
	bookID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	book, err := h.libraryService.GetBook(r.Context(), middleware.GetIdentity(r.Context()), bookID)
	if h.handleServiceError(w, r, err, "load book") {
		return
	}

	h.respondView(w, r, formView{Title: "Edit Book", Form: models.BookRequest{
		Title:        book.Title,
		Author:       book.Author,
		Type:         book.Type,
		Availability: book.Availability,
	}})
}

// EditBook handles POST /book/{id}
// @Summary Edit a book (admin)
// @Tags admin
// @Accept x-www-form-urlencoded
// @Param id path int true "Book ID"
// @Param book formData string true "Title"
// @Param author formData string true "Author"
// @Param type formData string true "Type"
// @Param availability formData string true "Availability"
// @Success 303 "Redirect to /admin"
// @Failure 400 {object} validationResponse
// @Failure 404 {object} map[string]string
// @Router /book/{id} [post]
func (h *LibraryHandler) EditBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := h.pathID(w, r, "id")
	if !ok || !h.parseForm(w, r) {
		return
	}

	err := h.libraryService.UpdateBook(r.Context(), middleware.GetIdentity(r.Context()), bookID, bookRequestFromForm(r))
	if h.handleServiceError(w, r, err, "update book") {
		return
	}

	h.redirect(w, r, "/admin", msgChangesSaved)
}

// DeleteBook handles GET and POST /delete_book/{id}
// @Summary Delete a book (admin)
// @Tags admin
// @Param id path int true "Book ID"
// @Success 303 "Redirect to /admin"
// @Failure 404 {object} map[string]string
// @Router /delete_book/{id} [post]
func (h *LibraryHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	err := h.libraryService.DeleteBook(r.Context(), middleware.GetIdentity(r.Context()), bookID)
	if h.handleServiceError(w, r, err, "delete book") {
		return
	}

	h.redirect(w, r, "/admin", "The book has been deleted!")
}

// EditBorrowForm handles GET /borrow/{id}
// @Summary Loan edit form (admin)
// @Tags admin
// @Produce json
// @Param id path int true "Borrow ID"
// @Success 200 {object} viewResponse
// @Failure 404 {object} map[string]string
// @Router /borrow/{id} [get]
func (h *LibraryHandler) EditBorrowForm(w http.ResponseWriter, r *http.Request) {
	borrowID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	borrow, err := h.libraryService.GetBorrow(r.Context(), middleware.GetIdentity(r.Context()), borrowID)
	if h.handleServiceError(w, r, err, "load borrow") {
		return
	}

	h.respondView(w, r, formView{Title: "Edit Loan", Form: models.BorrowEditRequest{Book: borrow.Book, Username: borrow.Username}})
}

// EditBorrow handles POST /borrow/{id}
// @Summary Edit a loan (admin)
// @Tags admin
// @Accept x-www-form-urlencoded
// @Param id path int true "Borrow ID"
// @Param book formData string true "Book title"
// @Param user formData string true "Requester username"
// @Success 303 "Redirect to /admin"
// @Failure 400 {object} validationResponse
// @Failure 404 {object} map[string]string
// @Router /borrow/{id} [post]
func (h *LibraryHandler) EditBorrow(w http.ResponseWriter, r *http.Request) {
	borrowID, ok := h.pathID(w, r, "id")
	if !ok || !h.parseForm(w, r) {
		return
	}

	req := &models.BorrowEditRequest{Book: r.PostFormValue("book"), Username: r.PostFormValue("user")}
	err := h.libraryService.UpdateBorrow(r.Context(), middleware.GetIdentity(r.Context()), borrowID, req)
	if h.handleServiceError(w, r, err, "update borrow") {
		return
	}

	h.redirect(w, r, "/admin", msgChangesSaved)
}

// DeleteBorrow handles GET and POST /delete_borrow/{id}
// @Summary Delete a loan (admin)
// @Tags admin
// @Param id path int true "Borrow ID"
// @Success 303 "Redirect to /admin"
// @Failure 404 {object} map[string]string
// @Router /delete_borrow/{id} [post]
func (h *LibraryHandler) DeleteBorrow(w http.ResponseWriter, r *http.Request) {
	borrowID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	err := h.libraryService.DeleteBorrow(r.Context(), middleware.GetIdentity(r.Context()), borrowID)
	if h.handleServiceError(w, r, err, "delete borrow") {
		return
	}

	h.redirect(w, r, "/admin", "The loan has been deleted!")
}

func bookRequestFromForm(r *http.Request) *models.BookRequest {
	return &models.BookRequest{
		Title:        r.PostFormValue("book"),
		Author:       r.PostFormValue("author"),
		Type:         r.PostFormValue("type"),
		Availability: r.PostFormValue("availability"),
	}
}

// isAdmin reports whether the request comes from a signed-in admin.
// Only used for pages that show an empty form; every mutation is checked by the services.
func isAdmin(r *http.Request) bool {
	identity := middleware.GetIdentity(r.Context())
	return identity != nil && identity.IsAdmin
}
