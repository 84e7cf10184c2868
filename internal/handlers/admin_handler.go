package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/booklog/backend/internal/middleware"
	"github.com/booklog/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AdminService is the interface that wraps methods for the admin dashboard and user administration.
//
// Every method returns models.ErrForbidden when "viewer" is not an admin.
type AdminService interface {
	// Method Dashboard returns all users, books and borrows plus page "page" of all posts.
	Dashboard(ctx context.Context, viewer *models.Identity, page int) (*models.DashboardResponse, error)
	// Method CreateUser registers a regular user with the same rules as self-registration.
	CreateUser(ctx context.Context, viewer *models.Identity, req *models.RegisterRequest) (*models.User, error)
	// Method DeleteUser removes user "userID" with their posts, borrows and follow edges.
	//
	// Errors: models.ErrNotFound for a missing user, models.ErrSelfDelete when "viewer" targets themselves.
	DeleteUser(ctx context.Context, viewer *models.Identity, userID int) error
}

// AdminHandler handles the admin dashboard and user administration
type AdminHandler struct {
	BaseHandler
	adminService AdminService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminService AdminService, secureCookie bool, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		BaseHandler:  BaseHandler{logger: logger, secureCookie: secureCookie},
		adminService: adminService,
	}
}

// RegisterRoutes registers all admin handler routes. The router must require a signed-in user.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/admin", h.Dashboard)
	r.Post("/admin", h.Dashboard)
	r.Get("/add_user", h.AddUserForm)
	r.Post("/add_user", h.AddUser)
	r.Get("/delete_user/{id}", h.DeleteUser)
	r.Post("/delete_user/{id}", h.DeleteUser)
}

// Dashboard handles GET /admin
// @Summary Admin dashboard
// @Tags admin
// @Produce json
// @Param page query int false "Page number of the post list, default 1"
// @Success 200 {object} viewResponse{data=models.DashboardResponse}
// @Success 303 "Not an admin, redirect to /home"
// @Router /admin [get]
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.adminService.Dashboard(r.Context(), middleware.GetIdentity(r.Context()), pageParam(r))
	if h.handleServiceError(w, r, err, "load dashboard") {
		return
	}

	next, prev := pageURLs("/admin", dashboard.Posts)
	h.respondView(w, r, struct {
		*models.DashboardResponse
		NextURL string `json:"nextUrl,omitempty"`
		PrevURL string `json:"prevUrl,omitempty"`
	}{dashboard, next, prev})
}

// AddUserForm handles GET /add_user
// @Summary User registration form (admin)
// @Tags admin
// @Produce json
// @Success 200 {object} viewResponse
// @Router /add_user [get]
func (h *AdminHandler) AddUserForm(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		h.deny(w, r)
		return
	}
	h.respondView(w, r, formView{Title: "Register"})
}

// AddUser handles POST /add_user
// @Summary Register a user (admin)
// @Tags admin
// @Accept x-www-form-urlencoded
// @Param username formData string true "Username"
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Param password2 formData string true "Repeat password"
// @Success 303 "Redirect to /admin"
// @Failure 400 {object} validationResponse
// @Router /add_user [post]
func (h *AdminHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	_, err := h.adminService.CreateUser(r.Context(), middleware.GetIdentity(r.Context()), registerRequestFromForm(r))
	if h.handleServiceError(w, r, err, "create user") {
		return
	}

	h.redirect(w, r, "/admin", "Congratulations, the user has been registered!")
}

// DeleteUser handles GET and POST /delete_user/{id}
// @Summary Delete a user (admin)
// @Tags admin
// @Param id path int true "User ID"
// @Success 303 "Redirect to /admin"
// @Failure 404 {object} map[string]string
// @Router /delete_user/{id} [post]
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	err := h.adminService.DeleteUser(r.Context(), middleware.GetIdentity(r.Context()), userID)
	if errors.Is(err, models.ErrSelfDelete) {
		h.redirect(w, r, "/admin", "You cannot delete yourself!")
		return
	}
	if h.handleServiceError(w, r, err, "delete user") {
		return
	}

	h.redirect(w, r, "/admin", "The user has been deleted!")
}
