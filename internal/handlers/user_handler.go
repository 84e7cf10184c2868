package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/booklog/backend/internal/middleware"
	"github.com/booklog/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// UserService is the interface that wraps methods for profile and follow graph business logic.
type UserService interface {
	// Method GetProfile returns the profile of "username" with page "page" of their posts, as seen by "viewer".
	//
	// If user with such username does not exist, the error wrapping models.ErrNotFound will be returned together with "nil" value.
	GetProfile(ctx context.Context, viewer *models.Identity, username string, page int) (*models.ProfileResponse, error)
	// Method GetProfileForm returns the edit form of "viewer" prefilled with the stored values.
	GetProfileForm(ctx context.Context, viewer *models.Identity) (*models.EditProfileRequest, error)
	// Method UpdateProfile saves the username and about-me text of "viewer".
	//
	// Field problems, including a username taken by someone else, are returned as validation.Errors.
	UpdateProfile(ctx context.Context, viewer *models.Identity, req *models.EditProfileRequest) error
	// Method Follow makes "viewer" follow "username" and returns that user.
	//
	// Errors: models.ErrNotFound for an unknown user, models.ErrSelfFollow (together with the user) for the viewer themselves.
	Follow(ctx context.Context, viewer *models.Identity, username string) (*models.User, error)
	// Method Unfollow removes the follow edge from "viewer" to "username" and returns that user.
	//
	// Please reference Follow method for more information about error values.
	Unfollow(ctx context.Context, viewer *models.Identity, username string) (*models.User, error)
}

// UserHandler handles profiles and following
type UserHandler struct {
	BaseHandler
	userService UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService UserService, secureCookie bool, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: BaseHandler{logger: logger, secureCookie: secureCookie},
		userService: userService,
	}
}

// RegisterRoutes registers all user handler routes. The router must require a signed-in user.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/user/{username}", h.Profile)
	r.Get("/edit_profile", h.EditProfileForm)
	r.Post("/edit_profile", h.EditProfile)
	r.Post("/follow/{username}", h.Follow)
	r.Post("/unfollow/{username}", h.Unfollow)
}

// Profile handles GET /user/{username}
// @Summary User profile
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Param page query int false "Page number, default 1"
// @Success 200 {object} viewResponse{data=models.ProfileResponse}
// @Failure 404 {object} map[string]string
// @Router /user/{username} [get]
func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	profile, err := h.userService.GetProfile(r.Context(), middleware.GetIdentity(r.Context()), username, pageParam(r))
	if h.handleServiceError(w, r, err, "load profile") {
		return
	}

	next, prev := pageURLs(profilePath(username), profile.Posts)
	h.respondView(w, r, struct {
		*models.ProfileResponse
		NextURL string `json:"nextUrl,omitempty"`
		PrevURL string `json:"prevUrl,omitempty"`
	}{profile, next, prev})
}

// EditProfileForm handles GET /edit_profile
// @Summary Profile edit form
// @Tags users
// @Produce json
// @Success 200 {object} viewResponse
// @Router /edit_profile [get]
func (h *UserHandler) EditProfileForm(w http.ResponseWriter, r *http.Request) {
	form, err := h.userService.GetProfileForm(r.Context(), middleware.GetIdentity(r.Context()))
	if h.handleServiceError(w, r, err, "load profile") {
		return
	}

	h.respondView(w, r, formView{Title: "Edit Profile", Form: form})
}

// EditProfile handles POST /edit_profile
// @Summary Edit own profile
// @Tags users
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param about_me formData string false "About me, up to 140 characters"
// @Success 303 "Redirect to /edit_profile"
// @Failure 400 {object} validationResponse
// @Router /edit_profile [post]
func (h *UserHandler) EditProfile(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	req := &models.EditProfileRequest{
		Username: r.PostFormValue("username"),
		AboutMe:  r.PostFormValue("about_me"),
	}
	err := h.userService.UpdateProfile(r.Context(), middleware.GetIdentity(r.Context()), req)
	if h.handleServiceError(w, r, err, "update profile") {
		return
	}

	h.redirect(w, r, "/edit_profile", msgChangesSaved)
}

// Follow handles POST /follow/{username}
// @Summary Follow a user
// @Tags users
// @Param username path string true "Username"
// @Success 303 "Redirect to the profile, or /home for an unknown user"
// @Router /follow/{username} [post]
func (h *UserHandler) Follow(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	_, err := h.userService.Follow(r.Context(), middleware.GetIdentity(r.Context()), username)
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.redirect(w, r, "/home", fmt.Sprintf("User %s not found.", username))
	case errors.Is(err, models.ErrSelfFollow):
		h.redirect(w, r, profilePath(username), "You cannot follow yourself!")
	case err != nil:
		h.handleServiceError(w, r, err, "follow user")
	default:
		h.redirect(w, r, profilePath(username), fmt.Sprintf("You are following %s!", username))
	}
}

// Unfollow handles POST /unfollow/{username}
// @Summary Unfollow a user
// @Tags users
// @Param username path string true "Username"
// @Success 303 "Redirect to the profile, or /home for an unknown user"
// @Router /unfollow/{username} [post]
func (h *UserHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	_, err := h.userService.Unfollow(r.Context(), middleware.GetIdentity(r.Context()), username)
	switch {
	case errors.Is(err, models.ErrNotFound):
		h.redirect(w, r, "/home", fmt.Sprintf("User %s not found.", username))
	case errors.Is(err, models.ErrSelfFollow):
		h.redirect(w, r, profilePath(username), "You cannot unfollow yourself!")
	case err != nil:
		h.handleServiceError(w, r, err, "unfollow user")
	default:
		h.redirect(w, r, profilePath(username), fmt.Sprintf("You are not following %s.", username))
	}
}

func profilePath(username string) string {
	return "/user/" + url.PathEscape(username)
}
