package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/booklog/backend/internal/middleware"
	"github.com/booklog/backend/internal/models"
	"github.com/booklog/backend/internal/session"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AuthService is the interface that wraps methods for registration and sign-in business logic.
type AuthService interface {
	// Method Register validates the registration form, checks username and email uniqueness and creates a regular user.
	//
	// Field problems are returned as validation.Errors; other errors mean the user could not be stored.
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	// Method Login checks username and password and returns the matching user.
	//
	// Unknown usernames and wrong passwords both return models.ErrInvalidCredentials.
	Login(ctx context.Context, req *models.LoginRequest) (*models.User, error)
}

// SessionManager is the interface that wraps session cookie issuing and revocation.
type SessionManager interface {
	// Method Issue creates a signed session token for "userID" and returns it with its expiry time.
	Issue(userID int, remember bool) (string, time.Time, error)
	// Method SetCookie writes the session cookie; without "remember" it is a browser-session cookie.
	SetCookie(w http.ResponseWriter, token string, expiresAt time.Time, remember bool)
	// Method Revoke ends the session described by "claims" until the token would have expired.
	Revoke(ctx context.Context, claims *session.Claims) error
	// Method ClearCookie removes the session cookie from the browser.
	ClearCookie(w http.ResponseWriter)
}

// formView is the data behind a page that only shows a form
type formView struct {
	Title string `json:"title"`
	Form  any    `json:"form,omitempty"`
	Next  string `json:"next,omitempty"`
}

// AuthHandler handles sign-in, sign-out and registration
type AuthHandler struct {
	BaseHandler
	authService AuthService
	sessions    SessionManager
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService AuthService, sessions SessionManager, secureCookie bool, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: BaseHandler{logger: logger, secureCookie: secureCookie},
		authService: authService,
		sessions:    sessions,
	}
}

// RegisterRoutes registers all auth handler routes.
// "loginLimiter" is applied to login submissions only.
func (h *AuthHandler) RegisterRoutes(r chi.Router, loginLimiter func(http.Handler) http.Handler) {
	if loginLimiter == nil {
		loginLimiter = func(next http.Handler) http.Handler { return next }
	}
	r.Get("/login", h.LoginForm)
	r.With(loginLimiter).Post("/login", h.Login)
	r.Get("/logout", h.Logout)
	r.Get("/register", h.RegisterForm)
	r.Post("/register", h.Register)
}

// LoginForm handles GET /login
// @Summary Sign-in page
// @Tags auth
// @Produce json
// @Param next query string false "Relative path to return to after signing in"
// @Success 200 {object} viewResponse
// @Success 303 "Already signed in, redirect to /home"
// @Router /login [get]
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetIdentity(r.Context()) != nil {
		h.redirect(w, r, "/home", "")
		return
	}
	h.respondView(w, r, formView{Title: "Sign In", Next: r.URL.Query().Get("next")})
}

// Login handles POST /login
// @Summary Sign in
// @Description Starts a session. With remember_me the session cookie outlives the browser session.
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param password formData string true "Password"
// @Param remember_me formData bool false "Keep the session after the browser closes"
// @Param next query string false "Relative path to return to"
// @Success 303 "Redirect to next or /home; failed sign-in redirects to /login"
// @Failure 400 {object} validationResponse
// @Failure 429 "Too many sign-in attempts"
// @Router /login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if middleware.GetIdentity(r.Context()) != nil {
		h.redirect(w, r, "/home", "")
		return
	}
	if !h.parseForm(w, r) {
		return
	}

	remember, _ := strconv.ParseBool(r.PostFormValue("remember_me"))
	req := &models.LoginRequest{
		Username:   r.PostFormValue("username"),
		Password:   r.PostFormValue("password"),
		RememberMe: remember,
	}

	user, err := h.authService.Login(r.Context(), req)
	if errors.Is(err, models.ErrInvalidCredentials) {
		h.redirect(w, r, "/login", "Invalid username or password")
		return
	}
	if h.handleServiceError(w, r, err, "sign in") {
		return
	}

	token, expiresAt, err := h.sessions.Issue(user.ID, req.RememberMe)
	if err != nil {
		h.logger.Error("failed to issue session", zap.Error(err), zap.Int("userID", user.ID))
		h.respondError(w, http.StatusInternalServerError, "failed to sign in")
		return
	}
	h.sessions.SetCookie(w, token, expiresAt, req.RememberMe)

	next := r.URL.Query().Get("next")
	if next == "" {
		next = r.PostFormValue("next")
	}
	h.redirect(w, r, safeRedirectTarget(next), "")
}

// Logout handles GET /logout
// @Summary Sign out
// @Tags auth
// @Success 303 "Redirect to /home"
// @Router /logout [get]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if claims := middleware.GetSessionClaims(r.Context()); claims != nil {
		if err := h.sessions.Revoke(r.Context(), claims); err != nil {
			h.logger.Error("failed to revoke session", zap.Error(err), zap.Int("userID", claims.UserID))
		}
	}
	h.sessions.ClearCookie(w)
	h.redirect(w, r, "/home", "")
}

// RegisterForm handles GET /register
// @Summary Registration page
// @Tags auth
// @Produce json
// @Success 200 {object} viewResponse
// @Router /register [get]
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetIdentity(r.Context()) != nil {
		h.redirect(w, r, "/home", "")
		return
	}
	h.respondView(w, r, formView{Title: "Register"})
}

// Register handles POST /register
// @Summary Register a new user
// @Tags auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param username formData string true "Username"
// @Param email formData string true "Email"
// @Param password formData string true "Password"
// @Param password2 formData string true "Repeat password"
// @Success 303 "Redirect to /login"
// @Failure 400 {object} validationResponse
// @Failure 500 {object} map[string]string
// @Router /register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if middleware.GetIdentity(r.Context()) != nil {
		h.redirect(w, r, "/home", "")
		return
	}
	if !h.parseForm(w, r) {
		return
	}

	_, err := h.authService.Register(r.Context(), registerRequestFromForm(r))
	if h.handleServiceError(w, r, err, "register user") {
		return
	}

	h.redirect(w, r, "/login", "Congratulations, you are now a registered user!")
}

func registerRequestFromForm(r *http.Request) *models.RegisterRequest {
	return &models.RegisterRequest{
		Username:  r.PostFormValue("username"),
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
		Password2: r.PostFormValue("password2"),
	}
}
