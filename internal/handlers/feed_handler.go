package handlers

import (
	"context"
	"net/http"

	"github.com/booklog/backend/internal/middleware"
	"github.com/booklog/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// PostService is the interface that wraps methods for posting and feed business logic.
type PostService interface {
	// Method Create validates the post form and publishes a post written by "viewer".
	//
	// A body that is empty or longer than models.MaxPostLength characters is returned as validation.Errors.
	Create(ctx context.Context, viewer *models.Identity, req *models.PostRequest) (*models.Post, error)
	// Method Feed returns page "page" of posts by "viewer" and the users they follow, plus all borrows.
	Feed(ctx context.Context, viewer *models.Identity, page int) (*models.HomeResponse, error)
	// Method Explore returns page "page" of posts by every user, plus all borrows.
	Explore(ctx context.Context, page int) (*models.HomeResponse, error)
	// Method GetForEdit returns post "postID" if "viewer" is its author or an admin.
	//
	// Errors: models.ErrNotFound for a missing post, models.ErrForbidden for anyone else.
	GetForEdit(ctx context.Context, viewer *models.Identity, postID int) (*models.Post, error)
	// Method Update replaces the body of post "postID".
	//
	// Please reference GetForEdit and Create methods for more information about error values.
	Update(ctx context.Context, viewer *models.Identity, postID int, req *models.PostRequest) error
	// Method Delete removes post "postID".
	//
	// Please reference GetForEdit method for more information about error values.
	Delete(ctx context.Context, viewer *models.Identity, postID int) error
}

// contentLink is one entry of the contents page
type contentLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// FeedHandler handles the home feed, explore page and post editing
type FeedHandler struct {
	BaseHandler
	postService PostService
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(postService PostService, secureCookie bool, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{
		BaseHandler: BaseHandler{logger: logger, secureCookie: secureCookie},
		postService: postService,
	}
}

// RegisterRoutes registers all feed handler routes. The router must require a signed-in user.
func (h *FeedHandler) RegisterRoutes(r chi.Router) {
	for _, path := range []string{"/", "/home"} {
		r.Get(path, h.Home)
		r.Post(path, h.CreatePost)
	}
	r.Get("/explore", h.Explore)
	r.Get("/contents", h.Contents)
	r.Get("/penalties", h.Penalties)
	r.Get("/posts/{id}", h.EditPostForm)
	r.Post("/posts/{id}", h.EditPost)
	r.Get("/delete_posts/{id}", h.DeletePost)
	r.Post("/delete_posts/{id}", h.DeletePost)
}

// Home handles GET /home
// @Summary Personal feed
// @Description Posts by the signed-in user and everyone they follow, most recent first, plus all borrow requests
// @Tags posts
// @Produce json
// @Param page query int false "Page number, default 1"
// @Success 200 {object} viewResponse{data=models.HomeResponse}
// @Success 303 "Not signed in, redirect to /login"
// @Failure 500 {object} map[string]string
// @Router /home [get]
func (h *FeedHandler) Home(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetIdentity(r.Context())

	home, err := h.postService.Feed(r.Context(), viewer, pageParam(r))
	if h.handleServiceError(w, r, err, "load feed") {
		return
	}

	home.NextURL, home.PrevURL = pageURLs("/home", home.Posts)
	h.respondView(w, r, home)
}

// CreatePost handles POST /home
// @Summary Publish a post
// @Tags posts
// @Accept x-www-form-urlencoded
// @Produce json
// @Param post formData string true "Post body, 1 to 140 characters"
// @Success 303 "Redirect to /home"
// @Failure 400 {object} validationResponse
// @Router /home [post]
func (h *FeedHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	viewer := middleware.GetIdentity(r.Context())
	_, err := h.postService.Create(r.Context(), viewer, &models.PostRequest{Body: r.PostFormValue("post")})
	if h.handleServiceError(w, r, err, "create post") {
		return
	}

	h.redirect(w, r, "/home", "Your post is now live!")
}

// Explore handles GET /explore
// @Summary All posts
// @Tags posts
// @Produce json
// @Param page query int false "Page number, default 1"
// @Success 200 {object} viewResponse{data=models.HomeResponse}
// @Router /explore [get]
func (h *FeedHandler) Explore(w http.ResponseWriter, r *http.Request) {
	explore, err := h.postService.Explore(r.Context(), pageParam(r))
	if h.handleServiceError(w, r, err, "load posts") {
		return
	}

	explore.NextURL, explore.PrevURL = pageURLs("/explore", explore.Posts)
	h.respondView(w, r, explore)
}

// Contents handles GET /contents
// @Summary Feature links
// @Tags posts
// @Produce json
// @Success 200 {object} viewResponse
// @Router /contents [get]
func (h *FeedHandler) Contents(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetIdentity(r.Context())

	links := []contentLink{
		{Title: "Home", URL: "/home"},
		{Title: "Explore", URL: "/explore"},
		{Title: "Book List", URL: "/booklist"},
		{Title: "Borrow a Book", URL: "/borrow"},
		{Title: "Profile", URL: "/user/" + viewer.Username},
		{Title: "Edit Profile", URL: "/edit_profile"},
		{Title: "Penalties", URL: "/penalties"},
	}
	if viewer.IsAdmin {
		links = append(links,
			contentLink{Title: "Admin", URL: "/admin"},
			contentLink{Title: "Register Book", URL: "/registerbook"},
			contentLink{Title: "Add User", URL: "/add_user"},
		)
	}
	links = append(links, contentLink{Title: "Logout", URL: "/logout"})

	h.respondView(w, r, map[string]any{"title": "Contents", "links": links})
}

// Penalties handles GET /penalties
// @Summary Penalties page
// @Description Placeholder page. Penalties are not tracked yet, so the list is always empty.
// @Tags posts
// @Produce json
// @Success 200 {object} viewResponse
// @Success 303 "Not signed in, redirect to /login"
// @Router /penalties [get]
func (h *FeedHandler) Penalties(w http.ResponseWriter, r *http.Request) {
	h.respondView(w, r, map[string]any{"title": "Penalties", "penalties": []string{}})
}

// EditPostForm handles GET /posts/{id}
// @Summary Post edit form
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} viewResponse
// @Success 303 "Not the author, redirect to /home"
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /posts/{id} [get]
func (h *FeedHandler) EditPostForm(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	post, err := h.postService.GetForEdit(r.Context(), middleware.GetIdentity(r.Context()), postID)
	if h.handleServiceError(w, r, err, "load post") {
		return
	}

	h.respondView(w, r, formView{Title: "Edit Post", Form: models.PostRequest{Body: post.Body}})
}

// EditPost handles POST /posts/{id}
// @Summary Edit a post
// @Tags posts
// @Accept x-www-form-urlencoded
// @Produce json
// @Param id path int true "Post ID"
// @Param post formData string true "New body, 1 to 140 characters"
// @Success 303 "Redirect to /home"
// @Failure 400 {object} validationResponse
// @Failure 404 {object} map[string]string
// @Router /posts/{id} [post]
func (h *FeedHandler) EditPost(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathID(w, r, "id")
	if !ok || !h.parseForm(w, r) {
		return
	}

	err := h.postService.Update(r.Context(), middleware.GetIdentity(r.Context()), postID, &models.PostRequest{Body: r.PostFormValue("post")})
	if h.handleServiceError(w, r, err, "update post") {
		return
	}

	h.redirect(w, r, "/home", msgChangesSaved)
}

// DeletePost handles GET and POST /delete_posts/{id}
// @Summary Delete a post
// @Tags posts
// @Param id path int true "Post ID"
// @Success 303 "Redirect to /home"
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /delete_posts/{id} [post]
func (h *FeedHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	postID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	err := h.postService.Delete(r.Context(), middleware.GetIdentity(r.Context()), postID)
	if h.handleServiceError(w, r, err, "delete post") {
		return
	}

	h.redirect(w, r, "/home", "The post has been deleted!")
}
