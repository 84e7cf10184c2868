package handlers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/booklog/backend/internal/models"
	"github.com/booklog/backend/internal/validation"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	flashCookieName = "flash"
	maxFormMemory   = 1 << 20

	msgPermissionDenied = "You do not have permission to do that."
	msgChangesSaved     = "Your changes have been saved."
)

// BaseHandler provides common handler functionality
type BaseHandler struct {
	logger       *zap.Logger
	secureCookie bool
}

// viewResponse wraps the data of a page together with the flash messages pending for it
type viewResponse struct {
	Messages []string `json:"messages,omitempty"`
	Data     any      `json:"data"`
}

// validationResponse is the body of a rejected form submission
type validationResponse struct {
	Errors validation.Errors `json:"errors"`
}

// respondJSON sends a JSON response
func (h *BaseHandler) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// respondError sends an error JSON response
func (h *BaseHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

// respondView sends the data behind a page and consumes pending flash messages
func (h *BaseHandler) respondView(w http.ResponseWriter, r *http.Request, data any) {
	h.respondJSON(w, http.StatusOK, viewResponse{
		Messages: h.popFlashes(w, r),
		Data:     data,
	})
}

// redirect finishes a form submission with 303 See Other, optionally leaving a flash message
func (h *BaseHandler) redirect(w http.ResponseWriter, r *http.Request, target, flash string) {
	if flash != "" {
		h.setFlash(w, r, flash)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// deny answers a request the identity is not allowed to make
func (h *BaseHandler) deny(w http.ResponseWriter, r *http.Request) {
	h.redirect(w, r, "/home", msgPermissionDenied)
}

// handleServiceError maps service errors to responses. It reports false when err is nil.
func (h *BaseHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, action string) bool {
	if err == nil {
		return false
	}

	var fieldErrs validation.Errors
	switch {
	case errors.As(err, &fieldErrs):
		h.respondJSON(w, http.StatusBadRequest, validationResponse{Errors: fieldErrs})
	case errors.Is(err, models.ErrForbidden):
		h.logger.Info("permission denied", zap.String("action", action), zap.String("path", r.URL.Path))
		h.deny(w, r)
	case errors.Is(err, models.ErrNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("failed to "+action, zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to "+action)
	}
	return true
}

// parseForm parses urlencoded and multipart bodies alike
func (h *BaseHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.respondError(w, http.StatusBadRequest, "failed to parse form")
		return false
	}
	return true
}

// pathID reads a positive integer path parameter, answering 400 when it is malformed
func (h *BaseHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id < 1 {
		h.respondError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

// pageParam reads the "page" query parameter; anything invalid means the first page
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// pageURLs builds the links to the neighbouring pages of base
func pageURLs(base string, page models.PostPage) (next, prev string) {
	link := func(n int) string {
		return base + "?page=" + strconv.Itoa(n)
	}
	if page.HasNext {
		next = link(page.NextNum())
	}
	if page.HasPrev {
		prev = link(page.PrevNum())
	}
	return next, prev
}

// setFlash queues a message for the next page view
func (h *BaseHandler) setFlash(w http.ResponseWriter, r *http.Request, message string) {
	messages := append(readFlashes(r), message)
	encoded, err := json.Marshal(messages)
	if err != nil {
		h.logger.Error("failed to encode flash messages", zap.Error(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(encoded),
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes returns the queued messages and clears them
func (h *BaseHandler) popFlashes(w http.ResponseWriter, r *http.Request) []string {
	messages := readFlashes(r)
	if len(messages) > 0 {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return messages
}

func readFlashes(r *http.Request) []string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var messages []string
	if err := json.Unmarshal(raw, &messages); err != nil {
		return nil
	}
	return messages
}

// safeRedirectTarget accepts only same-origin relative paths and falls back to /home
func safeRedirectTarget(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/home"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/home"
	}
	return next
}
