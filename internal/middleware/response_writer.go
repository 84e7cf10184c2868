package middleware

import (
	"net/http"

	"github.com/booklog/backend/internal/models"
)

// responseWriter wraps http.ResponseWriter to capture the status code and the resolved identity
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	identity    *models.Identity
}

// wrapResponseWriter reuses w when an outer middleware already wrapped it
func wrapResponseWriter(w http.ResponseWriter) *responseWriter {
	if rw, ok := w.(*responseWriter); ok {
		return rw
	}
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
