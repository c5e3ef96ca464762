package httpadapter

import (
	"errors"
	"io"
	"net/http"
)

const templateErrorPrefix = "Template error:\n"

// mapErrorToHTTPStatus keeps a single client-error status for every pipeline
// failure; only an oversized body gets its own status.
func mapErrorToHTTPStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func writeTemplateError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, templateErrorPrefix+detail)
}
