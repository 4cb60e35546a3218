// Package errors writes HTTP error responses and logs them with the request id.
package errors

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

func logf(r *http.Request, level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if requestID := middleware.GetReqID(r.Context()); requestID != "" {
		log.Printf("[%s] RequestID=%s: %s", level, requestID, msg)
		return
	}
	log.Printf("[%s] %s", level, msg)
}

// InternalError logs err and sends a generic 500.
func InternalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	logf(r, "ERROR", "%s: %v", message, err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// BackendError reports that the HEN backend could not answer.
func BackendError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	logf(r, "ERROR", "backend %s failed: %v", operation, err)
	http.Error(w, "experiment backend unavailable", http.StatusBadGateway)
}

// BadRequestError logs err and returns clientMessage with a 400.
func BadRequestError(w http.ResponseWriter, r *http.Request, err error, clientMessage string) {
	logf(r, "WARN", "bad request: %v", err)
	http.Error(w, clientMessage, http.StatusBadRequest)
}

func NotFound(w http.ResponseWriter, r *http.Request, what string) {
	logf(r, "INFO", "%s not found: %s", what, r.URL.Path)
	http.Error(w, what+" not found", http.StatusNotFound)
}

func LogError(r *http.Request, message string, err error) {
	logf(r, "ERROR", "%s: %v", message, err)
}

func LogInfo(r *http.Request, message string) {
	logf(r, "INFO", "%s", message)
}
