package errors

import (
	"bytes"
	"context"
	stderrors "errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func requestWithID(id string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/experiments/calendar", nil)
	if id == "" {
		return req
	}
	return req.WithContext(context.WithValue(req.Context(), middleware.RequestIDKey, id))
}

func TestResponses(t *testing.T) {
	tests := []struct {
		name     string
		write    func(http.ResponseWriter, *http.Request)
		wantCode int
		wantBody string
		wantLog  string
	}{
		{
			name:     "internal",
			write:    func(w http.ResponseWriter, r *http.Request) { InternalError(w, r, stderrors.New("boom"), "render failed") },
			wantCode: http.StatusInternalServerError,
			wantBody: "internal server error",
			wantLog:  "[ERROR] RequestID=req-1: render failed: boom",
		},
		{
			name:     "backend",
			write:    func(w http.ResponseWriter, r *http.Request) { BackendError(w, r, stderrors.New("timeout"), "list experiments") },
			wantCode: http.StatusBadGateway,
			wantBody: "experiment backend unavailable",
			wantLog:  "backend list experiments failed: timeout",
		},
		{
			name:     "bad request",
			write:    func(w http.ResponseWriter, r *http.Request) { BadRequestError(w, r, stderrors.New("step 3"), "step must be 1, 7 or 30") },
			wantCode: http.StatusBadRequest,
			wantBody: "step must be 1, 7 or 30",
			wantLog:  "[WARN] RequestID=req-1: bad request: step 3",
		},
		{
			name:     "not found",
			write:    func(w http.ResponseWriter, r *http.Request) { NotFound(w, r, "cell") },
			wantCode: http.StatusNotFound,
			wantBody: "cell not found",
			wantLog:  "[INFO] RequestID=req-1: cell not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLog(t)
			rec := httptest.NewRecorder()
			tt.write(rec, requestWithID("req-1"))
			if rec.Code != tt.wantCode || !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Errorf("response = %d %q", rec.Code, rec.Body.String())
			}
			if !strings.Contains(logs.String(), tt.wantLog) {
				t.Errorf("log = %q, want %q", logs.String(), tt.wantLog)
			}
		})
	}
}

func TestLogWithoutRequestID(t *testing.T) {
	logs := captureLog(t)
	LogInfo(requestWithID(""), "refreshed")
	if got := strings.TrimSpace(logs.String()); got != "[INFO] refreshed" {
		t.Errorf("log = %q", got)
	}
}
