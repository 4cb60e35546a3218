package csrf

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jw6ventures/henboard/internal/config"
)

func handler() http.Handler {
	cfg := &config.Config{BaseURL: "http://localhost:8080"}
	return Middleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(TokenFromContext(r.Context())))
	}))
}

func TestIssuesTokenOnGet(t *testing.T) {
	rec := httptest.NewRecorder()
	handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != cookieName {
		t.Fatalf("cookies = %v", cookies)
	}
	if rec.Body.String() != cookies[0].Value {
		t.Error("context token does not match cookie")
	}
}

func TestValidatesMutatingRequests(t *testing.T) {
	const token = "tok123"
	tests := []struct {
		name     string
		form     string
		header   string
		origin   string
		wantCode int
	}{
		{name: "missing", wantCode: http.StatusForbidden},
		{name: "wrong form", form: "wrong", wantCode: http.StatusForbidden},
		{name: "form field", form: token, wantCode: http.StatusOK},
		{name: "header", header: token, wantCode: http.StatusOK},
		{name: "foreign origin", header: token, origin: "http://evil.example", wantCode: http.StatusForbidden},
		{name: "same origin", header: token, origin: "http://localhost:8080", wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			if tt.form != "" {
				form.Set(formField, tt.form)
			}
			req := httptest.NewRequest(http.MethodPost, "/experiments/calendar/shift", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.AddCookie(&http.Cookie{Name: cookieName, Value: token})
			if tt.header != "" {
				req.Header.Set(headerName, tt.header)
			}
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			handler().ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}
