package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/jw6ventures/henboard/internal/auth"
	"github.com/jw6ventures/henboard/internal/calendar"
	"github.com/jw6ventures/henboard/internal/config"
	"github.com/jw6ventures/henboard/internal/hen"
	"github.com/jw6ventures/henboard/internal/http/ratelimit"
	"github.com/jw6ventures/henboard/internal/ui"
)

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(ctx context.Context) error { return f.err }

type fakeSource struct{}

func (fakeSource) ListExperiments(ctx context.Context, username string) ([]calendar.Reservation, error) {
	today := calendar.Today()
	return []calendar.Reservation{{ID: "e1", Owner: username, Start: today, End: today, NodeIDs: []string{"n1"}}}, nil
}

type fakeLogins struct{}

func (fakeLogins) CheckLogin(ctx context.Context, username, password string) (*hen.Account, error) {
	if password != "pw" {
		return nil, hen.ErrInvalidCredentials
	}
	return &hen.Account{Username: username}, nil
}

func newTestRouter(t *testing.T, health error, prometheus bool) (http.Handler, *auth.Service) {
	t.Helper()
	cfg := &config.Config{BaseURL: "http://localhost:8080", Calendar: config.DefaultCalendarLayout(), PrometheusEnabled: prometheus}
	cfg.Session.Secret = "0123456789abcdef0123456789abcdef"
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	cfg.APIUsers = map[string]string{"robot": string(hash)}

	svc, err := auth.NewService(context.Background(), cfg, fakeLogins{}, auth.NewSessionManager(cfg))
	if err != nil {
		t.Fatal(err)
	}
	h := NewRouter(cfg, Deps{
		Source:       fakeSource{},
		Health:       fakeHealth{err: health},
		Auth:         svc,
		Calendars:    ui.NewRegistry(time.Minute),
		LoginLimiter: ratelimit.New(rate.Limit(100), 100, time.Minute, nil),
	})
	return h, svc
}

func TestHealthEndpoints(t *testing.T) {
	h, _ := newTestRouter(t, nil, false)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s = %d", path, rec.Code)
		}
	}

	h, _ = newTestRouter(t, errors.New("backend down"), false)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/readyz with failing backend = %d", rec.Code)
	}
}

func TestMetricsEndpointToggle(t *testing.T) {
	h, _ := newTestRouter(t, nil, false)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("/metrics disabled = %d", rec.Code)
	}

	h, _ = newTestRouter(t, nil, true)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "henboard_http_requests_total") {
		t.Errorf("/metrics enabled = %d", rec.Code)
	}
}

func TestCalendarRequiresSession(t *testing.T) {
	h, _ := newTestRouter(t, nil, false)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/experiments/calendar", nil))
	if rec.Code != http.StatusFound || !strings.HasPrefix(rec.Header().Get("Location"), "/login") {
		t.Errorf("anonymous calendar = %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestSessionFlow(t *testing.T) {
	h, svc := newTestRouter(t, nil, false)

	issue := httptest.NewRecorder()
	if _, err := svc.StartSession(issue, &auth.User{Username: "alice"}); err != nil {
		t.Fatal(err)
	}
	cookies := append(issue.Result().Cookies(), &http.Cookie{Name: "henboard_csrf", Value: "tok"})

	get := httptest.NewRequest(http.MethodGet, "/experiments/calendar", nil)
	for _, c := range cookies {
		get.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, get)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "experiment-calendarAllocationCellId0-1") {
		t.Fatalf("calendar page = %d", rec.Code)
	}

	shift := func(token string) int {
		form := url.Values{"direction": {"next"}, "step": {"7"}, "_csrf": {token}}
		req := httptest.NewRequest(http.MethodPost, "/experiments/calendar/shift", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		for _, c := range cookies {
			req.AddCookie(c)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	if code := shift("wrong"); code != http.StatusForbidden {
		t.Errorf("shift with bad csrf = %d", code)
	}
	if code := shift("tok"); code != http.StatusSeeOther {
		t.Errorf("shift = %d", code)
	}
}

func TestAPIRequiresBasicAuth(t *testing.T) {
	h, _ := newTestRouter(t, nil, false)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/calendar", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous api = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/calendar?user=alice&columns=3", nil)
	req.SetBasicAuth("robot", "s3cret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"viewer":"alice"`) {
		t.Errorf("api = %d %s", rec.Code, rec.Body.String())
	}
}

func TestLoginRoute(t *testing.T) {
	h, _ := newTestRouter(t, nil, false)

	form := url.Values{"username": {"alice"}, "password": {"pw"}, "_csrf": {"tok"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "henboard_csrf", Value: "tok"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/" {
		t.Errorf("login = %d %q", rec.Code, rec.Header().Get("Location"))
	}
}
