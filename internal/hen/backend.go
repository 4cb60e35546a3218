// Package hen talks to the HEN testbed CGI backend.
package hen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jw6ventures/henboard/internal/calendar"
)

var (
	// ErrInvalidCredentials is returned when the login check rejects a user.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMalformedResponse is returned when the backend answers with unusable XML.
	ErrMalformedResponse = errors.New("malformed backend response")
)

// Default CGI paths, relative to the backend base URL.
const (
	DefaultCalendarPath = "/cgi-bin/gui/components/experiment/calendarcgi.py"
	DefaultLoginPath    = "/cgi-bin/gui/auxiliary/ldaplogincheckcgi.py"
)

// Account is a user confirmed by the backend login check.
type Account struct {
	Username string
	Email    string
	Groups   []string
}

// ExperimentSource lists the reservations visible to a user.
type ExperimentSource interface {
	ListExperiments(ctx context.Context, username string) ([]calendar.Reservation, error)
}

// LoginChecker verifies a username and password.
type LoginChecker interface {
	CheckLogin(ctx context.Context, username, password string) (*Account, error)
}

// Options configures a Backend.
type Options struct {
	BaseURL      string
	CalendarPath string
	LoginPath    string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Backend aggregates the CGI endpoints used by the dashboard.
type Backend struct {
	client  *http.Client
	baseURL *url.URL

	Experiments ExperimentSource
	Logins      LoginChecker
}

// New wires the concrete endpoint clients against one base URL.
func New(opts Options) (*Backend, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q must be http or https", opts.BaseURL)
	}

	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	calendarPath := opts.CalendarPath
	if calendarPath == "" {
		calendarPath = DefaultCalendarPath
	}
	loginPath := opts.LoginPath
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}

	validate := validator.New()
	return &Backend{
		client:      client,
		baseURL:     base,
		Experiments: &experimentClient{client: client, endpoint: endpoint(base, calendarPath), validate: validate},
		Logins:      &loginClient{client: client, endpoint: endpoint(base, loginPath)},
	}, nil
}

// HealthCheck verifies that the backend web server answers.
func (b *Backend) HealthCheck(ctx context.Context) error {
	defer observeBackend(ctx, "hen.healthcheck")()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, b.baseURL.String()+"/", nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("backend unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func endpoint(base *url.URL, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base.String() + path
}
