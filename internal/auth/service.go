package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/jw6ventures/henboard/internal/config"
	"github.com/jw6ventures/henboard/internal/hen"
)

const stateCookieName = "henboard_oauth_state"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOAuthDisabled      = errors.New("single sign-on is not configured")
)

// Service encapsulates the HEN password login, optional OIDC login, and API Basic Auth.
type Service struct {
	cfg      *config.Config
	logins   hen.LoginChecker
	sessions *SessionManager

	oauth       *oauth2.Config
	verifier    *oidc.IDTokenVerifier
	groupsClaim string
}

// NewService wires authentication. OIDC discovery runs only when the client is configured.
func NewService(ctx context.Context, cfg *config.Config, logins hen.LoginChecker, sessions *SessionManager) (*Service, error) {
	s := &Service{cfg: cfg, logins: logins, sessions: sessions, groupsClaim: cfg.OAuth.GroupsClaim}
	if !cfg.OIDCEnabled() {
		return s, nil
	}

	provider, err := oidc.NewProvider(ctx, cfg.OAuth.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("discover oidc issuer: %w", err)
	}
	s.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.OAuth.ClientID})
	s.oauth = &oauth2.Config{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  strings.TrimRight(cfg.BaseURL, "/") + cfg.OAuth.RedirectPath,
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	return s, nil
}

// Sessions exposes the cookie session manager.
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// OAuthEnabled reports whether the SSO button should be offered.
func (s *Service) OAuthEnabled() bool {
	return s.oauth != nil
}

// Login checks a username and password against the HEN backend.
func (s *Service) Login(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	account, err := s.logins.CheckLogin(ctx, username, password)
	if err != nil {
		if errors.Is(err, hen.ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return &User{Username: account.Username, Email: account.Email, Groups: account.Groups}, nil
}

// StartSession issues the session cookie for user.
func (s *Service) StartSession(w http.ResponseWriter, user *User) (string, error) {
	return s.sessions.Issue(w, user)
}

// ClearSession logs the browser out.
func (s *Service) ClearSession(w http.ResponseWriter) {
	s.sessions.Clear(w)
}

// BeginOAuth redirects to the identity provider with a state nonce.
func (s *Service) BeginOAuth(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		http.Error(w, ErrOAuthDisabled.Error(), http.StatusNotFound)
		return
	}
	state, err := randomToken(24)
	if err != nil {
		http.Error(w, "failed to start login", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   s.sessions.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusFound)
}

// HandleOAuthCallback validates the state, exchanges the code, and starts a session.
func (s *Service) HandleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if s.oauth == nil {
		http.Error(w, ErrOAuthDisabled.Error(), http.StatusNotFound)
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		http.Error(w, "invalid login state", http.StatusBadRequest)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: "/", MaxAge: -1})

	if e := r.URL.Query().Get("error"); e != "" {
		http.Error(w, "login was rejected: "+e, http.StatusUnauthorized)
		return
	}

	ctx := r.Context()
	token, err := s.oauth.Exchange(ctx, r.URL.Query().Get("code"))
	if err != nil {
		log.Printf("oauth exchange failed: %v", err)
		http.Error(w, "login failed", http.StatusUnauthorized)
		return
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "login failed: no id token", http.StatusUnauthorized)
		return
	}
	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		log.Printf("oidc token verification failed: %v", err)
		http.Error(w, "login failed", http.StatusUnauthorized)
		return
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		http.Error(w, "login failed", http.StatusUnauthorized)
		return
	}
	user := userFromClaims(claims, idToken.Subject, s.groupsClaim)

	if _, err := s.sessions.Issue(w, user); err != nil {
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func userFromClaims(claims map[string]any, subject, groupsClaim string) *User {
	user := &User{}
	user.Email, _ = claims["email"].(string)
	user.Username, _ = claims["preferred_username"].(string)
	if user.Username == "" && user.Email != "" {
		user.Username, _, _ = strings.Cut(user.Email, "@")
	}
	if user.Username == "" {
		user.Username = subject
	}
	if raw, ok := claims[groupsClaim].([]any); ok {
		for _, g := range raw {
			if name, ok := g.(string); ok && name != "" {
				user.Groups = append(user.Groups, name)
			}
		}
	}
	return user
}

// RequireSession loads the session cookie or sends the browser to the login page.
func (s *Service) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, sid, ok := s.sessions.Current(r)
		if !ok {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
				return
			}
			http.Error(w, "session expired", http.StatusUnauthorized)
			return
		}
		ctx := WithSessionID(WithUser(r.Context(), user), sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAPIAuth enforces Basic Auth against the configured API users.
func (s *Service) RequireAPIAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", "Basic realm=\"henboard API\"")
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		if err := s.ValidateAPIUser(username, password); err != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		ctx := WithUser(r.Context(), &User{Username: username})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ValidateAPIUser checks Basic Auth credentials against their bcrypt hash.
func (s *Service) ValidateAPIUser(username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}
	hash, ok := s.cfg.APIUsers[username]
	if !ok {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
