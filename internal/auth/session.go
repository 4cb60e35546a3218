package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/securecookie"

	"github.com/jw6ventures/henboard/internal/config"
)

const sessionTTL = 24 * time.Hour

// SessionManager manages web UI sessions stored in an encrypted cookie.
type SessionManager struct {
	cookieName string
	codec      *securecookie.SecureCookie
	secure     bool
	now        func() time.Time
}

type sessionValue struct {
	ID       string   `json:"sid"`
	Username string   `json:"u"`
	Email    string   `json:"e,omitempty"`
	Groups   []string `json:"g,omitempty"`
	Expires  int64    `json:"exp"`
}

func NewSessionManager(cfg *config.Config) *SessionManager {
	hash := sha256.Sum256([]byte(cfg.Session.Secret))
	hashKey := hash[:]

	// Derive an AES-256 sized block key to avoid invalid key length errors.
	blockKey := hash[:]
	sc := securecookie.New(hashKey, blockKey)
	sc.MaxAge(int(sessionTTL.Seconds()))
	sc.SetSerializer(securecookie.JSONEncoder{})

	return &SessionManager{
		cookieName: "henboard_session",
		codec:      sc,
		secure:     isSecure(cfg.BaseURL),
		now:        time.Now,
	}
}

func isSecure(baseURL string) bool {
	if base, err := url.Parse(baseURL); err == nil && base.Scheme != "https" {
		return false
	}
	return true
}

// Issue starts a new session for the user and returns its id.
func (m *SessionManager) Issue(w http.ResponseWriter, user *User) (string, error) {
	sid, err := randomToken(18)
	if err != nil {
		return "", err
	}
	expires := m.now().Add(sessionTTL)
	value := sessionValue{
		ID:       sid,
		Username: user.Username,
		Email:    user.Email,
		Groups:   user.Groups,
		Expires:  expires.Unix(),
	}

	encoded, err := m.codec.Encode(m.cookieName, value)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    encoded,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return sid, nil
}

// Clear removes the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
	})
}

// Current decodes the session cookie, returning the user and session id.
func (m *SessionManager) Current(r *http.Request) (*User, string, bool) {
	c, err := r.Cookie(m.cookieName)
	if err != nil {
		return nil, "", false
	}

	var value sessionValue
	if err := m.codec.Decode(m.cookieName, c.Value, &value); err != nil {
		return nil, "", false
	}
	if value.Username == "" || value.ID == "" || time.Unix(value.Expires, 0).Before(m.now()) {
		return nil, "", false
	}

	return &User{Username: value.Username, Email: value.Email, Groups: value.Groups}, value.ID, true
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
