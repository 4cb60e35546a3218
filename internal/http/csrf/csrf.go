package csrf

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/jw6ventures/henboard/internal/config"
)

type contextKey struct{}

const (
	cookieName = "henboard_csrf"
	headerName = "X-CSRF-Token"
	formField  = "_csrf"
)

// Middleware keeps a double-submit token cookie and checks it on POST/PUT/PATCH/DELETE.
// Requests carrying an Origin header must also come from the configured base URL.
func Middleware(cfg *config.Config) func(http.Handler) http.Handler {
	var origin string
	secure := true
	if base, err := url.Parse(cfg.BaseURL); err == nil {
		origin = base.Scheme + "://" + base.Host
		secure = base.Scheme == "https"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := currentToken(r)
			if token == "" {
				fresh, err := newToken()
				if err != nil {
					http.Error(w, "failed to issue csrf token", http.StatusInternalServerError)
					return
				}
				token = fresh
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteStrictMode,
				})
			}

			if mutating(r.Method) {
				if o := r.Header.Get("Origin"); o != "" && origin != "" && o != origin {
					http.Error(w, "cross-origin request rejected", http.StatusForbidden)
					return
				}
				provided := r.Header.Get(headerName)
				if provided == "" {
					provided = r.PostFormValue(formField)
				}
				if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
					http.Error(w, "invalid csrf token", http.StatusForbidden)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, token)))
		})
	}
}

// TokenFromContext returns the token to embed in forms.
func TokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(contextKey{}).(string)
	return v
}

func currentToken(r *http.Request) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
