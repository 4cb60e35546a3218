package ui

import (
	"errors"
	"net/http"

	"github.com/jw6ventures/henboard/internal/auth"
	httperrors "github.com/jw6ventures/henboard/internal/http/errors"
)

// LoginForm shows the username/password form, or sends signed-in users home.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := h.authService.Sessions().Current(r); ok {
		http.Redirect(w, r, safeNext(r.URL.Query().Get("next")), http.StatusFound)
		return
	}
	h.renderLogin(w, r, http.StatusOK, "", "")
}

// Login checks the credentials against the HEN login service and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	next := safeNext(r.PostFormValue("next"))

	user, err := h.authService.Login(r.Context(), username, r.PostFormValue("password"))
	if errors.Is(err, auth.ErrInvalidCredentials) {
		httperrors.LogInfo(r, "rejected login for "+username)
		h.renderLogin(w, r, http.StatusUnauthorized, username, "Invalid username or password")
		return
	}
	if err != nil {
		httperrors.BackendError(w, r, err, "login check")
		return
	}

	if _, err := h.authService.StartSession(w, user); err != nil {
		httperrors.InternalError(w, r, err, "failed to start session")
		return
	}
	http.Redirect(w, r, next, http.StatusFound)
}

// Logout drops the session calendar and clears the cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if sid := auth.SessionIDFromContext(r.Context()); sid != "" {
		h.calendars.Remove(sid)
	}
	h.authService.ClearSession(w)
	h.redirect(w, r, "/login", map[string]string{"status": "logged_out"})
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, username, message string) {
	data := h.withFlash(r, map[string]any{
		"Title":        "Sign in",
		"Username":     username,
		"Next":         r.FormValue("next"),
		"OAuthEnabled": h.authService.OAuthEnabled(),
	})
	if message != "" {
		data["FlashError"] = message
	}
	h.renderStatus(w, r, status, "login.html", data)
}
