package ui

import (
	"html/template"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/jw6ventures/henboard/internal/auth"
	"github.com/jw6ventures/henboard/internal/config"
	"github.com/jw6ventures/henboard/internal/hen"
)

// Handler serves server-rendered HTML pages and the calendar JSON API.
type Handler struct {
	cfg         *config.Config
	source      hen.ExperimentSource
	authService *auth.Service
	calendars   *Registry
	panels      []Panel
	templates   map[string]*template.Template
}

func NewHandler(cfg *config.Config, source hen.ExperimentSource, authService *auth.Service, calendars *Registry) *Handler {
	h := &Handler{
		cfg:         cfg,
		source:      source,
		authService: authService,
		calendars:   calendars,
		templates:   templates,
	}
	h.panels = h.defaultPanels()
	return h
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	panels := visiblePanels(h.panels, user, "")
	if len(panels) == 1 {
		http.Redirect(w, r, panels[0].Path, http.StatusFound)
		return
	}
	data := h.withFlash(r, map[string]any{
		"Title":  "Dashboard",
		"User":   user,
		"Panels": panels,
	})
	h.render(w, r, "dashboard.html", data)
}

func (h *Handler) About(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	version := "(devel)"
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		version = info.Main.Version
	}
	data := h.withFlash(r, map[string]any{
		"Title":     "About",
		"User":      user,
		"Panels":    visiblePanels(h.panels, user, "about"),
		"Version":   version,
		"GoVersion": runtime.Version(),
		"Backend":   h.cfg.HEN.BaseURL,
		"Columns":   h.cfg.Calendar.Columns,
	})
	h.render(w, r, "about.html", data)
}
