package ui

import (
	"net/http"

	"github.com/jw6ventures/henboard/internal/auth"
	httperrors "github.com/jw6ventures/henboard/internal/http/errors"
)

// Panel is one tab of the dashboard.
type Panel interface {
	Name() string
	Title() string
	Path() string
	// AllowedGroups restricts the tab; an empty list shows it to everyone.
	AllowedGroups() []string
	// Render writes the tab's page.
	Render(w http.ResponseWriter, r *http.Request)
}

type staticPanel struct {
	name, title, path string
	groups            []string
	render            http.HandlerFunc
}

func (p staticPanel) Name() string            { return p.name }
func (p staticPanel) Title() string           { return p.title }
func (p staticPanel) Path() string            { return p.path }
func (p staticPanel) AllowedGroups() []string { return p.groups }

func (p staticPanel) Render(w http.ResponseWriter, r *http.Request) {
	if p.render == nil {
		http.NotFound(w, r)
		return
	}
	p.render(w, r)
}

// defaultPanels are the tabs offered by the dashboard.
func (h *Handler) defaultPanels() []Panel {
	return []Panel{
		staticPanel{name: "experiments", title: "Experiments", path: "/experiments/calendar", render: h.ViewCalendar},
		staticPanel{name: "about", title: "About", path: "/about", render: h.About},
	}
}

// ShowPanel serves the named tab. Users outside its groups get a 404, as do
// names no panel carries.
func (h *Handler) ShowPanel(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.UserFromContext(r.Context())
		for _, p := range h.panels {
			if p.Name() != name {
				continue
			}
			if !user.InAnyGroup(p.AllowedGroups()...) {
				break
			}
			p.Render(w, r)
			return
		}
		httperrors.NotFound(w, r, "panel")
	}
}

type panelView struct {
	Name   string
	Title  string
	Path   string
	Active bool
}

// visiblePanels filters panels by the user's groups and marks the active tab.
func visiblePanels(panels []Panel, user *auth.User, active string) []panelView {
	var out []panelView
	for _, p := range panels {
		if !user.InAnyGroup(p.AllowedGroups()...) {
			continue
		}
		out = append(out, panelView{Name: p.Name(), Title: p.Title(), Path: p.Path(), Active: p.Name() == active})
	}
	return out
}
