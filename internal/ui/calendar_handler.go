package ui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jw6ventures/henboard/internal/auth"
	"github.com/jw6ventures/henboard/internal/calendar"
	httperrors "github.com/jw6ventures/henboard/internal/http/errors"
	"github.com/jw6ventures/henboard/internal/metrics"
	"github.com/jw6ventures/henboard/internal/ui/utils"
)

// maxAPIColumns bounds the JSON API window to roughly a year.
const maxAPIColumns = 367

// invalidator is implemented by caching experiment sources.
type invalidator interface {
	Invalidate(username string)
}

// newCalendar fetches the viewer's reservations and builds a calendar window.
func (h *Handler) newCalendar(ctx context.Context, viewer string, start calendar.Day, columns int) (*calendar.Calendar, error) {
	reservations, err := h.source.ListExperiments(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}

	layout := h.cfg.Calendar
	if columns == 0 {
		columns = layout.Columns
	}
	palette := calendar.Palette{}
	for k, v := range layout.Palette {
		palette[calendar.Category(k)] = v
	}

	return calendar.New(calendar.Options{
		Columns:       columns,
		ColumnWidth:   layout.ColumnWidth,
		RowHeight:     layout.RowHeight,
		Reservations:  reservations,
		IDPrefix:      layout.IDPrefix,
		CellIndexAttr: layout.CellIndexAttr,
		LabelIDAttr:   layout.LabelIDAttr,
		Viewer:        viewer,
		Start:         start,
		Palette:       palette,
		OnDateClick: func(ev calendar.ClickEvent) {
			metrics.RecordClick("cell", ev.Allocated)
		},
		OnLabelClick: func(ev calendar.ClickEvent) {
			metrics.RecordClick("label", false)
		},
	})
}

// sessionCalendar returns the session's calendar, building one on first use.
func (h *Handler) sessionCalendar(r *http.Request) (*calendar.Calendar, int, error) {
	sid := auth.SessionIDFromContext(r.Context())
	if cal, step, ok := h.calendars.Get(sid); ok {
		return cal, step, nil
	}
	user, _ := auth.UserFromContext(r.Context())
	if user == nil {
		return nil, 0, errors.New("no user in request context")
	}
	cal, err := h.newCalendar(r.Context(), user.Username, calendar.Today(), 0)
	if err != nil {
		return nil, 0, err
	}
	step := h.cfg.Calendar.DefaultStep
	h.calendars.Put(sid, cal, step)
	return cal, step, nil
}

// ViewCalendar renders the experiment calendar tab.
func (h *Handler) ViewCalendar(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	cal, step, err := h.sessionCalendar(r)
	if err != nil {
		httperrors.BackendError(w, r, err, "load experiments")
		return
	}

	grid := cal.Grid()
	data := h.withFlash(r, map[string]any{
		"Title":       "Experiments",
		"User":        user,
		"Panels":      visiblePanels(h.panels, user, "experiments"),
		"Grid":        grid,
		"Step":        step,
		"WindowStart": grid.Start,
		"WindowEnd":   grid.End,
	})
	h.render(w, r, "calendar.html", data)
}

// ShiftCalendar moves the session calendar back or forward by the chosen step.
func (h *Handler) ShiftCalendar(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	step, err := parseStep(r.PostFormValue("step"))
	if err != nil {
		httperrors.BadRequestError(w, r, err, "step must be 1, 7 or 30")
		return
	}
	var days int
	switch r.PostFormValue("direction") {
	case "back":
		days = -step
	case "next":
		days = step
	default:
		http.Error(w, "direction must be back or next", http.StatusBadRequest)
		return
	}

	cal, _, err := h.sessionCalendar(r)
	if err != nil {
		httperrors.BackendError(w, r, err, "load experiments")
		return
	}
	cal.ShiftWindow(days)
	h.calendars.SetStep(auth.SessionIDFromContext(r.Context()), step)
	metrics.RecordShift(days)

	http.Redirect(w, r, "/experiments/calendar", http.StatusSeeOther)
}

// RefreshCalendar refetches reservations and rebuilds the grid at the same window start.
func (h *Handler) RefreshCalendar(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	sid := auth.SessionIDFromContext(r.Context())

	start := calendar.Today()
	step := h.cfg.Calendar.DefaultStep
	if cal, s, ok := h.calendars.Get(sid); ok {
		start, step = cal.WindowStart(), s
	}
	if inv, ok := h.source.(invalidator); ok {
		inv.Invalidate(user.Username)
	}

	cal, err := h.newCalendar(r.Context(), user.Username, start, 0)
	if err != nil {
		httperrors.BackendError(w, r, err, "refresh experiments")
		return
	}
	h.calendars.Put(sid, cal, step)
	h.redirect(w, r, "/experiments/calendar", map[string]string{"status": "refreshed"})
}

// CellInfo handles a click on a date cell and lists the reservations covering it.
func (h *Handler) CellInfo(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	addr, err := calendar.ParseCellAddress(chi.URLParam(r, "addr"))
	if err != nil {
		httperrors.BadRequestError(w, r, err, "invalid cell address")
		return
	}
	cal, _, err := h.sessionCalendar(r)
	if err != nil {
		httperrors.BackendError(w, r, err, "load experiments")
		return
	}

	ev, err := cal.ClickCell(addr)
	if errors.Is(err, calendar.ErrCellOutOfRange) {
		httperrors.NotFound(w, r, "cell")
		return
	}
	if err != nil {
		httperrors.InternalError(w, r, err, "cell click failed")
		return
	}
	owners, err := cal.CellOwnerInfo(addr)
	if err != nil {
		httperrors.InternalError(w, r, err, "cell owner lookup failed")
		return
	}

	data := h.withFlash(r, map[string]any{
		"Title":  "Node " + ev.NodeID,
		"User":   user,
		"Panels": visiblePanels(h.panels, user, "experiments"),
		"Event":  ev,
		"Owners": owners,
	})
	h.render(w, r, "cell_info.html", data)
}

// NodeInfo handles a click on a node label.
func (h *Handler) NodeInfo(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	row, err := strconv.Atoi(chi.URLParam(r, "row"))
	if err != nil {
		httperrors.BadRequestError(w, r, err, "invalid row")
		return
	}
	cal, _, err := h.sessionCalendar(r)
	if err != nil {
		httperrors.BackendError(w, r, err, "load experiments")
		return
	}
	ev, err := cal.ClickLabel(row)
	if err != nil {
		httperrors.NotFound(w, r, "node")
		return
	}

	var reservations []calendar.Reservation
	for _, res := range cal.Reservations() {
		if res.Covers(ev.NodeID) {
			reservations = append(reservations, res)
		}
	}

	data := h.withFlash(r, map[string]any{
		"Title":        "Node " + ev.NodeID,
		"User":         user,
		"Panels":       visiblePanels(h.panels, user, "experiments"),
		"Event":        ev,
		"Reservations": reservations,
	})
	h.render(w, r, "node_info.html", data)
}

type apiLegendEntry struct {
	Category string `json:"category"`
	Color    string `json:"color"`
}

type apiCell struct {
	Date      string `json:"date"`
	Category  string `json:"category"`
	Color     string `json:"color"`
	Allocated bool   `json:"allocated"`
}

type apiRow struct {
	Node  string    `json:"node"`
	Cells []apiCell `json:"cells"`
}

type apiCalendar struct {
	Viewer string           `json:"viewer"`
	Start  string           `json:"start"`
	End    string           `json:"end"`
	Legend []apiLegendEntry `json:"legend"`
	Rows   []apiRow         `json:"rows"`
}

// CalendarJSON serves a one-off calendar window for API clients.
func (h *Handler) CalendarJSON(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	viewer := q.Get("user")
	if viewer == "" {
		if u, ok := auth.UserFromContext(r.Context()); ok {
			viewer = u.Username
		}
	}
	if viewer == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}

	start := calendar.Today()
	if s := q.Get("start"); s != "" {
		d, err := calendar.ParseISODay(s)
		if err != nil {
			httperrors.BadRequestError(w, r, err, "start must be YYYY-MM-DD")
			return
		}
		start = d
	}

	columns := 0
	if c := q.Get("columns"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil || n < 2 || n > maxAPIColumns {
			http.Error(w, fmt.Sprintf("columns must be between 2 and %d", maxAPIColumns), http.StatusBadRequest)
			return
		}
		columns = n
	}

	cal, err := h.newCalendar(r.Context(), viewer, start, columns)
	if err != nil {
		httperrors.BackendError(w, r, err, "load experiments")
		return
	}
	writeJSON(w, r, toAPICalendar(cal))
}

func toAPICalendar(cal *calendar.Calendar) apiCalendar {
	grid := cal.Grid()
	out := apiCalendar{
		Viewer: cal.Viewer(),
		Start:  grid.Start.String(),
		End:    grid.End.String(),
		Legend: make([]apiLegendEntry, 0, len(grid.Legend)),
		Rows:   make([]apiRow, 0, len(grid.Rows)),
	}
	for _, l := range grid.Legend {
		out.Legend = append(out.Legend, apiLegendEntry{Category: string(l.Category), Color: l.Color})
	}
	for _, row := range grid.Rows {
		ar := apiRow{Node: row.NodeID, Cells: make([]apiCell, 0, len(row.Cells))}
		for _, c := range row.Cells {
			ar.Cells = append(ar.Cells, apiCell{
				Date:      c.Date.String(),
				Category:  string(c.Category),
				Color:     c.Color,
				Allocated: c.Allocated,
			})
		}
		out.Rows = append(out.Rows, ar)
	}
	return out
}

func parseStep(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse step %q: %w", s, err)
	}
	for _, st := range calendar.StepSizes {
		if st.Days == n {
			return n, nil
		}
	}
	return 0, fmt.Errorf("unsupported step %d", n)
}

// ReservationFeed serves the signed-in user's reservations as iCalendar.
func (h *Handler) ReservationFeed(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	h.writeFeed(w, r, user.Username)
}

// APIReservationFeed serves the iCalendar feed for the viewer named by ?user=.
func (h *Handler) APIReservationFeed(w http.ResponseWriter, r *http.Request) {
	viewer := r.URL.Query().Get("user")
	if viewer == "" {
		if u, ok := auth.UserFromContext(r.Context()); ok {
			viewer = u.Username
		}
	}
	if viewer == "" {
		http.Error(w, "user is required", http.StatusBadRequest)
		return
	}
	h.writeFeed(w, r, viewer)
}

func (h *Handler) writeFeed(w http.ResponseWriter, r *http.Request, viewer string) {
	reservations, err := h.source.ListExperiments(r.Context(), viewer)
	if err != nil {
		httperrors.BackendError(w, r, err, "load experiments")
		return
	}

	// DTSTAMP moves hourly so the ETag stays stable between polls.
	stamp := time.Now().UTC().Truncate(time.Hour)
	feed := utils.BuildReservationFeed(reservations, viewer, h.feedHost(), stamp)
	etag := utils.GenerateETag(feed)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("ETag", etag)
	_, _ = w.Write([]byte(feed))
}

func (h *Handler) feedHost() string {
	if u, err := url.Parse(h.cfg.BaseURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	return "henboard"
}
