// Package calendar lays out experiment reservations on a node-by-day grid
// and colors each cell by who owns the reservation covering it.
package calendar

import (
	"fmt"
	"sync"
)

// ClickKind distinguishes node label clicks from date cell clicks.
type ClickKind int

const (
	LabelClick ClickKind = iota
	DateClick
)

// ClickEvent is passed to the host's click callbacks.
type ClickEvent struct {
	Kind      ClickKind
	Address   CellAddress
	NodeID    string
	Date      Day
	Allocated bool
}

// OwnerInfo describes a reservation covering a clicked cell.
type OwnerInfo struct {
	Owner         string
	Contact       string
	ReservationID string
}

// Options configures a Calendar.
type Options struct {
	// Columns counts every column, including the node label column.
	Columns      int
	ColumnWidth  int
	RowHeight    int
	Reservations []Reservation

	OnLabelClick func(ClickEvent)
	OnDateClick  func(ClickEvent)

	IDPrefix      string
	CellIndexAttr string
	LabelIDAttr   string

	// Viewer is the logged in user; their reservations get the User color.
	Viewer string
	// Start is the first visible day. Defaults to today.
	Start Day
	// Palette overrides individual default colors.
	Palette Palette
}

// Calendar owns the grid and the reservation set for one viewer.
// All methods are safe for concurrent use; a shift is applied as one unit.
type Calendar struct {
	mu sync.Mutex

	columns      int
	reservations []Reservation
	viewer       string
	palette      Palette
	onLabelClick func(ClickEvent)
	onDateClick  func(ClickEvent)

	nodeIDs []string
	start   Day
	grid    *Grid
}

// New validates the reservations, builds the grid and paints the first window.
func New(opts Options) (*Calendar, error) {
	if opts.Columns < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidColumns, opts.Columns)
	}
	if err := validateReservations(opts.Reservations); err != nil {
		return nil, err
	}

	palette := DefaultPalette().Merge(opts.Palette)
	if err := palette.Validate(); err != nil {
		return nil, err
	}

	start := opts.Start
	if start.IsZero() {
		start = Today()
	}

	c := &Calendar{
		columns:      opts.Columns,
		reservations: append([]Reservation(nil), opts.Reservations...),
		viewer:       opts.Viewer,
		palette:      palette,
		onLabelClick: opts.OnLabelClick,
		onDateClick:  opts.OnDateClick,
		start:        start,
	}
	c.nodeIDs = NodeIDs(c.reservations)
	c.grid = buildGrid(layout{
		columns:       opts.Columns,
		columnWidth:   opts.ColumnWidth,
		rowHeight:     opts.RowHeight,
		idPrefix:      opts.IDPrefix,
		cellIndexAttr: opts.CellIndexAttr,
		labelIDAttr:   opts.LabelIDAttr,
	}, c.nodeIDs, c.palette)
	c.grid.relabel(c.start)
	c.recomputeAllocations()
	return c, nil
}

// Grid returns a snapshot of the current grid.
func (c *Calendar) Grid() *Grid {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid.clone()
}

// WindowStart returns the first visible day. Use Grid().Start when the
// window must match a rendered grid.
func (c *Calendar) WindowStart() Day {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start
}

// WindowEnd returns the last visible day.
func (c *Calendar) WindowEnd() Day {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start.AddDays(c.columns - 2)
}

// NodeIDs returns the node of every grid row, in row order.
func (c *Calendar) NodeIDs() []string {
	return append([]string(nil), c.nodeIDs...)
}

// Columns returns the grid width, including the header column.
func (c *Calendar) Columns() int {
	return c.columns
}

// Viewer returns the user the calendar is colored for.
func (c *Calendar) Viewer() string {
	return c.viewer
}

// Reservations returns the reservation set the calendar was built from.
func (c *Calendar) Reservations() []Reservation {
	return append([]Reservation(nil), c.reservations...)
}

// Palette returns a copy of the active colors.
func (c *Calendar) Palette() Palette {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Palette{}.Merge(c.palette)
}

// ShiftWindow moves the visible window by step days (negative moves back),
// relabels every column and recolors the grid.
func (c *Calendar) ShiftWindow(step int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = c.start.AddDays(step)
	c.grid.relabel(c.start)
	c.recomputeAllocations()
}

// ShiftBack moves the window step days into the past.
func (c *Calendar) ShiftBack(step int) { c.ShiftWindow(-step) }

// ShiftForward moves the window step days into the future.
func (c *Calendar) ShiftForward(step int) { c.ShiftWindow(step) }

// SetCellColor paints a single cell. The cell counts as allocated unless the
// color is the unallocated color. Nothing is recomputed.
func (c *Calendar) SetCellColor(row, col int, color string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cell := c.grid.cell(row, col)
	if cell == nil {
		return fmt.Errorf("%w: %d-%d", ErrCellOutOfRange, row, col)
	}
	cell.Color = color
	cell.Allocated = color != c.palette[Unallocated]
	cell.Category = c.categoryFor(color)
	return nil
}

// SetAllocatedColor changes the color of one category and repaints.
// It reports false for unknown categories and for colors that would make an
// allocated cell indistinguishable from an unallocated one.
func (c *Calendar) SetAllocatedColor(cat Category, color string) bool {
	if !cat.Valid() || color == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.palette.Merge(Palette{cat: color}).Validate() != nil {
		return false
	}
	c.palette[cat] = color
	c.grid.setLegend(c.palette)
	c.recomputeAllocations()
	return true
}

// CellOwnerInfo lists the reservations covering the cell's node on the cell's
// date. Unallocated cells yield nothing.
func (c *Calendar) CellOwnerInfo(addr CellAddress) ([]OwnerInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cell := c.grid.cell(addr.Row, addr.Col)
	if cell == nil {
		return nil, fmt.Errorf("%w: %s", ErrCellOutOfRange, addr)
	}
	if !cell.Allocated {
		return nil, nil
	}

	date := c.start.AddDays(addr.Col - 1)
	nodeID := c.nodeIDs[addr.Row]
	var out []OwnerInfo
	for _, r := range c.reservations {
		if r.Covers(nodeID) && r.Range().Contains(date) {
			out = append(out, OwnerInfo{Owner: r.Owner, Contact: r.Contact, ReservationID: r.ID})
		}
	}
	return out, nil
}

// ClickCell fires the date callback for the cell and returns the event.
func (c *Calendar) ClickCell(addr CellAddress) (ClickEvent, error) {
	c.mu.Lock()
	cell := c.grid.cell(addr.Row, addr.Col)
	if cell == nil {
		c.mu.Unlock()
		return ClickEvent{}, fmt.Errorf("%w: %s", ErrCellOutOfRange, addr)
	}
	ev := ClickEvent{
		Kind:      DateClick,
		Address:   addr,
		NodeID:    c.nodeIDs[addr.Row],
		Date:      cell.Date,
		Allocated: cell.Allocated,
	}
	handler := c.onDateClick
	c.mu.Unlock()

	if handler != nil {
		handler(ev)
	}
	return ev, nil
}

// ClickLabel fires the label callback for a node row and returns the event.
func (c *Calendar) ClickLabel(row int) (ClickEvent, error) {
	if row < 0 || row >= len(c.nodeIDs) {
		return ClickEvent{}, fmt.Errorf("%w: row %d", ErrCellOutOfRange, row)
	}
	ev := ClickEvent{
		Kind:    LabelClick,
		Address: CellAddress{Row: row},
		NodeID:  c.nodeIDs[row],
	}
	if c.onLabelClick != nil {
		c.onLabelClick(ev)
	}
	return ev, nil
}

// recomputeAllocations resets every date cell and repaints the window.
// Callers hold c.mu.
func (c *Calendar) recomputeAllocations() {
	days := c.columns - 1
	for i := range c.grid.Rows {
		for j := 1; j <= days; j++ {
			c.paint(i, j, Unallocated)
		}
	}

	cats := Resolve(c.reservations, c.viewer, c.nodeIDs, c.start, days)
	for i, row := range cats {
		for j, cat := range row {
			if cat != Unallocated {
				c.paint(i, j+1, cat)
			}
		}
	}
}

func (c *Calendar) paint(row, col int, cat Category) {
	cell := c.grid.cell(row, col)
	cell.Category = cat
	cell.Color = c.palette[cat]
	cell.Allocated = cat != Unallocated
}

func (c *Calendar) categoryFor(color string) Category {
	for _, cat := range Categories() {
		if c.palette[cat] == color {
			return cat
		}
	}
	return ""
}
