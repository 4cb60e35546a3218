package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Element id suffixes, appended to the calendar's id prefix.
const (
	yearLabelID  = "YearLabel"
	monthNameID  = "MonthNameLabel"
	dayLabelID   = "MonthLabel"
	cellID       = "AllocationCellId"
	nodeLabelID  = "NodeLabel"
	stepSelectID = "StepSelectBoxId"
)

// Step is a selectable shift size.
type Step struct {
	Label string
	Days  int
}

// StepSizes are the shift sizes offered next to the month row.
var StepSizes = []Step{
	{Label: "step:day", Days: 1},
	{Label: "step:week", Days: 7},
	{Label: "step:month", Days: 30},
}

// CellAddress locates a date cell. Col starts at 1; column 0 holds node labels.
type CellAddress struct {
	Row int
	Col int
}

func (a CellAddress) String() string {
	return strconv.Itoa(a.Row) + "-" + strconv.Itoa(a.Col)
}

// ParseCellAddress parses the "row-col" form produced by CellAddress.String.
func ParseCellAddress(s string) (CellAddress, error) {
	rowStr, colStr, ok := strings.Cut(s, "-")
	if !ok {
		return CellAddress{}, fmt.Errorf("invalid cell address %q", s)
	}
	row, err := strconv.Atoi(rowStr)
	if err != nil || row < 0 {
		return CellAddress{}, fmt.Errorf("invalid cell row in %q", s)
	}
	col, err := strconv.Atoi(colStr)
	if err != nil || col < 1 {
		return CellAddress{}, fmt.Errorf("invalid cell column in %q", s)
	}
	return CellAddress{Row: row, Col: col}, nil
}

// LegendEntry is one swatch of the legend row.
type LegendEntry struct {
	Category Category
	Color    string
}

// Label is a header cell. Empty Text marks a placeholder.
type Label struct {
	ID   string
	Text string
}

// Cell is one (node, day) square.
type Cell struct {
	ID        string
	Address   CellAddress
	Date      Day
	Allocated bool
	Category  Category
	Color     string
}

// Row holds one node's label and its date cells. Cells[i] is column i+1.
// LabelID is the element id of the node label; the label also carries the
// node id under the grid's LabelIDAttr.
type Row struct {
	NodeID  string
	LabelID string
	Cells   []Cell
}

// Grid is the addressable table behind the calendar. The three label slices
// are indexed by column; index 0 is the header column.
type Grid struct {
	Columns       int
	ColumnWidth   int
	RowHeight     int
	IDPrefix      string
	CellIndexAttr string
	LabelIDAttr   string
	StepSelectID  string
	Steps         []Step

	// Start and End are the first and last visible days.
	Start Day
	End   Day

	Legend      []LegendEntry
	YearLabels  []Label
	MonthLabels []Label
	DayLabels   []Label
	Rows        []Row
}

// cell returns the cell at (row, col) or nil when out of range.
func (g *Grid) cell(row, col int) *Cell {
	if row < 0 || row >= len(g.Rows) || col < 1 || col >= g.Columns {
		return nil
	}
	return &g.Rows[row].Cells[col-1]
}

// clone deep-copies g so callers can render without holding the calendar lock.
func (g *Grid) clone() *Grid {
	out := *g
	out.Steps = append([]Step(nil), g.Steps...)
	out.Legend = append([]LegendEntry(nil), g.Legend...)
	out.YearLabels = append([]Label(nil), g.YearLabels...)
	out.MonthLabels = append([]Label(nil), g.MonthLabels...)
	out.DayLabels = append([]Label(nil), g.DayLabels...)
	out.Rows = make([]Row, len(g.Rows))
	for i, r := range g.Rows {
		out.Rows[i] = Row{NodeID: r.NodeID, LabelID: r.LabelID, Cells: append([]Cell(nil), r.Cells...)}
	}
	return &out
}

type layout struct {
	columns       int
	columnWidth   int
	rowHeight     int
	idPrefix      string
	cellIndexAttr string
	labelIDAttr   string
}

// buildGrid lays out the legend, the three label rows and one row per node,
// with every date cell unallocated. Labels are filled by relabel.
func buildGrid(l layout, nodeIDs []string, palette Palette) *Grid {
	g := &Grid{
		Columns:       l.columns,
		ColumnWidth:   l.columnWidth,
		RowHeight:     l.rowHeight,
		IDPrefix:      l.idPrefix,
		CellIndexAttr: l.cellIndexAttr,
		LabelIDAttr:   l.labelIDAttr,
		StepSelectID:  l.idPrefix + stepSelectID,
		Steps:         append([]Step(nil), StepSizes...),
		YearLabels:    make([]Label, l.columns),
		MonthLabels:   make([]Label, l.columns),
		DayLabels:     make([]Label, l.columns),
		Rows:          make([]Row, len(nodeIDs)),
	}
	g.setLegend(palette)

	g.YearLabels[0] = Label{Text: "year:"}
	for j := 1; j < l.columns; j++ {
		g.YearLabels[j] = Label{ID: l.idPrefix + yearLabelID + strconv.Itoa(j)}
		g.MonthLabels[j] = Label{ID: l.idPrefix + monthNameID + strconv.Itoa(j)}
		g.DayLabels[j] = Label{ID: l.idPrefix + dayLabelID + strconv.Itoa(j)}
	}

	for i, nodeID := range nodeIDs {
		cells := make([]Cell, l.columns-1)
		for j := range cells {
			addr := CellAddress{Row: i, Col: j + 1}
			cells[j] = Cell{
				ID:       l.idPrefix + cellID + addr.String(),
				Address:  addr,
				Category: Unallocated,
				Color:    palette[Unallocated],
			}
		}
		g.Rows[i] = Row{NodeID: nodeID, LabelID: l.idPrefix + nodeLabelID + strconv.Itoa(i), Cells: cells}
	}
	return g
}

func (g *Grid) setLegend(palette Palette) {
	g.Legend = g.Legend[:0]
	for _, c := range Categories() {
		g.Legend = append(g.Legend, LegendEntry{Category: c, Color: palette[c]})
	}
}

// relabel rewrites every label and cell date for a window starting at start.
// Year and month names appear only in the first column and where the date
// crosses into a new year or month; other label cells stay empty.
func (g *Grid) relabel(start Day) {
	g.Start = start
	g.End = start.AddDays(g.Columns - 2)
	for j := 1; j < g.Columns; j++ {
		d := start.AddDays(j - 1)

		g.YearLabels[j].Text = ""
		if j == 1 || (d.Day == 1 && d.Month == time.January) {
			g.YearLabels[j].Text = shortYear(d.Year)
		}

		g.MonthLabels[j].Text = ""
		if j == 1 || d.Day == 1 {
			g.MonthLabels[j].Text = d.Month.String()[:3]
		}

		g.DayLabels[j].Text = strconv.Itoa(d.Day)

		for i := range g.Rows {
			g.Rows[i].Cells[j-1].Date = d
		}
	}
}

func shortYear(year int) string {
	s := strconv.Itoa(year)
	if len(s) > 2 {
		return s[2:]
	}
	return s
}
