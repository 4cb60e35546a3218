package calendar

import "fmt"

// Category classifies a cell for coloring.
type Category string

const (
	Unallocated Category = "unallocated"
	User        Category = "user"
	Shared      Category = "shared"
	Other       Category = "other"
)

// Categories lists every category in legend order.
func Categories() []Category {
	return []Category{Unallocated, User, Shared, Other}
}

// Valid reports whether c is one of the four known categories.
func (c Category) Valid() bool {
	switch c {
	case Unallocated, User, Shared, Other:
		return true
	}
	return false
}

// rank orders categories by display precedence; higher wins.
func (c Category) rank() int {
	switch c {
	case User:
		return 3
	case Shared:
		return 2
	case Other:
		return 1
	}
	return 0
}

// Palette maps categories to CSS colors.
type Palette map[Category]string

// DefaultPalette returns the stock colors.
func DefaultPalette() Palette {
	return Palette{
		Unallocated: "#ccc",
		User:        "blue",
		Shared:      "green",
		Other:       "yellow",
	}
}

// Merge returns a copy of p with every valid, non-empty entry of override applied.
func (p Palette) Merge(override Palette) Palette {
	out := make(Palette, len(p))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range override {
		if k.Valid() && v != "" {
			out[k] = v
		}
	}
	return out
}

// Validate reports ErrPaletteCollision when an allocated category is painted
// with the unallocated color.
func (p Palette) Validate() error {
	for _, c := range Categories()[1:] {
		if p[c] == p[Unallocated] {
			return fmt.Errorf("%w: %s is %q", ErrPaletteCollision, c, p[c])
		}
	}
	return nil
}

// Classify returns the category of r as seen by viewer.
func Classify(r Reservation, viewer string) Category {
	switch {
	case r.Owner == viewer:
		return User
	case r.Shared:
		return Shared
	default:
		return Other
	}
}

// Resolve computes the category of every (node, day) pair for a window of days
// starting at start. The result is indexed [node][day]. Overlapping
// reservations are not merged: the viewer's own reservation beats a shared
// one, which beats any other.
func Resolve(reservations []Reservation, viewer string, nodeIDs []string, start Day, days int) [][]Category {
	if days < 0 {
		days = 0
	}
	window := make([]Day, days)
	for i := range window {
		window[i] = start.AddDays(i)
	}

	out := make([][]Category, len(nodeIDs))
	for i, nodeID := range nodeIDs {
		row := make([]Category, days)
		for j := range row {
			row[j] = Unallocated
		}
		for _, r := range reservations {
			if !r.Covers(nodeID) {
				continue
			}
			rng := r.Range()
			cat := Classify(r, viewer)
			for j, d := range window {
				if InRange(d, rng) && cat.rank() > row[j].rank() {
					row[j] = cat
				}
			}
		}
		out[i] = row
	}
	return out
}
