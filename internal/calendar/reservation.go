package calendar

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrInvalidDateRange is returned when a reservation starts after it ends.
	ErrInvalidDateRange = errors.New("invalid date range")
	// ErrNoNodes is returned when a reservation covers no nodes.
	ErrNoNodes = errors.New("reservation has no nodes")
	// ErrDuplicateReservation is returned when two reservations share an id.
	ErrDuplicateReservation = errors.New("duplicate reservation id")
	// ErrInvalidColumns is returned when the grid cannot hold a label column and one day.
	ErrInvalidColumns = errors.New("calendar needs at least two columns")
	// ErrCellOutOfRange is returned for addresses outside the grid.
	ErrCellOutOfRange = errors.New("cell out of range")
	// ErrPaletteCollision is returned when an allocated category shares the unallocated color.
	ErrPaletteCollision = errors.New("allocated color matches unallocated color")
)

// Reservation is a booking of one or more nodes by a user for a span of days.
type Reservation struct {
	ID      string
	Owner   string
	Contact string
	Start   Day
	End     Day
	NodeIDs []string
	Shared  bool
}

// Range projects r onto its date range.
func (r Reservation) Range() DateRange {
	return DateRange{Start: r.Start, End: r.End, ReservationID: r.ID}
}

// Covers reports whether r includes the node.
func (r Reservation) Covers(nodeID string) bool {
	for _, id := range r.NodeIDs {
		if id == nodeID {
			return true
		}
	}
	return false
}

// Validate checks the reservation on its own.
func (r Reservation) Validate() error {
	if r.End.Before(r.Start) {
		return fmt.Errorf("reservation %q: %w: %s after %s", r.ID, ErrInvalidDateRange, r.Start, r.End)
	}
	if len(r.NodeIDs) == 0 {
		return fmt.Errorf("reservation %q: %w", r.ID, ErrNoNodes)
	}
	return nil
}

func validateReservations(reservations []Reservation) error {
	seen := make(map[string]struct{}, len(reservations))
	for _, r := range reservations {
		if err := r.Validate(); err != nil {
			return err
		}
		if _, ok := seen[r.ID]; ok {
			return fmt.Errorf("reservation %q: %w", r.ID, ErrDuplicateReservation)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// NodeIDs returns the sorted union of node ids across all reservations.
// The sort is lexicographic, so "node10" comes before "node2".
func NodeIDs(reservations []Reservation) []string {
	set := make(map[string]struct{})
	for _, r := range reservations {
		for _, id := range r.NodeIDs {
			set[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
