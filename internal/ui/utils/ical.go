// Package utils renders reservations for calendar clients.
package utils

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/jw6ventures/henboard/internal/calendar"
)

const productID = "-//henboard//experiment calendar//EN"

// GenerateETag creates an ETag from content.
func GenerateETag(content string) string {
	h := sha256.Sum256([]byte(content))
	return fmt.Sprintf(`"%x"`, h[:16])
}

// ReservationUID is the stable VEVENT UID of a reservation.
func ReservationUID(r calendar.Reservation, host string) string {
	return "experiment-" + r.ID + "@" + host
}

// BuildReservationFeed renders reservations as an iCalendar document. Each
// reservation becomes one all-day event; its category is the viewer's color class.
func BuildReservationFeed(reservations []calendar.Reservation, viewer, host string, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ics.MethodPublish)
	cal.SetName("HEN experiments for " + viewer)

	sorted := append([]calendar.Reservation(nil), reservations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return sorted[i].ID < sorted[j].ID
	})

	for _, r := range sorted {
		ev := cal.AddEvent(ReservationUID(r, host))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetAllDayStartAt(r.Start.Time())
		// DTEND is exclusive for all-day events.
		ev.SetAllDayEndAt(r.End.AddDays(1).Time())
		ev.SetSummary(fmt.Sprintf("Experiment %s (%s)", r.ID, r.Owner))
		ev.SetLocation(strings.Join(r.NodeIDs, ", "))
		ev.SetDescription(describe(r))
		ev.AddProperty(ics.ComponentPropertyCategories, strings.ToUpper(string(calendar.Classify(r, viewer))))
		if r.Contact != "" {
			ev.SetOrganizer("mailto:" + r.Contact)
		}
	}
	return cal.Serialize()
}

func describe(r calendar.Reservation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Owner: %s\n", r.Owner)
	if r.Contact != "" {
		fmt.Fprintf(&b, "Contact: %s\n", r.Contact)
	}
	fmt.Fprintf(&b, "Nodes: %s\n", strings.Join(r.NodeIDs, " "))
	if r.Shared {
		b.WriteString("Shared experiment")
	}
	return strings.TrimRight(b.String(), "\n")
}
