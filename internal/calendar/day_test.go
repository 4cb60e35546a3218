package calendar

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) Day {
	return Day{Year: y, Month: m, Day: d}
}

func TestParseDay(t *testing.T) {
	tests := []struct {
		in      string
		want    Day
		wantErr bool
	}{
		{in: "01/06/2006", want: day(2006, time.June, 1)},
		{in: " 31/12/2006 ", want: day(2006, time.December, 31)},
		{in: "29/02/2008", want: day(2008, time.February, 29)},
		{in: "29/02/2007", wantErr: true},
		{in: "2006-06-01", wantErr: true},
		{in: "aa/06/2006", wantErr: true},
		{in: "01/13/2006", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDay(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDay(%q) expected error, got %v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDay(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDay(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDayOfIgnoresTime(t *testing.T) {
	morning := time.Date(2006, time.June, 1, 0, 5, 0, 0, time.UTC)
	evening := time.Date(2006, time.June, 1, 23, 55, 0, 0, time.UTC)
	if !DayOf(morning).Equal(DayOf(evening)) {
		t.Errorf("expected %v and %v to be the same day", morning, evening)
	}
	if DayOf(morning).Before(DayOf(evening)) {
		t.Error("same day must not be strictly before itself")
	}
}

func TestAddDaysCrossesBoundaries(t *testing.T) {
	tests := []struct {
		from Day
		n    int
		want Day
	}{
		{from: day(2006, time.June, 30), n: 1, want: day(2006, time.July, 1)},
		{from: day(2006, time.December, 31), n: 1, want: day(2007, time.January, 1)},
		{from: day(2007, time.January, 1), n: -1, want: day(2006, time.December, 31)},
		{from: day(2008, time.February, 28), n: 1, want: day(2008, time.February, 29)},
		{from: day(2006, time.June, 1), n: 30, want: day(2006, time.July, 1)},
		{from: day(2006, time.June, 1), n: 0, want: day(2006, time.June, 1)},
	}
	for _, tt := range tests {
		if got := tt.from.AddDays(tt.n); got != tt.want {
			t.Errorf("%v.AddDays(%d) = %v, want %v", tt.from, tt.n, got, tt.want)
		}
	}
}

func TestOrdering(t *testing.T) {
	tests := []struct {
		a, b       Day
		before, le bool
	}{
		{a: day(2006, time.June, 1), b: day(2006, time.June, 2), before: true, le: true},
		{a: day(2006, time.June, 2), b: day(2006, time.June, 2), before: false, le: true},
		{a: day(2006, time.December, 31), b: day(2007, time.January, 1), before: true, le: true},
		{a: day(2007, time.January, 1), b: day(2006, time.December, 31), before: false, le: false},
		{a: day(2006, time.March, 5), b: day(2006, time.February, 20), before: false, le: false},
	}
	for _, tt := range tests {
		if got := tt.a.Before(tt.b); got != tt.before {
			t.Errorf("%v.Before(%v) = %v, want %v", tt.a, tt.b, got, tt.before)
		}
		if got := tt.a.LessOrEqual(tt.b); got != tt.le {
			t.Errorf("%v.LessOrEqual(%v) = %v, want %v", tt.a, tt.b, got, tt.le)
		}
	}
}

func TestInRangeComponentWise(t *testing.T) {
	feb20toMar10 := DateRange{Start: day(2006, time.February, 20), End: day(2006, time.March, 10)}
	june1to3 := DateRange{Start: day(2006, time.June, 1), End: day(2006, time.June, 3)}

	tests := []struct {
		name string
		d    Day
		r    DateRange
		want bool
	}{
		{name: "start point", d: day(2006, time.June, 1), r: june1to3, want: true},
		{name: "end point", d: day(2006, time.June, 3), r: june1to3, want: true},
		{name: "after end", d: day(2006, time.June, 4), r: june1to3, want: false},
		{name: "other year", d: day(2007, time.June, 2), r: june1to3, want: false},
		{name: "day below start day across months", d: day(2006, time.March, 5), r: feb20toMar10, want: false},
		{name: "day above end day across months", d: day(2006, time.February, 25), r: feb20toMar10, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InRange(tt.d, tt.r); got != tt.want {
				t.Errorf("InRange(%v, %v..%v) = %v, want %v", tt.d, tt.r.Start, tt.r.End, got, tt.want)
			}
		})
	}

	if !feb20toMar10.Contains(day(2006, time.March, 5)) {
		t.Error("Contains should use calendar order")
	}
}
