// Package stay holds the billing and availability rules for a room stay.
//
// A night is one noon-to-noon billing period. Availability uses half-open
// intervals: a guest checking out at 11:00 frees the room for a guest checking
// in at 11:00 the same day.
package stay

import (
	"time"
)

const BillingHour = 12

type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Nights counts noon rollovers for a stay. The anchor is noon on the start's
// calendar day, moved back a day when the stay starts before noon; each
// one-day advance of the anchor that is still strictly before end is a night.
// Every valid stay is charged at least one night.
func Nights(start, end time.Time) int {
	if !end.After(start) {
		return 0
	}

	anchor := time.Date(start.Year(), start.Month(), start.Day(), BillingHour, 0, 0, 0, start.Location())
	if start.Before(anchor) {
		anchor = anchor.AddDate(0, 0, -1)
	}

	count := 0
	for {
		anchor = anchor.AddDate(0, 0, 1)
		if !anchor.Before(end) {
			break
		}
		count++
	}

	return max(count, 1)
}

// Overlaps reports whether two half-open intervals share any instant.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

// Available reports whether candidate overlaps none of the existing intervals.
func Available(candidate Interval, existing []Interval) bool {
	for _, e := range existing {
		if Overlaps(candidate, e) {
			return false
		}
	}
	return true
}

// FirstConflict returns the index of the first existing interval that overlaps candidate, or -1.
func FirstConflict(candidate Interval, existing []Interval) int {
	for i, e := range existing {
		if Overlaps(candidate, e) {
			return i
		}
	}
	return -1
}

func TotalPrice(nights int, pricePerNight float64) float64 {
	return float64(nights) * pricePerNight
}
