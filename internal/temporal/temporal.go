// Package temporal provides astro-day arithmetic for the timeline.
//
// The astro_day is the universal time axis: an integer count of days since
// the calendar epoch (day 0). All simulation, snapshot, and event timestamps
// use it. Calendar rendering beyond year/day-of-year is out of scope here.
package temporal

import "fmt"

// DaysPerYear is the mean length of a lore year in astro-days.
// Centuries are 36525 days, matching the snapshot and chunking constants.
const DaysPerYear = 365.25

// Snapshot emission intervals in astro-days.
const (
	DaysYear    = 365
	DaysDecade  = 3652
	DaysCentury = 36525
)

// Granularity is the snapshot emission interval class.
type Granularity string

const (
	GranularityYear    Granularity = "year"
	GranularityDecade  Granularity = "decade"
	GranularityCentury Granularity = "century"
)

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	switch g {
	case GranularityYear, GranularityDecade, GranularityCentury:
		return true
	}
	return false
}

// IntervalDays returns the snapshot interval for g in astro-days.
// Unknown granularities fall back to yearly.
func (g Granularity) IntervalDays() int64 {
	switch g {
	case GranularityDecade:
		return DaysDecade
	case GranularityCentury:
		return DaysCentury
	default:
		return DaysYear
	}
}

// YearOf returns the lore year containing the given astro-day.
// Day 0 is year 0; negative days land in negative years.
func YearOf(day int64) int64 {
	if day >= 0 {
		return int64(float64(day) / DaysPerYear)
	}
	// Floor division for negative days.
	y := int64(float64(day) / DaysPerYear)
	if float64(y)*DaysPerYear > float64(day) {
		y--
	}
	return y
}

// FormatDay renders an astro-day as "Y<year> D<day-of-year>" for CLI and
// log output, e.g. day 36525 -> "Y100 D0".
func FormatDay(day int64) string {
	year := YearOf(day)
	dayOfYear := day - int64(float64(year)*DaysPerYear)
	return fmt.Sprintf("Y%d D%d", year, dayOfYear)
}

// YearsBetween returns the (fractional) number of lore years spanned by
// [startDay, endDay).
func YearsBetween(startDay, endDay int64) float64 {
	return float64(endDay-startDay) / DaysPerYear
}
