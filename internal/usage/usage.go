// Package usage holds foreground-application usage records and the
// ranking shown next to the session timer.
package usage

import (
	"sort"
)

// Category classifies an application's contribution to productive time
type Category string

const (
	CategoryProductive   Category = "productive"
	CategoryNeutral      Category = "neutral"
	CategoryUnproductive Category = "unproductive"
)

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	switch c {
	case CategoryProductive, CategoryNeutral, CategoryUnproductive:
		return true
	}
	return false
}

// Indicator is the display treatment for a category
type Indicator string

const (
	IndicatorSuccess Indicator = "success"
	IndicatorDanger  Indicator = "danger"
	IndicatorNeutral Indicator = "neutral"
)

// Indicator maps the category onto its fixed display indicator.
// Unknown categories are shown as neutral.
func (c Category) Indicator() Indicator {
	switch c {
	case CategoryProductive:
		return IndicatorSuccess
	case CategoryUnproductive:
		return IndicatorDanger
	default:
		return IndicatorNeutral
	}
}

// Record is the accumulated foreground time of one application within a session
type Record struct {
	Name            string   `json:"name"`
	DurationSeconds int64    `json:"duration"`
	Category        Category `json:"category"`
}

// Ranked is a record prepared for display
type Ranked struct {
	Record
	// Fraction of the session's elapsed time spent in this application.
	// Not clamped: backend values may exceed elapsed time.
	Fraction  float64
	Indicator Indicator
}

// TopN is the number of applications shown in the ranking
const TopN = 5

// Rank sorts records by duration descending, keeps the top five and computes
// each one's share of elapsedSeconds. A zero (or negative) elapsed time
// yields fractions of 0. The input slice is not modified.
func Rank(records []Record, elapsedSeconds int64) []Ranked {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DurationSeconds != sorted[j].DurationSeconds {
			return sorted[i].DurationSeconds > sorted[j].DurationSeconds
		}
		return sorted[i].Name < sorted[j].Name
	})

	if len(sorted) > TopN {
		sorted = sorted[:TopN]
	}

	ranked := make([]Ranked, 0, len(sorted))
	for _, r := range sorted {
		var fraction float64
		if elapsedSeconds > 0 {
			fraction = float64(r.DurationSeconds) / float64(elapsedSeconds)
		}
		ranked = append(ranked, Ranked{
			Record:    r,
			Fraction:  fraction,
			Indicator: r.Category.Indicator(),
		})
	}
	return ranked
}

// Clone returns a copy of records that does not share backing storage
func Clone(records []Record) []Record {
	if records == nil {
		return nil
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}
