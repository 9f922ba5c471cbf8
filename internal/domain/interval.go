package domain

import (
	"fmt"
	"sort"
)

// Interval is a half-open [Start, End) window on a day, in minutes since
// local midnight. Intervals on a daily grid share a uniform width.
type Interval struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// MinutesPerDay is the length of the daily grid.
const MinutesPerDay = 24 * 60

// NewInterval builds an interval from start/end minutes since midnight.
func NewInterval(startMin, endMin int) Interval {
	return Interval{Start: startMin, End: endMin}
}

// ParseInterval parses labels of the form "08:00-08:15".
func ParseInterval(label string) (Interval, error) {
	var sh, sm, eh, em int
	if _, err := fmt.Sscanf(label, "%d:%d-%d:%d", &sh, &sm, &eh, &em); err != nil {
		return Interval{}, fmt.Errorf("invalid interval label %q: %w", label, err)
	}
	iv := Interval{Start: sh*60 + sm, End: eh*60 + em}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate checks monotonicity and day bounds.
func (iv Interval) Validate() error {
	if iv.Start < 0 || iv.End > MinutesPerDay || iv.Start >= iv.End {
		return fmt.Errorf("%w: non-monotonic interval %s", ErrInvalidInput, iv.Label())
	}
	return nil
}

// Label renders the interval as "HH:MM-HH:MM".
func (iv Interval) Label() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", iv.Start/60, iv.Start%60, iv.End/60, iv.End%60)
}

// Minutes returns the interval width.
func (iv Interval) Minutes() int { return iv.End - iv.Start }

// Hours returns the interval width in hours.
func (iv Interval) Hours() float64 { return float64(iv.End-iv.Start) / 60.0 }

// Overlaps reports whether two intervals on the same day intersect.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start < o.End && o.Start < iv.End
}

// Before orders intervals by start, then end.
func (iv Interval) Before(o Interval) bool {
	if iv.Start != o.Start {
		return iv.Start < o.Start
	}
	return iv.End < o.End
}

// DayGrid produces the full daily grid of fixed-width intervals.
// Width must divide the day evenly; 15 is the common production setting.
func DayGrid(widthMinutes int) []Interval {
	if widthMinutes <= 0 || MinutesPerDay%widthMinutes != 0 {
		return nil
	}
	grid := make([]Interval, 0, MinutesPerDay/widthMinutes)
	for start := 0; start < MinutesPerDay; start += widthMinutes {
		grid = append(grid, Interval{Start: start, End: start + widthMinutes})
	}
	return grid
}

// SortIntervals orders intervals in place by start time.
func SortIntervals(ivs []Interval) {
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].Before(ivs[j]) })
}
