package model

import (
	"fmt"
	"math"
)

// TimeSliceID identifies a time slice as a season plus a time of day,
// e.g. {"winter", "day"}.
type TimeSliceID struct {
	Season    string
	TimeOfDay string
}

func (ts TimeSliceID) String() string {
	return ts.Season + "." + ts.TimeOfDay
}

// TimeSliceLevel is the temporal granularity at which a quantity is balanced
// or bounded.
type TimeSliceLevel int

const (
	// LevelSlice balances at individual time slice resolution.
	LevelSlice TimeSliceLevel = iota
	// LevelSeason balances across all slices of a season.
	LevelSeason
	// LevelAnnual balances across the whole year.
	LevelAnnual
)

func (l TimeSliceLevel) String() string {
	switch l {
	case LevelSlice:
		return "timeslice"
	case LevelSeason:
		return "season"
	case LevelAnnual:
		return "annual"
	}
	return fmt.Sprintf("TimeSliceLevel(%d)", int(l))
}

// Selection is a group of time slices at a given level: a single slice, a
// whole season or the whole year.
type Selection struct {
	Level  TimeSliceLevel
	Season string      // set for LevelSeason
	Slice  TimeSliceID // set for LevelSlice
}

func (s Selection) String() string {
	switch s.Level {
	case LevelSlice:
		return s.Slice.String()
	case LevelSeason:
		return s.Season
	}
	return "annual"
}

// TimeSliceInfo is the immutable temporal index for a run: the ordered set of
// time slices, their fractional-year weights and the ordered set of seasons.
type TimeSliceInfo struct {
	Slices    []TimeSliceID
	Fractions map[TimeSliceID]float64
	Seasons   []string
}

// Fraction returns the fraction of the year covered by the given slice.
func (info *TimeSliceInfo) Fraction(ts TimeSliceID) float64 {
	return info.Fractions[ts]
}

// Selections returns the ordered selections at the given level.
func (info *TimeSliceInfo) Selections(level TimeSliceLevel) []Selection {
	switch level {
	case LevelSlice:
		out := make([]Selection, len(info.Slices))
		for i, ts := range info.Slices {
			out[i] = Selection{Level: LevelSlice, Slice: ts}
		}
		return out
	case LevelSeason:
		out := make([]Selection, len(info.Seasons))
		for i, season := range info.Seasons {
			out[i] = Selection{Level: LevelSeason, Season: season}
		}
		return out
	}
	return []Selection{{Level: LevelAnnual}}
}

// SlicesIn returns the time slices covered by a selection, in index order.
func (info *TimeSliceInfo) SlicesIn(sel Selection) []TimeSliceID {
	switch sel.Level {
	case LevelSlice:
		return []TimeSliceID{sel.Slice}
	case LevelSeason:
		var out []TimeSliceID
		for _, ts := range info.Slices {
			if ts.Season == sel.Season {
				out = append(out, ts)
			}
		}
		return out
	}
	return info.Slices
}

// SelectionFraction returns the summed year fraction of a selection.
func (info *TimeSliceInfo) SelectionFraction(sel Selection) float64 {
	var sum float64
	for _, ts := range info.SlicesIn(sel) {
		sum += info.Fractions[ts]
	}
	return sum
}

// Validate checks that slice fractions sum to one.
func (info *TimeSliceInfo) Validate() error {
	var sum float64
	for _, ts := range info.Slices {
		f, ok := info.Fractions[ts]
		if !ok {
			return fmt.Errorf("time slice %s has no year fraction", ts)
		}
		if f <= 0 {
			return fmt.Errorf("time slice %s has non-positive fraction %g", ts, f)
		}
		sum += f
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("time slice fractions sum to %g, want 1", sum)
	}
	return nil
}
