package compute

import (
	"sort"

	"github.com/stationuptime/stationuptime/pkg/types"
)

// Normalize returns unit's windows sorted by (start, end) with overlapping
// same-status windows merged into one.
//
// Windows that only touch (next.Start == prev.End) stay separate even when
// they share a status. raw is copied, never reordered.
//
// An empty input yields a nil result and no error.
func Normalize(unit types.UnitID, raw []types.TimeWindow) ([]types.TimeWindow, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	sorted := make([]types.TimeWindow, len(raw))
	copy(sorted, raw)
	sortWindows(sorted)

	out := make([]types.TimeWindow, 0, len(sorted))
	acc := sorted[0]
	for _, w := range sorted[1:] {
		if w.Start >= acc.End {
			out = append(out, acc)
			acc = w
			continue
		}
		if w.Up != acc.Up {
			return nil, &ConflictError{Unit: unit, First: acc, Second: w}
		}
		if w.End > acc.End {
			acc.End = w.End
		}
	}
	return append(out, acc), nil
}

// sortWindows orders windows by start, then end, then status with down
// before up, so equal inputs always sort the same way.
func sortWindows(ws []types.TimeWindow) {
	sort.Slice(ws, func(i, j int) bool {
		a, b := ws[i], ws[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return !a.Up && b.Up
	})
}
