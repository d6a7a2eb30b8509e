package compute

import "github.com/stationuptime/stationuptime/pkg/types"

// Coverage is the aggregated result for one station.
type Coverage struct {
	// Available is the length of the union of all up windows.
	Available uint64

	// Total is the observed span: latest end minus earliest start, counting
	// windows of either status.
	Total uint64
}

// Aggregate merges the normalized timelines of a station's units in a single
// sweep over all their windows. ok is false when no window was supplied.
//
// A unit is counted as reachable only inside its up windows; gaps and down
// windows inside the observed span count against availability.
func Aggregate(timelines ...[]types.TimeWindow) (cov Coverage, ok bool) {
	var n int
	for _, tl := range timelines {
		n += len(tl)
	}
	if n == 0 {
		return Coverage{}, false
	}

	windows := make([]types.TimeWindow, 0, n)
	for _, tl := range timelines {
		windows = append(windows, tl...)
	}
	sortWindows(windows)

	firstStart := windows[0].Start
	lastEnd := windows[0].End
	coveredUntil := firstStart
	var available uint64

	for _, w := range windows {
		if w.End > lastEnd {
			lastEnd = w.End
		}
		if !w.Up {
			continue
		}
		if coveredUntil >= w.End {
			continue
		}
		if coveredUntil >= w.Start {
			available += w.End - coveredUntil
		} else {
			available += w.Duration()
		}
		coveredUntil = w.End
	}

	return Coverage{Available: available, Total: lastEnd - firstStart}, true
}
