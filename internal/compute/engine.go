package compute

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/stationuptime/stationuptime/pkg/types"
)

// Availability computes the availability of every station in members that
// has at least one reported window, in ascending station ID order.
//
// Units listed by a station but missing from timelines are skipped. A station
// whose units reported nothing, or whose observed span is zero, is left out
// of the result rather than reported as 0%.
//
// The first ConflictError aborts the whole computation and no partial result
// is returned.
func Availability(members types.Membership, timelines types.Timelines) ([]types.StationAvailability, error) {
	stations := make([]types.StationID, 0, len(members))
	for id := range members {
		stations = append(stations, id)
	}
	sort.Slice(stations, func(i, j int) bool { return stations[i] < stations[j] })

	// Units can belong to more than one station; normalize each once.
	normalized := make(map[types.UnitID][]types.TimeWindow)

	results := make([]types.StationAvailability, 0, len(stations))
	for _, station := range stations {
		units := sortedUnits(members[station])

		contributing := make([][]types.TimeWindow, 0, len(units))
		for _, unit := range units {
			tl, seen := normalized[unit]
			if !seen {
				raw, ok := timelines[unit]
				if !ok {
					continue
				}
				var err error
				tl, err = Normalize(unit, raw)
				if err != nil {
					return nil, fmt.Errorf("station %d: %w", station, err)
				}
				normalized[unit] = tl
			}
			if len(tl) > 0 {
				contributing = append(contributing, tl)
			}
		}

		cov, ok := Aggregate(contributing...)
		if !ok {
			slog.Debug("compute: station has no reports, omitting", "station", station)
			continue
		}
		pct, ok := Percent(cov.Available, cov.Total)
		if !ok {
			slog.Debug("compute: station has zero observed span, omitting", "station", station)
			continue
		}

		results = append(results, types.StationAvailability{
			StationID:      station,
			Percent:        pct,
			AvailableTime:  cov.Available,
			TotalTime:      cov.Total,
			ReportingUnits: len(contributing),
		})
	}
	return results, nil
}

func sortedUnits(set types.UnitSet) []types.UnitID {
	units := make([]types.UnitID, 0, len(set))
	for u := range set {
		units = append(units, u)
	}
	sort.Slice(units, func(i, j int) bool { return units[i] < units[j] })
	return units
}
