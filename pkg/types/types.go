package types

// UnitID identifies a single charging unit.
type UnitID uint32

// StationID identifies a charging station (a group of units).
type StationID uint32

// TimeWindow is one reported interval [Start, End) for a unit.
// Up is true when the unit was reachable for the whole window.
//
// Start <= End always holds; the parser rejects anything else.
type TimeWindow struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
	Up    bool   `json:"up"`
}

// Duration returns End - Start.
func (w TimeWindow) Duration() uint64 {
	return w.End - w.Start
}

// UnitSet is a set of unit IDs.
type UnitSet map[UnitID]struct{}

// Add inserts id. Adding an id that is already present is a no-op.
func (s UnitSet) Add(id UnitID) {
	s[id] = struct{}{}
}

// Membership maps each station to the units it contains.
type Membership map[StationID]UnitSet

// Declare records that station contains units. Declaring the same station
// again merges the new units into the existing set.
func (m Membership) Declare(station StationID, units ...UnitID) {
	set, ok := m[station]
	if !ok {
		set = make(UnitSet, len(units))
		m[station] = set
	}
	for _, u := range units {
		set.Add(u)
	}
}

// Timelines maps each unit to its raw reported windows in input order.
type Timelines map[UnitID][]TimeWindow

// Append adds w to the end of unit's timeline.
func (t Timelines) Append(unit UnitID, w TimeWindow) {
	t[unit] = append(t[unit], w)
}

// Dataset is everything read from one report export.
type Dataset struct {
	Stations Membership
	Reports  Timelines
}

// NewDataset returns a Dataset with both maps allocated.
func NewDataset() *Dataset {
	return &Dataset{
		Stations: make(Membership),
		Reports:  make(Timelines),
	}
}

// StationAvailability is the computed result for one station.
type StationAvailability struct {
	StationID StationID `json:"station_id"`

	// Percent is the share of TotalTime during which at least one unit was up,
	// floored to an integer in [0, 100].
	Percent uint8 `json:"percent"`

	// AvailableTime and TotalTime are the raw operands Percent was derived from.
	AvailableTime uint64 `json:"available_time"`
	TotalTime     uint64 `json:"total_time"`

	// ReportingUnits is the number of member units with at least one window.
	ReportingUnits int `json:"reporting_units"`
}
