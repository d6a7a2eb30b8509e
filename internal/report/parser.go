package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stationuptime/stationuptime/pkg/types"
)

// Section headers, matched after trimming surrounding whitespace.
const (
	HeaderStations = "[Stations]"
	HeaderReports  = "[Charger Availability Reports]"
)

// maxLineBytes bounds a single line; station lines list every unit and can
// outgrow bufio's 64 KiB default.
const maxLineBytes = 4 << 20

type section int

const (
	sectionNone section = iota
	sectionStations
	sectionReports
)

// Parse reads the whole export from r.
func Parse(r io.Reader) (*types.Dataset, error) {
	ds := types.NewDataset()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	current := sectionNone
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())

		switch line {
		case "":
			continue
		case HeaderStations:
			current = sectionStations
			continue
		case HeaderReports:
			current = sectionReports
			continue
		}

		switch current {
		case sectionStations:
			station, units, err := ParseStation(line)
			if err != nil {
				return nil, withLine(err, lineNo)
			}
			ds.Stations.Declare(station, units...)
		case sectionReports:
			unit, w, err := ParseReport(line)
			if err != nil {
				return nil, withLine(err, lineNo)
			}
			ds.Reports.Append(unit, w)
		default:
			return nil, malformed(lineNo, "data before any section header: %q", line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("report: read line %d: %w", lineNo+1, err)
	}
	return ds, nil
}

// ParseStation parses "<station_id> <unit_id> ...". A station with no units
// is valid.
func ParseStation(line string) (types.StationID, []types.UnitID, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, nil, malformed(0, "empty station line")
	}

	station, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return 0, nil, malformed(0, "invalid station ID %q", fields[0])
	}

	units := make([]types.UnitID, 0, len(fields)-1)
	for _, f := range fields[1:] {
		u, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return 0, nil, malformed(0, "station %d: invalid unit ID %q", station, f)
		}
		units = append(units, types.UnitID(u))
	}
	return types.StationID(station), units, nil
}

// ParseReport parses "<unit_id> <start> <end> [<up_flag>]".
func ParseReport(line string) (types.UnitID, types.TimeWindow, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 || len(fields) > 4 {
		return 0, types.TimeWindow{}, malformed(0, "report needs 3 or 4 fields, got %d: %q", len(fields), line)
	}

	unit, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return 0, types.TimeWindow{}, malformed(0, "invalid unit ID %q", fields[0])
	}
	start, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, types.TimeWindow{}, malformed(0, "unit %d: invalid start time %q", unit, fields[1])
	}
	end, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return 0, types.TimeWindow{}, malformed(0, "unit %d: invalid end time %q", unit, fields[2])
	}
	if start > end {
		return 0, types.TimeWindow{}, &RecordError{
			Kind: ErrInvalidWindow,
			Msg:  fmt.Sprintf("unit %d: start %d is after end %d", unit, start, end),
		}
	}

	var flag string
	if len(fields) == 4 {
		flag = fields[3]
	}
	return types.UnitID(unit), types.TimeWindow{Start: start, End: end, Up: IsUp(flag)}, nil
}

// IsUp reports whether flag marks a window as reachable. Only the exact
// tokens "true" and "True" do; anything else, including "", means down.
func IsUp(flag string) bool {
	switch flag {
	case "true", "True":
		return true
	default:
		return false
	}
}

// withLine stamps the line number onto a RecordError from the line parsers.
func withLine(err error, line int) error {
	if re, ok := err.(*RecordError); ok {
		cp := *re
		cp.Line = line
		return &cp
	}
	return err
}
