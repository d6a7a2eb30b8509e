package alerts

import (
	"strconv"
	"strings"

	"github.com/stationuptime/stationuptime/pkg/types"
)

// evalCondition evaluates a rule condition string against one station result.
//
// Supported expressions (field operator value):
//
//	availability < 90
//	available_time <= 3600
//	total_time > 86400
//	reporting_units == 0
//
// Returns (fires bool, triggering value float64).
// Returns (false, 0) if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, r types.StationAvailability) (bool, float64) {
	parts := strings.Fields(cond)
	if len(parts) != 3 {
		return false, 0
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	v, ok := numericField(field, r)
	if !ok {
		return false, 0
	}
	cmp, ok := comparators[op]
	if !ok {
		return false, 0
	}
	threshold, err := strconv.ParseFloat(rhs, 64)
	if err != nil {
		return false, 0
	}
	return cmp(v, threshold), v
}

// numericField maps a field name to its value in the result.
func numericField(field string, r types.StationAvailability) (float64, bool) {
	switch field {
	case "availability":
		return float64(r.Percent), true
	case "available_time":
		return float64(r.AvailableTime), true
	case "total_time":
		return float64(r.TotalTime), true
	case "reporting_units":
		return float64(r.ReportingUnits), true
	default:
		return 0, false
	}
}

// comparators holds one predicate per operator accepted by config.Validate.
var comparators = map[string]func(v, threshold float64) bool{
	">":  func(v, t float64) bool { return v > t },
	">=": func(v, t float64) bool { return v >= t },
	"<":  func(v, t float64) bool { return v < t },
	"<=": func(v, t float64) bool { return v <= t },
	"==": func(v, t float64) bool { return v == t },
}
