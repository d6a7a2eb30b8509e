package compute

import (
	"errors"
	"fmt"

	"github.com/stationuptime/stationuptime/pkg/types"
)

// ErrConflictingReport is returned (wrapped in a ConflictError) when two
// windows of the same unit overlap but disagree on reachability.
var ErrConflictingReport = errors.New("conflicting report")

// ConflictError names the unit whose reports disagree and the two windows
// that overlap.
type ConflictError struct {
	Unit   types.UnitID
	First  types.TimeWindow
	Second types.TimeWindow
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: unit %d reports [%d, %d) as %s and [%d, %d) as %s",
		ErrConflictingReport, e.Unit,
		e.First.Start, e.First.End, status(e.First.Up),
		e.Second.Start, e.Second.End, status(e.Second.Up))
}

func (e *ConflictError) Unwrap() error { return ErrConflictingReport }

func status(up bool) string {
	if up {
		return "up"
	}
	return "down"
}
