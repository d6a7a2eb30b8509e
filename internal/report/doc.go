// Package report parses the two-section availability export:
//
//	[Stations]
//	<station_id> <unit_id> ...
//	[Charger Availability Reports]
//	<unit_id> <start> <end> [true|True]
//
// Parse returns a types.Dataset or a *RecordError wrapping ErrMalformedRecord
// or ErrInvalidWindow. The first bad line aborts the parse.
package report
