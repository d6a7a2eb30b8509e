// Package compute derives per-station availability from raw unit reports.
//
// normalize.go sorts one unit's windows and merges overlapping windows that
// agree on status. Overlapping windows that disagree are a ConflictError.
//
// coverage.go sweeps the normalized windows of every unit at a station once,
// in (start, end) order, and returns the union of up time together with the
// observed span from the earliest start to the latest end.
//
// quantize.go turns (available, total) into an integer percentage. Operands
// are rescaled at a fixed threshold so the intermediate product cannot
// overflow a uint64.
//
// engine.go ties the three together. Availability is a pure function: it
// never mutates its inputs and keeps no state between calls.
//
// All windows are half-open: [start, end).
package compute
