// Package types defines the record model shared by the parser, the compute
// engine and the exporters: report windows, the station → unit membership
// and the per-station availability produced by a run.
package types
