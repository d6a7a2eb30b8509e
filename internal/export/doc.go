// Package export writes computed station availability.
//
//   - text: "<station_id> <percent>" per line, the canonical output
//   - json: an array of types.StationAvailability
//   - prometheus: text exposition gauges labelled by station, suitable for
//     node_exporter's textfile collector
//
// Results are written in the order given; the compute engine already sorts
// them by station ID.
package export
