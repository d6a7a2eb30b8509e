package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/stationuptime/stationuptime/pkg/types"
)

// Write emits results to w in the named format: text, json or prometheus.
func Write(w io.Writer, format string, results []types.StationAvailability) error {
	switch format {
	case "text", "":
		return WriteText(w, results)
	case "json":
		return WriteJSON(w, results)
	case "prometheus":
		return WritePrometheus(w, results)
	default:
		return fmt.Errorf("export: unknown format %q", format)
	}
}

// WriteText writes one "<station_id> <percent>" line per result.
func WriteText(w io.Writer, results []types.StationAvailability) error {
	bw := bufio.NewWriter(w)
	for _, r := range results {
		if _, err := fmt.Fprintf(bw, "%d %d\n", r.StationID, r.Percent); err != nil {
			return fmt.Errorf("export: write text: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("export: write text: %w", err)
	}
	return nil
}

// WriteJSON writes results as an indented JSON array. An empty result set is
// written as [] rather than null.
func WriteJSON(w io.Writer, results []types.StationAvailability) error {
	if results == nil {
		results = []types.StationAvailability{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("export: write json: %w", err)
	}
	return nil
}
