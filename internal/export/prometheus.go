package export

import (
	"fmt"
	"io"
	"strconv"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/stationuptime/stationuptime/pkg/types"
)

// Metric names written by WritePrometheus.
const (
	MetricAvailabilityPercent = "station_availability_percent"
	MetricAvailableTime       = "station_available_time"
	MetricObservedTime        = "station_observed_time"
	MetricReportingUnits      = "station_reporting_units"
)

const stationLabel = "station"

// gauge describes one metric family and how to read its value from a result.
type gauge struct {
	name  string
	help  string
	value func(types.StationAvailability) float64
}

var gauges = []gauge{
	{
		name:  MetricAvailabilityPercent,
		help:  "Share of the observed span during which at least one unit was reachable, floored to an integer percent.",
		value: func(r types.StationAvailability) float64 { return float64(r.Percent) },
	},
	{
		name:  MetricAvailableTime,
		help:  "Length of the union of reachable windows across the station's units.",
		value: func(r types.StationAvailability) float64 { return float64(r.AvailableTime) },
	},
	{
		name:  MetricObservedTime,
		help:  "Span from the earliest report start to the latest report end at the station.",
		value: func(r types.StationAvailability) float64 { return float64(r.TotalTime) },
	},
	{
		name:  MetricReportingUnits,
		help:  "Number of member units with at least one report.",
		value: func(r types.StationAvailability) float64 { return float64(r.ReportingUnits) },
	},
}

// WritePrometheus writes results in the Prometheus text exposition format.
// Nothing is written for an empty result set.
func WritePrometheus(w io.Writer, results []types.StationAvailability) error {
	if len(results) == 0 {
		return nil
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range metricFamilies(results) {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("export: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// metricFamilies builds one gauge family per metric with a sample per station.
func metricFamilies(results []types.StationAvailability) []*dto.MetricFamily {
	out := make([]*dto.MetricFamily, 0, len(gauges))
	for _, g := range gauges {
		mf := &dto.MetricFamily{
			Name:   proto.String(g.name),
			Help:   proto.String(g.help),
			Type:   dto.MetricType_GAUGE.Enum(),
			Metric: make([]*dto.Metric, 0, len(results)),
		}
		for _, r := range results {
			mf.Metric = append(mf.Metric, &dto.Metric{
				Label: []*dto.LabelPair{{
					Name:  proto.String(stationLabel),
					Value: proto.String(strconv.FormatUint(uint64(r.StationID), 10)),
				}},
				Gauge: &dto.Gauge{Value: proto.Float64(g.value(r))},
			})
		}
		out = append(out, mf)
	}
	return out
}
