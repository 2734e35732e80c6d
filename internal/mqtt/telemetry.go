package mqtt

import (
	"math"
	"strconv"
	"time"

	"cloudpico-metobs/internal/modules/weather/types"
)

// Telemetry is the cloudpico station reading published per merged row.
type Telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Humidity    *float64  `json:"humidity_pct,omitempty"`
	Pressure    *float64  `json:"pressure_hpa,omitempty"`
	Sequence    *int      `json:"sequence,omitempty"`
}

// StationKey is the topic segment and station_id of a dataset.
func StationKey(ds *types.Dataset) string {
	return strconv.Itoa(ds.StationID)
}

// FromDataset maps every row to a reading. Parameters without a telemetry
// field and null cells are left out; rows that carry no field at all are skipped.
func FromDataset(ds *types.Dataset) []Telemetry {
	out := make([]Telemetry, 0, len(ds.Rows))
	for i, r := range ds.Rows {
		t := Telemetry{StationID: StationKey(ds), Timestamp: r.Timestamp()}
		set := false
		for j, p := range ds.Params {
			v := r.Values[j]
			if math.IsNaN(v) {
				continue
			}
			switch p.Field {
			case "temperature_c":
				t.Temperature = &v
			case "humidity_pct":
				t.Humidity = &v
			case "pressure_hpa":
				t.Pressure = &v
			default:
				continue
			}
			set = true
		}
		if !set {
			continue
		}
		seq := i + 1
		t.Sequence = &seq
		out = append(out, t)
	}
	return out
}
