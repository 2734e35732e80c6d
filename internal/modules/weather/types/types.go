package types

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Station is one entry of the reference station table.
type Station struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Parameter is a configured observation series, e.g. air temperature.
// Field is the telemetry JSON field the values map to when exported; it may be empty.
type Parameter struct {
	Code  int    `json:"code" validate:"gt=0"`
	Name  string `json:"name" validate:"required"`
	Field string `json:"field,omitempty" validate:"omitempty,oneof=temperature_c humidity_pct pressure_hpa"`
}

// Slug is the display name usable in file names.
func (p Parameter) Slug() string {
	return strings.ReplaceAll(p.Name, " ", "_")
}

// Row is one normalized observation: a (date, time) key and one value per parameter.
// Values are in the order of Dataset.Params; a NaN value is a null cell.
type Row struct {
	Date   time.Time
	Time   time.Duration
	Values []float64
}

// Timestamp combines the date and the time of day.
func (r Row) Timestamp() time.Time {
	return r.Date.Add(r.Time)
}

// Hour is the hour of day of the observation.
func (r Row) Hour() int {
	return int(r.Time / time.Hour)
}

// Dataset is the merged, fully typed per-station table.
type Dataset struct {
	StationID int
	Index     [2]string
	Params    []Parameter
	Rows      []Row
}

// Column returns the position of the parameter with the given display name, or -1.
func (d *Dataset) Column(name string) int {
	for i, p := range d.Params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Values returns the non-null values of column i in row order.
func (d *Dataset) Values(i int) []float64 {
	out := make([]float64, 0, len(d.Rows))
	for _, r := range d.Rows {
		if v := r.Values[i]; !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// FormatClock renders a time of day as hh:mm:ss.
func FormatClock(d time.Duration) string {
	return time.Time{}.Add(d).Format(TimeLayout)
}

// RawFileName is the per-parameter download, cleaned in place later.
func RawFileName(stationID, code int) string {
	return fmt.Sprintf("%d_%d_data_file.csv", stationID, code)
}

// MergedFileName is the per-station merged dataset.
func MergedFileName(stationID int) string {
	return fmt.Sprintf("%d_data_file.csv", stationID)
}
