// Package views renders the charts of a normalized station dataset into the
// output directory: static SVG files and one interactive HTML page.
package views

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"cloudpico-metobs/internal/modules/weather/types"
)

// recentDays is how many trailing dates the recent days chart shows.
const recentDays = 5

// Presenter receives the finished dataset: once per parameter, then once for
// each cross-parameter chart.
type Presenter interface {
	Parameter(ctx context.Context, ds *types.Dataset, station string, p types.Parameter) error
	Joint(ctx context.Context, ds *types.Dataset, station string) error
	Pairs(ctx context.Context, ds *types.Dataset, station string) error
	Interactive(ctx context.Context, ds *types.Dataset, station string) error
}

type Renderer struct {
	tmpl   *template.Template
	dir    string
	logger *slog.Logger
}

// loadTemplatesFromFS parses every template in dir of fsys. Tests use it to
// simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) (*template.Template, error) {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return nil, err
	}
	return template.ParseFS(sub, "*.tmpl")
}

// NewRenderer loads the embedded templates. Call during startup; an error
// means no chart can be rendered.
func NewRenderer(dir string, logger *slog.Logger) (*Renderer, error) {
	tmpl, err := loadTemplatesFromFS(viewsFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("load chart templates: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{tmpl: tmpl, dir: dir, logger: logger}, nil
}

// FileSafe replaces characters that do not belong in a file name.
func FileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':':
			return '_'
		}
		return r
	}, s)
}

// ParameterFiles are the files Parameter writes for p.
func ParameterFiles(p types.Parameter) []string {
	slug := FileSafe(p.Slug())
	return []string{
		"mean_daily_" + slug + ".svg",
		"mean_hourly_" + slug + ".svg",
		"recent_days_" + slug + ".svg",
		"heatmap_" + slug + ".svg",
		"clustermap_" + slug + ".svg",
	}
}

// Cross-parameter chart files.
const (
	JointFile = "joint.svg"
	PairsFile = "pairs.svg"
)

// PlotFile is the interactive chart of a station.
func PlotFile(station string) string {
	return FileSafe(station) + "_plot.html"
}

func (r *Renderer) Parameter(ctx context.Context, ds *types.Dataset, station string, p types.Parameter) error {
	col := ds.Column(p.Name)
	if col < 0 {
		return fmt.Errorf("no column %q in dataset", p.Name)
	}
	files := ParameterFiles(p)

	dates, daily := DailyMeans(ds, col)
	if err := r.write(ctx, files[0], "line.svg.tmpl", newLineChart(
		fmt.Sprintf("Mean daily %s, %s", p.Name, station), "Date", p.Name,
		dates, []string{p.Name}, [][]float64{daily},
	)); err != nil {
		return err
	}

	if err := r.write(ctx, files[1], "line.svg.tmpl", newLineChart(
		fmt.Sprintf("Mean hourly %s, %s", p.Name, station), "Hour (UTC)", p.Name,
		hourLabels(), []string{p.Name}, [][]float64{HourlyMeans(ds, col)},
	)); err != nil {
		return err
	}

	recent, grid := RecentDays(ds, col, recentDays)
	if err := r.write(ctx, files[2], "line.svg.tmpl", newLineChart(
		fmt.Sprintf("%s over the last %d days, %s", p.Name, len(recent), station), "Hour (UTC)", p.Name,
		hourLabels(), recent, grid,
	)); err != nil {
		return err
	}

	allDates, allGrid := DateHourGrid(ds, col)
	if err := r.write(ctx, files[3], "heatmap.svg.tmpl", newHeatmapChart(
		fmt.Sprintf("%s by date and hour, %s", p.Name, station), allDates, allHours(), allGrid, heatColor,
	)); err != nil {
		return err
	}

	if err := r.write(ctx, files[4], "heatmap.svg.tmpl", clustermap(
		fmt.Sprintf("%s dates clustered by daily profile, %s", p.Name, station), allDates, allGrid,
	)); err != nil {
		return err
	}

	r.logger.Info("rendered parameter charts", "parameter", p.Name, "files", len(files))
	return nil
}

// clustermap reorders the complete dates of grid by their clustering.
func clustermap(title string, dates []string, grid [][]float64) heatmapChart {
	dates, hours, rows := CompleteGrid(dates, grid)
	order := ClusterOrder(rows)
	sortedDates := make([]string, len(order))
	sortedRows := make([][]float64, len(order))
	for i, j := range order {
		sortedDates[i] = dates[j]
		sortedRows[i] = rows[j]
	}
	return newHeatmapChart(title, sortedDates, hours, sortedRows, viridis)
}

// Joint writes joint.svg, a scatter of the first two parameters. With fewer
// than two it writes nothing.
func (r *Renderer) Joint(ctx context.Context, ds *types.Dataset, station string) error {
	if len(ds.Params) < 2 {
		r.logger.Debug("joint chart needs two parameters", "parameters", len(ds.Params))
		return ctx.Err()
	}
	xs, ys := Pairs(ds, 0, 1)
	x, y := ds.Params[0].Name, ds.Params[1].Name
	if err := r.write(ctx, JointFile, "scatter.svg.tmpl", newScatterChart(
		fmt.Sprintf("%s against %s, %s", y, x, station), x, y, xs, ys,
	)); err != nil {
		return err
	}
	r.logger.Info("rendered joint chart", "station", station)
	return nil
}

// Pairs writes pairs.svg, the scatter matrix of every parameter.
func (r *Renderer) Pairs(ctx context.Context, ds *types.Dataset, station string) error {
	names := make([]string, len(ds.Params))
	columns := make([][]float64, len(ds.Params))
	for i, p := range ds.Params {
		names[i] = p.Name
		columns[i] = column(ds, i)
	}
	hours := make([]int, len(ds.Rows))
	for i, row := range ds.Rows {
		hours[i] = row.Hour()
	}
	if err := r.write(ctx, PairsFile, "pairs.svg.tmpl", newPairsChart(
		fmt.Sprintf("Pairwise distributions by hour of day, %s", station), names, columns, hours,
	)); err != nil {
		return err
	}
	r.logger.Info("rendered pairs chart", "station", station)
	return nil
}

// Interactive writes the HTML chart of daily means.
func (r *Renderer) Interactive(ctx context.Context, ds *types.Dataset, station string) error {
	if err := r.write(ctx, PlotFile(station), "plot.html.tmpl", newInteractivePlot(ds, station)); err != nil {
		return err
	}
	r.logger.Info("rendered interactive chart", "station", station)
	return nil
}

func (r *Renderer) write(ctx context.Context, name, tmpl string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	r.logger.Debug("chart written", "path", path, "bytes", buf.Len())
	return nil
}

func hourLabels() []string {
	out := make([]string, hoursPerDay)
	for h := range out {
		out[h] = fmt.Sprintf("%02d", h)
	}
	return out
}

func column(ds *types.Dataset, i int) []float64 {
	out := make([]float64, len(ds.Rows))
	for j, r := range ds.Rows {
		out[j] = r.Values[i]
	}
	return out
}

type plotSeries struct {
	Name   string     `json:"name"`
	Color  string     `json:"color"`
	Axis   string     `json:"axis"`
	Values []*float64 `json:"values"`
}

type interactivePlot struct {
	Title    string       `json:"title"`
	Dates    []string     `json:"dates"`
	DualAxis bool         `json:"dualAxis"`
	Series   []plotSeries `json:"series"`
}

// newInteractivePlot charts the daily means of every parameter. Exactly two
// parameters get a y axis each; otherwise all share one.
func newInteractivePlot(ds *types.Dataset, station string) interactivePlot {
	p := interactivePlot{
		Title:    "Daily means, " + station,
		DualAxis: len(ds.Params) == 2,
	}
	for i, param := range ds.Params {
		dates, means := DailyMeans(ds, i)
		if p.Dates == nil {
			p.Dates = dates
		}
		s := plotSeries{Name: param.Name, Color: seriesColor(i), Axis: "y", Values: make([]*float64, len(means))}
		if p.DualAxis && i == 1 {
			s.Axis = "y2"
		}
		for j, v := range means {
			if !math.IsNaN(v) {
				s.Values[j] = &v
			}
		}
		p.Series = append(p.Series, s)
	}
	if p.Dates == nil {
		p.Dates = []string{}
	}
	return p
}
