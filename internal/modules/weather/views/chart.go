package views

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	chartWidth  = 720.0
	chartHeight = 420.0
	marginLeft  = 64.0
	marginRight = 24.0
	marginTop   = 44.0
	marginBot   = 56.0
	maxXTicks   = 8
	yTicks      = 5
)

// Fixed colours of the first two series; later ones are generated.
var baseColors = []string{"#1f77b4", "#d62728"}

func seriesColor(i int) string {
	if i < len(baseColors) {
		return baseColors[i]
	}
	return fmt.Sprintf("hsl(%d, 60%%, 45%%)", (i*137)%360)
}

type rect struct {
	X, Y, W, H float64
}

func plotArea() rect {
	return rect{
		X: marginLeft,
		Y: marginTop,
		W: chartWidth - marginLeft - marginRight,
		H: chartHeight - marginTop - marginBot,
	}
}

type tick struct {
	Pos   float64
	Label string
}

type polyline struct {
	Name    string
	Color   string
	Points  string
	LegendY float64
}

type lineChart struct {
	Title   string
	XLabel  string
	YLabel  string
	Width   float64
	Height  float64
	Plot    rect
	XTicks  []tick
	YTicks  []tick
	Lines   []polyline
	LegendX float64
}

type circle struct {
	CX, CY float64
	Fill   string
}

type scatterChart struct {
	Title  string
	XLabel string
	YLabel string
	Width  float64
	Height float64
	Plot   rect
	XTicks []tick
	YTicks []tick
	Dots   []circle
}

type cell struct {
	X, Y, W, H float64
	Fill       string
	Label      string
}

type heatmapChart struct {
	Title  string
	Width  float64
	Height float64
	Plot   rect
	XTicks []tick
	YTicks []tick
	Cells  []cell
	AxisY  float64
	Min    string
	Max    string
}

type bar struct {
	X, Y, W, H float64
}

type panel struct {
	X, Y, Size float64
	Label      string
	Dots       []circle
	Bars       []bar
}

type pairsChart struct {
	Title  string
	Width  float64
	Height float64
	Panels []panel
	Names  []tick
}

// scale maps v from [lo, hi] onto [from, to]. A flat range maps to the middle.
func scale(v, lo, hi, from, to float64) float64 {
	if hi == lo {
		return (from + to) / 2
	}
	return from + (v-lo)/(hi-lo)*(to-from)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// valueTicks labels n evenly spaced values along the y axis of area.
func valueTicks(lo, hi float64, area rect) []tick {
	ticks := make([]tick, 0, yTicks)
	for i := 0; i < yTicks; i++ {
		v := lo + (hi-lo)*float64(i)/float64(yTicks-1)
		ticks = append(ticks, tick{Pos: scale(v, lo, hi, area.Y+area.H, area.Y), Label: formatValue(v)})
	}
	return ticks
}

// xValueTicks is valueTicks along the x axis.
func xValueTicks(lo, hi float64, area rect) []tick {
	ticks := make([]tick, 0, yTicks)
	for i := 0; i < yTicks; i++ {
		v := lo + (hi-lo)*float64(i)/float64(yTicks-1)
		ticks = append(ticks, tick{Pos: scale(v, lo, hi, area.X, area.X+area.W), Label: formatValue(v)})
	}
	return ticks
}

// categoryX positions category i of n inside area.
func categoryX(i, n int, area rect) float64 {
	if n <= 1 {
		return area.X + area.W/2
	}
	return area.X + area.W*float64(i)/float64(n-1)
}

// categoryTicks labels at most maxXTicks of the categories.
func categoryTicks(labels []string, area rect) []tick {
	step := max(1, int(math.Ceil(float64(len(labels))/maxXTicks)))
	var ticks []tick
	for i := 0; i < len(labels); i += step {
		ticks = append(ticks, tick{Pos: categoryX(i, len(labels), area), Label: labels[i]})
	}
	return ticks
}

// points renders one value per category as polyline points, skipping nulls.
func points(values []float64, lo, hi float64, area rect) string {
	var b strings.Builder
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		x := categoryX(i, len(values), area)
		y := scale(v, lo, hi, area.Y+area.H, area.Y)
		b.WriteString(strconv.FormatFloat(x, 'f', 1, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(y, 'f', 1, 64))
	}
	return b.String()
}

// newLineChart draws one line per series over shared categories.
func newLineChart(title, xLabel, yLabel string, labels []string, names []string, series [][]float64) lineChart {
	area := plotArea()
	lo, hi := bounds(series...)
	c := lineChart{
		Title:   title,
		XLabel:  xLabel,
		YLabel:  yLabel,
		Width:   chartWidth,
		Height:  chartHeight,
		Plot:    area,
		XTicks:  categoryTicks(labels, area),
		YTicks:  valueTicks(lo, hi, area),
		LegendX: area.X + 8,
	}
	for i, s := range series {
		c.Lines = append(c.Lines, polyline{
			Name:    names[i],
			Color:   seriesColor(i),
			Points:  points(s, lo, hi, area),
			LegendY: area.Y + 8 + 16*float64(i),
		})
	}
	return c
}

func newScatterChart(title, xLabel, yLabel string, xs, ys []float64) scatterChart {
	area := plotArea()
	xlo, xhi := bounds(xs)
	ylo, yhi := bounds(ys)
	c := scatterChart{
		Title:  title,
		XLabel: xLabel,
		YLabel: yLabel,
		Width:  chartWidth,
		Height: chartHeight,
		Plot:   area,
		XTicks: xValueTicks(xlo, xhi, area),
		YTicks: valueTicks(ylo, yhi, area),
		Dots:   make([]circle, len(xs)),
	}
	for i := range xs {
		c.Dots[i] = circle{
			CX: scale(xs[i], xlo, xhi, area.X, area.X+area.W),
			CY: scale(ys[i], ylo, yhi, area.Y+area.H, area.Y),
		}
	}
	return c
}

// heatColor interpolates from blue (lo) to red (hi).
func heatColor(v, lo, hi float64) string {
	if math.IsNaN(v) {
		return "#eeeeee"
	}
	t := scale(v, lo, hi, 0, 1)
	r := int(math.Round(49 + t*(215-49)))
	g := int(math.Round(130 + t*(48-130)))
	b := int(math.Round(189 + t*(39-189)))
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// viridisStops samples the viridis colour map at even steps.
var viridisStops = [][3]float64{
	{0x44, 0x01, 0x54}, {0x48, 0x28, 0x78}, {0x3e, 0x49, 0x89}, {0x31, 0x68, 0x8e}, {0x26, 0x82, 0x8e},
	{0x1f, 0x9e, 0x89}, {0x35, 0xb7, 0x79}, {0x6e, 0xce, 0x58}, {0xb5, 0xde, 0x2b}, {0xfd, 0xe7, 0x25},
}

// viridis interpolates the viridis ramp from dark purple (lo) to yellow (hi).
func viridis(v, lo, hi float64) string {
	if math.IsNaN(v) {
		return "#eeeeee"
	}
	t := scale(v, lo, hi, 0, float64(len(viridisStops)-1))
	i := min(int(t), len(viridisStops)-2)
	f := t - float64(i)
	a, b := viridisStops[i], viridisStops[i+1]
	return fmt.Sprintf("#%02x%02x%02x",
		int(math.Round(a[0]+f*(b[0]-a[0]))),
		int(math.Round(a[1]+f*(b[1]-a[1]))),
		int(math.Round(a[2]+f*(b[2]-a[2]))))
}

// hourColor gives each hour of day its own hue.
func hourColor(h int) string {
	return fmt.Sprintf("hsl(%d, 70%%, 45%%)", (h*15)%360)
}

func allHours() []int {
	hours := make([]int, hoursPerDay)
	for h := range hours {
		hours[h] = h
	}
	return hours
}

// newHeatmapChart draws one row per date and one column per entry of hours;
// grid[i][j] is the value of dates[i] at hours[j].
func newHeatmapChart(title string, dates []string, hours []int, grid [][]float64, color func(v, lo, hi float64) string) heatmapChart {
	area := plotArea()
	lo, hi := bounds(grid...)
	c := heatmapChart{
		Title:  title,
		Width:  chartWidth,
		Height: chartHeight,
		Plot:   area,
		AxisY:  area.Y + area.H + 14,
		Min:    formatValue(lo),
		Max:    formatValue(hi),
	}
	if len(dates) == 0 || len(hours) == 0 {
		return c
	}
	w := area.W / float64(len(hours))
	h := area.H / float64(len(dates))
	for j := 0; j < len(hours); j += max(1, len(hours)/8) {
		c.XTicks = append(c.XTicks, tick{Pos: area.X + w*(float64(j)+0.5), Label: fmt.Sprintf("%02d", hours[j])})
	}
	step := max(1, int(math.Ceil(float64(len(dates))/10)))
	for i, d := range dates {
		y := area.Y + h*float64(i)
		if i%step == 0 {
			c.YTicks = append(c.YTicks, tick{Pos: y + h/2, Label: d})
		}
		for j, v := range grid[i] {
			label := d + " " + fmt.Sprintf("%02d", hours[j]) + ":00"
			if !math.IsNaN(v) {
				label += " " + formatValue(v)
			}
			c.Cells = append(c.Cells, cell{
				X:     area.X + w*float64(j),
				Y:     y,
				W:     w,
				H:     h,
				Fill:  color(v, lo, hi),
				Label: label,
			})
		}
	}
	return c
}

const (
	pairsPanel = 180.0
	pairsGap   = 12.0
	pairsBins  = 12
)

// newPairsChart lays out a scatter matrix with histograms on the diagonal.
// Dots are coloured by the hour of day of their row.
func newPairsChart(title string, names []string, columns [][]float64, hours []int) pairsChart {
	n := len(names)
	side := marginLeft + float64(n)*(pairsPanel+pairsGap)
	c := pairsChart{Title: title, Width: side + marginRight, Height: side + marginTop}
	for i, name := range names {
		c.Names = append(c.Names, tick{Pos: marginLeft + float64(i)*(pairsPanel+pairsGap) + pairsPanel/2, Label: name})
	}
	for row := 0; row < n; row++ {
		for col := 0; col < n; col++ {
			p := panel{
				X:    marginLeft + float64(col)*(pairsPanel+pairsGap),
				Y:    marginTop + float64(row)*(pairsPanel+pairsGap),
				Size: pairsPanel,
			}
			area := rect{X: p.X, Y: p.Y, W: p.Size, H: p.Size}
			if row == col {
				p.Label = names[row]
				p.Bars = histogramBars(columns[row], area)
			} else {
				p.Dots = scatterDots(columns[col], columns[row], hours, area)
			}
			c.Panels = append(c.Panels, p)
		}
	}
	return c
}

func histogramBars(values []float64, area rect) []bar {
	_, _, counts := Histogram(values, pairsBins)
	peak := 0
	for _, n := range counts {
		peak = max(peak, n)
	}
	if peak == 0 {
		return nil
	}
	w := area.W / float64(len(counts))
	bars := make([]bar, 0, len(counts))
	for i, n := range counts {
		h := area.H * float64(n) / float64(peak)
		bars = append(bars, bar{X: area.X + w*float64(i), Y: area.Y + area.H - h, W: w, H: h})
	}
	return bars
}

func scatterDots(xs, ys []float64, hours []int, area rect) []circle {
	xlo, xhi := bounds(xs)
	ylo, yhi := bounds(ys)
	dots := make([]circle, 0, len(xs))
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			continue
		}
		dots = append(dots, circle{
			CX:   scale(xs[i], xlo, xhi, area.X, area.X+area.W),
			CY:   scale(ys[i], ylo, yhi, area.Y+area.H, area.Y),
			Fill: hourColor(hours[i]),
		})
	}
	return dots
}
