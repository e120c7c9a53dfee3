// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

// Package chart renders the aggregate rows as a PNG time series: one point
// per bucket with the call count on the Y axis, each point annotated with
// the bucket's latency min, max and mean.
package chart

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tomtom215/logscope/internal/models"
)

// ErrNoRows is returned when there is nothing to plot.
var ErrNoRows = errors.New("chart: no aggregate rows")

// Themes.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// Default canvas size.
const (
	DefaultWidth  = 1200
	DefaultHeight = 500
	MaxDimension  = 4000
)

// Options describes one rendering.
type Options struct {
	WindowLabel string
	BucketLabel string
	Bucket      time.Duration
	Theme       string
	Width       int
	Height      int
}

type palette struct {
	background drawing.Color
	canvas     drawing.Color
	line       drawing.Color
	dot        drawing.Color
	font       drawing.Color
	grid       drawing.Color
	annotation drawing.Color
}

var palettes = map[string]palette{
	ThemeLight: {
		background: drawing.ColorWhite,
		canvas:     drawing.ColorWhite,
		line:       chart.ColorBlue,
		dot:        chart.ColorBlue,
		font:       drawing.ColorFromHex("333333"),
		grid:       drawing.ColorFromHex("e5e5e5"),
		annotation: drawing.ColorFromHex("f5f5f5"),
	},
	ThemeDark: {
		background: drawing.ColorFromHex("111111"),
		canvas:     drawing.ColorFromHex("111111"),
		line:       drawing.ColorFromHex("636efa"),
		dot:        drawing.ColorFromHex("636efa"),
		font:       drawing.ColorFromHex("f2f5fa"),
		grid:       drawing.ColorFromHex("283442"),
		annotation: drawing.ColorFromHex("222222"),
	},
}

var printer = message.NewPrinter(language.English)

// Title is the chart heading, e.g. "API Call Count (over Last 7 Days),
// grouped by 1 Day".
func Title(windowLabel, bucketLabel string) string {
	return fmt.Sprintf("API Call Count (over %s), grouped by %s", windowLabel, bucketLabel)
}

// Annotation formats the latency summary shown above a point. Absent
// statistics print as "n/a".
func Annotation(row models.AggregateRow) string {
	return fmt.Sprintf("min: %s max: %s mean: %s",
		formatStat(row.Min), formatStat(row.Max), formatStat(row.Mean))
}

func formatStat(v models.Opt[float64]) string {
	f, ok := v.Get()
	if !ok {
		return "n/a"
	}
	return printer.Sprintf("%.2f", f)
}

// Render writes rows as a PNG to w.
func Render(w io.Writer, rows []models.AggregateRow, opts Options) error {
	if len(rows) == 0 {
		return ErrNoRows
	}
	opts = normalize(opts)
	pal := palettes[opts.Theme]

	xs := make([]time.Time, len(rows))
	ys := make([]float64, len(rows))
	annotations := make([]chart.Value2, len(rows))
	var maxCount float64
	for i, row := range rows {
		xs[i] = row.BucketStart
		ys[i] = float64(row.Count)
		if ys[i] > maxCount {
			maxCount = ys[i]
		}
		annotations[i] = chart.Value2{
			XValue: chart.TimeToFloat64(row.BucketStart),
			YValue: ys[i],
			Label:  Annotation(row),
		}
	}

	// Explicit ranges keep a single bucket renderable and leave headroom
	// for the annotations.
	half := opts.Bucket / 2
	if half <= 0 {
		half = 30 * time.Minute
	}
	xRange := &chart.ContinuousRange{
		Min: chart.TimeToFloat64(xs[0].Add(-half)),
		Max: chart.TimeToFloat64(xs[len(xs)-1].Add(half)),
	}
	yRange := &chart.ContinuousRange{Min: 0, Max: maxCount*1.3 + 1}

	fontStyle := chart.Style{FontColor: pal.font, StrokeColor: pal.grid}
	gridStyle := chart.Style{StrokeColor: pal.grid, StrokeWidth: 1}

	graph := chart.Chart{
		Title:      Title(opts.WindowLabel, opts.BucketLabel),
		TitleStyle: chart.Style{FontColor: pal.font},
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{
			FillColor: pal.background,
			Padding:   chart.Box{Top: 60, Left: 40, Right: 40, Bottom: 40},
		},
		Canvas: chart.Style{FillColor: pal.canvas},
		XAxis: chart.XAxis{
			Name:           "Time",
			NameStyle:      fontStyle,
			Style:          fontStyle,
			Range:          xRange,
			ValueFormatter: chart.TimeValueFormatterWithFormat(timeLayout(opts.Bucket)),
			GridMajorStyle: gridStyle,
		},
		YAxis: chart.YAxis{
			Name:           "Count of process_time",
			NameStyle:      fontStyle,
			Style:          fontStyle,
			Range:          yRange,
			ValueFormatter: countFormatter,
			GridMajorStyle: gridStyle,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Count",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: pal.line,
					StrokeWidth: 2,
					DotColor:    pal.dot,
					DotWidth:    4,
				},
			},
			chart.AnnotationSeries{
				Annotations: annotations,
				Style: chart.Style{
					FillColor:   pal.annotation,
					FontColor:   pal.font,
					StrokeColor: pal.grid,
					FontSize:    8,
				},
			},
		},
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}

func normalize(opts Options) Options {
	if _, ok := palettes[opts.Theme]; !ok {
		opts.Theme = ThemeLight
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	opts.Width = min(opts.Width, MaxDimension)
	opts.Height = min(opts.Height, MaxDimension)
	return opts
}

// timeLayout picks an X-axis label format coarse enough for the bucket.
func timeLayout(bucket time.Duration) string {
	if bucket >= 24*time.Hour {
		return "2006-01-02"
	}
	return "01-02 15:04"
}

func countFormatter(v interface{}) string {
	if f, ok := v.(float64); ok {
		return printer.Sprintf("%d", int64(f))
	}
	return ""
}
