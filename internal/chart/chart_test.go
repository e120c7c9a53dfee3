// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package chart

import (
	"bytes"
	"errors"
	"image/png"
	"testing"
	"time"

	"github.com/tomtom215/logscope/internal/models"
)

func sampleRows() []models.AggregateRow {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return []models.AggregateRow{
		{BucketStart: day, Count: 3, Mean: models.Some(12.5), Min: models.Some(10.0), Max: models.Some(15.0), Std: models.Some(2.5)},
		{BucketStart: day.Add(24 * time.Hour), Count: 1, Mean: models.Some(1234.5), Min: models.Some(1234.5), Max: models.Some(1234.5)},
		{BucketStart: day.Add(72 * time.Hour), Count: 2},
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rows []models.AggregateRow
		opts Options
	}{
		{"light", sampleRows(), Options{WindowLabel: "Last 7 Days", BucketLabel: "1 Day", Bucket: 24 * time.Hour}},
		{"dark custom size", sampleRows(), Options{Theme: ThemeDark, Width: 640, Height: 320, Bucket: time.Hour}},
		{"single bucket", sampleRows()[:1], Options{Bucket: 24 * time.Hour}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if err := Render(&buf, tt.rows, tt.opts); err != nil {
				t.Fatalf("Render: %v", err)
			}
			cfg, err := png.DecodeConfig(&buf)
			if err != nil {
				t.Fatalf("output is not a PNG: %v", err)
			}
			want := normalize(tt.opts)
			if cfg.Width != want.Width || cfg.Height != want.Height {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, want.Width, want.Height)
			}
		})
	}
}

func TestRender_NoRows(t *testing.T) {
	t.Parallel()

	if err := Render(&bytes.Buffer{}, nil, Options{}); !errors.Is(err, ErrNoRows) {
		t.Errorf("err = %v, want ErrNoRows", err)
	}
}

func TestAnnotation(t *testing.T) {
	t.Parallel()

	rows := sampleRows()
	tests := []struct {
		row  models.AggregateRow
		want string
	}{
		{rows[0], "min: 10.00 max: 15.00 mean: 12.50"},
		{rows[1], "min: 1,234.50 max: 1,234.50 mean: 1,234.50"},
		{rows[2], "min: n/a max: n/a mean: n/a"},
	}
	for _, tt := range tests {
		if got := Annotation(tt.row); got != tt.want {
			t.Errorf("Annotation = %q, want %q", got, tt.want)
		}
	}
}

func TestNormalizeAndTitle(t *testing.T) {
	t.Parallel()

	o := normalize(Options{Theme: "neon", Width: 99999})
	if o.Theme != ThemeLight || o.Width != MaxDimension || o.Height != DefaultHeight {
		t.Errorf("normalize = %+v", o)
	}
	if got := Title("Last 24 Hours", "1 Hour"); got != "API Call Count (over Last 24 Hours), grouped by 1 Hour" {
		t.Errorf("Title = %q", got)
	}
	if timeLayout(time.Hour) == timeLayout(24*time.Hour) {
		t.Error("daily buckets should use a date-only layout")
	}
}
