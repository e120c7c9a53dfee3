// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package catalog

import (
	"fmt"
	"sort"
	"time"
)

// Day is a 24 hour duration. Buckets and windows are computed in UTC so
// there are no daylight saving transitions to account for.
const Day = 24 * time.Hour

// Choice is one entry of a fixed option list: a stable key used in query
// strings, a human label, and the duration it stands for.
type Choice struct {
	Key      string        `json:"key"`
	Label    string        `json:"label"`
	Duration time.Duration `json:"duration_ns"`
}

var timeWindows = []Choice{
	{Key: "24h", Label: "Last 24 Hours", Duration: Day},
	{Key: "3d", Label: "Last 3 Days", Duration: 3 * Day},
	{Key: "7d", Label: "Last 7 Days", Duration: 7 * Day},
	{Key: "28d", Label: "Last 28 Days", Duration: 28 * Day},
	{Key: "1y", Label: "Last 1 Year", Duration: 365 * Day},
}

var bucketWidths = []Choice{
	{Key: "1h", Label: "1 Hour", Duration: time.Hour},
	{Key: "6h", Label: "6 Hours", Duration: 6 * time.Hour},
	{Key: "12h", Label: "12 Hours", Duration: 12 * time.Hour},
	{Key: "1d", Label: "1 Day", Duration: Day},
	{Key: "3d", Label: "3 Days", Duration: 3 * Day},
	{Key: "7d", Label: "1 Week", Duration: 7 * Day},
}

const (
	// DefaultWindowKey is the preselected time window.
	DefaultWindowKey = "7d"
	// DefaultBucketKey is the preselected bucket width.
	DefaultBucketKey = "1d"
)

// TimeWindows returns the selectable time windows, shortest first.
func TimeWindows() []Choice {
	return append([]Choice(nil), timeWindows...)
}

// BucketWidths returns the selectable bucket widths, narrowest first.
func BucketWidths() []Choice {
	return append([]Choice(nil), bucketWidths...)
}

// ParseTimeWindow resolves a window key ("7d") or label ("Last 7 Days").
func ParseTimeWindow(s string) (Choice, error) {
	if c, ok := lookup(timeWindows, s); ok {
		return c, nil
	}
	return Choice{}, fmt.Errorf("unknown time window %q", s)
}

// ParseBucketWidth resolves a bucket key ("6h") or label ("6 Hours").
func ParseBucketWidth(s string) (Choice, error) {
	if c, ok := lookup(bucketWidths, s); ok {
		return c, nil
	}
	return Choice{}, fmt.Errorf("unknown bucket width %q", s)
}

// WindowKeys returns the accepted window keys.
func WindowKeys() []string { return keys(timeWindows) }

// BucketKeys returns the accepted bucket keys.
func BucketKeys() []string { return keys(bucketWidths) }

func lookup(list []Choice, s string) (Choice, bool) {
	for _, c := range list {
		if c.Key == s || c.Label == s {
			return c, true
		}
	}
	return Choice{}, false
}

func keys(list []Choice) []string {
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.Key
	}
	return out
}

// IPLabels maps human-readable client labels to literal IP addresses.
type IPLabels map[string]string

// DefaultIPLabels returns the built-in client label table.
func DefaultIPLabels() IPLabels {
	return IPLabels{
		"vercel":                   "44.227.217.144",
		"amritansh_local_computer": "192.168.1.7",
	}
}

// Names returns the labels sorted alphabetically.
func (l IPLabels) Names() []string {
	out := make([]string, 0, len(l))
	for k := range l {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Resolve translates labels to IP addresses. Unknown labels are returned in
// the second slice so callers can reject them.
func (l IPLabels) Resolve(labels []string) (ips, unknown []string) {
	ips = make([]string, 0, len(labels))
	for _, name := range labels {
		ip, ok := l[name]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		ips = append(ips, ip)
	}
	return ips, unknown
}
