// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package pipeline

import (
	"sort"
	"strconv"

	"github.com/tomtom215/logscope/internal/catalog"
	"github.com/tomtom215/logscope/internal/models"
)

// ResolvePaths returns the paths that may be offered for selection: catalog
// paths registered under any selected method, plus every observed function
// name. Observed functions are always included regardless of method, so an
// empty method selection yields exactly the observed set. The result is
// sorted and free of duplicates.
func ResolvePaths(selectedMethods []string, cat *catalog.Catalog, observedFunctions []string) []string {
	set := make(map[string]struct{})
	for _, p := range cat.PathsFor(selectedMethods) {
		set[p] = struct{}{}
	}
	for _, f := range observedFunctions {
		set[f] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ObservedFunctions returns the distinct present function values, sorted.
// A record with neither path nor function contributes models.MissingValue,
// which is the value its path is filtered by.
func ObservedFunctions(records []models.LogRecord) []string {
	set := make(map[string]struct{})
	for i := range records {
		if f, ok := records[i].Function.Get(); ok {
			set[f] = struct{}{}
		} else if !records[i].Path.Valid {
			set[models.MissingValue] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// ObservedStatuses returns the distinct status codes in ascending numeric
// order, formatted as strings, followed by models.MissingValue when some
// record has no status code.
func ObservedStatuses(records []models.LogRecord) []string {
	set := make(map[int]struct{})
	missing := false
	for i := range records {
		if c, ok := records[i].StatusCode.Get(); ok {
			set[c] = struct{}{}
		} else {
			missing = true
		}
	}
	codes := make([]int, 0, len(set))
	for c := range set {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	out := make([]string, 0, len(codes)+1)
	for _, c := range codes {
		out = append(out, strconv.Itoa(c))
	}
	if missing {
		out = append(out, models.MissingValue)
	}
	return out
}
