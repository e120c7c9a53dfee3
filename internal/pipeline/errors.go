// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package pipeline

import (
	"errors"
	"fmt"
)

// ErrEmptyResult marks the "no data" terminal state. It is not a failure:
// Run reports it through Report.Empty and Report.Err so callers can branch
// with errors.Is and show a "broaden your filters" message.
var ErrEmptyResult = errors.New("no records match the current filters")

// DataFormatError aborts a snapshot load. A single record with a missing or
// unparseable timestamp fails the whole run; there are no partial results.
type DataFormatError struct {
	Index int
	ID    string
	Field string
	Value any
	Err   error
}

func (e *DataFormatError) Error() string {
	id := ""
	if e.ID != "" {
		id = " (" + e.ID + ")"
	}
	if e.Err != nil {
		return fmt.Sprintf("record %d%s: invalid %s %v: %v", e.Index, id, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("record %d%s: invalid %s %v", e.Index, id, e.Field, e.Value)
}

func (e *DataFormatError) Unwrap() error {
	return e.Err
}

// IsDataFormatError reports whether err wraps a *DataFormatError.
func IsDataFormatError(err error) bool {
	var dfe *DataFormatError
	return errors.As(err, &dfe)
}
