// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package pipeline

import (
	"strings"

	"github.com/tomtom215/logscope/internal/models"
)

// IsValidPath reports whether path is well formed. Doubled separators come
// from string concatenation bugs in the logging middleware upstream.
func IsValidPath(path string) bool {
	return !strings.Contains(path, "//")
}

// Validate returns a copy of records with IsValid set. An absent path is
// valid: it contains no "//".
func Validate(records []models.LogRecord) []models.LogRecord {
	out := make([]models.LogRecord, len(records))
	for i := range records {
		out[i] = records[i]
		out[i].IsValid = IsValidPath(records[i].Path.Value)
	}
	return out
}

// DropInvalid validates records and keeps only the valid ones. The
// narration uses the ColumnIsValid column.
func DropInvalid(records []models.LogRecord) ([]models.LogRecord, models.Narration) {
	validated := Validate(records)
	kept := make([]models.LogRecord, 0, len(validated))
	for i := range validated {
		if validated[i].IsValid {
			kept = append(kept, validated[i])
		}
	}
	return kept, models.NewNarration(models.ColumnIsValid, len(records), len(kept))
}
