// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/logscope/internal/models"
)

// DateLayout is the format of the derived LogRecord.Date field.
const DateLayout = "2006-01-02"

// Layouts tried for string timestamps, in order. Layouts without a zone
// are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

var errMissingTimestamp = errors.New("timestamp is missing")

// Normalize converts raw documents into LogRecords. Input documents are not
// modified. The derived date is the UTC calendar date of the timestamp. An
// absent path is replaced by the function field, even when that is absent
// too. Any missing or malformed timestamp aborts the load with a
// *DataFormatError.
func Normalize(docs []models.RawDocument) ([]models.LogRecord, error) {
	out := make([]models.LogRecord, 0, len(docs))
	for i, doc := range docs {
		rec, err := normalizeOne(doc)
		if err != nil {
			var dfe *DataFormatError
			if errors.As(err, &dfe) {
				dfe.Index = i
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func normalizeOne(doc models.RawDocument) (models.LogRecord, error) {
	rec := models.LogRecord{
		ID:          idString(doc[models.FieldID]),
		Path:        optString(doc, models.FieldPath),
		Method:      optString(doc, models.FieldMethod),
		Type:        optString(doc, models.FieldType),
		ProcessTime: optFloat(doc, models.FieldProcessTime),
		StatusCode:  optInt(doc, models.FieldStatusCode),
		PublicIP:    optString(doc, models.FieldPublicIP),
		Function:    optString(doc, models.FieldFunction),
	}

	rawTS, present := doc[models.FieldTimestamp]
	ts, err := parseTimestamp(rawTS, present)
	if err != nil {
		return models.LogRecord{}, &DataFormatError{
			ID:    rec.ID,
			Field: models.FieldTimestamp,
			Value: rawTS,
			Err:   err,
		}
	}
	rec.Timestamp = ts
	rec.Date = ts.Format(DateLayout)

	if !rec.Path.Valid {
		rec.Path = rec.Function
	}

	for k, v := range doc {
		if isKnownField(k) {
			continue
		}
		if rec.Extras == nil {
			rec.Extras = make(map[string]any)
		}
		rec.Extras[k] = v
	}
	return rec, nil
}

func isKnownField(k string) bool {
	switch k {
	case models.FieldID, models.FieldTimestamp, models.FieldPath, models.FieldMethod,
		models.FieldType, models.FieldProcessTime, models.FieldStatusCode,
		models.FieldPublicIP, models.FieldFunction, models.FieldDate:
		return true
	}
	return false
}

// parseTimestamp accepts time.Time, string layouts and integer Unix
// milliseconds. The result is always in UTC.
func parseTimestamp(v any, present bool) (time.Time, error) {
	if !present || v == nil {
		return time.Time{}, errMissingTimestamp
	}
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, errMissingTimestamp
		}
		return t.UTC(), nil
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, errMissingTimestamp
		}
		return t.UTC(), nil
	case string:
		return parseTimestampString(t)
	case int64:
		return time.UnixMilli(t).UTC(), nil
	case int:
		return time.UnixMilli(int64(t)).UTC(), nil
	case int32:
		return time.UnixMilli(int64(t)).UTC(), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) || t != math.Trunc(t) {
			return time.Time{}, fmt.Errorf("not an integer epoch: %v", t)
		}
		return time.UnixMilli(int64(t)).UTC(), nil
	case json.Number:
		ms, err := t.Int64()
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

func parseTimestampString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errMissingTimestamp
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format %q", s)
}

func idString(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case fmt.Stringer:
		return id.String()
	default:
		return fmt.Sprint(id)
	}
}

func optString(doc models.RawDocument, key string) models.Opt[string] {
	switch v := doc[key].(type) {
	case nil:
		return models.None[string]()
	case string:
		return models.Some(v)
	case float64:
		if math.IsNaN(v) {
			return models.None[string]()
		}
		return models.Some(strconv.FormatFloat(v, 'f', -1, 64))
	default:
		return models.Some(fmt.Sprint(v))
	}
}

func optFloat(doc models.RawDocument, key string) models.Opt[float64] {
	var f float64
	switch v := doc[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return models.None[float64]()
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return models.None[float64]()
		}
		f = parsed
	default:
		return models.None[float64]()
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return models.None[float64]()
	}
	return models.Some(f)
}

func optInt(doc models.RawDocument, key string) models.Opt[int] {
	switch v := doc[key].(type) {
	case int:
		return models.Some(v)
	case int32:
		return models.Some(int(v))
	case int64:
		return models.Some(int(v))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return models.None[int]()
		}
		return models.Some(n)
	}
	f := optFloat(doc, key)
	if !f.Valid || f.Value != math.Trunc(f.Value) {
		return models.None[int]()
	}
	return models.Some(int(f.Value))
}
