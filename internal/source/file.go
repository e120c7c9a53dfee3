// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/logscope/internal/config"
	"github.com/tomtom215/logscope/internal/models"
)

// FileSource reads a JSON export: either one array of documents or one
// document per line, as written by mongoexport. Extended JSON wrappers
// ({"$oid": ...}, {"$date": ...}, {"$numberLong": ...}) are unwrapped.
type FileSource struct {
	path string
}

// NewFile returns a source reading path on every Fetch.
func NewFile(path string) *FileSource {
	return &FileSource{path: path}
}

// Name implements Source.
func (f *FileSource) Name() string { return config.SourceFile }

// Ping implements Source.
func (f *FileSource) Ping(_ context.Context) error {
	_, err := os.Stat(f.path)
	return err
}

// Close implements Source.
func (f *FileSource) Close() error { return nil }

// Fetch implements Source.
func (f *FileSource) Fetch(ctx context.Context) ([]models.RawDocument, error) {
	return timedFetch(f.Name(), func() ([]models.RawDocument, error) {
		file, err := os.Open(f.path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return decodeDocuments(ctx, bufio.NewReader(file))
	})
}

func decodeDocuments(ctx context.Context, r *bufio.Reader) ([]models.RawDocument, error) {
	first, err := peekNonSpace(r)
	if errors.Is(err, io.EOF) {
		return []models.RawDocument{}, nil
	}
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()

	if first == '[' {
		var raw []map[string]any
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		docs := make([]models.RawDocument, len(raw))
		for i, m := range raw {
			docs[i] = unwrapExtended(m)
		}
		return docs, nil
	}

	var docs []models.RawDocument
	for line := 1; ; line++ {
		if line%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var m map[string]any
		err := dec.Decode(&m)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document %d: %w", line, err)
		}
		docs = append(docs, unwrapExtended(m))
	}
	return docs, nil
}

func peekNonSpace(r *bufio.Reader) (byte, error) {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, r.UnreadByte()
	}
}

func unwrapExtended(m map[string]any) models.RawDocument {
	out := make(models.RawDocument, len(m))
	for k, v := range m {
		out[k] = unwrapValue(v)
	}
	return out
}

func unwrapValue(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	if len(m) == 1 {
		for key, inner := range m {
			switch key {
			case "$oid", "$numberDouble", "$numberDecimal":
				return fmt.Sprint(inner)
			case "$numberLong", "$numberInt":
				return json.Number(fmt.Sprint(inner))
			case "$date":
				return unwrapDate(inner)
			}
		}
	}
	return map[string]any(unwrapExtended(m))
}

// unwrapDate handles both relaxed ({"$date": "2024-01-02T..."}) and
// canonical ({"$date": {"$numberLong": "1704153600000"}}) forms.
func unwrapDate(v any) any {
	switch d := v.(type) {
	case string:
		return d
	case json.Number:
		return d
	case map[string]any:
		if n, ok := d["$numberLong"]; ok {
			ms, err := strconv.ParseInt(fmt.Sprint(n), 10, 64)
			if err != nil {
				return nil
			}
			return time.UnixMilli(ms).UTC()
		}
	}
	return nil
}
