// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

package query

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/tomtom215/logscope/internal/validation"
)

// ErrInvalidQuery is wrapped by resolution errors that the caller caused,
// such as an unknown IP label.
var ErrInvalidQuery = errors.New("invalid query")

// Request is one dashboard query as sent over HTTP or NATS.
//
// A nil selection means "not sent" and is replaced by the configured
// default. A non-nil empty selection is an explicit empty choice and
// matches nothing.
type Request struct {
	IPLabels []string `json:"ips,omitempty" validate:"dive,required,max=128"`
	Statuses []string `json:"statuses,omitempty" validate:"dive,statuscode"`
	Methods  []string `json:"methods,omitempty" validate:"dive,httpmethod"`
	Paths    []string `json:"paths,omitempty" validate:"dive,required,max=512"`
	Window   string   `json:"window,omitempty" validate:"omitempty,window"`
	Bucket   string   `json:"bucket,omitempty" validate:"omitempty,bucket"`

	// Records view.
	Limit int `json:"limit,omitempty" validate:"min=0"`

	// Chart rendering.
	Theme  string `json:"theme,omitempty" validate:"omitempty,oneof=light dark"`
	Width  int    `json:"width,omitempty" validate:"min=0,max=4000"`
	Height int    `json:"height,omitempty" validate:"min=0,max=4000"`
}

// Validate checks field formats. Membership (known labels, catalog paths)
// is checked during resolution.
func (r *Request) Validate() error {
	if verr := validation.ValidateStruct(r); verr != nil {
		return verr
	}
	return nil
}

// ParseValues builds a Request from URL query parameters. List parameters
// accept comma-separated values and repeated keys; a key present with no
// values yields an explicit empty selection. Method case is preserved here
// and canonicalized against the catalog during resolution.
func ParseValues(v url.Values) (Request, error) {
	req := Request{
		IPLabels: listParam(v, "ips"),
		Statuses: listParam(v, "statuses"),
		Methods:  listParam(v, "methods"),
		Paths:    listParam(v, "paths"),
		Window:   strings.TrimSpace(v.Get("window")),
		Bucket:   strings.TrimSpace(v.Get("bucket")),
		Theme:    strings.TrimSpace(v.Get("theme")),
	}

	var err error
	if req.Limit, err = intParam(v, "limit"); err != nil {
		return req, err
	}
	if req.Width, err = intParam(v, "width"); err != nil {
		return req, err
	}
	if req.Height, err = intParam(v, "height"); err != nil {
		return req, err
	}
	return req, nil
}

func listParam(v url.Values, key string) []string {
	raw, ok := v[key]
	if !ok {
		return nil
	}
	out := []string{}
	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
	}
	return out
}

func intParam(v url.Values, key string) (int, error) {
	s := strings.TrimSpace(v.Get(key))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidQuery, key, s)
	}
	return n, nil
}
