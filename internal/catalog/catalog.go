// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

// Package catalog holds the static endpoint whitelist and the option tables
// offered to dashboard users (client IP labels, time windows, bucket widths).
//
// Everything here is immutable after package initialization. Accessors return
// copies so callers can never mutate the shared tables.
package catalog

import (
	"sort"
	"strings"
)

// EndpointSpec is one recognized route of the monitored API.
type EndpointSpec struct {
	Group  string `json:"group"`
	Method string `json:"method"`
	Path   string `json:"path"`
}

// Catalog is an immutable set of recognized endpoints.
type Catalog struct {
	entries []EndpointSpec
}

// New builds a catalog from the given entries. The slice is copied.
func New(entries []EndpointSpec) *Catalog {
	cp := make([]EndpointSpec, len(entries))
	copy(cp, entries)
	return &Catalog{entries: cp}
}

var defaultCatalog = New([]EndpointSpec{
	{"Auth", "POST", "/api/auth/send-otp"},
	{"Auth", "POST", "/api/auth/verify-otp"},
	{"Auth", "POST", "/api/auth/signup"},
	{"Auth", "POST", "/api/auth/google-signin"},
	{"Auth", "POST", "/api/auth/login"},
	{"Auth", "POST", "/api/auth/token_validation"},
	{"Auth", "POST", "/api/auth/logout"},

	{"Bookmarks", "POST", "/api/browser_bookmarks"},
	{"Bookmarks", "POST", "/api/bookmarks"},
	{"Bookmarks", "GET", "/api/bookmarks"},
	{"Bookmarks", "DELETE", "/api/bookmarks"},
	{"Bookmarks", "PUT", "/api/bookmarks"},
	{"Bookmarks", "POST", "/api/bookmarks/validate_url"},
	{"Bookmarks", "GET", "/api/bookmarks/search"},
	{"Bookmarks", "POST", "/api/bookmarks/views"},
	{"Bookmarks", "POST", "/api/bookmarks/favourites"},
	{"Bookmarks", "DELETE", "/api/bookmarks/favourites"},
	{"Bookmarks", "GET", "/api/bookmarks/favourites"},

	{"Collections", "POST", "/api/collections"},
	{"Collections", "GET", "/api/collections"},
	{"Collections", "PUT", "/api/collections"},
	{"Collections", "DELETE", "/api/collections"},

	{"Comments", "POST", "/api/bookmarks/comments"},
	{"Comments", "GET", "/api/bookmarks/comments"},
	{"Comments", "PUT", "/api/bookmarks/comments"},

	{"Votes", "GET", "/api/users/votedBookmarks"},
	{"Votes", "POST", "/api/bookmarks/votes"},

	{"Ratings", "POST", "/api/bookmarks/ratings"},

	{"Subscriptions", "POST", "/api/users/subscribe"},
	{"Subscriptions", "DELETE", "/api/users/subscribe"},
	{"Subscriptions", "GET", "/api/users/subscribe"},

	{"Users", "GET", "/api/users"},
	{"Users", "PUT", "/api/users"},
	{"Users", "POST", "/api/save_image"},

	{"Deployment", "GET", "/api/deployment_details"},

	{"WebSocket", "WebSocket", "/api/ws"},
})

// Default returns the built-in endpoint catalog.
func Default() *Catalog {
	return defaultCatalog
}

// Entries returns a copy of all catalog entries in declaration order.
func (c *Catalog) Entries() []EndpointSpec {
	cp := make([]EndpointSpec, len(c.entries))
	copy(cp, c.entries)
	return cp
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Methods returns the distinct methods, sorted.
func (c *Catalog) Methods() []string {
	seen := make(map[string]struct{})
	for _, e := range c.entries {
		seen[e.Method] = struct{}{}
	}
	return sortedKeys(seen)
}

// CanonicalMethod returns the catalog's spelling of method, matched without
// regard to case, so "get" becomes "GET" and "websocket" becomes
// "WebSocket". Methods the catalog does not list are returned unchanged.
func (c *Catalog) CanonicalMethod(method string) string {
	for _, e := range c.entries {
		if strings.EqualFold(e.Method, method) {
			return e.Method
		}
	}
	return method
}

// PathsFor returns the distinct paths registered for any of methods, sorted.
// An empty methods slice yields an empty result.
func (c *Catalog) PathsFor(methods []string) []string {
	want := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		want[m] = struct{}{}
	}
	seen := make(map[string]struct{})
	for _, e := range c.entries {
		if _, ok := want[e.Method]; ok {
			seen[e.Path] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

// Contains reports whether (method, path) is a recognized endpoint.
func (c *Catalog) Contains(method, path string) bool {
	for _, e := range c.entries {
		if e.Method == method && e.Path == path {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
