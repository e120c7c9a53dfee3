// Logscope - API Access-Log Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/logscope

// Package geoip resolves the country of a client IP for the records view.
// Lookups run against a local MaxMind GeoLite2-Country database; without one
// the package degrades to a provider that knows nothing.
package geoip

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/oschwald/geoip2-golang"

	"github.com/tomtom215/logscope/internal/logging"
	"github.com/tomtom215/logscope/internal/models"
)

// ErrNotFound is returned when the database has no country for an address.
var ErrNotFound = errors.New("no country for address")

// Provider looks up the ISO country code of an IP address.
type Provider interface {
	// Country returns the ISO 3166-1 alpha-2 code, e.g. "US".
	Country(ip string) (string, error)

	// Name returns the provider name for logging.
	Name() string

	// IsAvailable reports whether lookups can succeed at all.
	IsAvailable() bool

	Close() error
}

// countryReader is the subset of *geoip2.Reader the provider uses.
type countryReader interface {
	Country(ip net.IP) (*geoip2.Country, error)
	Close() error
}

// MaxMindProvider reads a local GeoLite2-Country database. Results are
// memoized: the records view repeats the same handful of addresses.
type MaxMindProvider struct {
	db    countryReader
	path  string
	mu    sync.RWMutex
	cache map[string]string
}

// Open opens the database at path.
func Open(path string) (*MaxMindProvider, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip database %s: %w", path, err)
	}
	return newMaxMind(db, path), nil
}

func newMaxMind(db countryReader, path string) *MaxMindProvider {
	return &MaxMindProvider{db: db, path: path, cache: make(map[string]string)}
}

// Country implements Provider.
func (p *MaxMindProvider) Country(ip string) (string, error) {
	p.mu.RLock()
	code, ok := p.cache[ip]
	p.mu.RUnlock()
	if ok {
		if code == "" {
			return "", ErrNotFound
		}
		return code, nil
	}

	parsed := net.ParseIP(ip)
	if parsed == nil {
		return "", fmt.Errorf("invalid ip address %q", ip)
	}
	rec, err := p.db.Country(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip lookup %s: %w", ip, err)
	}
	code = rec.Country.IsoCode

	p.mu.Lock()
	p.cache[ip] = code
	p.mu.Unlock()

	if code == "" {
		return "", ErrNotFound
	}
	return code, nil
}

// Name implements Provider.
func (p *MaxMindProvider) Name() string { return "maxmind:" + p.path }

// IsAvailable implements Provider.
func (p *MaxMindProvider) IsAvailable() bool { return p.db != nil }

// Close releases the database.
func (p *MaxMindProvider) Close() error { return p.db.Close() }

// NoopProvider is used when no database is configured.
type NoopProvider struct{}

func (NoopProvider) Country(string) (string, error) { return "", ErrNotFound }
func (NoopProvider) Name() string                   { return "none" }
func (NoopProvider) IsAvailable() bool              { return false }
func (NoopProvider) Close() error                   { return nil }

// New opens path, or returns a NoopProvider when path is empty. A database
// that fails to open is logged and replaced by the no-op provider so the
// dashboard still serves records.
func New(path string) Provider {
	if path == "" {
		return NoopProvider{}
	}
	p, err := Open(path)
	if err != nil {
		logging.Warn().Err(err).Msg("GeoIP disabled")
		return NoopProvider{}
	}
	logging.Info().Str("path", path).Msg("GeoIP database loaded")
	return p
}

// Enrich sets Country on each record with a public IP. records is modified
// in place, so callers pass a copy when the slice is shared.
func Enrich(p Provider, records []models.LogRecord) {
	if p == nil || !p.IsAvailable() {
		return
	}
	for i := range records {
		ip, ok := records[i].PublicIP.Get()
		if !ok || ip == "" {
			continue
		}
		if code, err := p.Country(ip); err == nil {
			records[i].Country = code
		}
	}
}
