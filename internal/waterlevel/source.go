package waterlevel

import (
	"context"
	"errors"
	"time"

	"github.com/soeholm/vandstand/internal/stations"
)

// Failure taxonomy for source adapters. Every error a Fetch returns wraps one
// of these, and the fusion layer treats them all as "no reading"; the split
// exists for logs and metrics.
var (
	// ErrUnreachable covers network errors and timeouts.
	ErrUnreachable = errors.New("source unreachable")
	// ErrParse means bytes were obtained but the expected field was not found.
	ErrParse = errors.New("response not parseable")
	// ErrOutOfRange rejects readings outside the plausible band; a sensor
	// glitch must not become the anchor of the whole series.
	ErrOutOfRange = errors.New("reading outside plausible range")
)

// Source is one upstream provider of water-level observations. Fetch returns
// a normalized Reading or an error wrapping one of the sentinels above; it
// must never panic past its boundary, and it bounds its own I/O with the
// context deadline.
type Source interface {
	Name() string
	Fetch(ctx context.Context, station stations.Station) (Reading, error)
}

// Store is the contract the TTL cache must satisfy. Entries are whole
// responses, overwritten atomically and never partially updated.
type Store interface {
	// Get returns a still-valid entry and its age, or ok=false.
	Get(station string) (resp FusedResponse, age time.Duration, ok bool)
	Put(station string, resp FusedResponse)
	Invalidate(station string)
	InvalidateAll()
	// State reports "valid", "expired" or "empty" for the health endpoint.
	State(station string) string
}
