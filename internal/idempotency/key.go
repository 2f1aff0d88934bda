// Package idempotency parses and validates the client-supplied idempotency
// key at the edge, before it reaches the transfer executor. The schema
// types the column UUID but the wire format is a plain string header; this
// package is where that gap is closed.
package idempotency

import (
	"errors"

	"github.com/google/uuid"
)

// ErrMissing is returned when the caller supplied an empty or absent key.
var ErrMissing = errors.New("idempotency key missing")

// ErrMalformed is returned when the key is present but not a valid UUID.
var ErrMalformed = errors.New("idempotency key malformed")

// Parse validates that raw is a non-empty, well-formed UUID string and
// returns its canonical (lowercase, hyphenated) form. The executor stores
// and indexes on this canonical form so that two requests differing only in
// UUID letter case still collide on the same idempotency slot.
func Parse(raw string) (string, error) {
	if raw == "" {
		return "", ErrMissing
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", ErrMalformed
	}
	return id.String(), nil
}
