// Package idgen provides pluggable ID generation for slidecore.
//
// Capture requests and export jobs carry correlation IDs chosen at
// startup time; constructors accept a Generator so the strategy is a
// wiring decision, not a compile-time one.
package idgen

import (
	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator producing RFC 9562 UUID v7 strings.
// Time-sortable, so correlation IDs sort in issue order.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
// Capture requests use "cap_", export jobs "exp_".
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the conventional generator for correlation IDs.
var Default = UUIDv7()
