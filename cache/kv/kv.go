// Package kv holds the value types shared by every cache backend.
package kv

import "errors"

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// ScoredMember is one sorted-set entry.
type ScoredMember struct {
	Member string
	Score  float64
}
