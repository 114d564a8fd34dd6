package ir

import (
	"slices"
)

// Mode is a high-level application mode (e.g. "GUIDED").
type Mode string

// CapabilityID identifies an affordance the application can offer.
type CapabilityID string

// IntentID identifies an action a user might want to perform.
type IntentID string

// ElementID identifies a visible interface element.
type ElementID string

// Set is an unordered collection of vocabulary identifiers.
//
// Iteration through Sorted() is lexicographic so every consumer sees the
// same order regardless of map iteration.
type Set[T ~string] map[T]struct{}

// NewSet creates a set holding the given members. Duplicates collapse.
func NewSet[T ~string](members ...T) Set[T] {
	s := make(Set[T], len(members))
	for _, m := range members {
		s[m] = struct{}{}
	}
	return s
}

// Add inserts a member.
func (s Set[T]) Add(m T) {
	s[m] = struct{}{}
}

// Has reports whether m is a member.
func (s Set[T]) Has(m T) bool {
	_, ok := s[m]
	return ok
}

// Len returns the number of members.
func (s Set[T]) Len() int {
	return len(s)
}

// Sorted returns the members in lexicographic order.
// Never returns nil.
func (s Set[T]) Sorted() []T {
	out := make([]T, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy. Cloning a nil set yields an empty set.
func (s Set[T]) Clone() Set[T] {
	out := make(Set[T], len(s))
	for m := range s {
		out[m] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold exactly the same members.
func (s Set[T]) Equal(other Set[T]) bool {
	if len(s) != len(other) {
		return false
	}
	for m := range s {
		if !other.Has(m) {
			return false
		}
	}
	return true
}
