package auth

import (
	"encoding/json"
	"fmt"
)

// Level is an account's access level: either a single level id or a set of
// ids. Membership checks are defined over both shapes with set-intersection
// semantics, so a single id behaves like a one-element set.
//
// The JSON form mirrors the variant: a bare number for a single level, an
// array for a set. Session state round-trips through this encoding.
type Level struct {
	single int
	set    []int
	isSet  bool
}

// SingleLevel returns a Level holding one id.
func SingleLevel(id int) Level {
	return Level{single: id}
}

// LevelSet returns a Level holding a set of ids.
func LevelSet(ids ...int) Level {
	set := make([]int, len(ids))
	copy(set, ids)
	return Level{set: set, isSet: true}
}

// IsSet reports whether the level is the set variant.
func (l Level) IsSet() bool {
	return l.isSet
}

// Values returns the level ids regardless of variant. Single levels yield a
// one-element slice.
func (l Level) Values() []int {
	if l.isSet {
		out := make([]int, len(l.set))
		copy(out, l.set)
		return out
	}
	return []int{l.single}
}

// Intersects reports whether the two levels share at least one id.
func (l Level) Intersects(other Level) bool {
	mine := l.Values()
	theirs := other.Values()
	for _, a := range mine {
		for _, b := range theirs {
			if a == b {
				return true
			}
		}
	}
	return false
}

// MarshalJSON encodes a single level as a number and a set as an array.
func (l Level) MarshalJSON() ([]byte, error) {
	if l.isSet {
		return json.Marshal(l.set)
	}
	return json.Marshal(l.single)
}

// UnmarshalJSON accepts either a number or an array of numbers.
func (l *Level) UnmarshalJSON(data []byte) error {
	var single int
	if err := json.Unmarshal(data, &single); err == nil {
		*l = SingleLevel(single)
		return nil
	}
	var set []int
	if err := json.Unmarshal(data, &set); err == nil {
		*l = LevelSet(set...)
		return nil
	}
	return fmt.Errorf("level must be a number or an array of numbers, got %s", data)
}
