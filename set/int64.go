package set

import (
	"fmt"
	"sort"
	"strings"
)

// Int64 defines the int64 set.
//
// You should initialize it with make(Int64),
// or use Int64SliceToSet to convert an existing slice.
//
// The zero value (nil) is a valid, empty, read-only set.
type Int64 map[int64]Value

// Int64SliceToSet creates a new int64 set from the existing slice.
func Int64SliceToSet(slice []int64) Int64 {
	set := make(Int64, len(slice))
	for _, i := range slice {
		set.Add(i)
	}
	return set
}

// Add adds an item to the set.
func (s Int64) Add(item int64) {
	s[item] = DummyValue
}

// Remove removes an item from the set.
func (s Int64) Remove(item int64) {
	delete(s, item)
}

// Contains returns true if item is in the set.
func (s Int64) Contains(item int64) bool {
	_, ok := s[item]
	return ok
}

// ToSlice converts the set into a sorted int64 slice.
func (s Int64) ToSlice() []int64 {
	slice := make([]int64, 0, len(s))
	for i := range s {
		slice = append(slice, i)
	}
	sort.Slice(slice, func(a, b int) bool {
		return slice[a] < slice[b]
	})
	return slice
}

// Equals returns true if this set equals to the other set.
func (s Int64) Equals(other Int64) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if !other.Contains(i) {
			return false
		}
	}
	return true
}

func (s Int64) String() string {
	var sb strings.Builder
	sb.WriteString("{")
	for n, item := range s.ToSlice() {
		if n > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d", item)
	}
	sb.WriteString("}")
	return sb.String()
}
