// Package set provides small set types backed by go maps.
package set

// Value is the value type used by the maps backing the sets in this package.
type Value struct{}

// DummyValue is the value stored for every item in a set.
var DummyValue Value
