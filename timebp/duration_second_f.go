package timebp

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

var (
	_ json.Unmarshaler = (*DurationSecondF)(nil)
	_ json.Marshaler   = DurationSecondF(0)
)

// float64 seconds lose nanosecond precision quickly, keep microseconds.
const secondFRound = time.Microsecond

// DurationSecondF implements json encoding/decoding of a time.Duration as a
// float number of seconds, with precision up to microseconds.
//
// Negative durations are encoded as 0.
type DurationSecondF time.Duration

// ToDuration converts DurationSecondF back to time.Duration.
func (d DurationSecondF) ToDuration() time.Duration {
	return time.Duration(d)
}

// Seconds returns the duration as float seconds, rounded to microseconds.
func (d DurationSecondF) Seconds() float64 {
	if d <= 0 {
		return 0
	}
	return time.Duration(d).Round(secondFRound).Seconds()
}

func (d DurationSecondF) String() string {
	return d.ToDuration().String()
}

// MarshalJSON implements json.Marshaler.
func (d DurationSecondF) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(d.Seconds(), 'f', -1, 64)), nil
}

// UnmarshalJSON implements json.Unmarshaler.
//
// null decodes into 0.
func (d *DurationSecondF) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*d = 0
		return nil
	}
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec >= math.MaxInt64/float64(time.Second) {
		return fmt.Errorf("timebp: duration %q out of range", s)
	}
	*d = DurationSecondF(SecondsToDurationF(sec))
	return nil
}

// SecondsToDurationF converts float seconds to time.Duration, rounded to
// microseconds.
func SecondsToDurationF(sec float64) time.Duration {
	return time.Duration(sec * float64(time.Second)).Round(secondFRound)
}
