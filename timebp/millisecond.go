package timebp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

var (
	_ json.Unmarshaler = (*TimestampMillisecond)(nil)
	_ json.Marshaler   = TimestampMillisecond{}
)

var jsonNull = []byte("null")

// TimestampMillisecond is a wall clock time carried as an integer count of
// milliseconds since the unix epoch, the unit distributed trace payloads use
// for their "ti" field.
//
// The zero time and 0 both stand for "unset" and are written as null.
type TimestampMillisecond time.Time

// ToTime returns the underlying time.Time.
func (ts TimestampMillisecond) ToTime() time.Time {
	return time.Time(ts)
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *TimestampMillisecond) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, jsonNull) {
		*ts = TimestampMillisecond{}
		return nil
	}
	ms, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("timebp: invalid millisecond timestamp %q: %w", data, err)
	}
	*ts = TimestampMillisecond(MillisecondsToTime(ms))
	return nil
}

// MarshalJSON implements json.Marshaler.
func (ts TimestampMillisecond) MarshalJSON() ([]byte, error) {
	ms := TimeToMilliseconds(ts.ToTime())
	if ms == 0 {
		return jsonNull, nil
	}
	return strconv.AppendInt(nil, ms, 10), nil
}

// MillisecondsToTime is time.UnixMilli, except that 0 maps to the zero time.
func MillisecondsToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// TimeToMilliseconds is t.UnixMilli, except that the zero time maps to 0.
// Sub-millisecond precision is truncated.
func TimeToMilliseconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
