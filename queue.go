package crossprocess

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Headers carrying the time a proxy received the request, in order of
// preference.
const (
	RequestStartHeader = "X-Request-Start"
	QueueStartHeader   = "X-Queue-Start"
)

// earliestQueueStart is 2000-01-01T00:00:00Z in seconds. Values below it in
// any unit are considered bogus.
const earliestQueueStart = 946684800

// QueueStartFromHeader returns the queue start found in h, or zero time.
func QueueStartFromHeader(h http.Header) time.Time {
	for _, name := range []string{RequestStartHeader, QueueStartHeader} {
		if v := h.Get(name); v != "" {
			if start, ok := ParseQueueStart(v); ok {
				return start
			}
		}
	}
	return time.Time{}
}

// ParseQueueStart parses a queue start header value.
//
// The value is a unix timestamp with an optional "t=" prefix, in seconds,
// milliseconds, or microseconds. The unit is guessed from its magnitude.
func ParseQueueStart(value string) (time.Time, bool) {
	value = strings.TrimPrefix(strings.TrimSpace(value), "t=")
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return time.Time{}, false
	}
	switch {
	case f > earliestQueueStart*1e6:
		f /= 1e6
	case f > earliestQueueStart*1e3:
		f /= 1e3
	case f > earliestQueueStart:
	default:
		return time.Time{}, false
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e6))*int64(time.Microsecond)), true
}
