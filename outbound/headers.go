package outbound

import (
	opentracing "github.com/opentracing/opentracing-go"
)

// Header names produced by a DistributedTracer.
const (
	NewRelicHeader    = "newrelic"
	TraceParentHeader = "traceparent"
	TraceStateHeader  = "tracestate"
)

// Headers is the name to value map of headers to add to an outbound request.
//
// It satisfies the opentracing text map carrier interfaces.
type Headers map[string]string

var (
	_ opentracing.TextMapWriter = Headers(nil)
	_ opentracing.TextMapReader = Headers(nil)
)

// Set implements opentracing.TextMapWriter.
func (h Headers) Set(key, val string) {
	h[key] = val
}

// ForeachKey implements opentracing.TextMapReader.
//
// It stops at, and returns, the first error returned by handler.
func (h Headers) ForeachKey(handler func(key, val string) error) error {
	for k, v := range h {
		if err := handler(k, v); err != nil {
			return err
		}
	}
	return nil
}
