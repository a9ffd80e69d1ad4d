package httpbp

import (
	"net/http"
	"strconv"
	"time"

	opentracing "github.com/opentracing/opentracing-go"

	"github.com/reddit/crossprocess.go/inbound"
	"github.com/reddit/crossprocess.go/outbound"
	"github.com/reddit/crossprocess.go/txn"
)

// Values of the protocol label and span tag.
const (
	protocolDT   = "dt"
	protocolCAT  = "cat"
	protocolNone = "none"
)

// ProtocolTag is the span tag set by CrossProcess to the header family sent.
const ProtocolTag = "crossprocess.protocol"

// ClientMiddleware is used to build HTTP client middleware by implementing
// http.RoundTripper which http.Client accepts as Transport.
type ClientMiddleware func(next http.RoundTripper) http.RoundTripper

// roundTripperFunc adapts closures and functions to implement http.RoundTripper.
type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// NewClient returns an HTTP client using the default transport wrapped with
// CrossProcess and any additional client middleware.
func NewClient(tracer outbound.DistributedTracer, middleware ...ClientMiddleware) *http.Client {
	middleware = append([]ClientMiddleware{CrossProcess(tracer)}, middleware...)
	return &http.Client{
		Transport: WrapTransport(nil, middleware...),
	}
}

// WrapTransport takes a list of client middleware and wraps them around the
// given transport. This is useful for using client middleware outside of this
// package.
func WrapTransport(transport http.RoundTripper, middleware ...ClientMiddleware) http.RoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	// add middleware in reverse so the first in the list is the outermost
	for i := len(middleware) - 1; i >= 0; i-- {
		transport = middleware[i](transport)
	}
	return transport
}

// CrossProcess is a client middleware adding the outbound cross process
// headers of the transaction attached to the request context, and processing
// the CAT response header of the peer.
//
// Requests without a transaction are passed through untouched. The request
// is wrapped in an opentracing client span tagged with the protocol used.
func CrossProcess(tracer outbound.DistributedTracer) ClientMiddleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			t, ok := TransactionFromContext(req.Context())
			if !ok {
				return next.RoundTrip(req)
			}

			span, ctx := opentracing.StartSpanFromContext(req.Context(), "crossprocess.outbound")
			defer span.Finish()
			span.SetTag("http.method", req.Method)
			span.SetTag("http.url", req.URL.String())

			headers := outbound.Build(t, outbound.ConfigFromOptions(t.Options()), tracer)
			protocol := protocolOf(t)
			span.SetTag(ProtocolTag, protocol)

			req = req.Clone(ctx)
			_ = headers.ForeachKey(func(key, val string) error {
				req.Header.Set(key, val)
				return nil
			})

			start := time.Now()
			resp, err := next.RoundTrip(req)
			if err != nil {
				span.SetTag("error", true)
				clientRequestsTotal.WithLabelValues(protocol, strconv.FormatBool(false)).Inc()
				return nil, err
			}
			_, answered := inbound.ProcessResponse(t, resp.Header, req.URL.Host, time.Since(start))
			clientRequestsTotal.WithLabelValues(protocol, strconv.FormatBool(answered)).Inc()
			return resp, nil
		})
	}
}

func protocolOf(t *txn.Transaction) string {
	switch f := t.Flags(); {
	case f.Has(txn.FlagDTOutbound):
		return protocolDT
	case f.Has(txn.FlagCATOutbound):
		return protocolCAT
	default:
		return protocolNone
	}
}
