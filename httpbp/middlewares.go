package httpbp

import (
	"context"
	"net/http"
	"strconv"

	"github.com/reddit/crossprocess.go/cat"
	"github.com/reddit/crossprocess.go/log"
	"github.com/reddit/crossprocess.go/synthetics"
	"github.com/reddit/crossprocess.go/txn"
)

// Middleware wraps the given HandlerFunc and returns a new, wrapped, HandlerFunc.
type Middleware func(name string, next HandlerFunc) HandlerFunc

// Wrap wraps the given HandlerFunc with the given Middlewares and returns the
// wrapped HandlerFunc passing the given name to each middleware in the chain.
//
// Middlewares will be called in the order that they are defined:
//
//		1. Middlewares[0]
//		2. Middlewares[1]
//		...
//		N. Middlewares[n]
func Wrap(name string, handle HandlerFunc, middlewares ...Middleware) HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handle = middlewares[i](name, handle)
	}
	return handle
}

// TransactionFactory creates the transaction of an inbound request.
//
// Returning nil skips cross process handling for the request.
type TransactionFactory func(r *http.Request) *txn.Transaction

// InjectCrossProcess returns a Middleware that creates a transaction for every
// request using newTxn and attaches it to the context.
//
// Transactions without a name are named after the handler. The inbound CAT
// and synthetics headers of the request are decoded onto the transaction,
// failures are logged at debug level and otherwise ignored.
//
// When the request came from a trusted CAT application, the
// X-NewRelic-App-Data header is added to the response right before its
// headers are written. Its content length is read from the Content-Length
// header set by the handler, or -1 when missing.
func InjectCrossProcess(newTxn TransactionFactory) Middleware {
	return func(name string, next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			t := newTxn(r)
			if t == nil {
				return next(ctx, w, r)
			}
			if t.Name() == "" {
				t.SetName(name)
			}
			decodeInbound(t, r.Header)

			ctx = ContextWithTransaction(ctx, t)
			ctx = log.Attach(ctx, log.AttachArgs{
				GUID:            t.GUID(),
				TransactionName: t.Name(),
				CrossProcessID:  t.CAT().InboundID,
			})
			cw := &crossProcessWriter{
				ResponseWriter: w,
				txn:            t,
				endpoint:       name,
			}
			err := next(ctx, wrapResponseWriter(cw), r.WithContext(ctx))
			if err == nil && !cw.wroteHeader {
				cw.WriteHeader(http.StatusOK)
			}
			return err
		}
	}
}

func decodeInbound(t *txn.Transaction, h http.Header) {
	if id := h.Get(cat.IDHeader); id != "" {
		// Failures are logged and counted by cat.
		_ = cat.SetInbound(t, id, h.Get(cat.TransactionHeader))
	}
	if v := h.Get(synthetics.HeaderName); v != "" {
		_ = cat.SetSynthetics(t, v)
	}
}

// contentLength returns the Content-Length set in h, or -1.
func contentLength(h http.Header) int64 {
	v := h.Get("Content-Length")
	if v == "" {
		return -1
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
