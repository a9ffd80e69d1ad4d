package httpbp

import (
	"net/http"
	"strconv"

	"github.com/reddit/crossprocess.go/cat"
	"github.com/reddit/crossprocess.go/txn"
)

// crossProcessWriter adds the CAT response header right before the response
// headers are written.
type crossProcessWriter struct {
	http.ResponseWriter

	txn         *txn.Transaction
	endpoint    string
	wroteHeader bool
}

func (w *crossProcessWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.addAppData()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *crossProcessWriter) addAppData() {
	value, ok := cat.BuildInboundResponse(w.txn, contentLength(w.Header()))
	if ok {
		w.Header().Set(cat.AppDataHeader, value)
	}
	serverAppDataTotal.WithLabelValues(w.endpoint, strconv.FormatBool(ok)).Inc()
}

// Write implies a 200 when WriteHeader was not called, so App-Data is added
// here as well.
func (w *crossProcessWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the original writer.
func (w *crossProcessWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// flushWriter, hijackWriter and flushHijackWriter expose http.Flusher and
// http.Hijacker on a crossProcessWriter only when the writer it wraps
// supports them.
type (
	flushWriter struct {
		*crossProcessWriter
		http.Flusher
	}
	hijackWriter struct {
		*crossProcessWriter
		http.Hijacker
	}
	flushHijackWriter struct {
		*crossProcessWriter
		http.Flusher
		http.Hijacker
	}
)

// wrapResponseWriter returns cw, keeping the optional interfaces of the
// writer it wraps visible to type assertions.
func wrapResponseWriter(cw *crossProcessWriter) http.ResponseWriter {
	fl, canFlush := cw.ResponseWriter.(http.Flusher)
	hj, canHijack := cw.ResponseWriter.(http.Hijacker)
	switch {
	case canFlush && canHijack:
		return flushHijackWriter{cw, fl, hj}
	case canFlush:
		return flushWriter{cw, fl}
	case canHijack:
		return hijackWriter{cw, hj}
	default:
		return cw
	}
}
