package httpbp

import (
	"context"
	"net/http"

	"github.com/reddit/crossprocess.go/log"
)

// HandlerFunc handles a single HTTP request and can be wrapped in Middleware.
//
// ctx is the request context as augmented by the middlewares, it should be
// used over r.Context().
//
// A returned error is reported to sentry and answered with a plain-text 500.
// Responses answered this way never carry the CAT response header.
type HandlerFunc func(ctx context.Context, w http.ResponseWriter, r *http.Request) error

// handler adapts a wrapped HandlerFunc to http.Handler.
type handler struct {
	name   string
	handle HandlerFunc
}

var _ http.Handler = handler{}

func (h handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	err := h.handle(ctx, w, r)
	if err == nil {
		return
	}
	log.ErrorWithSentry(ctx, "Unhandled server error", err, "endpoint", h.name)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// NewHandler returns an http.Handler running handle wrapped with middlewares,
// see Wrap. name is passed to every middleware.
func NewHandler(name string, handle HandlerFunc, middlewares ...Middleware) http.Handler {
	return handler{
		name:   name,
		handle: Wrap(name, handle, middlewares...),
	}
}
