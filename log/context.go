package log

import (
	"context"

	sentry "github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

type contextKeyType struct{}

var contextKey contextKeyType

// logger keys for attached data.
const (
	guidKey        = "txn_guid"
	txnNameKey     = "txn_name"
	crossProcessID = "cross_process_id"
)

// AttachArgs are used to create loggers to be attached to context object with
// pre-filled key-value pairs.
//
// All zero value fields will be ignored and only non-zero values will be
// attached.
type AttachArgs struct {
	GUID            string
	TransactionName string
	CrossProcessID  string

	AdditionalPairs map[string]interface{}
}

// Attach attaches a logger with data extracted from args into the context
// object. The transaction fields are also attached as tags of a sentry hub,
// see ErrorWithSentry.
func Attach(ctx context.Context, args AttachArgs) context.Context {
	kv := make([]interface{}, 0, len(args.AdditionalPairs)*2+3)
	if args.GUID != "" {
		kv = append(kv, zap.String(guidKey, args.GUID))
	}
	if args.TransactionName != "" {
		kv = append(kv, zap.String(txnNameKey, args.TransactionName))
	}
	if args.CrossProcessID != "" {
		kv = append(kv, zap.String(crossProcessID, args.CrossProcessID))
	}
	for k, v := range args.AdditionalPairs {
		kv = append(kv, k, v)
	}

	ctx = attachSentryTags(ctx, map[string]string{
		guidKey:        args.GUID,
		txnNameKey:     args.TransactionName,
		crossProcessID: args.CrossProcessID,
	})

	l := C(ctx)
	if len(kv) == 0 {
		return context.WithValue(ctx, contextKey, l)
	}
	return context.WithValue(ctx, contextKey, l.With(kv...))
}

// attachSentryTags attaches a clone of the sentry hub of ctx carrying the
// non-empty tags, used by ErrorWithSentry.
func attachSentryTags(ctx context.Context, tags map[string]string) context.Context {
	for k, v := range tags {
		if v == "" {
			delete(tags, k)
		}
	}
	if len(tags) == 0 {
		return ctx
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub = hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
	})
	return sentry.SetHubOnContext(ctx, hub)
}

// C is short for Context.
//
// It extracts the logger attached to the current context object,
// and falls back to the global logger if none is found.
//
// The return value is guaranteed to be non-nil.
func C(ctx context.Context) *zap.SugaredLogger {
	if l, ok := ctx.Value(contextKey).(*zap.SugaredLogger); ok && l != nil {
		return l
	}
	return logger
}
