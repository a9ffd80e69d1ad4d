package log

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"go.uber.org/zap/zapcore"
)

// DefaultSentryFlushTimeout is the flush timeout used when
// SentryConfig.FlushTimeout is not positive.
const DefaultSentryFlushTimeout = 2 * time.Second

// ErrSentryFlushFailed is wrapped by the error returned from the Closer of
// InitSentry when pending events could not be sent in time.
var ErrSentryFlushFailed = errors.New("log: sentry flushing failed")

// SentryConfig is the configuration of InitSentry.
//
// All fields are optional. Without a DSN (here or in the SENTRY_DSN
// environment variable) events are dropped.
type SentryConfig struct {
	DSN         string `yaml:"dsn"`
	ServerName  string `yaml:"serverName"`
	Environment string `yaml:"environment"`

	// In [0, 1], defaults to 1.
	SampleRate *float64 `yaml:"sampleRate"`

	// Regular expressions matched against messages and errors. Matching
	// events are dropped.
	IgnoreErrors []string `yaml:"ignoreErrors"`

	FlushTimeout time.Duration `yaml:"flushTimeout"`

	// Called before sending each event, returning nil drops it.
	BeforeSend func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event `yaml:"-"`
}

// InitSentry initializes the global sentry client.
//
// Closing the returned io.Closer flushes pending events.
func InitSentry(cfg SentryConfig) (io.Closer, error) {
	sampleRate := 1.0
	if r := cfg.SampleRate; r != nil && *r >= 0 && *r <= 1 {
		sampleRate = *r
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:          cfg.DSN,
		ServerName:   cfg.ServerName,
		Environment:  cfg.Environment,
		SampleRate:   sampleRate,
		IgnoreErrors: cfg.IgnoreErrors,
		BeforeSend:   cfg.BeforeSend,
	})
	if err != nil {
		return nil, err
	}
	timeout := cfg.FlushTimeout
	if timeout <= 0 {
		timeout = DefaultSentryFlushTimeout
	}
	return sentryFlusher(timeout), nil
}

type sentryFlusher time.Duration

func (f sentryFlusher) Close() error {
	timeout := time.Duration(f)
	if !sentry.Flush(timeout) {
		return fmt.Errorf("log: sentry flush timed out after %v: %w", timeout, ErrSentryFlushFailed)
	}
	return nil
}

// ErrorWithSentry logs err at error level with the logger attached to ctx and
// reports it to sentry.
//
// The key-value pairs are logged as in With and also sent as sentry tags,
// zap.Field values are only logged. The hub attached to ctx by Attach is used
// when present, so reports carry the transaction tags.
func ErrorWithSentry(ctx context.Context, msg string, err error, keysAndValues ...interface{}) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if len(keysAndValues) > 0 {
		tags, dangling := sentryTags(keysAndValues)
		if dangling {
			Errorw("Dangling key in ErrorWithSentry", "keysAndValues", keysAndValues)
		}
		hub = hub.Clone()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetTags(tags)
		})
	}

	C(ctx).Errorw(msg, append(keysAndValues, "err", err)...)
	hub.CaptureException(err)
}

// sentryTags converts key-value pairs into sentry tags, skipping zap fields.
func sentryTags(keysAndValues []interface{}) (tags map[string]string, dangling bool) {
	tags = make(map[string]string, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues); i++ {
		if _, ok := keysAndValues[i].(zapcore.Field); ok {
			continue
		}
		if i+1 == len(keysAndValues) {
			return tags, true
		}
		tags[fmt.Sprint(keysAndValues[i])] = fmt.Sprint(keysAndValues[i+1])
		i++
	}
	return tags, false
}
