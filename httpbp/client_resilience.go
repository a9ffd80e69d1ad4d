package httpbp

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	retry "github.com/avast/retry-go"
	"github.com/sony/gobreaker"
	"go.uber.org/multierr"

	"github.com/reddit/crossprocess.go/log"
)

// errServerStatus marks 5xx responses as failures for the circuit breaker and
// the retries.
var errServerStatus = errors.New("httpbp: server error status")

// BreakerConfig is the configuration of the CircuitBreaker client middleware.
//
// Can be deserialized from YAML.
type BreakerConfig struct {
	// Minimum requests that need to be sent during a time period before the
	// breaker is eligible to transition from closed to open.
	MinRequestsToTrip int `yaml:"minRequestsToTrip"`

	// Ratio of failed requests during a time period for the breaker to
	// transition from closed to open, in [0, 1].
	FailureThreshold float64 `yaml:"failureThreshold"`

	// Requests allowed through while half-open. 0 means 1.
	MaxRequestsHalfOpen uint32 `yaml:"maxRequestsHalfOpen"`

	// The cyclical period of the closed state. If 0, counts are never reset
	// while closed.
	Interval time.Duration `yaml:"interval"`

	// The duration of the open state, after which the breaker is half-open.
	Timeout time.Duration `yaml:"timeout"`
}

type hostBreaker struct {
	host string
	cfg  BreakerConfig
}

func newHostBreaker(host string, cfg BreakerConfig) *gobreaker.CircuitBreaker {
	b := hostBreaker{host: host, cfg: cfg}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:          host,
		MaxRequests:   cfg.MaxRequestsHalfOpen,
		Interval:      cfg.Interval,
		Timeout:       cfg.Timeout,
		ReadyToTrip:   b.shouldTrip,
		OnStateChange: b.stateChanged,
	})
	breakerClosed.WithLabelValues(host).Set(1)
	return cb
}

func (b hostBreaker) shouldTrip(counts gobreaker.Counts) bool {
	if counts.Requests == 0 || counts.Requests < uint32(b.cfg.MinRequestsToTrip) {
		return false
	}
	ratio := float64(counts.TotalFailures) / float64(counts.Requests)
	if ratio < b.cfg.FailureThreshold {
		return false
	}
	log.Warnw(
		"Tripping circuit breaker",
		"host", b.host,
		"requests", counts.Requests,
		"failures", counts.TotalFailures,
	)
	return true
}

func (b hostBreaker) stateChanged(_ string, from, to gobreaker.State) {
	var value float64
	if to != gobreaker.StateOpen {
		value = 1
	}
	breakerClosed.WithLabelValues(b.host).Set(value)
	log.Infow(
		"Circuit breaker state changed",
		"host", b.host,
		"from", from.String(),
		"to", to.String(),
	)
}

// CircuitBreaker is a client middleware that prevents sending requests that
// are likely to fail, through a failure ratio based on total failures and
// requests. Transport errors and 5xx responses are failures.
//
// The circuit breaker is applied on a per-host basis. While open, requests
// fail with an error wrapping gobreaker.ErrOpenState or
// gobreaker.ErrTooManyRequests.
func CircuitBreaker(cfg BreakerConfig) ClientMiddleware {
	var breakers sync.Map
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			host := req.URL.Hostname()
			b, ok := breakers.Load(host)
			if !ok {
				b, _ = breakers.LoadOrStore(host, newHostBreaker(host, cfg))
			}

			result, err := b.(*gobreaker.CircuitBreaker).Execute(func() (interface{}, error) {
				resp, err := next.RoundTrip(req)
				if err != nil {
					return nil, err
				}
				if resp.StatusCode >= http.StatusInternalServerError {
					return resp, errServerStatus
				}
				return resp, nil
			})
			if err != nil && !errors.Is(err, errServerStatus) {
				return nil, err
			}
			return result.(*http.Response), nil
		})
	}
}

// Retries is a client middleware that retries requests failing with a
// transport error or a 5xx response, making at most attempts tries.
//
// The response of the last try is returned as-is even on 5xx. Requests with a
// body that cannot be replayed through GetBody are never retried. When all
// tries fail with errors, the returned error combines all of them with
// go.uber.org/multierr. retryOptions must not override retry.Attempts.
func Retries(attempts uint, retryOptions ...retry.Option) ClientMiddleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			if attempts <= 1 || (req.Body != nil && req.Body != http.NoBody && req.GetBody == nil) {
				return next.RoundTrip(req)
			}

			var resp *http.Response
			var tries uint
			options := append([]retry.Option{
				retry.Context(req.Context()),
				retry.Attempts(attempts),
				retry.LastErrorOnly(false),
			}, retryOptions...)
			err := retry.Do(func() error {
				r := req
				if tries > 0 && req.GetBody != nil {
					body, err := req.GetBody()
					if err != nil {
						return err
					}
					r = req.Clone(req.Context())
					r.Body = body
				}
				tries++

				res, err := next.RoundTrip(r)
				if err != nil {
					return err
				}
				if res.StatusCode >= http.StatusInternalServerError && tries < attempts {
					drainAndClose(res.Body)
					return fmt.Errorf("%w: %d", errServerStatus, res.StatusCode)
				}
				resp = res
				return nil
			}, options...)

			var retryErr retry.Error
			if errors.As(err, &retryErr) {
				return nil, multierr.Combine(retryErr.WrappedErrors()...)
			}
			if err != nil {
				return nil, err
			}
			return resp, nil
		})
	}
}

// drainAndClose reads the body to EOF and closes it so the underlying
// connection can be reused.
func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
