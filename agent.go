package crossprocess

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/reddit/crossprocess.go/dt"
	"github.com/reddit/crossprocess.go/httpbp"
	"github.com/reddit/crossprocess.go/log"
	"github.com/reddit/crossprocess.go/outbound"
	"github.com/reddit/crossprocess.go/prometheusbp"
	"github.com/reddit/crossprocess.go/txn"
)

// DefaultPriority is the distributed tracing priority of sampled
// transactions.
const DefaultPriority = 1

// Agent creates transactions sharing one configuration.
//
// An Agent is safe for concurrent use.
type Agent struct {
	cfg     Config
	reply   *txn.ConnectReply
	options txn.Options
	tracer  dt.Tracer
	metrics txn.MetricRecorder
	sentry  io.Closer
}

// New validates cfg, initializes the global logger and sentry from it and
// returns a new Agent.
//
// Close should be called when the Agent is no longer used.
func New(cfg Config) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.InitFromConfig(cfg.Log)
	sentry, err := log.InitSentry(cfg.Log.Sentry)
	if err != nil {
		return nil, fmt.Errorf("crossprocess.New: failed to init sentry: %w", err)
	}
	return &Agent{
		cfg:     cfg,
		reply:   cfg.ConnectReply.ToConnectReply(),
		options: cfg.Options(),
		tracer: dt.Tracer{
			TrustedAccountKey: cfg.ConnectReply.TrustedAccountKey,
			Sampled:           true,
			Priority:          DefaultPriority,
		},
		metrics: prometheusbp.DurationRecorder{},
		sentry:  sentry,
	}, nil
}

// Close flushes the pending sentry events and the logger.
func (a *Agent) Close() error {
	err := a.sentry.Close()
	_ = log.Sync()
	return err
}

// Config returns the configuration the Agent was created with.
func (a *Agent) Config() Config {
	return a.cfg
}

// Tracer returns the distributed tracer used for outbound requests.
func (a *Agent) Tracer() outbound.DistributedTracer {
	return a.tracer
}

// NewTransaction starts a new transaction.
//
// queueStart is when the request entered the queue in front of the
// application, zero when unknown. Metrics of the transaction are exported
// through prometheusbp.
func (a *Agent) NewTransaction(name string, queueStart time.Time) *txn.Transaction {
	return txn.New(txn.Args{
		Reply:      a.reply,
		Options:    a.options,
		AppName:    a.cfg.AppName,
		Name:       name,
		QueueStart: queueStart,
		Metrics:    a.metrics,
	})
}

// OutboundHeaders returns the cross process headers to add to a request made
// on behalf of t.
func (a *Agent) OutboundHeaders(t *txn.Transaction) outbound.Headers {
	return outbound.Build(t, outbound.ConfigFromOptions(t.Options()), a.tracer)
}

// Middleware returns the server middleware creating a transaction for every
// request, named after the handler.
//
// The queue start of the transaction is read from the X-Request-Start or
// X-Queue-Start header set by the proxy in front of the application.
func (a *Agent) Middleware() httpbp.Middleware {
	return httpbp.InjectCrossProcess(func(r *http.Request) *txn.Transaction {
		return a.NewTransaction("", QueueStartFromHeader(r.Header))
	})
}

// NewHandler returns an http.Handler running handle wrapped with the Agent
// middleware followed by middlewares.
func (a *Agent) NewHandler(name string, handle httpbp.HandlerFunc, middlewares ...httpbp.Middleware) http.Handler {
	middlewares = append([]httpbp.Middleware{a.Middleware()}, middlewares...)
	return httpbp.NewHandler(name, handle, middlewares...)
}

// Client returns an HTTP client adding the cross process headers of the
// transaction in the request context.
//
// The circuit breaker and the retries of the client configuration come next,
// followed by any additional client middleware.
func (a *Agent) Client(middleware ...httpbp.ClientMiddleware) *http.Client {
	var defaults []httpbp.ClientMiddleware
	if cfg := a.cfg.Client.CircuitBreaker; cfg != nil {
		defaults = append(defaults, httpbp.CircuitBreaker(*cfg))
	}
	if attempts := a.cfg.Client.RetryAttempts; attempts > 1 {
		defaults = append(defaults, httpbp.Retries(attempts))
	}
	return httpbp.NewClient(a.tracer, append(defaults, middleware...)...)
}
