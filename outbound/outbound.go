package outbound

import (
	"github.com/reddit/crossprocess.go/cat"
	"github.com/reddit/crossprocess.go/log"
	"github.com/reddit/crossprocess.go/synthetics"
	"github.com/reddit/crossprocess.go/txn"
)

// Config is the per request configuration of Build.
//
// It's a plain value, so the precedence rules of Build only ever depend on
// its arguments.
type Config struct {
	CrossProcessEnabled       bool
	DistributedTracingEnabled bool
	ExcludeNewRelicHeader     bool
	SyntheticsEnabled         bool
}

// ConfigFromOptions returns the Config matching the feature flags of a
// transaction.
func ConfigFromOptions(opts txn.Options) Config {
	return Config{
		CrossProcessEnabled:       opts.CrossProcessEnabled,
		DistributedTracingEnabled: opts.DistributedTracingEnabled,
		ExcludeNewRelicHeader:     opts.DistributedTracingExcludeNewRelicHeader,
		SyntheticsEnabled:         opts.SyntheticsEnabled,
	}
}

// DistributedTracer builds the distributed tracing headers of a transaction.
//
// Each method returns false when it has nothing to add.
type DistributedTracer interface {
	Payload(t *txn.Transaction) (string, bool)
	TraceParent(t *txn.Transaction) (string, bool)
	TraceState(t *txn.Transaction) (string, bool)
}

// Build returns the headers to add to an outbound request made by t.
//
// When cfg enables distributed tracing, tracer is asked for its headers
// (the newrelic one is skipped when cfg.ExcludeNewRelicHeader is set) and t
// is marked with txn.FlagDTOutbound. Otherwise, when CAT is enabled, the two
// CAT identity headers are added and t is marked with txn.FlagCATOutbound.
// A nil tracer with distributed tracing enabled adds no tracing headers and
// does not fall back to CAT.
//
// The synthetics header is added whenever synthetics is enabled and t
// carries one.
//
// A header that fails to build is skipped.
func Build(t *txn.Transaction, cfg Config, tracer DistributedTracer) Headers {
	h := make(Headers)
	switch {
	case cfg.DistributedTracingEnabled:
		if tracer != nil {
			addDistributedTracing(h, t, cfg, tracer)
		}
	case cfg.CrossProcessEnabled:
		addCrossProcess(h, t)
	}
	if cfg.SyntheticsEnabled {
		addSynthetics(h, t)
	}
	return h
}

func addDistributedTracing(h Headers, t *txn.Transaction, cfg Config, tracer DistributedTracer) {
	if !cfg.ExcludeNewRelicHeader {
		if v, ok := tracer.Payload(t); ok {
			h.Set(NewRelicHeader, v)
		}
	}
	if v, ok := tracer.TraceParent(t); ok {
		h.Set(TraceParentHeader, v)
	}
	if v, ok := tracer.TraceState(t); ok {
		h.Set(TraceStateHeader, v)
	}
	t.AddFlags(txn.FlagDTOutbound)
}

func addCrossProcess(h Headers, t *txn.Transaction) {
	id, transaction, err := cat.OutboundHeaders(t)
	if err != nil {
		log.Debugw("Skipping outbound CAT headers", "err", err)
		return
	}
	h.Set(cat.IDHeader, id)
	h.Set(cat.TransactionHeader, transaction)
	t.AddFlags(txn.FlagCATOutbound)
}

func addSynthetics(h Headers, t *txn.Transaction) {
	s := t.Synthetics()
	if s == nil {
		return
	}
	v, err := s.EncodeObfuscated(t.ConnectReply().EncodingKey)
	if err != nil {
		log.Debugw("Skipping outbound synthetics header", "header", synthetics.HeaderName, "err", err)
		return
	}
	h.Set(synthetics.HeaderName, v)
}
