// Package txn defines the transaction state the cross process engine reads
// and writes.
//
// Every Transaction method is safe for concurrent use, so outbound calls made
// in parallel from one request can share its transaction. Sequences of calls
// are not atomic.
package txn

import (
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/gofrs/uuid"

	"github.com/reddit/crossprocess.go/set"
	"github.com/reddit/crossprocess.go/synthetics"
)

// ErrEmptyName is returned by FreezeNameAndUpdateApdex when the transaction
// has no name to freeze.
var ErrEmptyName = errors.New("txn: empty transaction name")

// ConnectReply is the configuration the collector sends back on connect.
type ConnectReply struct {
	// The shared secret used to obfuscate CAT and synthetics headers.
	EncodingKey string

	// "<account>#<app>" of the local application.
	CrossProcessID string

	// Accounts whose inbound claims are honored.
	TrustedAccountIDs set.Int64
}

// Options are the feature flags of a transaction.
type Options struct {
	CrossProcessEnabled                     bool
	DistributedTracingEnabled               bool
	DistributedTracingExcludeNewRelicHeader bool
	SyntheticsEnabled                       bool
}

// CrossProcessStatus tracks whether the CAT response header was generated.
type CrossProcessStatus int

// CrossProcessStatus values.
//
// StatusStart only ever moves to StatusResponseCreated.
// StatusDisabled is terminal.
const (
	StatusStart CrossProcessStatus = iota
	StatusResponseCreated
	StatusDisabled
)

func (s CrossProcessStatus) String() string {
	switch s {
	default:
		return "unknown"
	case StatusStart:
		return "start"
	case StatusResponseCreated:
		return "response-created"
	case StatusDisabled:
		return "disabled"
	}
}

// Flags records which protocols a transaction took part in.
type Flags uint8

// Flags values.
const (
	FlagCATInbound Flags = 1 << iota
	FlagCATOutbound
	FlagDTOutbound
	FlagSynthetics
)

// Has returns true if all bits in f2 are set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// CAT holds the identity an inbound CAT request claimed.
//
// Every field is set at most once.
type CAT struct {
	InboundID         string
	InboundGUID       string
	TripID            string
	ReferringPathHash string
}

// MetricRecorder records a named duration metric.
type MetricRecorder interface {
	RecordDuration(name string, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordDuration(string, time.Duration) {}

// Args are the arguments of New.
type Args struct {
	// Required.
	Reply *ConnectReply

	Options Options
	AppName string
	Name    string

	// Defaults to time.Now().
	Start time.Time

	// When the request entered the queue in front of the application, if
	// known. Used to compute the queue time.
	QueueStart time.Time

	// Defaults to a recorder dropping everything.
	Metrics MetricRecorder

	// Defaults to a random GUID.
	GUID string

	// Defaults to a random trace id.
	TraceID string

	// Used in tests to control elapsed time. Defaults to time.Now.
	Now func() time.Time
}

// Transaction is the per request state.
type Transaction struct {
	reply   *ConnectReply
	options Options
	appName string
	guid    string
	traceID string

	start      time.Time
	queueStart time.Time
	now        func() time.Time
	metrics    MetricRecorder

	mu         sync.Mutex
	recording  bool
	name       string
	frozen     bool
	recordTT   bool
	status     CrossProcessStatus
	cat        CAT
	synthetics *synthetics.Header
	flags      Flags
}

// New creates a new, recording transaction.
func New(args Args) *Transaction {
	t := &Transaction{
		reply:      args.Reply,
		options:    args.Options,
		appName:    args.AppName,
		name:       args.Name,
		guid:       args.GUID,
		traceID:    args.TraceID,
		start:      args.Start,
		queueStart: args.QueueStart,
		now:        args.Now,
		metrics:    args.Metrics,
		recording:  true,
		status:     StatusStart,
	}
	if t.reply == nil {
		t.reply = &ConnectReply{}
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.start.IsZero() {
		t.start = t.now()
	}
	if t.metrics == nil {
		t.metrics = nopRecorder{}
	}
	if t.guid == "" {
		t.guid = NewGUID()
	}
	if t.traceID == "" {
		t.traceID = NewTraceID()
	}
	return t
}

// NewGUID returns a random 16 lower-hex characters transaction GUID.
func NewGUID() string {
	id := uuid.Must(uuid.NewV4())
	return hex.EncodeToString(id[:8])
}

// NewTraceID returns a random 32 lower-hex characters trace id.
func NewTraceID() string {
	id := uuid.Must(uuid.NewV4())
	return hex.EncodeToString(id.Bytes())
}

// ConnectReply returns the connect reply the transaction was created with.
func (t *Transaction) ConnectReply() *ConnectReply {
	return t.reply
}

// Options returns the feature flags of the transaction.
func (t *Transaction) Options() Options {
	return t.options
}

// AppName returns the name of the local application.
func (t *Transaction) AppName() string {
	return t.appName
}

// Name returns the current transaction name.
func (t *Transaction) Name() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.name
}

// SetName renames the transaction, unless the name is already frozen.
func (t *Transaction) SetName(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		return
	}
	t.name = name
}

// FreezeNameAndUpdateApdex freezes the transaction name.
//
// It's a no-op when the name is already frozen.
func (t *Transaction) FreezeNameAndUpdateApdex() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		return nil
	}
	if t.name == "" {
		return ErrEmptyName
	}
	t.frozen = true
	return nil
}

// IsNameFrozen returns true after a successful FreezeNameAndUpdateApdex.
func (t *Transaction) IsNameFrozen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frozen
}

// GUID returns the transaction GUID.
func (t *Transaction) GUID() string {
	return t.guid
}

// TraceID returns the distributed trace id of the transaction.
func (t *Transaction) TraceID() string {
	return t.traceID
}

// IsRecording returns false once StopRecording was called.
func (t *Transaction) IsRecording() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recording
}

// StopRecording stops the transaction from recording any further data.
func (t *Transaction) StopRecording() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = false
}

// Elapsed returns the time since the transaction started.
func (t *Transaction) Elapsed() time.Duration {
	return t.now().Sub(t.start)
}

// QueueTime returns the time the request spent queued before the transaction
// started, or 0 if unknown.
func (t *Transaction) QueueTime() time.Duration {
	if t.queueStart.IsZero() || t.queueStart.After(t.start) {
		return 0
	}
	return t.start.Sub(t.queueStart)
}

// RecordMetric records a named duration metric.
func (t *Transaction) RecordMetric(name string, d time.Duration) {
	t.metrics.RecordDuration(name, d)
}

// CrossProcessStatus returns the current cross process status.
func (t *Transaction) CrossProcessStatus() CrossProcessStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// SetCrossProcessStatus transitions the cross process status.
//
// It returns false and leaves the status unchanged when the transition would
// regress StatusResponseCreated to StatusStart or leave StatusDisabled.
func (t *Transaction) SetCrossProcessStatus(s CrossProcessStatus) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case t.status == StatusDisabled && s != StatusDisabled:
		return false
	case t.status == StatusResponseCreated && s == StatusStart:
		return false
	}
	t.status = s
	return true
}

// CAT returns a copy of the inbound CAT identity.
func (t *Transaction) CAT() CAT {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cat
}

// SetCATInboundID sets the inbound cross process id if not already set.
func (t *Transaction) SetCATInboundID(id string) bool {
	return t.setOnce(&t.cat.InboundID, id)
}

// SetCATInboundGUID sets the inbound guid if not already set.
func (t *Transaction) SetCATInboundGUID(guid string) bool {
	return t.setOnce(&t.cat.InboundGUID, guid)
}

// SetCATTripID sets the trip id if not already set.
func (t *Transaction) SetCATTripID(id string) bool {
	return t.setOnce(&t.cat.TripID, id)
}

// SetCATReferringPathHash sets the referring path hash if not already set.
func (t *Transaction) SetCATReferringPathHash(hash string) bool {
	return t.setOnce(&t.cat.ReferringPathHash, hash)
}

func (t *Transaction) setOnce(dest *string, v string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if *dest != "" || v == "" {
		return false
	}
	*dest = v
	return true
}

// Synthetics returns the synthetics header attached to the transaction, or nil.
func (t *Transaction) Synthetics() *synthetics.Header {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.synthetics
}

// SetSynthetics attaches h to the transaction.
//
// It returns false without doing anything if a header is already attached.
func (t *Transaction) SetSynthetics(h *synthetics.Header) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.synthetics != nil || h == nil {
		return false
	}
	t.synthetics = h
	return true
}

// Flags returns the protocol participation flags.
func (t *Transaction) Flags() Flags {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.flags
}

// AddFlags sets the bits of f. Bits are never cleared.
func (t *Transaction) AddFlags(f Flags) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flags |= f
}

// RecordTT returns true once SetRecordTT was called.
func (t *Transaction) RecordTT() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.recordTT
}

// SetRecordTT forces the transaction trace of this transaction to be kept.
//
// It's sticky: there's no way to unset it.
func (t *Transaction) SetRecordTT() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recordTT = true
}
