// Package dt builds the distributed tracing headers of outbound requests.
//
// Tracer produces the W3C traceparent and tracestate headers and the
// proprietary newrelic header for outbound.Build.
package dt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/reddit/crossprocess.go/obfuscate"
	"github.com/reddit/crossprocess.go/outbound"
	"github.com/reddit/crossprocess.go/timebp"
	"github.com/reddit/crossprocess.go/txn"
)

const (
	traceParentVersion = "00"
	payloadType        = "App"
	traceIDLength      = 32
	spanIDLength       = 16
)

var payloadVersion = [2]int{0, 1}

// Tracer builds distributed tracing headers from the identity of a
// transaction.
//
// The transaction GUID is used as the span id. No header is built for a
// transaction whose cross process id is not "<account>#<app>".
type Tracer struct {
	// The account key in tracestate. Defaults to the account id.
	TrustedAccountKey string

	Sampled  bool
	Priority float32

	// Defaults to time.Now.
	Now func() time.Time
}

var _ outbound.DistributedTracer = Tracer{}

type identity struct {
	account string
	app     string
	traceID string
	spanID  string
	guid    string
}

func (tr Tracer) identity(t *txn.Transaction) (identity, bool) {
	parts := strings.SplitN(t.ConnectReply().CrossProcessID, "#", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return identity{}, false
	}
	return identity{
		account: parts[0],
		app:     parts[1],
		traceID: padID(t.TraceID(), traceIDLength),
		spanID:  padID(t.GUID(), spanIDLength),
		guid:    t.GUID(),
	}, true
}

func padID(id string, length int) string {
	if len(id) >= length {
		return id[len(id)-length:]
	}
	return strings.Repeat("0", length-len(id)) + id
}

func (tr Tracer) trustKey(account string) string {
	if tr.TrustedAccountKey != "" {
		return tr.TrustedAccountKey
	}
	return account
}

func (tr Tracer) now() time.Time {
	if tr.Now != nil {
		return tr.Now()
	}
	return time.Now()
}

func (tr Tracer) priority() string {
	return strconv.FormatFloat(float64(tr.Priority), 'f', -1, 32)
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// TraceParent implements outbound.DistributedTracer.
func (tr Tracer) TraceParent(t *txn.Transaction) (string, bool) {
	id, ok := tr.identity(t)
	if !ok {
		return "", false
	}
	flags := "00"
	if tr.Sampled {
		flags = "01"
	}
	return strings.Join([]string{traceParentVersion, id.traceID, id.spanID, flags}, "-"), true
}

// TraceState implements outbound.DistributedTracer.
func (tr Tracer) TraceState(t *txn.Transaction) (string, bool) {
	id, ok := tr.identity(t)
	if !ok {
		return "", false
	}
	value := strings.Join([]string{
		"0", // version
		"0", // parent type: App
		id.account,
		id.app,
		id.spanID,
		id.guid,
		boolDigit(tr.Sampled),
		tr.priority(),
		strconv.FormatInt(timebp.TimeToMilliseconds(tr.now()), 10),
	}, "-")
	return fmt.Sprintf("%s@nr=%s", tr.trustKey(id.account), value), true
}

// Payload is the decoded newrelic header.
type Payload struct {
	Version [2]int      `json:"v"`
	Data    PayloadData `json:"d"`
}

// PayloadData is the data part of the newrelic header.
type PayloadData struct {
	Type          string                      `json:"ty"`
	Account       string                      `json:"ac"`
	App           string                      `json:"ap"`
	ID            string                      `json:"id"`
	TraceID       string                      `json:"tr"`
	TransactionID string                      `json:"tx"`
	Priority      float32                     `json:"pr"`
	Sampled       bool                        `json:"sa"`
	Timestamp     timebp.TimestampMillisecond `json:"ti"`
	TrustKey      string                      `json:"tk,omitempty"`
}

// Payload implements outbound.DistributedTracer.
//
// The header value is the base64 encoded JSON Payload.
func (tr Tracer) Payload(t *txn.Transaction) (string, bool) {
	id, ok := tr.identity(t)
	if !ok {
		return "", false
	}
	p := Payload{
		Version: payloadVersion,
		Data: PayloadData{
			Type:          payloadType,
			Account:       id.account,
			App:           id.app,
			ID:            id.spanID,
			TraceID:       id.traceID,
			TransactionID: id.guid,
			Priority:      tr.Priority,
			Sampled:       tr.Sampled,
			Timestamp:     timebp.TimestampMillisecond(tr.now()),
		},
	}
	if key := tr.trustKey(id.account); key != id.account {
		p.Data.TrustKey = key
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", false
	}
	return obfuscate.Base64Encode(data), true
}

// DecodePayload reverses Payload.
func DecodePayload(value string) (*Payload, error) {
	data, err := obfuscate.Base64Decode(value)
	if err != nil {
		return nil, err
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
