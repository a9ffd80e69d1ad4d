package cat

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/reddit/crossprocess.go/log"
	"github.com/reddit/crossprocess.go/obfuscate"
	"github.com/reddit/crossprocess.go/set"
	"github.com/reddit/crossprocess.go/timebp"
	"github.com/reddit/crossprocess.go/txn"
)

// ErrMalformedAppData is returned when the response header cannot be decoded.
var ErrMalformedAppData = errors.New("cat: malformed app data header")

// ClientApplicationMetricPrefix prefixes the metric recorded when answering a
// CAT request. The full name is "ClientApplication/<caller id>/all".
const ClientApplicationMetricPrefix = "ClientApplication/"

// AppData is the content of the response header.
type AppData struct {
	CrossProcessID  string
	TransactionName string
	QueueTime       timebp.DurationSecondF
	ResponseTime    timebp.DurationSecondF

	// -1 when unknown.
	ContentLength int64

	// Only sent by peers writing at least 7 elements, could be empty.
	GUID     string
	RecordTT bool
}

const (
	appDataMinLength  = 5
	appDataFullLength = 7
)

// MarshalJSON implements json.Marshaler.
//
// The result is always a 7 element array.
func (a AppData) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{
		a.CrossProcessID,
		a.TransactionName,
		a.QueueTime,
		a.ResponseTime,
		a.ContentLength,
		a.GUID,
		a.RecordTT,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
//
// At least 5 elements are required. The guid (nullable) and record_tt are
// read when there are at least 7. Extra elements are ignored.
func (a *AppData) UnmarshalJSON(data []byte) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return err
	}
	if len(elems) < appDataMinLength {
		return fmt.Errorf("expected at least %d elements, got %d", appDataMinLength, len(elems))
	}

	var decoded AppData
	if err := unmarshalRequired(elems[0], &decoded.CrossProcessID); err != nil {
		return fmt.Errorf("cross process id: %w", err)
	}
	if err := unmarshalRequired(elems[1], &decoded.TransactionName); err != nil {
		return fmt.Errorf("transaction name: %w", err)
	}
	if err := unmarshalRequired(elems[2], &decoded.QueueTime); err != nil {
		return fmt.Errorf("queue time: %w", err)
	}
	if err := unmarshalRequired(elems[3], &decoded.ResponseTime); err != nil {
		return fmt.Errorf("response time: %w", err)
	}
	var contentLength float64
	if err := unmarshalRequired(elems[4], &contentLength); err != nil {
		return fmt.Errorf("content length: %w", err)
	}
	if contentLength < math.MinInt64 || contentLength >= math.MaxInt64 {
		return fmt.Errorf("content length %v out of range", contentLength)
	}
	decoded.ContentLength = int64(contentLength)

	if len(elems) >= appDataFullLength {
		if err := json.Unmarshal(elems[5], &decoded.GUID); err != nil {
			return fmt.Errorf("guid: %w", err)
		}
		if err := unmarshalRequired(elems[6], &decoded.RecordTT); err != nil {
			return fmt.Errorf("record_tt: %w", err)
		}
	}
	*a = decoded
	return nil
}

// DecodeAppData deobfuscates and parses a response header value, and checks
// that the responding application belongs to a trusted account.
//
// The returned error wraps ErrMalformedAppData, ErrMalformedID or
// ErrUntrustedAccount.
func DecodeAppData(encoded, key string, trusted set.Int64) (*AppData, error) {
	plain, err := obfuscate.Deobfuscate(encoded, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAppData, err)
	}
	var a AppData
	if err := json.Unmarshal([]byte(plain), &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAppData, err)
	}
	if err := ValidateCrossProcessID(a.CrossProcessID, trusted); err != nil {
		return nil, err
	}
	return &a, nil
}

// BuildInboundResponse builds the X-NewRelic-App-Data value answering the
// inbound CAT request of t.
//
// It returns false when CAT is disabled, t is not recording, t was not
// called by a CAT application, the local identity is unknown, or the
// response header was already built. Only the first successful call
// returns a value.
//
// On success the transaction name is frozen and a
// ClientApplication/<caller id>/all metric is recorded.
func BuildInboundResponse(t *txn.Transaction, contentLength int64) (string, bool) {
	if !t.Options().CrossProcessEnabled {
		return "", false
	}
	if !t.IsRecording() {
		return "", false
	}
	inbound := t.CAT().InboundID
	if inbound == "" {
		return "", false
	}
	reply := t.ConnectReply()
	if reply.CrossProcessID == "" || t.GUID() == "" {
		return "", false
	}
	if t.CrossProcessStatus() != txn.StatusStart {
		return "", false
	}

	if err := t.FreezeNameAndUpdateApdex(); err != nil {
		log.Debugw("Not building CAT response header", "err", err)
		return "", false
	}

	elapsed := t.Elapsed()
	data, err := json.Marshal(AppData{
		CrossProcessID:  reply.CrossProcessID,
		TransactionName: t.Name(),
		QueueTime:       timebp.DurationSecondF(t.QueueTime()),
		ResponseTime:    timebp.DurationSecondF(elapsed),
		ContentLength:   contentLength,
		GUID:            t.GUID(),
	})
	if err != nil {
		log.Debugw("Not building CAT response header", "err", err)
		return "", false
	}
	encoded, err := obfuscate.Obfuscate(string(data), reply.EncodingKey)
	if err != nil {
		log.Debugw("Not building CAT response header", "err", err)
		return "", false
	}
	t.RecordMetric(ClientApplicationMetricPrefix+inbound+"/all", elapsed)
	t.SetCrossProcessStatus(txn.StatusResponseCreated)
	return encoded, true
}
