package cat

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/reddit/crossprocess.go/obfuscate"
	"github.com/reddit/crossprocess.go/txn"
)

// Header names.
const (
	IDHeader          = "X-NewRelic-ID"
	TransactionHeader = "X-NewRelic-Transaction"
	AppDataHeader     = "X-NewRelic-App-Data"
)

var (
	// ErrDisabled is returned when CAT (or synthetics) is disabled on the
	// transaction.
	ErrDisabled = errors.New("cat: disabled")

	// ErrMalformedTransaction is returned when the transaction header cannot
	// be decoded.
	ErrMalformedTransaction = errors.New("cat: malformed transaction header")

	// ErrNoCrossProcessID is returned when building outbound headers without
	// a local cross process id.
	ErrNoCrossProcessID = errors.New("cat: no local cross process id")
)

// TxnData is the content of the transaction header.
//
// Empty TripID and PathHash are encoded as JSON null.
type TxnData struct {
	GUID     string
	RecordTT bool
	TripID   string
	PathHash string
}

const txnDataMinLength = 2

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// MarshalJSON implements json.Marshaler.
//
// The result is always a 4 element array.
func (d TxnData) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{
		d.GUID,
		d.RecordTT,
		nullable(d.TripID),
		nullable(d.PathHash),
	})
}

// UnmarshalJSON implements json.Unmarshaler.
//
// GUID and RecordTT are required, TripID and PathHash may be missing or null.
// Elements after the fourth are ignored.
func (d *TxnData) UnmarshalJSON(data []byte) error {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return err
	}
	if len(elems) < txnDataMinLength {
		return fmt.Errorf("expected at least %d elements, got %d", txnDataMinLength, len(elems))
	}
	var decoded TxnData
	if err := unmarshalRequired(elems[0], &decoded.GUID); err != nil {
		return fmt.Errorf("guid: %w", err)
	}
	if err := unmarshalRequired(elems[1], &decoded.RecordTT); err != nil {
		return fmt.Errorf("record_tt: %w", err)
	}
	for i, dest := range []*string{&decoded.TripID, &decoded.PathHash} {
		if i+2 >= len(elems) {
			break
		}
		if err := json.Unmarshal(elems[i+2], dest); err != nil {
			return fmt.Errorf("element %d: %w", i+2, err)
		}
	}
	*d = decoded
	return nil
}

var errNull = errors.New("unexpected null")

// unmarshalRequired is json.Unmarshal without the null-is-a-no-op rule.
func unmarshalRequired(raw json.RawMessage, dest interface{}) error {
	if string(raw) == "null" {
		return errNull
	}
	return json.Unmarshal(raw, dest)
}

// EncodeID returns the obfuscated X-NewRelic-ID header value.
func EncodeID(crossProcessID, key string) (string, error) {
	return obfuscate.Obfuscate(crossProcessID, key)
}

// EncodeTransaction returns the obfuscated X-NewRelic-Transaction header
// value.
func EncodeTransaction(d TxnData, key string) (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return obfuscate.Obfuscate(string(data), key)
}

// DecodeTransaction reverses EncodeTransaction.
func DecodeTransaction(encoded, key string) (*TxnData, error) {
	plain, err := obfuscate.Deobfuscate(encoded, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}
	var d TxnData
	if err := json.Unmarshal([]byte(plain), &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTransaction, err)
	}
	return &d, nil
}

// OutboundHeaders builds the X-NewRelic-ID and X-NewRelic-Transaction values
// for an outbound request of t.
//
// The trip id falls back to the GUID of t when t was not called by another
// CAT application. The path hash is only sent when the application name is
// known.
//
// RecordTT is always false.
func OutboundHeaders(t *txn.Transaction) (id, transaction string, err error) {
	reply := t.ConnectReply()
	if reply.CrossProcessID == "" {
		return "", "", ErrNoCrossProcessID
	}

	id, err = EncodeID(reply.CrossProcessID, reply.EncodingKey)
	if err != nil {
		return "", "", fmt.Errorf("cat: encoding id header: %w", err)
	}

	inbound := t.CAT()
	d := TxnData{
		GUID:   t.GUID(),
		TripID: inbound.TripID,
	}
	if d.TripID == "" {
		d.TripID = t.GUID()
	}
	if t.AppName() != "" {
		// A malformed referring hash sends null.
		d.PathHash, _ = PathHash(t.AppName(), t.Name(), inbound.ReferringPathHash)
	}
	transaction, err = EncodeTransaction(d, reply.EncodingKey)
	if err != nil {
		return "", "", fmt.Errorf("cat: encoding transaction header: %w", err)
	}
	return id, transaction, nil
}
