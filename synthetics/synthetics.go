// Package synthetics implements the versioned synthetics header, which marks
// a request as coming from an automated monitor rather than a real user.
//
// On the wire the header value is a JSON array obfuscated with the encoding
// key of the receiving application:
//
//	[version, account_id, resource_id, job_id, monitor_id]
//
// Unlike the CAT arrays, the synthetics array is strict: a known version
// requires its exact element count and types.
package synthetics

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/reddit/crossprocess.go/obfuscate"
)

// HeaderName is the name of the synthetics header.
const HeaderName = "X-NewRelic-Synthetics"

var (
	// ErrUnknownVersion is returned when the version of the header is not
	// supported.
	ErrUnknownVersion = errors.New("synthetics: unknown version")

	// ErrMalformed is returned when the header does not match the schema of
	// its version.
	ErrMalformed = errors.New("synthetics: malformed header")
)

// Header is the decoded synthetics header.
//
// A Header must not be copied after the first call to Encode.
type Header struct {
	Version    int
	AccountID  int
	ResourceID string
	JobID      string
	MonitorID  string

	encodeOnce sync.Once
	encoded    string
}

type parseFunc func(elems []json.RawMessage) (*Header, error)

// versions is the map from known versions to their parsers.
var versions = map[int]parseFunc{
	1: parseV1,
}

// Decode parses a plain (not obfuscated) header value.
//
// Unknown versions are rejected, there is no fallback.
func Decode(value string) (*Header, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(value), &elems); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrMalformed)
	}

	var version int
	if err := unmarshalNonNull(elems[0], &version); err != nil {
		return nil, fmt.Errorf("%w: version %s", ErrUnknownVersion, elems[0])
	}
	parse, ok := versions[version]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, version)
	}
	return parse(elems)
}

// DecodeObfuscated deobfuscates value with key then calls Decode.
func DecodeObfuscated(value, key string) (*Header, error) {
	plain, err := obfuscate.Deobfuscate(value, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Decode(plain)
}

const v1Length = 5

func parseV1(elems []json.RawMessage) (*Header, error) {
	if len(elems) != v1Length {
		return nil, fmt.Errorf(
			"%w: version 1 expects %d elements, got %d",
			ErrMalformed,
			v1Length,
			len(elems),
		)
	}
	h := &Header{Version: 1}
	if err := unmarshalNonNull(elems[1], &h.AccountID); err != nil {
		return nil, fmt.Errorf("%w: account id: %v", ErrMalformed, err)
	}
	for i, dest := range []*string{&h.ResourceID, &h.JobID, &h.MonitorID} {
		if err := unmarshalNonNull(elems[i+2], dest); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrMalformed, i+2, err)
		}
	}
	return h, nil
}

// unmarshalNonNull is json.Unmarshal without the null-is-a-no-op rule.
func unmarshalNonNull(raw json.RawMessage, dest interface{}) error {
	if string(raw) == "null" {
		return errors.New("unexpected null")
	}
	return json.Unmarshal(raw, dest)
}

// Encode returns the plain JSON array of the header.
//
// The result is computed on the first call and reused afterwards.
func (h *Header) Encode() string {
	h.encodeOnce.Do(func() {
		// Marshaling ints and strings never fails.
		data, _ := json.Marshal([]interface{}{
			h.Version,
			h.AccountID,
			h.ResourceID,
			h.JobID,
			h.MonitorID,
		})
		h.encoded = string(data)
	})
	return h.encoded
}

// EncodeObfuscated returns the wire value of the header obfuscated with key.
func (h *Header) EncodeObfuscated(key string) (string, error) {
	return obfuscate.Obfuscate(h.Encode(), key)
}
