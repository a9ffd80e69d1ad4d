package cat

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/reddit/crossprocess.go/set"
)

// MaxCrossProcessIDLength is the exclusive upper bound of the length of a
// cross process id accepted from a peer.
const MaxCrossProcessIDLength = 1024

var (
	// ErrMalformedID is returned when a cross process id cannot be decoded or
	// parsed.
	ErrMalformedID = errors.New("cat: malformed cross process id")

	// ErrUntrustedAccount is returned when a well formed claim comes from an
	// account that's not trusted.
	ErrUntrustedAccount = errors.New("cat: untrusted account")
)

// AccountIDFromCrossProcessID returns the account part of a
// "<account>#<app>" cross process id.
//
// It returns -1 if there's no '#', if the part before it is not a base 10
// number, or if the number does not fit below math.MaxInt32.
func AccountIDFromCrossProcessID(id string) int {
	hash := strings.IndexByte(id, '#')
	if hash <= 0 {
		return -1
	}
	prefix := id[:hash]
	for i := 0; i < len(prefix); i++ {
		if prefix[i] < '0' || prefix[i] > '9' {
			return -1
		}
	}
	account, err := strconv.ParseInt(prefix, 10, 64)
	if err != nil || account >= math.MaxInt32 {
		return -1
	}
	return int(account)
}

// ValidateCrossProcessID checks that id is a well formed cross process id
// from a trusted account.
//
// The returned error wraps either ErrMalformedID or ErrUntrustedAccount.
func ValidateCrossProcessID(id string, trusted set.Int64) error {
	if len(id) >= MaxCrossProcessIDLength {
		return fmt.Errorf("%w: length %d", ErrMalformedID, len(id))
	}
	account := AccountIDFromCrossProcessID(id)
	if account < 0 {
		return fmt.Errorf("%w: %q", ErrMalformedID, id)
	}
	if !trusted.Contains(int64(account)) {
		return fmt.Errorf("%w: %d", ErrUntrustedAccount, account)
	}
	return nil
}
