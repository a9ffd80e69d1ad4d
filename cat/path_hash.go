package cat

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"strconv"
)

// PathHash computes the CAT path hash of a transaction.
//
// The referring path hash, if any, is rotated left by one bit and XORed with
// the low 32 bits of md5("<appName>;<txnName>"). The result is formatted as 8
// lower-hex characters.
func PathHash(appName, txnName, referringPathHash string) (string, error) {
	var rph uint32
	if referringPathHash != "" {
		v, err := strconv.ParseUint(referringPathHash, 16, 32)
		if err != nil {
			return "", fmt.Errorf("cat: malformed referring path hash %q: %w", referringPathHash, err)
		}
		rph = uint32(v)
		rph = (rph << 1) | (rph >> 31)
	}
	sum := md5.Sum([]byte(appName + ";" + txnName))
	low32 := binary.BigEndian.Uint32(sum[12:])
	return fmt.Sprintf("%08x", rph^low32), nil
}
