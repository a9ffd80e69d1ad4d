// Package obfuscate implements the base64 and repeating-key XOR transform
// shared by the cross process headers.
//
// The transform is reversible by anyone holding the key. It provides no
// confidentiality and no integrity: identical input and key always produce
// identical output.
package obfuscate

import (
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when there is nothing to (de)obfuscate,
	// including an encoded value that decodes to zero bytes.
	ErrEmptyInput = errors.New("obfuscate: empty input")

	// ErrEmptyKey is returned when the key is empty.
	ErrEmptyKey = errors.New("obfuscate: empty key")
)

// Base64Error is the error type returned when decoding a string containing
// characters outside of the standard base64 alphabet, or with invalid
// padding.
type Base64Error struct {
	// Offset of the first offending byte.
	Offset int

	// The underlying error from encoding/base64, could be nil.
	Cause error
}

var _ error = (*Base64Error)(nil)

func (e *Base64Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("obfuscate: invalid base64 at offset %d: %v", e.Offset, e.Cause)
	}
	return fmt.Sprintf("obfuscate: invalid base64 character at offset %d", e.Offset)
}

// Unwrap returns the underlying error, if any.
func (e *Base64Error) Unwrap() error {
	return e.Cause
}

// IsValidBase64Char returns true if c belongs to the standard base64 alphabet
// (A-Z, a-z, 0-9, '+', '/') or is the padding character '='.
func IsValidBase64Char(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	}
	return c == '+' || c == '/' || c == '='
}

// Base64Encode encodes data using the standard, padded base64 alphabet.
func Base64Encode(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Base64Decode decodes s using the standard, padded base64 alphabet.
//
// Unlike encoding/base64, newline characters are not skipped:
// any byte outside of the alphabet fails the decode, and no partial result is
// returned.
func Base64Decode(s string) ([]byte, error) {
	for i := 0; i < len(s); i++ {
		if !IsValidBase64Char(s[i]) {
			return nil, &Base64Error{Offset: i}
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		var offset base64.CorruptInputError
		errors.As(err, &offset)
		return nil, &Base64Error{
			Offset: int(offset),
			Cause:  err,
		}
	}
	return data, nil
}

// xor applies key to data in place, repeating the key as needed.
func xor(data []byte, key string) {
	for i := range data {
		data[i] ^= key[i%len(key)]
	}
}

// Obfuscate XORs plaintext with the repeating key then base64 encodes the
// result.
func Obfuscate(plaintext, key string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyInput
	}
	if key == "" {
		return "", ErrEmptyKey
	}
	data := []byte(plaintext)
	xor(data, key)
	return Base64Encode(data), nil
}

// Deobfuscate reverses Obfuscate.
func Deobfuscate(encoded, key string) (string, error) {
	if encoded == "" {
		return "", ErrEmptyInput
	}
	if key == "" {
		return "", ErrEmptyKey
	}
	data, err := Base64Decode(encoded)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyInput
	}
	xor(data, key)
	return string(data), nil
}
