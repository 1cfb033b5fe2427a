// Package codec provides the 62-symbol alphabet shared by short-code
// generation and the base62 numeral conversion helpers.
package codec

import (
	"errors"
	"strings"
)

// Alphabet is the 62-character set used for short codes: 0-9, a-z, A-Z.
// Every character is safe in a URL path segment without percent-encoding.
const Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = 62

// ErrInvalidCharacter is returned when decoding encounters a character
// outside the alphabet.
var ErrInvalidCharacter = errors.New("invalid base62 character")

// ErrEmptyString is returned when decoding an empty string.
var ErrEmptyString = errors.New("cannot decode empty string")

// charToValue maps each byte to its alphabet index, or -1.
var charToValue [256]int

func init() {
	for i := range charToValue {
		charToValue[i] = -1
	}
	for i, c := range Alphabet {
		charToValue[c] = i
	}
}

// Encode converts a non-negative integer to its base62 representation,
// most significant symbol first. Encode(0) is "0", the first alphabet symbol.
func Encode(n uint64) string {
	if n == 0 {
		return string(Alphabet[0])
	}

	var b strings.Builder
	b.Grow(11) // 11 symbols hold any uint64

	for n > 0 {
		b.WriteByte(Alphabet[n%base])
		n /= base
	}

	return reverse(b.String())
}

// Decode converts a base62 string back to the integer it encodes. It is the
// left inverse of Encode. A character outside the alphabet is an error, never
// silently treated as the zero symbol.
func Decode(s string) (uint64, error) {
	if len(s) == 0 {
		return 0, ErrEmptyString
	}

	var result uint64
	for i := 0; i < len(s); i++ {
		val := charToValue[s[i]]
		if val == -1 {
			return 0, ErrInvalidCharacter
		}
		result = result*base + uint64(val)
	}

	return result, nil
}

// IsValid reports whether s is non-empty and composed entirely of
// alphabet characters.
func IsValid(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if charToValue[s[i]] == -1 {
			return false
		}
	}
	return true
}

func reverse(s string) string {
	b := []byte(s)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}
