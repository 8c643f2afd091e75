// Package invitecode generates the short codes users type to join a workspace.
package invitecode

import (
	"crypto/rand"
	"io"
	"math/big"
)

// Alphabet is the set of characters a code is drawn from. Codes are
// uppercase and compared case-sensitively.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of characters in a code.
const Length = 6

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// New returns a random code read from crypto/rand.
func New() (string, error) {
	return FromReader(rand.Reader)
}

// FromReader draws a code using r as the entropy source. Each character is
// sampled uniformly from Alphabet.
func FromReader(r io.Reader) (string, error) {
	b := make([]byte, Length)
	for i := range b {
		n, err := rand.Int(r, alphabetSize)
		if err != nil {
			return "", err
		}
		b[i] = Alphabet[n.Int64()]
	}
	return string(b), nil
}

// Valid reports whether s has the shape of a generated code.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
