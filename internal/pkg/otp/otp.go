// Package otp generates numeric one-time codes for login and share
// verification flows.
package otp

import (
	"crypto/rand"
	"math/big"
)

const DefaultLength = 6

var ten = big.NewInt(10)

// New returns a code of exactly length decimal digits, each drawn
// independently and uniformly from crypto/rand.
func New(length int) string {
	if length <= 0 {
		length = DefaultLength
	}
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			// crypto/rand failing means the process has no usable entropy
			// source; there is no sane fallback for a security code.
			panic(err)
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf)
}

// IsCode reports whether s looks like a code of the given length, digits only.
func IsCode(s string, length int) bool {
	if len(s) != length {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
