// Package otp generates and hashes short-lived numeric passcodes.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

const DefaultLength = 6

var ten = big.NewInt(10)

// Code returns n decimal digits, each drawn independently and uniformly from
// crypto/rand. It never fails: if the platform's entropy source is broken
// there is nothing sensible to do but stop the process.
func Code(n int) string {
	if n <= 0 {
		n = DefaultLength
	}
	b := make([]byte, n)
	for i := range b {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			panic("otp: crypto/rand unavailable: " + err.Error())
		}
		b[i] = '0' + byte(d.Int64())
	}
	return string(b)
}

// Hash returns the hex SHA-256 digest of a code. Only digests are persisted;
// the plaintext exists between generation and delivery and nowhere else.
func Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
