// SPDX-License-Identifier: MIT

package main

import (
	"crypto/sha1"
	"math/big"
	"strings"
)

// sha1Base36Width is the fixed width of MediaWiki's base-36 SHA-1
// representation: a 160-bit digest never needs more than 31 base-36
// digits, and the glossary requires zero-padding to exactly that width.
const sha1Base36Width = 31

// sha1Base36 computes the SHA-1 digest of text, reinterprets it as an
// unsigned big-endian integer, and encodes it in base 36, left-padded
// with '0' to 31 characters. This is C7, spec.md §4.7.
func sha1Base36(text []byte) string {
	digest := sha1.Sum(text)
	n := new(big.Int).SetBytes(digest[:])
	s := n.Text(36)
	if len(s) < sha1Base36Width {
		s = strings.Repeat("0", sha1Base36Width-len(s)) + s
	}
	return s
}

// validateSha1B36 checks that a source-provided sha1 has the shape C7
// expects before trusting it verbatim: 31 lowercase base-36 characters.
func validateSha1B36(s string) error {
	if len(s) != sha1Base36Width {
		return errInvalidSha1
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9') && !(c >= 'a' && c <= 'z') {
			return errInvalidSha1
		}
	}
	return nil
}

var errInvalidSha1 = &sha1FormatError{}

type sha1FormatError struct{}

func (*sha1FormatError) Error() string { return "sha1 must be 31 lowercase base-36 characters" }
