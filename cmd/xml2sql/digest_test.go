// SPDX-License-Identifier: MIT

package main

import "testing"

func TestSha1Base36Width(t *testing.T) {
	cases := [][]byte{
		[]byte(""),
		[]byte("hello"),
		[]byte("[[wikitext]] with a fair amount of unicode: héllo wörld"),
	}
	for _, c := range cases {
		got := sha1Base36(c)
		if len(got) != sha1Base36Width {
			t.Errorf("sha1Base36(%q): got length %d, want %d", c, len(got), sha1Base36Width)
		}
		if err := validateSha1B36(got); err != nil {
			t.Errorf("sha1Base36(%q) produced an invalid digest: %v", c, err)
		}
	}
}

func TestSha1Base36Deterministic(t *testing.T) {
	a := sha1Base36([]byte("same text"))
	b := sha1Base36([]byte("same text"))
	if a != b {
		t.Errorf("sha1Base36 not deterministic: %q != %q", a, b)
	}
	c := sha1Base36([]byte("different text"))
	if a == c {
		t.Errorf("sha1Base36 collided for distinct inputs")
	}
}

func TestValidateSha1B36(t *testing.T) {
	tests := []struct {
		in    string
		valid bool
	}{
		{"00000000000000000000000000000a", false},  // 30 chars, too short
		{"000000000000000000000000000000a", true},  // 31 chars
		{"000000000000000000000000000000A", false}, // uppercase not allowed
		{"", false},
	}
	for _, tc := range tests {
		err := validateSha1B36(tc.in)
		if (err == nil) != tc.valid {
			t.Errorf("validateSha1B36(%q): err=%v, want valid=%v", tc.in, err, tc.valid)
		}
	}
}
