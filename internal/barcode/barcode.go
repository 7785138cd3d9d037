// Package barcode holds the scanned-code type shared by the decode and
// lookup layers.
package barcode

import "strings"

// Code is a normalized barcode or ISBN string used as the catalog lookup key.
// It contains only the digits 0-9 and an optional check character X.
type Code string

// String returns the code as a plain string.
func (c Code) String() string { return string(c) }

// IsZero reports whether no usable code survived normalization.
func (c Code) IsZero() bool { return c == "" }

// Normalize canonicalizes raw scanned or typed input into a Code. It trims
// whitespace, strips every character outside [0-9Xx] and uppercases the
// remainder. An empty result means "no code" and callers must not attempt a
// lookup with it.
func Normalize(input string) Code {
	raw := strings.TrimSpace(input)
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == 'X' || r == 'x':
			b.WriteByte('X')
		}
	}
	return Code(b.String())
}
