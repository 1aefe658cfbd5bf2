// Package projectid derives stable numeric identifiers for software repositories.
//
// An identifier is computed from the repository name, its author (owner) and
// its canonical URL. The three strings are concatenated without a separator,
// hashed, and the first 16 hex characters of the digest are folded into an
// int64. The same triple always yields the same identifier, which makes it
// usable as a surrogate key wherever the URL itself cannot be used.
//
// Changing the digest or the fold changes every identifier ever issued, so
// the combination is versioned by Scheme.
package projectid

import (
	"fmt"
	"math"
)

// Scheme names the identifier contract implemented by this package.
const Scheme = "md5-nibble-v1"

// foldWidth is the number of hex characters packed into the identifier.
const foldWidth = 16

// Deriver computes identifiers using a particular Digester.
// The zero value and a nil *Deriver both use MD5.
type Deriver struct {
	digest Digester
}

// NewDeriver creates a deriver backed by d. A nil d selects MD5.
func NewDeriver(d Digester) *Deriver {
	return &Deriver{digest: d}
}

func (d *Deriver) digester() Digester {
	if d == nil || d.digest == nil {
		return MD5
	}
	return d.digest
}

// Derive returns the identifier for the (name, author, url) triple.
// Note that the strings are joined without a delimiter: ("ab", "c", u) and
// ("a", "bc", u) produce the same identifier.
func (d *Deriver) Derive(name, author, url string) int64 {
	return Normalize(Fold(d.Digest(name, author, url)))
}

// Digest returns the hex digest the identifier is folded from.
func (d *Deriver) Digest(name, author, url string) string {
	return d.digester().HexDigest(name + author + url)
}

var defaultDeriver = &Deriver{}

// Generate derives the identifier of a repository with the default MD5 scheme.
// It is safe for concurrent use.
func Generate(name, author, url string) int64 {
	return defaultDeriver.Derive(name, author, url)
}

// Fold packs the first 16 hex characters of hexDigest into an int64, the
// character at index i occupying bits 4i to 4i+3. The result is the
// two's-complement reinterpretation of those 64 bits and may be negative.
func Fold(hexDigest string) int64 {
	var hash uint64
	n := min(len(hexDigest), foldWidth)
	for i := 0; i < n; i++ {
		hash += uint64(nibble(hexDigest[i])) << (i * 4)
	}
	return int64(hash)
}

// Normalize negates v when it is negative.
// math.MinInt64 has no positive counterpart and is returned unchanged.
func Normalize(v int64) int64 {
	if v < 0 {
		// wraps for MinInt64
		v = -v
	}
	return v
}

// FormatHex renders an identifier as 16 lowercase hex digits (two's complement).
func FormatHex(id int64) string {
	return fmt.Sprintf("%016x", uint64(id))
}

// IsExtremal reports whether id is the one value Normalize cannot make positive.
func IsExtremal(id int64) bool {
	return id == math.MinInt64
}

func nibble(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	default:
		return 0
	}
}
