package projectid

import (
	// MD5 only fingerprints repositories here, nothing relies on it for security
	"crypto/md5" // #nosec G501
	"encoding/hex"
)

// Digester produces a fixed-length lowercase hex digest of a string.
// Implementations must be deterministic; the 128-bit MD5 digest is the
// reference and anything else defines a new identifier space.
type Digester interface {
	HexDigest(s string) string
}

// DigesterFunc adapts an ordinary function to the Digester interface.
type DigesterFunc func(s string) string

// HexDigest calls f(s).
func (f DigesterFunc) HexDigest(s string) string {
	return f(s)
}

// MD5 is the default digester: 32 lowercase hex characters.
var MD5 Digester = DigesterFunc(md5Hex)

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s)) // #nosec G401
	return hex.EncodeToString(sum[:])
}
