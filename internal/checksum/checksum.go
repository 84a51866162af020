// Package checksum fingerprints index entries so unchanged upserts can be
// skipped.
package checksum

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Fields returns the hex SHA-256 of parts. Each part is length-prefixed, so
// ("ab", "c") and ("a", "bc") differ.
func Fields(parts ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
