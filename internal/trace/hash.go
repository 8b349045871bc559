package trace

import (
	"encoding/json"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/aegis-kernel/mcpkernel/infrastructure/hex"
)

// hashChain computes H(parts[0] ":" parts[1] ":" ... ":" parts[n-1]) where H
// is a 256-bit blake2b digest. The colon separator prevents canonicalization
// ambiguity between adjacent variable-length fields.
func hashChain(parts ...string) []byte {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors on an oversized key, and we never pass one.
		panic("trace: blake2b.New256 failed: " + err.Error())
	}
	h.Write([]byte(strings.Join(parts, ":")))
	return h.Sum(nil)
}

func hashHex(sum []byte) string {
	return hex.EncodeToString(sum)
}

// firstHexChars returns the first n hex characters of sum's encoding.
func firstHexChars(sum []byte, n int) string {
	encoded := hashHex(sum)
	if len(encoded) < n {
		return encoded
	}
	return encoded[:n]
}

// canonicalize renders data as JSON with map keys in sorted order, matching
// the spec's canonical(data) requirement. encoding/json already sorts
// map[string]interface{} keys lexicographically at every nesting level, so a
// plain Marshal gives a deterministic encoding without extra bookkeeping.
func canonicalize(data interface{}) string {
	if data == nil {
		return "null"
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return strconv.Quote(err.Error())
	}
	return string(encoded)
}
