package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex characters, enough to tell configs apart in a report.
func (h Hash) Short() string {
	if len(h) <= 12 {
		return string(h)
	}
	return string(h[:12])
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// ComputeConfigHash fingerprints a decoded config mapping. Keys are visited in
// sorted order at every nesting level so the result is independent of map order.
func ComputeConfigHash(config map[string]any) Hash {
	var data strings.Builder
	writeCanonical(&data, config)
	return NewHash([]byte(data.String()))
}

func writeCanonical(b *strings.Builder, v any) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("{")
		for _, key := range keys {
			b.WriteString(key)
			b.WriteString("=")
			writeCanonical(b, t[key])
			b.WriteString(";")
		}
		b.WriteString("}")
	case []any:
		b.WriteString("[")
		for _, item := range t {
			writeCanonical(b, item)
			b.WriteString(",")
		}
		b.WriteString("]")
	default:
		b.WriteString(fmt.Sprintf("%v", t))
	}
}
