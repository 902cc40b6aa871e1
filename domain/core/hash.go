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

// Domain-specific hash types
type (
	// FoldHash fingerprints an id->fold assignment.
	FoldHash Hash
	// ConfigHash fingerprints an ensemble configuration.
	ConfigHash Hash
)

func (h FoldHash) String() string   { return Hash(h).String() }
func (h ConfigHash) String() string { return Hash(h).String() }

// ComputeFoldHash hashes the assignment independent of map iteration order,
// so two runs with identical folds always agree.
func ComputeFoldHash(assignment map[string]int) FoldHash {
	ids := make([]string, 0, len(assignment))
	for id := range assignment {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var data strings.Builder
	for _, id := range ids {
		data.WriteString(id)
		data.WriteByte('\t')
		data.WriteString(fmt.Sprintf("%d", assignment[id]))
		data.WriteByte('\n')
	}
	return FoldHash(NewHash([]byte(data.String())))
}

// ComputeConfigHash hashes a configuration map with sorted keys. Nested
// maps are rendered by fmt, which also sorts their keys.
func ComputeConfigHash(config map[string]interface{}) ConfigHash {
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	for _, key := range keys {
		data.WriteString(key)
		data.WriteString(fmt.Sprintf("%v", config[key]))
	}
	return ConfigHash(NewHash([]byte(data.String())))
}
