// Package fingerprint hashes normalized text into 64-bit dedup keys.
//
// Hashes are XXH3-64 with the default seed, so the same bytes give the same key
// in every process and on every shard re-run. Collisions are not detected; at
// corpus scale a 64-bit space is treated as collision free.
package fingerprint

import (
	"github.com/zeebo/xxh3"
)

// pairSeparator joins source and target before hashing a pair key.
const pairSeparator = "\t"

// Text returns the fingerprint of already-normalized text.
func Text(s string) uint64 {
	return xxh3.HashString(s)
}

// Pair returns the fingerprint of a normalized source/target pair.
func Pair(src, tgt string) uint64 {
	return xxh3.HashString(src + pairSeparator + tgt)
}
