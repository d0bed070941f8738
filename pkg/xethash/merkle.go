package xethash

import (
	"fmt"
	"strconv"
	"strings"
)

// Constants from §4.1 / §6.
const (
	MinChildren          = 2
	MaxChildren          = 9
	MeanBranchingFactor  = 4
)

// Entry is one (hash, size) pair fed into Merkle aggregation: a chunk's
// (chunk_hash, chunk_len) for a xorb hash, or a file's chunk entries for a
// file hash.
type Entry struct {
	Hash Hash
	Size uint64
}

// MerkleRoot computes the root hash of entries per §4.1's iterated
// coalescing rule. An empty input yields the all-zero hash.
func MerkleRoot(entries []Entry) Hash {
	if len(entries) == 0 {
		return Hash{}
	}
	level := entries
	for len(level) > 1 {
		level = reduceLevel(level)
	}
	return level[0].Hash
}

// reduceLevel performs one left-to-right coalescing pass, grouping 2..9
// siblings per group.
func reduceLevel(level []Entry) []Entry {
	var next []Entry
	i := 0
	for i < len(level) {
		groupSize := cutSize(level[i:])
		group := level[i : i+groupSize]
		next = append(next, reduceGroup(group))
		i += groupSize
	}
	return next
}

// cutSize determines how many of the remaining entries form the next group,
// per §4.1's variable-width grouping rule:
//
//   - runs of length <= 2 coalesce as a single group;
//   - otherwise the cut falls at the smallest index i >= MinChildren-1 (i.e.
//     starting the search at the *second* remaining entry) whose hash's last
//     8 bytes (little-endian) are divisible by MeanBranchingFactor; the
//     group taken has size i+1;
//   - if no such index is found within [MinChildren-1, MaxChildren), the cut
//     is at min(MaxChildren, remaining length).
func cutSize(remaining []Entry) int {
	if len(remaining) <= MinChildren {
		return len(remaining)
	}
	limit := MaxChildren
	if limit > len(remaining) {
		limit = len(remaining)
	}
	for i := MinChildren - 1; i < limit; i++ {
		if remaining[i].Hash.mergeCutDivisor() {
			return i + 1
		}
	}
	return limit
}

// reduceGroup folds one group of sibling entries into their parent entry.
func reduceGroup(group []Entry) Entry {
	if len(group) == 1 {
		return group[0]
	}
	var buf strings.Builder
	var totalSize uint64
	for _, e := range group {
		buf.WriteString(e.Hash.String())
		buf.WriteString(" : ")
		buf.WriteString(strconv.FormatUint(e.Size, 10))
		buf.WriteString("\n")
		totalSize += e.Size
	}
	return Entry{
		Hash: KeyedHash(InternalNodeKey, []byte(buf.String())),
		Size: totalSize,
	}
}

// XorbHash computes the xorb hash of an ordered list of (chunk_hash,
// chunk_len) pairs: the Merkle root over them.
func XorbHash(chunks []Entry) Hash {
	return MerkleRoot(chunks)
}

// FileHash computes the file hash of an ordered list of chunk entries:
// keyed_hash(ZERO_KEY, Merkle-root(chunks)).
func FileHash(chunks []Entry) Hash {
	root := MerkleRoot(chunks)
	return KeyedHash(ZeroKey, root[:])
}

// VerificationHash computes the verification hash of the chunk hashes
// hashes[a:b]: keyed_hash(VERIFICATION_KEY, hash[a] || hash[a+1] || ... || hash[b-1]).
func VerificationHash(chunkHashes []Hash) (Hash, error) {
	if len(chunkHashes) == 0 {
		return Hash{}, fmt.Errorf("xethash: verification hash requires at least one chunk hash")
	}
	buf := make([]byte, 0, len(chunkHashes)*Size)
	for _, h := range chunkHashes {
		buf = append(buf, h[:]...)
	}
	return KeyedHash(VerificationKey, buf), nil
}
