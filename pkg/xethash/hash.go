package xethash

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// Hash is a 32-byte digest, used for chunk/xorb/file/verification hashes.
type Hash [Size]byte

// KeyedHash computes keyed_hash(key, data) per §4.1.
func KeyedHash(key Key, data []byte) Hash {
	h := blake3.New(Size, key[:])
	h.Write(data)
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// ChunkHash computes chunk_hash(data) = keyed_hash(DATA_KEY, data).
func ChunkHash(data []byte) Hash {
	return KeyedHash(DataKey, data)
}

// String encodes a hash as the XET string representation: the 32 bytes read
// as four little-endian u64s u0..u3, each printed as hex16(ui) — the 16-hex-digit
// big-endian textual representation of the integer value (i.e. %016x) — and
// concatenated in order. This is deliberately not plain hex of the raw
// bytes: reading the bytes little-endian then formatting the resulting
// integer big-endian reverses each 8-byte group.
func (h Hash) String() string {
	var buf [64]byte
	for i := 0; i < 4; i++ {
		u := binary.LittleEndian.Uint64(h[i*8 : i*8+8])
		hex.Encode(buf[i*16:i*16+16], encodeU64BE(u))
	}
	return string(buf[:])
}

// encodeU64BE returns the 8 big-endian bytes of u, so that hex-encoding them
// reproduces hex16(u) = fmt.Sprintf("%016x", u).
func encodeU64BE(u uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], u)
	return b[:]
}

// ParseString decodes the inverse of String.
func ParseString(s string) (Hash, error) {
	if len(s) != 64 {
		return Hash{}, fmt.Errorf("xethash: bad string length %d, want 64", len(s))
	}
	var out Hash
	for i := 0; i < 4; i++ {
		chunk := s[i*16 : i*16+16]
		b, err := hex.DecodeString(chunk)
		if err != nil {
			return Hash{}, fmt.Errorf("xethash: bad hex at group %d: %w", i, err)
		}
		u := binary.BigEndian.Uint64(b)
		binary.LittleEndian.PutUint64(out[i*8:i*8+8], u)
	}
	return out, nil
}

// IsZero reports whether h is the all-zero hash (the empty Merkle root).
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// lastU64LE reads the last 8 bytes of h as a little-endian u64, used by the
// Merkle cut rule and the global-dedup-eligibility predicate.
func (h Hash) lastU64LE() uint64 {
	return binary.LittleEndian.Uint64(h[Size-8:])
}

// GloballyEligible reports whether h's last 8 bytes (little-endian) are
// divisible by 1024, one half of the §4.1 global dedup eligibility
// predicate (the other half, "is the first chunk of its file", is a
// property the caller tracks, not of the hash itself).
func (h Hash) GloballyEligible() bool {
	return h.lastU64LE()%1024 == 0
}

// mergeCutDivisor reports whether h's last 8 bytes (little-endian) are
// divisible by MeanBranchingFactor, the Merkle-aggregation cut test.
func (h Hash) mergeCutDivisor() bool {
	return h.lastU64LE()%MeanBranchingFactor == 0
}
