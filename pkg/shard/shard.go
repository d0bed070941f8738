// Package shard implements the shard binary container of §4.5: the
// file-info and CAS-info sections, their 48-byte bookend terminators, and
// the (read-only) stored-shard footer.
//
// Grounded on the teacher's framing conventions in pkg/wire/frame.go (a
// fixed-layout header struct with a magic/version preamble, Marshal/Unmarshal
// pair) generalized from BeeNet's single CBOR envelope to two independently
// terminated binary sections of fixed-width 48-byte records, per §4.5.
package shard

import (
	"encoding/binary"
	"fmt"

	"github.com/jedisct1/draft-denis-xet/pkg/xeterr"
	"github.com/jedisct1/draft-denis-xet/pkg/xethash"
)

const (
	recordSize = 48
	version    = 2

	// FileBlock flags, §4.5/§6.
	FlagWithVerification = 1
	FlagWithMetadataExt  = 2

	// CASChunkSequenceEntry flag, §4.5/§6.
	ChunkFlagGlobalDedupEligible = 0x8000_0000
)

// HeaderTag is the 32-byte magic that opens every shard, §4.5. Its exact
// byte value is implementation-defined per spec.md; this repository fixes
// one value and never changes it, since it is this implementation's own
// wire compatibility anchor.
var HeaderTag = [32]byte{
	'X', 'E', 'T', '-', 's', 'h', 'a', 'r', 'd', '-', 'v', '2',
	0xDE, 0xAD, 0xBE, 0xEF, 0xCA, 0xFE, 0xBA, 0xBE,
	0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
	0x09, 0x0A, 0x0B, 0x0C,
}

var bookendPattern = func() [32]byte {
	var p [32]byte
	for i := range p {
		p[i] = 0xFF
	}
	return p
}()

// Header is the 48-byte shard header: magic, version, footer size.
type Header struct {
	Tag        [32]byte
	Version    uint64
	FooterSize uint64
}

// ReconstructionTerm names a contiguous half-open chunk-index range within a
// single xorb, one component of a file's reconstruction (§3).
type ReconstructionTerm struct {
	XorbHash        xethash.Hash
	XorbFlags       uint32
	UnpackedLength  uint32
	ChunkIndexStart uint32
	ChunkIndexEnd   uint32
}

// FileBlock describes one file: its hash, its reconstruction terms, and
// optionally per-term verification hashes and a SHA-256 extension (§3/§4.5).
type FileBlock struct {
	FileHash          xethash.Hash
	Terms             []ReconstructionTerm
	VerificationHashes []xethash.Hash // len == len(Terms) if present
	SHA256             *[32]byte      // nil if FILE_FLAG_WITH_METADATA_EXT not set
}

func (f FileBlock) flags() uint32 {
	var fl uint32
	if len(f.VerificationHashes) > 0 {
		fl |= FlagWithVerification
	}
	if f.SHA256 != nil {
		fl |= FlagWithMetadataExt
	}
	return fl
}

// CASChunkEntry describes one chunk inside a CASBlock (§4.5).
type CASChunkEntry struct {
	ChunkHash        xethash.Hash
	ByteRangeStart   uint64 // offset of this chunk's decompressed bytes within the xorb's decompressed stream
	UnpackedLength   uint32
	Flags            uint32
}

// CASBlock describes one xorb: its hash, per-chunk entries, and byte totals
// (§3/§4.5).
type CASBlock struct {
	XorbHash       xethash.Hash
	Flags          uint32
	Entries        []CASChunkEntry
	BytesInCAS     uint64 // decompressed total
	BytesOnDisk    uint64 // serialized total
}

// Shard is a fully parsed or built shard, upload form (no footer) unless
// Footer is non-nil.
type Shard struct {
	Files  []FileBlock
	CAS    []CASBlock
	Footer *Footer // nil for upload-form shards
}

func putU64(dst []byte, v uint64) { binary.LittleEndian.PutUint64(dst, v) }
func getU64(src []byte) uint64    { return binary.LittleEndian.Uint64(src) }
func putU32(dst []byte, v uint32) { binary.LittleEndian.PutUint32(dst, v) }
func getU32(src []byte) uint32    { return binary.LittleEndian.Uint32(src) }

func isBookend(rec []byte) bool {
	if len(rec) != recordSize {
		return false
	}
	for i := 0; i < 32; i++ {
		if rec[i] != 0xFF {
			return false
		}
	}
	for i := 32; i < 48; i++ {
		if rec[i] != 0 {
			return false
		}
	}
	return true
}

func writeBookend(out *[]byte) {
	rec := make([]byte, recordSize)
	copy(rec[:32], bookendPattern[:])
	*out = append(*out, rec...)
}

func readRecord(buf []byte, off int) ([]byte, error) {
	if off+recordSize > len(buf) {
		return nil, xeterr.New(xeterr.Truncated, fmt.Sprintf("shard: record at offset %d truncated", off))
	}
	return buf[off : off+recordSize], nil
}
