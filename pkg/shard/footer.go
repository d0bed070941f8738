package shard

import (
	"github.com/jedisct1/draft-denis-xet/pkg/xeterr"
)

// FooterMinSize is the minimum size of a stored-shard footer, §4.5.
const FooterMinSize = 200

// Footer describes a stored shard's trailer: offsets of its sub-sections,
// lookup-table sizes, the keyed-dedup chunk_hash_key, and lifecycle
// metadata. The client only ever reads a footer (never writes one, per §1's
// Non-goals — "no shard footer generation"), so this package exposes parsing
// only.
//
// The exact byte layout beyond "header has the sub-sections listed in §4.5
// and is at least 200 bytes" is not published by spec.md (the upload client
// never constructs one); this implementation fixes one layout for the
// footers it reads back and documents it here rather than guessing at
// undisclosed reference bytes.
type Footer struct {
	Version           uint64
	FileInfoOffset    uint64
	CASInfoOffset     uint64
	FileLookupOffset  uint64
	FileLookupCount   uint64
	CASLookupOffset   uint64
	CASLookupCount    uint64
	ChunkHashKey      [32]byte
	CreatedAt         uint64 // unix seconds
	ExpiresAt         uint64 // unix seconds, 0 = never
	BytesOnDisk       uint64
	BytesDecompressed uint64
}

// HasChunkHashKey reports whether this footer declares a non-zero keyed
// dedup key, per the dedup-cache note in §4.6/§9: shards whose chunk hashes
// are keyed this way cannot be matched against raw local chunk hashes
// without first applying the key.
func (f *Footer) HasChunkHashKey() bool {
	return f.ChunkHashKey != [32]byte{}
}

func parseFooter(buf []byte, off int, size int) (*Footer, error) {
	if size < FooterMinSize {
		return nil, xeterr.New(xeterr.Truncated, "shard: footer smaller than minimum size")
	}
	if off+size > len(buf) {
		return nil, xeterr.New(xeterr.Truncated, "shard: footer extends past end of buffer")
	}
	b := buf[off : off+size]
	if len(b) < 120 {
		return nil, xeterr.New(xeterr.Truncated, "shard: footer fixed fields truncated")
	}
	f := &Footer{
		Version:          getU64(b[0:8]),
		FileInfoOffset:   getU64(b[8:16]),
		CASInfoOffset:    getU64(b[16:24]),
		FileLookupOffset: getU64(b[24:32]),
		FileLookupCount:  getU64(b[32:40]),
		CASLookupOffset:  getU64(b[40:48]),
		CASLookupCount:   getU64(b[48:56]),
	}
	copy(f.ChunkHashKey[:], b[56:88])
	f.CreatedAt = getU64(b[88:96])
	f.ExpiresAt = getU64(b[96:104])
	f.BytesOnDisk = getU64(b[104:112])
	f.BytesDecompressed = getU64(b[112:120])
	return f, nil
}
