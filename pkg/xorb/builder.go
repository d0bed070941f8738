package xorb

import (
	"github.com/jedisct1/draft-denis-xet/pkg/compress"
	"github.com/jedisct1/draft-denis-xet/pkg/xethash"
)

// estimatedRecordOverhead is the conservative per-chunk estimate the builder
// uses before compression has run, per §4.4 ("using a conservative estimate
// (8 + uncompressed length) before compression").
const estimatedRecordOverhead = recordHeaderSize

// Builder accumulates chunks into a single xorb, rejecting additions that
// would overflow the §3 limits (64 MiB serialized, 8192 chunks).
type Builder struct {
	chunks        []Chunk
	estimatedSize int
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Len returns the number of chunks currently held.
func (b *Builder) Len() int {
	return len(b.chunks)
}

// EstimatedSize returns the builder's conservative running size estimate.
func (b *Builder) EstimatedSize() int {
	return b.estimatedSize
}

// WouldOverflow reports whether adding a chunk of uncompressedLen bytes
// would exceed the xorb's count or size limit, using the same conservative
// pre-compression estimate Add uses.
func (b *Builder) WouldOverflow(uncompressedLen int) bool {
	if len(b.chunks) >= MaxXorbChunks {
		return true
	}
	return b.estimatedSize+estimatedRecordOverhead+uncompressedLen > MaxXorbSize
}

// Add compresses and appends one chunk with its precomputed hash. It
// returns ok=false without mutating the builder if doing so would overflow
// the xorb (the caller should seal this builder and start a new one).
func (b *Builder) Add(hash xethash.Hash, data []byte) (ok bool, err error) {
	if b.WouldOverflow(len(data)) {
		return false, nil
	}
	mode, payload, encErr := compress.Encode(compress.LZ4, data)
	if encErr != nil {
		return false, encErr
	}
	b.chunks = append(b.chunks, Chunk{
		Hash:             hash,
		Payload:          payload,
		UncompressedSize: len(data),
		CompressionMode:  mode,
	})
	b.estimatedSize += recordHeaderSize + len(payload)
	return true, nil
}

// Seal finalizes the builder into a Xorb and its serialized bytes.
func (b *Builder) Seal() (*Xorb, []byte, error) {
	serialized, err := Serialize(b.chunks)
	if err != nil {
		return nil, nil, err
	}
	return &Xorb{Chunks: b.chunks}, serialized, nil
}
