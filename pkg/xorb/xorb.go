// Package xorb implements the xorb binary container of §4.4: an ordered,
// header-less sequence of self-describing compressed chunk records, a
// builder that packs chunks until a size/count limit is hit, and a decoder
// that can extract an arbitrary chunk-index range without an index.
//
// Grounded on the teacher's pkg/content (ChunkFile/ChunkData build up
// in-memory []*Chunk slices one record at a time) generalized from
// uncompressed fixed-size chunks to the compressed, self-describing,
// variable-size records this spec requires, and on pkg/content/cid.go's
// hash-carrying Chunk type.
package xorb

import (
	"encoding/binary"
	"fmt"

	"github.com/jedisct1/draft-denis-xet/pkg/compress"
	"github.com/jedisct1/draft-denis-xet/pkg/xeterr"
	"github.com/jedisct1/draft-denis-xet/pkg/xethash"
)

// Limits from §3/§6.
const (
	MaxXorbSize   = 64 * 1024 * 1024
	MaxXorbChunks = 8192

	recordHeaderSize = 8
)

// Chunk is one xorb chunk record. Payload holds the on-wire bytes (the
// compressed form when CompressionMode != None, raw bytes otherwise);
// Decompress reconstructs the original chunk data from it.
type Chunk struct {
	Hash             xethash.Hash // not stored on the wire; known to the builder, unknown after a bare Deserialize
	Payload          []byte
	UncompressedSize int
	CompressionMode  compress.Mode
}

// Decompress reconstructs this chunk's original bytes.
func (c Chunk) Decompress() ([]byte, error) {
	return compress.Decode(c.CompressionMode, c.Payload, c.UncompressedSize)
}

// Xorb is a fully built, in-memory xorb: its chunks in order and their
// hashes (used to compute the xorb hash and to populate the dedup cache).
type Xorb struct {
	Chunks []Chunk
}

// Hash computes the xorb hash per §4.1: the Merkle root of (chunk_hash,
// chunk_len) pairs, where chunk_len is the chunk's decompressed length.
// Requires every chunk's Hash field to be populated (true for builder
// output; not true for a bare Deserialize, which does not know hashes).
func (x *Xorb) Hash() xethash.Hash {
	entries := make([]xethash.Entry, len(x.Chunks))
	for i, c := range x.Chunks {
		entries[i] = xethash.Entry{Hash: c.Hash, Size: uint64(c.UncompressedSize)}
	}
	return xethash.MerkleRoot(entries)
}

// Serialize writes the xorb as the §4.4 concatenation of chunk records.
func Serialize(chunks []Chunk) ([]byte, error) {
	if len(chunks) > MaxXorbChunks {
		return nil, xeterr.New(xeterr.OversizeXorb, fmt.Sprintf("xorb has %d chunks, max %d", len(chunks), MaxXorbChunks))
	}
	var out []byte
	for i, c := range chunks {
		if len(c.Payload) > 1<<24-1 || c.UncompressedSize > 1<<24-1 {
			return nil, xeterr.New(xeterr.OversizeXorb, fmt.Sprintf("chunk %d size exceeds 24-bit field", i))
		}
		rec := make([]byte, recordHeaderSize+len(c.Payload))
		rec[0] = 0 // version
		putU24LE(rec[1:4], uint32(len(c.Payload)))
		rec[4] = byte(c.CompressionMode)
		putU24LE(rec[5:8], uint32(c.UncompressedSize))
		copy(rec[recordHeaderSize:], c.Payload)
		out = append(out, rec...)
	}
	if len(out) > MaxXorbSize {
		return nil, xeterr.New(xeterr.OversizeXorb, fmt.Sprintf("xorb serialized size %d exceeds max %d", len(out), MaxXorbSize))
	}
	return out, nil
}

// record is a parsed chunk-record header plus the slice of its payload.
type record struct {
	compressedSize   int
	uncompressedSize int
	mode             compress.Mode
	payload          []byte
}

// readRecord parses one chunk record at offset off in buf, returning the
// record and the offset of the next record.
func readRecord(buf []byte, off int) (record, int, error) {
	if off+recordHeaderSize > len(buf) {
		return record{}, 0, xeterr.New(xeterr.Truncated, "xorb: record header truncated")
	}
	version := buf[off]
	if version != 0 {
		return record{}, 0, xeterr.New(xeterr.UnsupportedVersion, fmt.Sprintf("xorb: record version %d unsupported", version))
	}
	compressedSize := int(getU24LE(buf[off+1 : off+4]))
	mode := compress.Mode(buf[off+4])
	uncompressedSize := int(getU24LE(buf[off+5 : off+8]))
	payloadStart := off + recordHeaderSize
	payloadEnd := payloadStart + compressedSize
	if payloadEnd > len(buf) {
		return record{}, 0, xeterr.New(xeterr.Truncated, "xorb: record payload truncated")
	}
	return record{
		compressedSize:   compressedSize,
		uncompressedSize: uncompressedSize,
		mode:             mode,
		payload:          buf[payloadStart:payloadEnd],
	}, payloadEnd, nil
}

// Deserialize decompresses every chunk record in buf, in order. Chunk
// hashes are not recoverable from the wire bytes alone (the format does not
// store them); callers that need hashes recompute chunk_hash(data)
// themselves.
func Deserialize(buf []byte) ([]Chunk, error) {
	var chunks []Chunk
	off := 0
	for off < len(buf) {
		rec, next, err := readRecord(buf, off)
		if err != nil {
			return nil, err
		}
		payload := make([]byte, len(rec.payload))
		copy(payload, rec.payload)
		chunks = append(chunks, Chunk{
			Payload:          payload,
			UncompressedSize: rec.uncompressedSize,
			CompressionMode:  rec.mode,
		})
		off = next
		if len(chunks) > MaxXorbChunks {
			return nil, xeterr.New(xeterr.OversizeXorb, "xorb: too many chunk records")
		}
	}
	return chunks, nil
}

// ExtractRange decompresses only chunk records [a, b) of the serialized
// xorb bytes in buf, walking records in order since there is no index
// (§4.4's "random chunk-range slicing"), and returns their decompressed
// bytes in order.
func ExtractRange(buf []byte, a, b int) ([][]byte, error) {
	if b <= a {
		return nil, fmt.Errorf("xorb: empty or invalid range [%d,%d)", a, b)
	}
	var out [][]byte
	off := 0
	idx := 0
	for off < len(buf) && idx < b {
		rec, next, err := readRecord(buf, off)
		if err != nil {
			return nil, err
		}
		if idx >= a {
			data, err := compress.Decode(rec.mode, rec.payload, rec.uncompressedSize)
			if err != nil {
				return nil, fmt.Errorf("xorb: decompress chunk %d: %w", idx, err)
			}
			out = append(out, data)
		}
		off = next
		idx++
	}
	if idx < b {
		return nil, fmt.Errorf("xorb: range [%d,%d) exceeds chunk count %d", a, b, idx)
	}
	return out, nil
}

func putU24LE(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
}

func getU24LE(src []byte) uint32 {
	var buf [4]byte
	copy(buf[:3], src)
	return binary.LittleEndian.Uint32(buf[:])
}
