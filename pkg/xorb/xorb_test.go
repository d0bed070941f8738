package xorb

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/jedisct1/draft-denis-xet/pkg/compress"
	"github.com/jedisct1/draft-denis-xet/pkg/xethash"
)

func makeChunk(t *testing.T, data []byte) Chunk {
	t.Helper()
	mode, payload, err := compress.Encode(compress.LZ4, data)
	if err != nil {
		t.Fatalf("compress.Encode: %v", err)
	}
	return Chunk{
		Hash:             xethash.ChunkHash(data),
		Payload:          payload,
		UncompressedSize: len(data),
		CompressionMode:  mode,
	}
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	var originals [][]byte
	var chunks []Chunk
	for i := 0; i < 20; i++ {
		data := make([]byte, 100+rnd.Intn(5000))
		rnd.Read(data)
		originals = append(originals, data)
		chunks = append(chunks, makeChunk(t, data))
	}

	serialized, err := Serialize(chunks)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	decoded, err := Deserialize(serialized)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(decoded) != len(originals) {
		t.Fatalf("got %d chunks, want %d", len(decoded), len(originals))
	}
	for i, c := range decoded {
		got, err := c.Decompress()
		if err != nil {
			t.Fatalf("chunk %d Decompress: %v", i, err)
		}
		if !bytes.Equal(got, originals[i]) {
			t.Fatalf("chunk %d round trip mismatch", i)
		}
	}
}

func TestExtractRange(t *testing.T) {
	rnd := rand.New(rand.NewSource(8))
	var originals [][]byte
	var chunks []Chunk
	for i := 0; i < 10; i++ {
		data := make([]byte, 200+rnd.Intn(500))
		rnd.Read(data)
		originals = append(originals, data)
		chunks = append(chunks, makeChunk(t, data))
	}
	serialized, err := Serialize(chunks)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	got, err := ExtractRange(serialized, 3, 7)
	if err != nil {
		t.Fatalf("ExtractRange: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d chunks, want 4", len(got))
	}
	for i, data := range got {
		if !bytes.Equal(data, originals[3+i]) {
			t.Fatalf("ExtractRange chunk %d mismatch", i)
		}
	}
}

func TestExtractRangeOutOfBounds(t *testing.T) {
	chunks := []Chunk{makeChunk(t, []byte("hello"))}
	serialized, err := Serialize(chunks)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if _, err := ExtractRange(serialized, 0, 5); err == nil {
		t.Fatalf("expected error for out-of-bounds range")
	}
}

func TestXorbHashUsesUncompressedSize(t *testing.T) {
	data := []byte("some chunk data")
	c := makeChunk(t, data)
	x := &Xorb{Chunks: []Chunk{c}}
	want := xethash.MerkleRoot([]xethash.Entry{{Hash: c.Hash, Size: uint64(len(data))}})
	if x.Hash() != want {
		t.Fatalf("Xorb.Hash() mismatch")
	}
}

func TestDeserializeRejectsTruncated(t *testing.T) {
	chunks := []Chunk{makeChunk(t, []byte("payload"))}
	serialized, err := Serialize(chunks)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	truncated := serialized[:len(serialized)-1]
	if _, err := Deserialize(truncated); err == nil {
		t.Fatalf("expected error for truncated xorb bytes")
	}
}

func TestDeserializeRejectsBadVersion(t *testing.T) {
	chunks := []Chunk{makeChunk(t, []byte("payload"))}
	serialized, err := Serialize(chunks)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	bad := append([]byte(nil), serialized...)
	bad[0] = 1
	if _, err := Deserialize(bad); err == nil {
		t.Fatalf("expected error for unsupported version byte")
	}
}
