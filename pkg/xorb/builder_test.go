package xorb

import (
	"math/rand"
	"testing"

	"github.com/jedisct1/draft-denis-xet/pkg/xethash"
)

func TestBuilderSealEmpty(t *testing.T) {
	b := NewBuilder()
	x, serialized, err := b.Seal()
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if len(x.Chunks) != 0 || len(serialized) != 0 {
		t.Fatalf("expected empty xorb from empty builder")
	}
}

func TestBuilderAddAndSeal(t *testing.T) {
	b := NewBuilder()
	rnd := rand.New(rand.NewSource(11))
	for i := 0; i < 5; i++ {
		data := make([]byte, 1000+rnd.Intn(1000))
		rnd.Read(data)
		ok, err := b.Add(xethash.ChunkHash(data), data)
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if !ok {
			t.Fatalf("expected Add to succeed for chunk %d", i)
		}
	}
	if b.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", b.Len())
	}
	x, serialized, err := b.Seal()
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if len(x.Chunks) != 5 {
		t.Fatalf("sealed xorb has %d chunks, want 5", len(x.Chunks))
	}
	decoded, err := Deserialize(serialized)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(decoded) != 5 {
		t.Fatalf("deserialized %d chunks, want 5", len(decoded))
	}
}

func TestBuilderEstimatedSizeGrows(t *testing.T) {
	b := NewBuilder()
	if b.EstimatedSize() != 0 {
		t.Fatalf("EstimatedSize() = %d, want 0 for an empty builder", b.EstimatedSize())
	}
	data := make([]byte, 1000)
	if ok, err := b.Add(xethash.ChunkHash(data), data); err != nil || !ok {
		t.Fatalf("Add: ok=%v err=%v", ok, err)
	}
	if b.EstimatedSize() <= 0 {
		t.Fatalf("EstimatedSize() = %d, want > 0 after adding a chunk", b.EstimatedSize())
	}
}

func TestBuilderRejectsOverCountLimit(t *testing.T) {
	b := &Builder{}
	// Directly simulate a builder already at the chunk-count ceiling.
	for i := 0; i < MaxXorbChunks; i++ {
		b.chunks = append(b.chunks, Chunk{})
	}
	if !b.WouldOverflow(1) {
		t.Fatalf("expected WouldOverflow once chunk count reaches MaxXorbChunks")
	}
	ok, err := b.Add(xethash.Hash{}, []byte("x"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if ok {
		t.Fatalf("expected Add to refuse once at MaxXorbChunks")
	}
}

func TestBuilderRejectsOverSizeLimit(t *testing.T) {
	b := NewBuilder()
	b.estimatedSize = MaxXorbSize - 10
	ok, err := b.Add(xethash.Hash{}, make([]byte, 1000))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if ok {
		t.Fatalf("expected Add to refuse a chunk that would overflow MaxXorbSize")
	}
}
