package dedup

import (
	"testing"

	"github.com/jedisct1/draft-denis-xet/pkg/shard"
	"github.com/jedisct1/draft-denis-xet/pkg/xethash"
)

func h(b byte) xethash.Hash {
	var x xethash.Hash
	x[0] = b
	return x
}

func TestInsertLookup(t *testing.T) {
	c := New()
	loc := Location{XorbHash: h(1), ChunkIndex: 3}
	c.Insert(h(9), loc)

	got, ok := c.Lookup(h(9))
	if !ok || got != loc {
		t.Fatalf("Lookup = %+v, %v; want %+v, true", got, ok, loc)
	}
	if _, ok := c.Lookup(h(10)); ok {
		t.Fatalf("Lookup found an entry that was never inserted")
	}
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
}

func TestInsertFirstWriterWins(t *testing.T) {
	c := New()
	first := Location{XorbHash: h(1), ChunkIndex: 0}
	second := Location{XorbHash: h(2), ChunkIndex: 5}
	c.Insert(h(9), first)
	c.Insert(h(9), second)

	got, _ := c.Lookup(h(9))
	if got != first {
		t.Fatalf("Insert should not overwrite an existing entry: got %+v, want %+v", got, first)
	}
}

func TestInsertXorb(t *testing.T) {
	c := New()
	xorbHash := h(5)
	hashes := []xethash.Hash{h(1), h(2), h(3)}
	c.InsertXorb(xorbHash, hashes)

	for i, ch := range hashes {
		loc, ok := c.Lookup(ch)
		if !ok {
			t.Fatalf("chunk %d not found after InsertXorb", i)
		}
		if loc.XorbHash != xorbHash || loc.ChunkIndex != i {
			t.Fatalf("chunk %d location = %+v, want xorb=%v index=%d", i, loc, xorbHash, i)
		}
	}
}

func TestInsertShardSkipsKeyedEntries(t *testing.T) {
	c := New()
	s := &shard.Shard{
		CAS: []shard.CASBlock{
			{
				XorbHash: h(7),
				Entries: []shard.CASChunkEntry{
					{ChunkHash: h(1)},
				},
			},
		},
	}

	var key [32]byte
	key[0] = 1 // non-zero chunk_hash_key
	c.InsertShard(s, key)

	if c.Len() != 0 {
		t.Fatalf("expected keyed shard entries to be skipped, got Len()=%d", c.Len())
	}
}

func TestInsertShardPopulatesUnkeyed(t *testing.T) {
	c := New()
	s := &shard.Shard{
		CAS: []shard.CASBlock{
			{
				XorbHash: h(7),
				Entries: []shard.CASChunkEntry{
					{ChunkHash: h(1)},
					{ChunkHash: h(2)},
				},
			},
		},
	}

	c.InsertShard(s, [32]byte{})

	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}
	loc, ok := c.Lookup(h(2))
	if !ok || loc.XorbHash != h(7) || loc.ChunkIndex != 1 {
		t.Fatalf("unexpected location for second chunk: %+v, %v", loc, ok)
	}
}
