package xethash

import "testing"

func TestMerkleRootEmpty(t *testing.T) {
	root := MerkleRoot(nil)
	if !root.IsZero() {
		t.Fatalf("empty Merkle root should be all zero, got %v", root)
	}
}

func TestMerkleRootSingleEntry(t *testing.T) {
	e := Entry{Hash: ChunkHash([]byte("a")), Size: 1}
	root := MerkleRoot([]Entry{e})
	if root != e.Hash {
		t.Fatalf("single-entry Merkle root should equal the entry's hash")
	}
}

func TestMerkleRootDeterministic(t *testing.T) {
	var entries []Entry
	for i := 0; i < 50; i++ {
		entries = append(entries, Entry{Hash: ChunkHash([]byte{byte(i)}), Size: uint64(i + 1)})
	}
	a := MerkleRoot(entries)
	b := MerkleRoot(entries)
	if a != b {
		t.Fatalf("MerkleRoot not deterministic across repeated calls")
	}
}

func TestMerkleRootOrderSensitive(t *testing.T) {
	e1 := Entry{Hash: ChunkHash([]byte("a")), Size: 1}
	e2 := Entry{Hash: ChunkHash([]byte("b")), Size: 1}
	forward := MerkleRoot([]Entry{e1, e2})
	reversed := MerkleRoot([]Entry{e2, e1})
	if forward == reversed {
		t.Fatalf("Merkle root should be sensitive to entry order")
	}
}

func TestFileHashUsesZeroKey(t *testing.T) {
	entries := []Entry{{Hash: ChunkHash([]byte("x")), Size: 1}}
	root := MerkleRoot(entries)
	want := KeyedHash(ZeroKey, root[:])
	got := FileHash(entries)
	if got != want {
		t.Fatalf("FileHash = %v, want %v", got, want)
	}
}

func TestVerificationHashEmptyErrors(t *testing.T) {
	if _, err := VerificationHash(nil); err == nil {
		t.Fatalf("expected error for empty chunk hash list")
	}
}

func TestVerificationHashDeterministic(t *testing.T) {
	hs := []Hash{ChunkHash([]byte("a")), ChunkHash([]byte("b"))}
	a, err := VerificationHash(hs)
	if err != nil {
		t.Fatalf("VerificationHash: %v", err)
	}
	b, err := VerificationHash(hs)
	if err != nil {
		t.Fatalf("VerificationHash: %v", err)
	}
	if a != b {
		t.Fatalf("VerificationHash not deterministic")
	}
}

func TestXorbHashMatchesMerkleRoot(t *testing.T) {
	entries := []Entry{
		{Hash: ChunkHash([]byte("a")), Size: 1},
		{Hash: ChunkHash([]byte("b")), Size: 1},
		{Hash: ChunkHash([]byte("c")), Size: 1},
	}
	if XorbHash(entries) != MerkleRoot(entries) {
		t.Fatalf("XorbHash should equal the plain Merkle root of (chunk_hash, chunk_len) pairs")
	}
}
