package shard

import "testing"

func buildFooterBytes(t *testing.T, size int) []byte {
	t.Helper()
	buf := make([]byte, size)
	putU64(buf[0:8], 2)
	putU64(buf[8:16], 1000)
	putU64(buf[16:24], 2000)
	putU64(buf[24:32], 3000)
	putU64(buf[32:40], 4)
	putU64(buf[40:48], 4000)
	putU64(buf[48:56], 5)
	copy(buf[56:88], []byte("01234567890123456789012345678901"))
	putU64(buf[88:96], 1700000000)
	putU64(buf[96:104], 0)
	putU64(buf[104:112], 12345)
	putU64(buf[112:120], 54321)
	return buf
}

func TestParseFooterRoundTrip(t *testing.T) {
	footerBytes := buildFooterBytes(t, FooterMinSize)
	buf := append([]byte{}, footerBytes...)

	f, err := parseFooter(buf, 0, FooterMinSize)
	if err != nil {
		t.Fatalf("parseFooter: %v", err)
	}
	if f.Version != 2 || f.FileInfoOffset != 1000 || f.CASInfoOffset != 2000 {
		t.Fatalf("unexpected footer fields: %+v", f)
	}
	if f.BytesOnDisk != 12345 || f.BytesDecompressed != 54321 {
		t.Fatalf("unexpected byte counters: %+v", f)
	}
	if !f.HasChunkHashKey() {
		t.Fatalf("expected non-zero chunk_hash_key to report HasChunkHashKey")
	}
}

func TestParseFooterRejectsUndersize(t *testing.T) {
	buf := make([]byte, 50)
	if _, err := parseFooter(buf, 0, 50); err == nil {
		t.Fatalf("expected error for footer smaller than FooterMinSize")
	}
}

func TestParseFooterRejectsOutOfBounds(t *testing.T) {
	buf := make([]byte, FooterMinSize)
	if _, err := parseFooter(buf, 10, FooterMinSize); err == nil {
		t.Fatalf("expected error when footer extends past buffer")
	}
}

func TestHasChunkHashKeyFalseWhenZero(t *testing.T) {
	f := &Footer{}
	if f.HasChunkHashKey() {
		t.Fatalf("zero-value chunk_hash_key should report false")
	}
}
