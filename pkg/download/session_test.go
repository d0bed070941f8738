package download

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/jedisct1/draft-denis-xet/pkg/casclient"
	"github.com/jedisct1/draft-denis-xet/pkg/chunker"
	"github.com/jedisct1/draft-denis-xet/pkg/compress"
	"github.com/jedisct1/draft-denis-xet/pkg/xetconfig"
	"github.com/jedisct1/draft-denis-xet/pkg/xethash"
	"github.com/jedisct1/draft-denis-xet/pkg/xorb"
)

// fakeClient serves one file's worth of reconstruction and xorb bytes from
// in-memory fixtures, standing in for a real CAS server.
type fakeClient struct {
	recon      *casclient.ReconstructionResponse
	xorbBytes  map[string][]byte // presigned URL -> serialized xorb bytes
}

func (f *fakeClient) GetReconstruction(ctx context.Context, fileHash xethash.Hash, byteRange *casclient.ByteRange) (*casclient.ReconstructionResponse, error) {
	return f.recon, nil
}

func (f *fakeClient) FetchRange(ctx context.Context, presignedURL string, r casclient.ByteRange) ([]byte, error) {
	data := f.xorbBytes[presignedURL]
	if r.End+1 > uint64(len(data)) {
		return data[r.Start:], nil
	}
	return data[r.Start : r.End+1], nil
}

func buildFixture(t *testing.T) (*fakeClient, []byte) {
	t.Helper()
	rnd := rand.New(rand.NewSource(99))
	var chunks []xorb.Chunk
	var original []byte
	for i := 0; i < 6; i++ {
		data := make([]byte, 300+rnd.Intn(200))
		rnd.Read(data)
		original = append(original, data...)
		mode, payload, err := compress.Encode(compress.LZ4, data)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		chunks = append(chunks, xorb.Chunk{
			Hash:             xethash.ChunkHash(data),
			Payload:          payload,
			UncompressedSize: len(data),
			CompressionMode:  mode,
		})
	}
	serialized, err := xorb.Serialize(chunks)
	if err != nil {
		t.Fatalf("xorb.Serialize: %v", err)
	}

	xorbHash := xethash.ChunkHash([]byte("fixture-xorb"))
	url := "https://cas.test/presigned/xorb"

	recon := &casclient.ReconstructionResponse{
		Terms: []casclient.Term{
			{Hash: xorbHash.String(), UnpackedLength: uint32(len(original)), Range: casclient.ByteRange{Start: 0, End: 6}},
		},
		FetchInfo: map[string][]casclient.FetchInfo{
			xorbHash.String(): {
				{Range: casclient.ByteRange{Start: 0, End: uint64(len(serialized) - 1)}, URL: url, URLRange: casclient.ByteRange{Start: 0, End: uint64(len(serialized) - 1)}},
			},
		},
	}

	client := &fakeClient{
		recon:     recon,
		xorbBytes: map[string][]byte{url: serialized},
	}
	return client, original
}

func TestDownloadAssemblesWholeFile(t *testing.T) {
	client, original := buildFixture(t)
	cfg := xetconfig.DefaultConfig()
	sess := New(cfg, client)

	got, err := sess.Download(context.Background(), xethash.Hash{}, nil)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Fatalf("assembled bytes do not match original: got %d bytes, want %d", len(got), len(original))
	}
}

func TestDownloadHonorsOffsetIntoFirstRange(t *testing.T) {
	client, original := buildFixture(t)
	client.recon.OffsetIntoFirstRange = 10
	cfg := xetconfig.DefaultConfig()
	sess := New(cfg, client)

	got, err := sess.Download(context.Background(), xethash.Hash{}, nil)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if !bytes.Equal(got, original[10:]) {
		t.Fatalf("expected offset_into_first_range bytes discarded from the start")
	}
}

func TestDownloadTruncatesToRequestedRange(t *testing.T) {
	client, original := buildFixture(t)
	cfg := xetconfig.DefaultConfig()
	sess := New(cfg, client)

	got, err := sess.Download(context.Background(), xethash.Hash{}, &Range{Start: 0, End: 99})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if len(got) != 100 {
		t.Fatalf("expected 100 bytes for range [0,99], got %d", len(got))
	}
	if !bytes.Equal(got, original[:100]) {
		t.Fatalf("ranged download content mismatch")
	}
}

func TestDownloadVerifyHashesOnDownloadAccepts(t *testing.T) {
	client, original := buildFixture(t)
	cfg := xetconfig.DefaultConfig()
	cfg.VerifyHashesOnDownload = true
	sess := New(cfg, client)

	var entries []xethash.Entry
	for _, c := range chunker.New().ChunkAll(original) {
		entries = append(entries, xethash.Entry{Hash: xethash.ChunkHash(c.Data), Size: uint64(len(c.Data))})
	}
	fileHash := xethash.FileHash(entries)

	got, err := sess.Download(context.Background(), fileHash, nil)
	if err != nil {
		t.Fatalf("Download with VerifyHashesOnDownload: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Fatalf("verified download content mismatch")
	}
}

func TestDownloadVerifyHashesOnDownloadRejectsMismatch(t *testing.T) {
	client, _ := buildFixture(t)
	cfg := xetconfig.DefaultConfig()
	cfg.VerifyHashesOnDownload = true
	sess := New(cfg, client)

	var wrongHash xethash.Hash
	wrongHash[0] = 0xff

	if _, err := sess.Download(context.Background(), wrongHash, nil); err == nil {
		t.Fatalf("expected a hash-mismatch error, got nil")
	}
}

func TestFetchXorbBuffersUnionsMultipleEntries(t *testing.T) {
	cfg := xetconfig.DefaultConfig()
	xorbHash := xethash.ChunkHash([]byte("multi-entry-xorb"))
	url1 := "https://cas.test/presigned/part1"
	url2 := "https://cas.test/presigned/part2"

	full := []byte("0123456789ABCDEF")
	client := &fakeClient{
		xorbBytes: map[string][]byte{
			url1: full[0:8],
			url2: full[8:16],
		},
	}
	fetchInfo := map[string][]casclient.FetchInfo{
		xorbHash.String(): {
			{Range: casclient.ByteRange{Start: 0, End: 7}, URL: url1, URLRange: casclient.ByteRange{Start: 0, End: 7}},
			{Range: casclient.ByteRange{Start: 8, End: 15}, URL: url2, URLRange: casclient.ByteRange{Start: 0, End: 7}},
		},
	}

	sess := New(cfg, client)
	bufs, err := sess.fetchXorbBuffers(context.Background(), fetchInfo)
	if err != nil {
		t.Fatalf("fetchXorbBuffers: %v", err)
	}
	if !bytes.Equal(bufs[xorbHash], full) {
		t.Fatalf("expected assembled buffer %q, got %q", full, bufs[xorbHash])
	}
}
