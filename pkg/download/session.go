// Package download implements the download session of §4.9: resolve a
// file hash to its reconstruction plan, fetch the referenced xorb byte
// ranges, slice out each term's chunk range, and assemble the file bytes.
//
// Grounded on the teacher's pkg/content fetch path (resolve manifest,
// range-fetch backing blocks, concatenate) adapted from a single-store
// fetch to the presigned-URL fan-out this spec's reconstruction response
// describes.
package download

import (
	"context"
	"fmt"
	"sync"

	"github.com/jedisct1/draft-denis-xet/pkg/casclient"
	"github.com/jedisct1/draft-denis-xet/pkg/chunker"
	"github.com/jedisct1/draft-denis-xet/pkg/httpx"
	"github.com/jedisct1/draft-denis-xet/pkg/xetconfig"
	"github.com/jedisct1/draft-denis-xet/pkg/xeterr"
	"github.com/jedisct1/draft-denis-xet/pkg/xethash"
	"github.com/jedisct1/draft-denis-xet/pkg/xorb"
)

// CASClient is the subset of casclient.Client the download session needs.
type CASClient interface {
	GetReconstruction(ctx context.Context, fileHash xethash.Hash, byteRange *casclient.ByteRange) (*casclient.ReconstructionResponse, error)
	FetchRange(ctx context.Context, presignedURL string, r casclient.ByteRange) ([]byte, error)
}

// Session runs one reconstruction against a CASClient.
type Session struct {
	cfg    *xetconfig.Config
	client CASClient
}

// New creates a Session backed by client.
func New(cfg *xetconfig.Config, client CASClient) *Session {
	return &Session{cfg: cfg, client: client}
}

// Range is an inclusive byte range requested by the caller, per §4.9.
type Range struct {
	Start uint64
	End   uint64
}

// Download resolves fileHash and returns the (possibly range-restricted)
// file bytes, per §4.9 steps 1-5.
func (s *Session) Download(ctx context.Context, fileHash xethash.Hash, byteRange *Range) ([]byte, error) {
	var apiRange *casclient.ByteRange
	if byteRange != nil {
		apiRange = &casclient.ByteRange{Start: byteRange.Start, End: byteRange.End}
	}

	resp, err := s.client.GetReconstruction(ctx, fileHash, apiRange)
	if err != nil {
		return nil, err
	}

	xorbBufs, err := s.fetchXorbBuffers(ctx, resp.FetchInfo)
	if err != nil {
		return nil, err
	}

	var assembled []byte
	for _, term := range resp.Terms {
		xh, err := xethash.ParseString(term.Hash)
		if err != nil {
			return nil, fmt.Errorf("download: parsing term xorb hash: %w", err)
		}
		buf, ok := xorbBufs[xh]
		if !ok {
			return nil, fmt.Errorf("download: no fetched bytes for xorb %s", term.Hash)
		}
		chunks, err := xorb.ExtractRange(buf, int(term.Range.Start), int(term.Range.End))
		if err != nil {
			return nil, fmt.Errorf("download: slicing xorb %s chunk range [%d,%d): %w", term.Hash, term.Range.Start, term.Range.End, err)
		}
		for _, c := range chunks {
			assembled = append(assembled, c...)
		}
	}

	if int(resp.OffsetIntoFirstRange) > len(assembled) {
		return nil, fmt.Errorf("download: offset_into_first_range %d exceeds assembled length %d", resp.OffsetIntoFirstRange, len(assembled))
	}
	assembled = assembled[resp.OffsetIntoFirstRange:]

	if byteRange != nil {
		want := int(byteRange.End-byteRange.Start) + 1
		if want < len(assembled) {
			assembled = assembled[:want]
		}
		return assembled, nil
	}

	if s.cfg.VerifyHashesOnDownload {
		if err := verifyFileHash(fileHash, assembled); err != nil {
			return nil, err
		}
	}

	return assembled, nil
}

// verifyFileHash rechunks data the same way an upload session would and
// checks that its file hash matches want, per §7's optional integrity check.
func verifyFileHash(want xethash.Hash, data []byte) error {
	chunks := chunker.New().ChunkAll(data)
	entries := make([]xethash.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = xethash.Entry{Hash: xethash.ChunkHash(c.Data), Size: uint64(len(c.Data))}
	}
	got := xethash.FileHash(entries)
	if got != want {
		return xeterr.New(xeterr.HashMismatch, fmt.Sprintf("download: file hash mismatch: got %s, want %s", got, want))
	}
	return nil
}

// fetchXorbBuffers downloads every FetchInfo range named in fetchInfo and
// assembles one contiguous byte buffer per xorb. Per §9's redesign note, a
// xorb's scratch buffer is sized to the union of its entries' byte ranges
// and each entry's response is copied into place by its declared range
// rather than overwriting a single shared cursor.
func (s *Session) fetchXorbBuffers(ctx context.Context, fetchInfo map[string][]casclient.FetchInfo) (map[xethash.Hash][]byte, error) {
	type job struct {
		xorbHash xethash.Hash
		fi       casclient.FetchInfo
	}
	var jobs []job
	bufs := make(map[xethash.Hash][]byte)

	for hashStr, infos := range fetchInfo {
		xh, err := xethash.ParseString(hashStr)
		if err != nil {
			return nil, fmt.Errorf("download: parsing fetch_info xorb hash: %w", err)
		}
		var maxEnd uint64
		for _, fi := range infos {
			if fi.Range.End > maxEnd {
				maxEnd = fi.Range.End
			}
			jobs = append(jobs, job{xorbHash: xh, fi: fi})
		}
		bufs[xh] = make([]byte, maxEnd+1)
	}

	var mu sync.Mutex
	err := httpx.RunBounded(ctx, len(jobs), s.cfg.ConcurrentRangeFetches, func(ctx context.Context, i int) error {
		j := jobs[i]
		data, err := s.client.FetchRange(ctx, j.fi.URL, j.fi.URLRange)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		buf := bufs[j.xorbHash]
		start := j.fi.Range.Start
		if start+uint64(len(data)) > uint64(len(buf)) {
			return fmt.Errorf("download: fetched range overruns xorb scratch buffer")
		}
		copy(buf[start:], data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return bufs, nil
}
