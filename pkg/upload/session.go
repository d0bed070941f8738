// Package upload implements the upload session of §4.8: an ordered,
// six-phase pipeline that turns one or more in-memory files into the
// minimal set of new xorbs and exactly one new shard.
//
// Grounded on the teacher's pkg/content fetch/store orchestration (a
// sequential pipeline driving a pluggable store), adapted from BeeNet's
// content-addressed block store to this spec's chunk/xorb/shard hierarchy.
package upload

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/jedisct1/draft-denis-xet/pkg/casclient"
	"github.com/jedisct1/draft-denis-xet/pkg/chunker"
	"github.com/jedisct1/draft-denis-xet/pkg/dedup"
	"github.com/jedisct1/draft-denis-xet/pkg/httpx"
	"github.com/jedisct1/draft-denis-xet/pkg/shard"
	"github.com/jedisct1/draft-denis-xet/pkg/xetconfig"
	"github.com/jedisct1/draft-denis-xet/pkg/xethash"
	"github.com/jedisct1/draft-denis-xet/pkg/xorb"
)

// CASClient is the subset of casclient.Client the upload session needs.
// Defined here so the session can be driven by a fake in tests without
// standing up an HTTP server.
type CASClient interface {
	GlobalDedupQuery(ctx context.Context, chunkHash xethash.Hash) (shardBytes []byte, found bool, err error)
	InsertXorb(ctx context.Context, xorbHash xethash.Hash, serialized []byte) (wasInserted bool, err error)
	RegisterShard(ctx context.Context, serialized []byte) (casclient.RegisterShardResult, error)
}

// File is one in-memory file offered to a session.
type File struct {
	Name string
	Data []byte
}

// FileResult reports the outcome for one uploaded file.
type FileResult struct {
	Name     string
	FileHash xethash.Hash
	SHA256   [32]byte
}

// Result is the outcome of a completed upload session.
type Result struct {
	Files       []FileResult
	NewXorbs    []xethash.Hash
	ShardResult casclient.RegisterShardResult
}

// Session runs the six-phase pipeline of §4.8 against one CASClient, once
// per call to Upload. Its dedup cache persists across calls, so a later
// Upload on the same Session reuses chunks placed by an earlier one.
type Session struct {
	cfg     *xetconfig.Config
	client  CASClient
	cache   *dedup.Cache
	chunker *chunker.Chunker
}

// New creates a Session backed by client, using cfg's concurrency and
// dedup settings.
func New(cfg *xetconfig.Config, client CASClient) *Session {
	return &Session{
		cfg:     cfg,
		client:  client,
		cache:   dedup.New(),
		chunker: chunker.New(),
	}
}

type chunkRecord struct {
	hash      xethash.Hash
	data      []byte
	fileIndex int
	isFirst   bool
}

type fileState struct {
	name     string
	sha256   [32]byte
	fileHash xethash.Hash
	chunks   []int // indices into the session-wide chunk slice, in file order
}

type placement struct {
	loc   dedup.Location
	isNew bool
}

// Upload runs phases 1-6 of §4.8 over files and returns the outcome.
func (s *Session) Upload(ctx context.Context, files []File) (*Result, error) {
	fileStates, allChunks := s.ingest(files)

	if err := s.dedupPhase(ctx, allChunks); err != nil {
		return nil, err
	}

	placements, newXorbs, err := s.pack(allChunks)
	if err != nil {
		return nil, err
	}

	if err := s.uploadXorbs(ctx, newXorbs); err != nil {
		return nil, err
	}

	shardBytes, shardResult, err := s.buildAndUploadShard(ctx, fileStates, allChunks, placements, newXorbs)
	if err != nil {
		return nil, err
	}
	_ = shardBytes

	result := &Result{ShardResult: shardResult}
	for _, fs := range fileStates {
		result.Files = append(result.Files, FileResult{
			Name:     fs.name,
			FileHash: fs.fileHash,
			SHA256:   fs.sha256,
		})
	}
	for _, x := range newXorbs {
		result.NewXorbs = append(result.NewXorbs, x.hash)
	}
	return result, nil
}

// ingest is phase 1: chunk every file, recording per-chunk metadata and
// each file's SHA-256 and file hash.
func (s *Session) ingest(files []File) ([]fileState, []chunkRecord) {
	var allChunks []chunkRecord
	fileStates := make([]fileState, len(files))

	for fi, f := range files {
		sum := sha256.Sum256(f.Data)
		cs := s.chunker.ChunkAll(f.Data)

		entries := make([]xethash.Entry, len(cs))
		fs := fileState{name: f.Name, sha256: sum}
		for ci, c := range cs {
			h := xethash.ChunkHash(c.Data)
			entries[ci] = xethash.Entry{Hash: h, Size: uint64(len(c.Data))}
			idx := len(allChunks)
			allChunks = append(allChunks, chunkRecord{
				hash:      h,
				data:      c.Data,
				fileIndex: fi,
				isFirst:   ci == 0,
			})
			fs.chunks = append(fs.chunks, idx)
		}
		fs.fileHash = xethash.FileHash(entries)
		fileStates[fi] = fs
	}

	return fileStates, allChunks
}

// dedupPhase is phase 2: query the global dedup endpoint for every unique,
// not-yet-cached, globally eligible chunk hash, folding hits into the
// session's dedup cache.
func (s *Session) dedupPhase(ctx context.Context, chunks []chunkRecord) error {
	if !s.cfg.GlobalDedupEnabled {
		return nil
	}

	seen := make(map[xethash.Hash]bool)
	var queryable []xethash.Hash
	for _, c := range chunks {
		if seen[c.hash] {
			continue
		}
		seen[c.hash] = true
		if _, ok := s.cache.Lookup(c.hash); ok {
			continue
		}
		if !c.isFirst && !c.hash.GloballyEligible() {
			continue
		}
		queryable = append(queryable, c.hash)
	}

	return httpx.RunBounded(ctx, len(queryable), s.cfg.ConcurrentDedupQueries, func(ctx context.Context, i int) error {
		h := queryable[i]
		if _, ok := s.cache.Lookup(h); ok {
			return nil
		}
		body, found, err := s.client.GlobalDedupQuery(ctx, h)
		if err != nil {
			return err
		}
		if !found {
			return nil
		}
		sh, err := shard.Parse(body)
		if err != nil {
			return fmt.Errorf("upload: parsing dedup query shard: %w", err)
		}
		var key [32]byte
		if sh.Footer != nil {
			key = sh.Footer.ChunkHashKey
		}
		s.cache.InsertShard(sh, key)
		return nil
	})
}

type sealedXorb struct {
	hash        xethash.Hash
	serialized  []byte
	chunkHashes []xethash.Hash
	chunkSizes  []int
	flags       []uint32
}

// pack is phase 3: walk chunks in first-occurrence order, placing each one
// either in the dedup cache (already known) or in the current xorb
// builder, sealing builders as they fill.
func (s *Session) pack(chunks []chunkRecord) ([]placement, []sealedXorb, error) {
	placements := make([]placement, len(chunks))
	placed := make(map[xethash.Hash]dedup.Location)

	var sealed []sealedXorb
	builder := xorb.NewBuilder()
	var curHashes []xethash.Hash
	var curSizes []int
	var curFlags []uint32

	sealCurrent := func() error {
		if builder.Len() == 0 {
			return nil
		}
		x, bytes, err := builder.Seal()
		if err != nil {
			return err
		}
		xh := x.Hash()
		s.cache.InsertXorb(xh, curHashes)
		sealed = append(sealed, sealedXorb{
			hash:        xh,
			serialized:  bytes,
			chunkHashes: curHashes,
			chunkSizes:  curSizes,
			flags:       curFlags,
		})
		builder = xorb.NewBuilder()
		curHashes = nil
		curSizes = nil
		curFlags = nil
		return nil
	}

	for i, c := range chunks {
		if loc, ok := placed[c.hash]; ok {
			placements[i] = placement{loc: loc, isNew: false}
			continue
		}
		if loc, ok := s.cache.Lookup(c.hash); ok {
			placements[i] = placement{loc: loc, isNew: false}
			placed[c.hash] = loc
			continue
		}

		if builder.WouldOverflow(len(c.data)) {
			if err := sealCurrent(); err != nil {
				return nil, nil, err
			}
		}
		ok, err := builder.Add(c.hash, c.data)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			return nil, nil, fmt.Errorf("upload: chunk of %d bytes cannot fit in an empty xorb builder", len(c.data))
		}
		idx := builder.Len() - 1
		loc := dedup.Location{ChunkIndex: idx} // XorbHash filled in once sealed; see below
		placements[i] = placement{loc: loc, isNew: true}
		placed[c.hash] = loc
		curHashes = append(curHashes, c.hash)
		curSizes = append(curSizes, len(c.data))
		flag := uint32(0)
		if idx == 0 || c.hash.GloballyEligible() {
			flag = shard.ChunkFlagGlobalDedupEligible
		}
		curFlags = append(curFlags, flag)
	}
	if err := sealCurrent(); err != nil {
		return nil, nil, err
	}

	// Backfill XorbHash now that every builder in this session has been
	// sealed and hashed. Every chunk hash that ended up in a sealed xorb
	// gets the fill-in, not just its first (isNew) occurrence: a repeated
	// chunk's later placements were copied from `placed` before the xorb
	// had a hash, so they carry the same zero XorbHash otherwise.
	xorbForChunk := make(map[xethash.Hash]xethash.Hash, len(sealed))
	for _, x := range sealed {
		for _, h := range x.chunkHashes {
			xorbForChunk[h] = x.hash
		}
	}
	for i, c := range chunks {
		if xh, ok := xorbForChunk[c.hash]; ok {
			p := placements[i]
			p.loc.XorbHash = xh
			placements[i] = p
		}
	}

	return placements, sealed, nil
}

// uploadXorbs is phase 4: POST every sealed new xorb. Order across xorbs
// is unconstrained, so these run through the bounded worker pool.
func (s *Session) uploadXorbs(ctx context.Context, sealed []sealedXorb) error {
	return httpx.RunBounded(ctx, len(sealed), s.cfg.ConcurrentXorbUploads, func(ctx context.Context, i int) error {
		x := sealed[i]
		_, err := s.client.InsertXorb(ctx, x.hash, x.serialized)
		return err
	})
}
