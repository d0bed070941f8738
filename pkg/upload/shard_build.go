package upload

import (
	"context"

	"github.com/jedisct1/draft-denis-xet/pkg/casclient"
	"github.com/jedisct1/draft-denis-xet/pkg/shard"
	"github.com/jedisct1/draft-denis-xet/pkg/xethash"
)

// buildAndUploadShard is phases 5-6: coalesce each file's chunk placements
// into reconstruction terms, assemble FileBlocks and CASBlocks, serialize
// in upload form, and register the result.
func (s *Session) buildAndUploadShard(ctx context.Context, fileStates []fileState, chunks []chunkRecord, placements []placement, sealed []sealedXorb) ([]byte, casclient.RegisterShardResult, error) {
	sh := &shard.Shard{}

	for _, fs := range fileStates {
		fb, err := buildFileBlock(fs, chunks, placements)
		if err != nil {
			return nil, 0, err
		}
		sh.Files = append(sh.Files, fb)
	}

	for _, x := range sealed {
		sh.CAS = append(sh.CAS, buildCASBlock(x))
	}

	if err := shard.Validate(sh); err != nil {
		return nil, 0, err
	}

	bytes, err := shard.Serialize(sh)
	if err != nil {
		return nil, 0, err
	}

	result, err := s.client.RegisterShard(ctx, bytes)
	if err != nil {
		return nil, 0, err
	}
	return bytes, result, nil
}

// buildFileBlock implements §4.8 step 5's term-coalescing rule for a single
// file, plus its per-term verification hash computed over the file's own
// chunk hashes (not the xorb's, per §9).
func buildFileBlock(fs fileState, chunks []chunkRecord, placements []placement) (shard.FileBlock, error) {
	fb := shard.FileBlock{FileHash: fs.fileHash}
	sha := fs.sha256
	fb.SHA256 = &sha

	var curTerm *shard.ReconstructionTerm
	var curHashes []xethash.Hash
	var allVerifHashes []xethash.Hash

	flush := func() {
		if curTerm == nil {
			return
		}
		vh, err := xethash.VerificationHash(curHashes)
		if err != nil {
			vh = xethash.Hash{}
		}
		allVerifHashes = append(allVerifHashes, vh)
		fb.Terms = append(fb.Terms, *curTerm)
		curTerm = nil
		curHashes = nil
	}

	for _, ci := range fs.chunks {
		loc := placements[ci].loc
		size := uint32(len(chunks[ci].data))

		if curTerm != nil && curTerm.XorbHash == loc.XorbHash && uint32(loc.ChunkIndex) == curTerm.ChunkIndexEnd {
			curTerm.ChunkIndexEnd++
			curTerm.UnpackedLength += size
			curHashes = append(curHashes, chunks[ci].hash)
			continue
		}

		flush()
		curTerm = &shard.ReconstructionTerm{
			XorbHash:        loc.XorbHash,
			UnpackedLength:  size,
			ChunkIndexStart: uint32(loc.ChunkIndex),
			ChunkIndexEnd:   uint32(loc.ChunkIndex) + 1,
		}
		curHashes = []xethash.Hash{chunks[ci].hash}
	}
	flush()

	fb.VerificationHashes = allVerifHashes
	return fb, nil
}

// buildCASBlock builds the CASBlock describing one newly sealed xorb, with
// cumulative uncompressed byte offsets and dedup-eligibility flags per
// §4.8 step 5.
func buildCASBlock(x sealedXorb) shard.CASBlock {
	cb := shard.CASBlock{
		XorbHash:    x.hash,
		BytesInCAS:  0,
		BytesOnDisk: uint64(len(x.serialized)),
	}
	var offset uint64
	for i, h := range x.chunkHashes {
		size := uint32(x.chunkSizes[i])
		cb.Entries = append(cb.Entries, shard.CASChunkEntry{
			ChunkHash:      h,
			ByteRangeStart: offset,
			UnpackedLength: size,
			Flags:          x.flags[i],
		})
		offset += uint64(size)
	}
	cb.BytesInCAS = offset
	return cb
}
