package shard

import (
	"fmt"

	"github.com/jedisct1/draft-denis-xet/pkg/xeterr"
	"github.com/jedisct1/draft-denis-xet/pkg/xethash"
)

// Serialize writes s in upload form: header(48) || file-info || bookend(48)
// || cas-info || bookend(48), with footer_size=0 (§4.5). Stored-shard
// footers are never produced by this package, per §1's Non-goals.
func Serialize(s *Shard) ([]byte, error) {
	out := make([]byte, 0, recordSize*4)

	hdr := make([]byte, recordSize)
	copy(hdr[:32], HeaderTag[:])
	putU64(hdr[32:40], version)
	putU64(hdr[40:48], 0) // footer size, upload form
	out = append(out, hdr...)

	for _, f := range s.Files {
		if err := appendFileBlock(&out, f); err != nil {
			return nil, err
		}
	}
	writeBookend(&out)

	for _, c := range s.CAS {
		if err := appendCASBlock(&out, c); err != nil {
			return nil, err
		}
	}
	writeBookend(&out)

	return out, nil
}

func appendFileBlock(out *[]byte, f FileBlock) error {
	if f.VerificationHashes != nil && len(f.VerificationHashes) != len(f.Terms) {
		return fmt.Errorf("shard: file %s has %d verification hashes for %d terms", f.FileHash, len(f.VerificationHashes), len(f.Terms))
	}
	rec := make([]byte, recordSize)
	copy(rec[:32], f.FileHash[:])
	putU32(rec[32:36], f.flags())
	putU32(rec[36:40], uint32(len(f.Terms)))
	*out = append(*out, rec...)

	for _, t := range f.Terms {
		e := make([]byte, recordSize)
		copy(e[:32], t.XorbHash[:])
		putU32(e[32:36], t.XorbFlags)
		putU32(e[36:40], t.UnpackedLength)
		putU32(e[40:44], t.ChunkIndexStart)
		putU32(e[44:48], t.ChunkIndexEnd)
		*out = append(*out, e...)
	}
	for _, vh := range f.VerificationHashes {
		e := make([]byte, recordSize)
		copy(e[:32], vh[:])
		*out = append(*out, e...)
	}
	if f.SHA256 != nil {
		e := make([]byte, recordSize)
		copy(e[:32], f.SHA256[:])
		*out = append(*out, e...)
	}
	return nil
}

func appendCASBlock(out *[]byte, c CASBlock) error {
	rec := make([]byte, recordSize)
	copy(rec[:32], c.XorbHash[:])
	putU32(rec[32:36], c.Flags)
	putU32(rec[36:40], uint32(len(c.Entries)))
	putU32(rec[40:44], uint32(c.BytesInCAS))
	putU32(rec[44:48], uint32(c.BytesOnDisk))
	*out = append(*out, rec...)

	for _, e := range c.Entries {
		rec := make([]byte, recordSize)
		copy(rec[:32], e.ChunkHash[:])
		putU32(rec[32:36], uint32(e.ByteRangeStart))
		putU32(rec[36:40], e.UnpackedLength)
		putU32(rec[40:44], e.Flags)
		*out = append(*out, rec...)
	}
	return nil
}

// Parse parses a shard from buf, upload or stored form. kind errors follow
// §4.5's parser failure modes: Truncated, BadMagic, UnsupportedVersion.
func Parse(buf []byte) (*Shard, error) {
	hdr, err := readRecord(buf, 0)
	if err != nil {
		return nil, err
	}
	var tag [32]byte
	copy(tag[:], hdr[:32])
	if tag != HeaderTag {
		return nil, xeterr.New(xeterr.BadMagic, "shard: header tag mismatch")
	}
	ver := getU64(hdr[32:40])
	if ver != version {
		return nil, xeterr.New(xeterr.UnsupportedVersion, fmt.Sprintf("shard: version %d unsupported", ver))
	}
	footerSize := getU64(hdr[40:48])

	off := recordSize
	s := &Shard{}

	for {
		rec, err := readRecord(buf, off)
		if err != nil {
			return nil, err
		}
		if isBookend(rec) {
			off += recordSize
			break
		}
		fb, consumed, err := parseFileBlock(buf, off)
		if err != nil {
			return nil, err
		}
		s.Files = append(s.Files, fb)
		off += consumed
	}

	for {
		rec, err := readRecord(buf, off)
		if err != nil {
			return nil, err
		}
		if isBookend(rec) {
			off += recordSize
			break
		}
		cb, consumed, err := parseCASBlock(buf, off)
		if err != nil {
			return nil, err
		}
		s.CAS = append(s.CAS, cb)
		off += consumed
	}

	if footerSize > 0 {
		footer, err := parseFooter(buf, off, int(footerSize))
		if err != nil {
			return nil, err
		}
		s.Footer = footer
	}

	return s, nil
}

func parseFileBlock(buf []byte, off int) (FileBlock, int, error) {
	hdr, err := readRecord(buf, off)
	if err != nil {
		return FileBlock{}, 0, err
	}
	var fb FileBlock
	copy(fb.FileHash[:], hdr[:32])
	flags := getU32(hdr[32:36])
	numEntries := int(getU32(hdr[36:40]))
	pos := off + recordSize

	fb.Terms = make([]ReconstructionTerm, numEntries)
	for i := 0; i < numEntries; i++ {
		e, err := readRecord(buf, pos)
		if err != nil {
			return FileBlock{}, 0, err
		}
		var t ReconstructionTerm
		copy(t.XorbHash[:], e[:32])
		t.XorbFlags = getU32(e[32:36])
		t.UnpackedLength = getU32(e[36:40])
		t.ChunkIndexStart = getU32(e[40:44])
		t.ChunkIndexEnd = getU32(e[44:48])
		fb.Terms[i] = t
		pos += recordSize
	}

	if flags&FlagWithVerification != 0 {
		fb.VerificationHashes = make([]xethash.Hash, numEntries)
		for i := 0; i < numEntries; i++ {
			e, err := readRecord(buf, pos)
			if err != nil {
				return FileBlock{}, 0, err
			}
			copy(fb.VerificationHashes[i][:], e[:32])
			pos += recordSize
		}
	}

	if flags&FlagWithMetadataExt != 0 {
		e, err := readRecord(buf, pos)
		if err != nil {
			return FileBlock{}, 0, err
		}
		var sha [32]byte
		copy(sha[:], e[:32])
		fb.SHA256 = &sha
		pos += recordSize
	}

	return fb, pos - off, nil
}

func parseCASBlock(buf []byte, off int) (CASBlock, int, error) {
	hdr, err := readRecord(buf, off)
	if err != nil {
		return CASBlock{}, 0, err
	}
	var cb CASBlock
	copy(cb.XorbHash[:], hdr[:32])
	cb.Flags = getU32(hdr[32:36])
	numEntries := int(getU32(hdr[36:40]))
	cb.BytesInCAS = uint64(getU32(hdr[40:44]))
	cb.BytesOnDisk = uint64(getU32(hdr[44:48]))
	pos := off + recordSize

	cb.Entries = make([]CASChunkEntry, numEntries)
	for i := 0; i < numEntries; i++ {
		e, err := readRecord(buf, pos)
		if err != nil {
			return CASBlock{}, 0, err
		}
		var ce CASChunkEntry
		copy(ce.ChunkHash[:], e[:32])
		ce.ByteRangeStart = uint64(getU32(e[32:36]))
		ce.UnpackedLength = getU32(e[36:40])
		ce.Flags = getU32(e[40:44])
		cb.Entries[i] = ce
		pos += recordSize
	}

	return cb, pos - off, nil
}
