package shard

import "fmt"

// Validate checks the §3 invariants that are local to a shard's own byte
// layout (independent of any xorb it references): every CASBlock chunk hash
// is unique within its block, and every reconstruction term's index range is
// well formed. It mirrors the teacher's content.VerifyManifest pattern of a
// single structural-soundness pass distinct from cryptographic
// verification.
func Validate(s *Shard) error {
	for _, cb := range s.CAS {
		seen := make(map[[32]byte]bool, len(cb.Entries))
		for i, e := range cb.Entries {
			if seen[e.ChunkHash] {
				return fmt.Errorf("shard: cas block %s has duplicate chunk hash at entry %d", cb.XorbHash, i)
			}
			seen[e.ChunkHash] = true
		}
	}

	for _, fb := range s.Files {
		for i, t := range fb.Terms {
			if t.ChunkIndexEnd <= t.ChunkIndexStart {
				return fmt.Errorf("shard: file %s term %d has empty range [%d,%d)", fb.FileHash, i, t.ChunkIndexStart, t.ChunkIndexEnd)
			}
		}
		if fb.VerificationHashes != nil && len(fb.VerificationHashes) != len(fb.Terms) {
			return fmt.Errorf("shard: file %s has %d verification hashes for %d terms", fb.FileHash, len(fb.VerificationHashes), len(fb.Terms))
		}
	}

	return nil
}
