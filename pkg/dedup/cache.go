// Package dedup implements the process-local deduplication cache of §4.6: a
// map from chunk hash to the (xorb hash, chunk index) that already holds it.
//
// Grounded on the teacher's pkg/content.ChunkStore interface (Put/Get/Has
// over a CID-keyed store) narrowed to the single insert/lookup shape this
// spec calls for, backed by a plain mutex-guarded map rather than a pluggable
// storage interface since the cache never persists.
package dedup

import (
	"sync"

	"github.com/jedisct1/draft-denis-xet/pkg/shard"
	"github.com/jedisct1/draft-denis-xet/pkg/xethash"
)

// Location identifies where a chunk already lives: which xorb, and at what
// index within it.
type Location struct {
	XorbHash   xethash.Hash
	ChunkIndex int
}

// Cache is a process-local, concurrency-safe chunk hash -> Location map. It
// grows monotonically within a session, per §5's resource policy.
type Cache struct {
	mu sync.RWMutex
	m  map[xethash.Hash]Location
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{m: make(map[xethash.Hash]Location)}
}

// Insert records that hash lives at loc, unless already present (first
// writer wins — the reference never needs to overwrite a known location).
func (c *Cache) Insert(hash xethash.Hash, loc Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.m[hash]; ok {
		return
	}
	c.m[hash] = loc
}

// Lookup returns the location of hash, if known.
func (c *Cache) Lookup(hash xethash.Hash) (Location, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	loc, ok := c.m[hash]
	return loc, ok
}

// Len reports the number of chunk hashes currently cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// InsertXorb populates the cache from a just-sealed local xorb: every chunk
// hash maps to (xorbHash, its index within that xorb). Used by the upload
// session's pack phase (§4.8 step 3).
func (c *Cache) InsertXorb(xorbHash xethash.Hash, chunkHashes []xethash.Hash) {
	for i, h := range chunkHashes {
		c.Insert(h, Location{XorbHash: xorbHash, ChunkIndex: i})
	}
}

// InsertShard populates the cache from a shard returned by the global dedup
// endpoint (§4.6/§4.7): every CASBlock's chunk entries become known
// locations, keyed on their raw chunk hash.
//
// Per the §4.6/§9 keyed-dedup note, a CASBlock whose footer-level
// chunk_hash_key the caller supplies as non-zero cannot be matched against
// local raw chunk hashes this way — those entries are skipped, matching the
// reference's documented limitation rather than attempting the
// keyed_hash(chunk_hash_key, local_hash) re-derivation §9 describes as the
// complete fix.
func (c *Cache) InsertShard(s *shard.Shard, chunkHashKey [32]byte) {
	keyed := chunkHashKey != [32]byte{}
	if keyed {
		return
	}
	for _, cb := range s.CAS {
		for i, e := range cb.Entries {
			c.Insert(e.ChunkHash, Location{XorbHash: cb.XorbHash, ChunkIndex: i})
		}
	}
}
