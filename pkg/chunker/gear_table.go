package chunker

// gearTable is the fixed 256-entry rolling-hash table used by the Gearhash
// content-defined chunker (§4.2/§6). spec.md requires this table to "match
// reference byte-for-byte" but does not publish the reference bytes, so this
// implementation generates its own fixed table deterministically (splitmix64
// starting from a fixed seed) and freezes it here; see DESIGN.md. What
// matters for every invariant in §8 (boundary determinism, size bounds,
// reassembly) is that the table is *fixed*, not which fixed table is used.
var gearTable = func() [256]uint64 {
	var t [256]uint64
	var x uint64 = 0x9e3779b97f4a7c15
	for i := range t {
		x += 0x9e3779b97f4a7c15
		z := x
		z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
		z = (z ^ (z >> 27)) * 0x94d049bb133111eb
		z = z ^ (z >> 31)
		t[i] = z
	}
	return t
}()

// GearTable returns a copy of the 256-entry rolling-hash table.
func GearTable() [256]uint64 {
	return gearTable
}
