package refcounts

// Config carries the sizing parameters of the packed on-disk reference
// block format. Real deployments fix these at a large power of two;
// tests shrink them to exercise boundary conditions cheaply, the same way
// the teacher's NewPartitioningBlockAllocator takes sectorSizeBytes and
// blockSectorCount as constructor arguments rather than package constants.
type Config struct {
	// CountsPerBlock is the number of reference counters packed into a
	// single on-disk reference block. Must be a multiple of
	// SectorsPerBlock.
	CountsPerBlock int

	// SectorsPerBlock is the number of disk sectors a reference block
	// spans. Each sector carries its own journal commit point, so a
	// torn write leaves some sectors holding a stale commit point.
	SectorsPerBlock int

	// FlushDivisor controls how large a burst SaveSeveral issues:
	// max(1, dirtyCount/FlushDivisor) blocks are written per call.
	FlushDivisor int

	// MaximumReferenceCount is the highest counter value a normal
	// (non-block-map) reference may reach; VDO pins it at 254 so the
	// value 255 remains available as the provisional sentinel.
	MaximumReferenceCount uint8
}

// DefaultConfig returns the production sizing: 2048 counters per block
// across 8 sectors (256 counters per sector), a maximum reference count of
// 254, and a flush divisor of 4.
func DefaultConfig() Config {
	return Config{
		CountsPerBlock:        2048,
		SectorsPerBlock:       8,
		FlushDivisor:          4,
		MaximumReferenceCount: 254,
	}
}

// CountsPerSector returns the number of counters covered by a single
// on-disk sector.
func (c Config) CountsPerSector() int {
	return c.CountsPerBlock / c.SectorsPerBlock
}
