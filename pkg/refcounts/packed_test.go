package refcounts

import (
	"testing"

	"github.com/buildbarn/vdo-refcounts/pkg/slab"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	cfg := testConfigForPackage()
	counters := make([]Counter, cfg.CountsPerBlock)
	counters[0] = 1
	counters[10] = 253
	counters[20] = ProvisionalReferenceCount

	commit := slab.JournalPoint{SequenceNumber: 42, EntryCount: 7}
	buf := make([]byte, blockSize(cfg))
	packReferenceBlock(cfg, counters, commit, buf)

	unpacked := unpackReferenceBlock(cfg, buf)
	for i, c := range counters {
		if c == ProvisionalReferenceCount {
			continue
		}
		require.Equal(t, c, unpacked.counters[i], "counter %d", i)
	}
	require.Equal(t, ProvisionalReferenceCount, unpacked.counters[20])
	for _, p := range unpacked.commitPoints {
		require.Equal(t, commit, p)
	}
}

func TestUnpackPreservesDivergentCommitPoints(t *testing.T) {
	cfg := testConfigForPackage()
	buf := make([]byte, blockSize(cfg))
	sSize := sectorSize(cfg)
	packJournalPoint(slab.JournalPoint{SequenceNumber: 1, EntryCount: 1}, buf[0:12])
	packJournalPoint(slab.JournalPoint{SequenceNumber: 2, EntryCount: 1}, buf[sSize:sSize+12])

	unpacked := unpackReferenceBlock(cfg, buf)
	require.False(t, unpacked.commitPoints[0].Equivalent(unpacked.commitPoints[1]))
}

func TestGetSavedReferenceCountSize(t *testing.T) {
	cfg := testConfigForPackage()
	require.Equal(t, uint64(2), GetSavedReferenceCountSize(cfg, 128))
	require.Equal(t, uint64(2), GetSavedReferenceCountSize(cfg, 65))
	require.Equal(t, uint64(1), GetSavedReferenceCountSize(cfg, 64))
}

func testConfigForPackage() Config {
	return Config{
		CountsPerBlock:        64,
		SectorsPerBlock:       8,
		FlushDivisor:          4,
		MaximumReferenceCount: 254,
	}
}
