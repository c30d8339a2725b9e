package refcounts

import (
	"encoding/binary"

	"github.com/buildbarn/vdo-refcounts/pkg/slab"
)

// packedJournalPointSize is the on-disk size, in bytes, of a packed
// journal point: an 8-byte sequence number, a 2-byte entry count, and 2
// bytes of padding, per §6 (sequence:u64, entry:u16, _pad:u16).
const packedJournalPointSize = 12

// packJournalPoint encodes a journal point using the explicit
// little-endian layout called for by design note §9 ("Packed
// structures... explicit byte layouts with defined little-endian
// encoding, rather than memory-mapped structs").
func packJournalPoint(p slab.JournalPoint, dst []byte) {
	binary.LittleEndian.PutUint64(dst[0:8], p.SequenceNumber)
	binary.LittleEndian.PutUint16(dst[8:10], p.EntryCount)
	dst[10] = 0
	dst[11] = 0
}

// unpackJournalPoint decodes a journal point previously written by
// packJournalPoint.
func unpackJournalPoint(src []byte) slab.JournalPoint {
	return slab.JournalPoint{
		SequenceNumber: binary.LittleEndian.Uint64(src[0:8]),
		EntryCount:     binary.LittleEndian.Uint16(src[8:10]),
	}
}

// sectorSize returns the on-disk byte size of one sector: a packed
// journal point followed by one counter byte per counter in the sector.
func sectorSize(cfg Config) int {
	return packedJournalPointSize + cfg.CountsPerSector()
}

// blockSize returns the on-disk byte size of one full reference block.
func blockSize(cfg Config) int {
	return sectorSize(cfg) * cfg.SectorsPerBlock
}

// packReferenceBlock serializes a reference block's counters and the
// ref-counts object's current slab journal point into dst, following the
// layout in §6:
//
//	block  := sector[0..SectorsPerBlock]
//	sector := { commit_point; counts[CountsPerSector] }
//
// All sectors carry the same commit point in a non-torn write.
func packReferenceBlock(cfg Config, counters []Counter, commitPoint slab.JournalPoint, dst []byte) {
	countsPerSector := cfg.CountsPerSector()
	sSize := sectorSize(cfg)
	for i := 0; i < cfg.SectorsPerBlock; i++ {
		sectorOff := i * sSize
		packJournalPoint(commitPoint, dst[sectorOff:sectorOff+packedJournalPointSize])
		countsOff := sectorOff + packedJournalPointSize
		for j := 0; j < countsPerSector; j++ {
			dst[countsOff+j] = byte(counters[i*countsPerSector+j])
		}
	}
}

// unpackedReferenceBlock is the result of decoding a packed reference
// block: per-sector commit points plus the flattened counter array.
type unpackedReferenceBlock struct {
	counters     []Counter
	commitPoints []slab.JournalPoint
}

// unpackReferenceBlock decodes a packed reference block previously
// written by packReferenceBlock. It does not repair torn writes; callers
// detect and log divergent sector commit points themselves (§4.7, §9).
func unpackReferenceBlock(cfg Config, src []byte) unpackedReferenceBlock {
	countsPerSector := cfg.CountsPerSector()
	sSize := sectorSize(cfg)

	result := unpackedReferenceBlock{
		counters:     make([]Counter, cfg.CountsPerBlock),
		commitPoints: make([]slab.JournalPoint, cfg.SectorsPerBlock),
	}
	for i := 0; i < cfg.SectorsPerBlock; i++ {
		sectorOff := i * sSize
		result.commitPoints[i] = unpackJournalPoint(src[sectorOff : sectorOff+packedJournalPointSize])
		countsOff := sectorOff + packedJournalPointSize
		for j := 0; j < countsPerSector; j++ {
			result.counters[i*countsPerSector+j] = Counter(src[countsOff+j])
		}
	}
	return result
}

// GetSavedReferenceCountSize returns the number of full-sized reference
// blocks needed to save blockCount counters, per §6.
func GetSavedReferenceCountSize(cfg Config, blockCount uint64) uint64 {
	cpb := uint64(cfg.CountsPerBlock)
	return (blockCount + cpb - 1) / cpb
}
