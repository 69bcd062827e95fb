package nvm

import (
	"encoding/binary"
	"hash/crc32"
	"math"
)

// Record is the on-storage calibration mapping. Exactly one logical record
// is the source of truth; Generation decides between the two slots on load.
type Record struct {
	Generation uint32
	ZeroRaw    int32
	Gradient   float64
}

// Record layout, little-endian:
//
//	offset 0  magic      uint32
//	offset 4  version    uint8
//	offset 5  reserved   3 bytes (erased)
//	offset 8  generation uint32
//	offset 12 zeroRaw    int32
//	offset 16 gradient   float64
//	offset 24 crc32      uint32 (Castagnoli, over bytes [0,24))
const (
	recordMagic   uint32 = 0x4C434248 // "HBCL"
	recordVersion byte   = 1
	recordSize           = 28
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

func encodeRecord(r Record) []byte {
	buf := make([]byte, recordSize)
	binary.LittleEndian.PutUint32(buf[0:4], recordMagic)
	buf[4] = recordVersion
	buf[5], buf[6], buf[7] = ErasedByte, ErasedByte, ErasedByte
	binary.LittleEndian.PutUint32(buf[8:12], r.Generation)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(r.ZeroRaw))
	binary.LittleEndian.PutUint64(buf[16:24], math.Float64bits(r.Gradient))
	binary.LittleEndian.PutUint32(buf[24:28], crc32.Checksum(buf[:24], crcTable))
	return buf
}

// decodeRecord validates magic, version and checksum. A failure of any of
// these means "no record here", not a fault: a blank or torn slot decodes
// to (Record{}, false).
func decodeRecord(buf []byte) (Record, bool) {
	if len(buf) < recordSize {
		return Record{}, false
	}
	if binary.LittleEndian.Uint32(buf[0:4]) != recordMagic {
		return Record{}, false
	}
	if buf[4] != recordVersion {
		return Record{}, false
	}
	if binary.LittleEndian.Uint32(buf[24:28]) != crc32.Checksum(buf[:24], crcTable) {
		return Record{}, false
	}
	return Record{
		Generation: binary.LittleEndian.Uint32(buf[8:12]),
		ZeroRaw:    int32(binary.LittleEndian.Uint32(buf[12:16])),
		Gradient:   math.Float64frombits(binary.LittleEndian.Uint64(buf[16:24])),
	}, true
}
