package kv

import "encoding/binary"

// Buckets, mirroring the flat bucket-per-concern layout of
// slasher/db/kv/schema.go.
var (
	historyBucket = []byte("sentinel-history-bucket")
	provenBucket  = []byte("sentinel-proven-performance-bucket")
)

// bytes8 big-endian encodes v, matching the bytesutil.Bytes8 convention used
// throughout the wider codebase (not imported directly since that internal
// helper package was not retained here).
func bytes8(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func fromBytes8(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// encodeSlotKey builds the ordered key used within a validator's history
// bucket: an 8-byte big-endian slot number, so bucket iteration order is
// ascending-by-slot.
func encodeSlotKey(slot uint64) []byte {
	return bytes8(slot)
}

// encodeEpochKey builds the ordered key used within a validator's proven
// performance bucket.
func encodeEpochKey(epoch uint64) []byte {
	return bytes8(epoch)
}

// encodeHistoryValue packs a status byte; the slot itself is the key, so only
// one byte is stored per entry.
func encodeHistoryValue(status byte) []byte {
	return []byte{status}
}

// encodeProvenValue packs {missed, total} as two big-endian uint64s.
func encodeProvenValue(missed, total uint64) []byte {
	v := make([]byte, 16)
	binary.BigEndian.PutUint64(v[:8], missed)
	binary.BigEndian.PutUint64(v[8:], total)
	return v
}

func decodeProvenValue(v []byte) (missed, total uint64) {
	return binary.BigEndian.Uint64(v[:8]), binary.BigEndian.Uint64(v[8:])
}
