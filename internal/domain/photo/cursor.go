package photo

import (
	"encoding/base64"
	"encoding/binary"
)

// The remote store paginates with opaque cursors ordered by time. Cursors
// returned by the store are never parsed, only round-tripped; but the client
// can synthesize one from a calendar date to jump to an arbitrary point in
// the timeline (the scrubber feature).
//
// Wire layout, 75 bytes before base64:
//
//	3 x 16 bytes  time-guid slots (from, to, padding)
//	3 x  1 byte   presence flags for the slots above
//	3 x  8 bytes  big-endian epoch-millisecond timestamps (from, to, padding)
//
// A time-guid slot packs ms<<12 as a 56-bit big-endian value into its first
// seven bytes; the low 12 bits are a collision counter, zero when synthesized
// client-side. Byte-wise comparison of two slots therefore matches timestamp
// comparison, which keeps cursor ordering aligned with the store's
// descending-date record ordering.
const cursorSize = 3*16 + 3 + 3*8

// timeGuid packs a millisecond timestamp into a 16-byte slot.
func timeGuid(ms int64) [16]byte {
	var b [16]byte
	v := uint64(ms) << 12
	b[0] = byte(v >> 48)
	b[1] = byte(v >> 40)
	b[2] = byte(v >> 32)
	b[3] = byte(v >> 24)
	b[4] = byte(v >> 16)
	b[5] = byte(v >> 8)
	b[6] = byte(v)
	return b
}

// BuildCursor synthesizes a cursor positioned at fromMs: a page fetch
// starting there returns records with an effective date at or before fromMs.
// fromMs must be a non-negative epoch-millisecond value; anything else is a
// caller contract violation.
func BuildCursor(fromMs int64) string {
	return encodeCursor(fromMs, 0, false)
}

// BuildCursorRange additionally bounds the fetch window on the older side,
// inclusive. Month-partitioned fetches use this with the month's last and
// first instant.
func BuildCursorRange(fromMs, toMs int64) string {
	return encodeCursor(fromMs, toMs, true)
}

func encodeCursor(fromMs, toMs int64, hasTo bool) string {
	buf := make([]byte, 0, cursorSize)

	from := timeGuid(fromMs)
	buf = append(buf, from[:]...)
	var second [16]byte
	if hasTo {
		second = timeGuid(toMs)
	}
	buf = append(buf, second[:]...)
	buf = append(buf, make([]byte, 16)...)

	// presence flags; the from bound is always set
	buf = append(buf, 1)
	if hasTo {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, 0)

	buf = binary.BigEndian.AppendUint64(buf, uint64(fromMs))
	if hasTo {
		buf = binary.BigEndian.AppendUint64(buf, uint64(toMs))
	} else {
		buf = append(buf, make([]byte, 8)...)
	}
	buf = append(buf, make([]byte, 8)...)

	return base64.StdEncoding.EncodeToString(buf)
}
