package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	"sync"
	"time"
)

// Job ids are ULIDs: a 48-bit millisecond timestamp followed by 80 bits of
// which the first 16 are a per-millisecond sequence, so ids sort in
// creation order.

var (
	ulidMu  sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

func newJobID() string {
	ulidMu.Lock()
	ts, seq := nextStamp(uint64(time.Now().UnixMilli()))
	ulidMu.Unlock()

	var b [16]byte
	binary.BigEndian.PutUint64(b[0:8], ts<<16)
	rand.Read(b[8:])
	binary.BigEndian.PutUint16(b[6:8], seq)
	return encodeULID(b)
}

// nextStamp returns the timestamp and sequence for the next id. When the
// clock has not moved past the last id the sequence advances, and a full
// sequence carries into the timestamp. Callers hold ulidMu.
func nextStamp(now uint64) (uint64, uint16) {
	switch {
	case now > lastTS:
		lastTS, lastSeq = now, 0
	case lastSeq == math.MaxUint16:
		lastTS++
		lastSeq = 0
	default:
		lastSeq++
	}
	return lastTS, lastSeq
}

// encodeULID writes 128 bits as 26 Crockford base32 digits, most
// significant first.
func encodeULID(b [16]byte) string {
	hi := binary.BigEndian.Uint64(b[:8])
	lo := binary.BigEndian.Uint64(b[8:])
	var out [26]byte
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = crockford[lo&31]
		lo = lo>>5 | hi<<59
		hi >>= 5
	}
	return string(out[:])
}
