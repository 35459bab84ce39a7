package pipeline

import (
	"encoding/binary"
	"math"
	"sort"
	"testing"
)

func TestEncodeULID(t *testing.T) {
	var zero [16]byte
	if got := encodeULID(zero); got != "00000000000000000000000000" {
		t.Errorf("unexpected zero encoding %q", got)
	}
	var ones [16]byte
	for i := range ones {
		ones[i] = 0xff
	}
	if got := encodeULID(ones); got != "7ZZZZZZZZZZZZZZZZZZZZZZZZZ" {
		t.Errorf("unexpected max encoding %q", got)
	}
	var one [16]byte
	one[15] = 33
	if got := encodeULID(one); got != "00000000000000000000000011" {
		t.Errorf("unexpected encoding of 33: %q", got)
	}
}

func TestNewJobID_UniqueAndOrdered(t *testing.T) {
	ids := make([]string, 500)
	seen := make(map[string]bool, len(ids))
	for i := range ids {
		ids[i] = newJobID()
		if len(ids[i]) != 26 {
			t.Fatalf("expected 26 characters, got %q", ids[i])
		}
		if seen[ids[i]] {
			t.Fatalf("duplicate id %q", ids[i])
		}
		seen[ids[i]] = true
	}
	if !sort.StringsAreSorted(ids) {
		t.Error("expected ids in creation order to sort lexically")
	}
}

func TestNextStamp_SequenceCarriesIntoTimestamp(t *testing.T) {
	ulidMu.Lock()
	defer ulidMu.Unlock()
	savedTS, savedSeq := lastTS, lastSeq
	defer func() { lastTS, lastSeq = savedTS, savedSeq }()

	lastTS, lastSeq = 1000, math.MaxUint16-1

	tests := []struct {
		now     uint64
		wantTS  uint64
		wantSeq uint16
	}{
		{1000, 1000, math.MaxUint16},
		{1000, 1001, 0},
		{999, 1001, 1}, // clock went backwards
		{1001, 1001, 2},
		{1005, 1005, 0},
	}
	for i, tt := range tests {
		ts, seq := nextStamp(tt.now)
		if ts != tt.wantTS || seq != tt.wantSeq {
			t.Errorf("step %d: expected (%d, %d), got (%d, %d)", i, tt.wantTS, tt.wantSeq, ts, seq)
		}
	}
}

func TestEncodeULID_OrderAcrossSequenceCarry(t *testing.T) {
	id := func(ts uint64, seq uint16) string {
		var b [16]byte
		binary.BigEndian.PutUint64(b[0:8], ts<<16)
		binary.BigEndian.PutUint16(b[6:8], seq)
		return encodeULID(b)
	}
	last := id(1000, math.MaxUint16)
	next := id(1001, 0)
	if last >= next {
		t.Errorf("expected %q to sort before %q", last, next)
	}
}
