package transport

import "testing"

func TestReplayBuffer_EvictsOldestBeyondCapacity(t *testing.T) {
	var b replayBuffer
	b.reset("session-1")
	for i := int64(0); i < replayCapacity+10; i++ {
		b.push(i, []byte{byte(i)})
	}
	entries := b.trimAndCollect(-1, true)
	if len(entries) != replayCapacity {
		t.Fatalf("expected %d entries, got %d", replayCapacity, len(entries))
	}
	if entries[0].SampleSeq != 10 {
		t.Fatalf("expected oldest surviving seq 10, got %d", entries[0].SampleSeq)
	}
	if entries[len(entries)-1].SampleSeq != replayCapacity+9 {
		t.Fatalf("expected newest seq %d, got %d", replayCapacity+9, entries[len(entries)-1].SampleSeq)
	}
}

func TestReplayBuffer_TrimWithoutRetransmitReturnsNil(t *testing.T) {
	var b replayBuffer
	b.reset("session-1")
	b.push(1, []byte("a"))
	b.push(2, []byte("b"))
	entries := b.trimAndCollect(1, false)
	if entries != nil {
		t.Fatalf("expected nil when retransmit is false, got %v", entries)
	}
	// but the trim itself must still have happened
	remaining := b.trimAndCollect(-1, true)
	if len(remaining) != 1 || remaining[0].SampleSeq != 2 {
		t.Fatalf("expected only seq 2 to survive trim at ack=1, got %v", remaining)
	}
}

func TestReplayBuffer_ResetClearsAcrossSessions(t *testing.T) {
	var b replayBuffer
	b.reset("session-1")
	b.push(1, []byte("a"))
	b.reset("session-2")
	entries := b.trimAndCollect(-1, true)
	if len(entries) != 0 {
		t.Fatalf("expected empty buffer after reset to new session, got %d entries", len(entries))
	}
}

func TestReplayBuffer_RetransmitOrderedBySampleSeqNotInsertion(t *testing.T) {
	var b replayBuffer
	b.reset("session-1")
	// push entries out of numeric order; replay must still come back
	// sorted by sample_seq.
	b.push(3, []byte("c"))
	b.push(1, []byte("a"))
	b.push(2, []byte("b"))
	entries := b.trimAndCollect(0, true)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, want := range []int64{1, 2, 3} {
		if entries[i].SampleSeq != want {
			t.Fatalf("entry %d: expected seq %d, got %d", i, want, entries[i].SampleSeq)
		}
	}
}
