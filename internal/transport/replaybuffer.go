package transport

import (
	"sort"
	"sync"

	domaintypes "provinode/scan-core/internal/domain/types"
)

// replayCapacity bounds the outbound sample frame buffer kept for resume
// retransmission.
const replayCapacity = 512

// replayBuffer holds the most recently emitted sample frames, keyed by
// sample_seq, for one active session. Entries stay in push order (every
// push appends; retransmission does not push again); trimAndCollect sorts
// by sample_seq, so replay order never depends on push order.
type replayBuffer struct {
	mu        sync.Mutex
	sessionID domaintypes.SortableID
	entries   []domaintypes.ReplayEntry
}

// reset drops all buffered frames and rebinds the buffer to sessionID,
// called whenever the active session changes.
func (b *replayBuffer) reset(sessionID domaintypes.SortableID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessionID = sessionID
	b.entries = nil
}

// push appends a newly emitted frame, evicting the oldest entry once the
// buffer exceeds replayCapacity.
func (b *replayBuffer) push(sampleSeq int64, frame []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, domaintypes.ReplayEntry{SampleSeq: sampleSeq, Frame: frame})
	if len(b.entries) > replayCapacity {
		b.entries = b.entries[len(b.entries)-replayCapacity:]
	}
}

// trimAndCollect drops all entries with sample_seq <= ack and, when
// retransmit is true, returns the surviving entries sorted by ascending
// sample_seq for replay.
func (b *replayBuffer) trimAndCollect(ack int64, retransmit bool) []domaintypes.ReplayEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.entries[:0:0]
	for _, e := range b.entries {
		if e.SampleSeq > ack {
			kept = append(kept, e)
		}
	}
	b.entries = kept

	if !retransmit {
		return nil
	}
	out := make([]domaintypes.ReplayEntry, len(kept))
	copy(out, kept)
	sort.Slice(out, func(i, j int) bool { return out[i].SampleSeq < out[j].SampleSeq })
	return out
}
