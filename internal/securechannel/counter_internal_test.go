package securechannel

import (
	"errors"
	"testing"

	domaintypes "provinode/scan-core/internal/domain/types"
	"provinode/scan-core/internal/scanerr"
)

// newTestChannel returns a Channel with a post-handshake key schedule,
// bypassing the network handshake entirely: these tests only exercise
// seal's counter bookkeeping.
func newTestChannel() *Channel {
	return &Channel{
		state: domaintypes.SecureSessionState{
			EncryptionKey:   domaintypes.SessionKey{},
			NoncePrefix:     domaintypes.NoncePrefix{},
			OutboundCounter: 0,
			InboundCounter:  -1,
		},
	}
}

func TestSeal_EmitsAtMaxCounterThenRefusesTheWrap(t *testing.T) {
	c := newTestChannel()
	c.state.OutboundCounter = ^uint32(0)

	if _, err := c.seal(0, []byte("last valid frame")); err != nil {
		t.Fatalf("expected the frame at 0xFFFFFFFF to be sealed, got %v", err)
	}
	if !c.outboundExhausted {
		t.Fatal("expected outboundExhausted to be set after sealing at the max counter")
	}

	_, err := c.seal(0, []byte("one too many"))
	var se *scanerr.Error
	if !errors.As(err, &se) || se.Kind != scanerr.KindCounterExhausted {
		t.Fatalf("expected KindCounterExhausted on the wrap, got %v", err)
	}
}

func TestSeal_IncrementsCounterNormallyBeforeExhaustion(t *testing.T) {
	c := newTestChannel()
	if _, err := c.seal(0, []byte("first")); err != nil {
		t.Fatalf("seal: %v", err)
	}
	if c.state.OutboundCounter != 1 {
		t.Fatalf("expected OutboundCounter to advance to 1, got %d", c.state.OutboundCounter)
	}
	if c.outboundExhausted {
		t.Fatal("did not expect exhaustion this early")
	}
}
