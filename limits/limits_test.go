package limits

import (
	"errors"
	"net"
	"testing"

	"github.com/opd-ai/ccoaudio/protocol"
)

// TestLargestProtocolFrameFits verifies that a PCM data frame, the largest
// message of the protocol, fits into MaxFrameSize.
func TestLargestProtocolFrameFits(t *testing.T) {
	frame, err := protocol.EncodeFrame(protocol.BroadcastAddr, net.HardwareAddr{2, 0, 0, 0, 0, 1}, 0,
		protocol.PcmData{Data: make([]byte, protocol.PeriodDataSize)})
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	if err := ValidateFrameSize(frame); err != nil {
		t.Errorf("ValidateFrameSize(pcm frame) = %v, want nil", err)
	}
	if len(frame) > ReceiveBufferSize {
		t.Errorf("pcm frame of %d bytes does not fit the receive buffer", len(frame))
	}
}

// TestSmallestProtocolFrameIsPadded verifies that control frames are padded
// to MinFrameSize.
func TestSmallestProtocolFrameIsPadded(t *testing.T) {
	frame, err := protocol.EncodeFrame(protocol.BroadcastAddr, net.HardwareAddr{2, 0, 0, 0, 0, 1}, 0,
		protocol.SessionControl{Kind: protocol.Heartbeat})
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	if len(frame) != MinFrameSize {
		t.Errorf("control frame is %d bytes, want %d", len(frame), MinFrameSize)
	}
}

func TestValidateFrameSize(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr error
	}{
		{"empty", 0, ErrFrameEmpty},
		{"below header", LinkHeaderSize - 1, ErrFrameTooSmall},
		{"header only", LinkHeaderSize, nil},
		{"minimum", MinFrameSize, nil},
		{"maximum", MaxFrameSize, nil},
		{"oversized", MaxFrameSize + 1, ErrFrameTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFrameSize(make([]byte, tt.size))
			if tt.wantErr == nil && err != nil {
				t.Errorf("ValidateFrameSize(%d) = %v, want nil", tt.size, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFrameSize(%d) = %v, want %v", tt.size, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSessionCapacity(t *testing.T) {
	for _, n := range []int{1, DefaultSessionCapacity, MaxSessionCapacity} {
		if err := ValidateSessionCapacity(n); err != nil {
			t.Errorf("ValidateSessionCapacity(%d) = %v, want nil", n, err)
		}
	}
	for _, n := range []int{-1, 0, MaxSessionCapacity + 1} {
		if err := ValidateSessionCapacity(n); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("ValidateSessionCapacity(%d) = %v, want ErrOutOfRange", n, err)
		}
	}
}

func TestValidateClockHz(t *testing.T) {
	for _, hz := range []int{1, 1000, MaxClockHz} {
		if err := ValidateClockHz(hz); err != nil {
			t.Errorf("ValidateClockHz(%d) = %v, want nil", hz, err)
		}
	}
	for _, hz := range []int{0, -1, MaxClockHz + 1, 2_000_000_000} {
		if err := ValidateClockHz(hz); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("ValidateClockHz(%d) = %v, want ErrOutOfRange", hz, err)
		}
	}
}

func TestValidateQueueDepth(t *testing.T) {
	for _, n := range []int{MinQueuedPeriods, DefaultMaxQueuedPeriods, MaxQueuedPeriods} {
		if err := ValidateQueueDepth(n); err != nil {
			t.Errorf("ValidateQueueDepth(%d) = %v, want nil", n, err)
		}
	}
	for _, n := range []int{0, MinQueuedPeriods - 1, MaxQueuedPeriods + 1} {
		if err := ValidateQueueDepth(n); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("ValidateQueueDepth(%d) = %v, want ErrOutOfRange", n, err)
		}
	}
}
