package audio

import (
	"context"
	"errors"
	"time"
)

// ErrNoPacket is returned by NextPacket when no buffer is currently available.
var ErrNoPacket = errors.New("audio: no packet available")

// Packet is a transient, borrowed view of one burst of interleaved PCM
// frames. The backing slice is only valid until ReleasePacket is called;
// callers must never retain it past that point.
type Packet struct {
	Data   []byte
	Frames int
	Flags  uint32
}

// Silent reports whether the SILENT bit is set on the packet.
func (p Packet) Silent() bool {
	return p.Flags&SilentFlag != 0
}

// Source is the platform loopback capture contract (C1). Implementations
// bind to the default render endpoint and deliver framed PCM with a
// kernel-backed wakeup.
type Source interface {
	// Open binds to the default render endpoint and negotiates a format.
	Open(ctx context.Context) error
	// Format returns the negotiated source format. Valid only after Open.
	Format() AudioFormat
	// Start transitions the endpoint to a running state.
	Start() error
	// WaitForBuffer blocks the caller until a buffer is ready or timeout
	// elapses. In polling mode it returns immediately.
	WaitForBuffer(timeout time.Duration) error
	// NextPacket returns the next available packet, or ErrNoPacket if none
	// is currently queued. The caller must call ReleasePacket before the
	// next call to NextPacket.
	NextPacket() (Packet, error)
	// ReleasePacket returns a previously issued packet's frames to the
	// endpoint.
	ReleasePacket(frames int) error
	// Close stops the client (if started) and releases format memory. Safe
	// to call multiple times.
	Close() error
}

// New constructs the platform loopback source for the current GOOS.
func New() Source {
	return newPlatformSource()
}

// CheckAvailable opens and immediately closes a probe session, reporting
// whether the default render endpoint is usable for loopback capture.
func CheckAvailable(ctx context.Context) (bool, error) {
	src := New()
	if err := src.Open(ctx); err != nil {
		return false, err
	}
	defer src.Close()
	return true, nil
}
