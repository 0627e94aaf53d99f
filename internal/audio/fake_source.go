package audio

import (
	"context"
	"errors"
	"time"
)

var errPendingPacket = errors.New("audio: previous fake packet not released")

// FakeSource is an in-memory Source used by capture tests: it replays a
// fixed sequence of packets instead of touching a real OS audio endpoint.
type FakeSource struct {
	FormatValue AudioFormat
	Packets     []Packet
	OpenErr     error
	StartErr    error

	pos     int
	pending bool
	closed  bool
}

// NewFakeSource builds a FakeSource that replays packets in order.
func NewFakeSource(format AudioFormat, packets []Packet) *FakeSource {
	return &FakeSource{FormatValue: format, Packets: packets}
}

func (f *FakeSource) Open(_ context.Context) error {
	return f.OpenErr
}

func (f *FakeSource) Format() AudioFormat {
	return f.FormatValue
}

func (f *FakeSource) Start() error {
	return f.StartErr
}

func (f *FakeSource) WaitForBuffer(_ time.Duration) error {
	return nil
}

func (f *FakeSource) NextPacket() (Packet, error) {
	if f.pending {
		return Packet{}, errPendingPacket
	}
	if f.pos >= len(f.Packets) {
		return Packet{}, ErrNoPacket
	}
	p := f.Packets[f.pos]
	f.pos++
	f.pending = true
	return p, nil
}

func (f *FakeSource) ReleasePacket(_ int) error {
	f.pending = false
	return nil
}

func (f *FakeSource) Close() error {
	f.closed = true
	return nil
}

// Closed reports whether Close has been called, for test assertions.
func (f *FakeSource) Closed() bool {
	return f.closed
}
