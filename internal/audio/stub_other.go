//go:build !windows

package audio

import (
	"context"
	"errors"
	"time"
)

// ErrUnsupportedPlatform is returned by the portable stub source: loopback
// capture is only implemented for WASAPI (Windows).
var ErrUnsupportedPlatform = errors.New("audio: loopback capture is only available on windows")

// stubSource satisfies Source on non-Windows platforms so the rest of the
// module builds and tests without the real WASAPI binding. It never
// succeeds at Open.
type stubSource struct{}

func newPlatformSource() Source {
	return &stubSource{}
}

func (s *stubSource) Open(_ context.Context) error {
	return ErrUnsupportedPlatform
}

func (s *stubSource) Format() AudioFormat {
	return AudioFormat{}
}

func (s *stubSource) Start() error {
	return ErrUnsupportedPlatform
}

func (s *stubSource) WaitForBuffer(_ time.Duration) error {
	return ErrUnsupportedPlatform
}

func (s *stubSource) NextPacket() (Packet, error) {
	return Packet{}, ErrUnsupportedPlatform
}

func (s *stubSource) ReleasePacket(_ int) error {
	return ErrUnsupportedPlatform
}

func (s *stubSource) Close() error {
	return nil
}
