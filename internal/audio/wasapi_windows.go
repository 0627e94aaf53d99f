//go:build windows

package audio

import (
	"context"
	"fmt"
	"time"
	"unsafe"

	"github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

func newPlatformSource() Source {
	return &wasapiSource{}
}

// wasapiSource is the WASAPI loopback implementation of Source. It binds to
// the default render endpoint in shared mode, preferring event-driven
// wakeup with a polling fallback when the driver rejects it.
type wasapiSource struct {
	enumerator *deviceEnumerator
	device     *mmDevice
	client     *audioClient
	capture    *audioCaptureClient

	format      AudioFormat
	eventDriven bool
	event       windows.Handle

	started    bool
	hasPending bool
}

func (s *wasapiSource) Open(_ context.Context) error {
	enumerator, err := createDeviceEnumerator()
	if err != nil {
		return fmt.Errorf("audio capture: create device enumerator: %w", err)
	}
	s.enumerator = enumerator

	device, err := enumerator.getDefaultAudioEndpoint()
	if err != nil {
		return fmt.Errorf("audio capture: no default render endpoint: %w", err)
	}
	s.device = device

	client, err := device.activateAudioClient()
	if err != nil {
		return fmt.Errorf("audio capture: activate IAudioClient: %w", err)
	}
	s.client = client

	mixFormat, err := client.getMixFormat()
	if err != nil {
		return fmt.Errorf("audio capture: get mix format: %w", err)
	}
	s.format = parseMixFormat(mixFormat)
	eventErr := s.initEventDriven(mixFormat)
	ole.CoTaskMemFree(uintptr(mixFormat))

	if eventErr == nil {
		s.eventDriven = true
		return nil
	}

	// Driver rejected event-driven init; fall back to a fresh client in
	// pure-polling mode (loopback only, no event callback).
	client.Release()
	client, err = device.activateAudioClient()
	if err != nil {
		return fmt.Errorf("audio capture: re-activate IAudioClient for polling: %w", err)
	}
	s.client = client

	mixFormat, err = client.getMixFormat()
	if err != nil {
		return fmt.Errorf("audio capture: get mix format (polling): %w", err)
	}
	defer ole.CoTaskMemFree(uintptr(mixFormat))

	if err := client.initialize(audclntStreamflagsLoopback, refTimesPerSec, mixFormat); err != nil {
		return fmt.Errorf("audio capture: initialize (polling): %w", err)
	}

	capture, err := client.getCaptureClient()
	if err != nil {
		return fmt.Errorf("audio capture: get IAudioCaptureClient: %w", err)
	}
	s.capture = capture
	s.eventDriven = false
	return nil
}

// initEventDriven attempts the low-latency event-callback initialization
// path. The caller retains ownership of mixFormat.
func (s *wasapiSource) initEventDriven(mixFormat unsafe.Pointer) error {
	event, err := windows.CreateEvent(nil, 0, 0, nil)
	if err != nil {
		return err
	}

	flags := audclntStreamflagsLoopback | audclntStreamflagsEventCallback
	if err := s.client.initialize(flags, refTimesPerSec, mixFormat); err != nil {
		windows.CloseHandle(event)
		return err
	}
	if err := s.client.setEventHandle(uintptr(event)); err != nil {
		windows.CloseHandle(event)
		return err
	}

	capture, err := s.client.getCaptureClient()
	if err != nil {
		windows.CloseHandle(event)
		return err
	}

	s.event = event
	s.capture = capture
	return nil
}

func (s *wasapiSource) Format() AudioFormat {
	return s.format
}

func (s *wasapiSource) Start() error {
	if err := s.client.start(); err != nil {
		return fmt.Errorf("audio capture: start: %w", err)
	}
	s.started = true
	return nil
}

func (s *wasapiSource) WaitForBuffer(timeout time.Duration) error {
	if !s.eventDriven {
		return nil
	}
	ms := uint32(timeout.Milliseconds())
	_, err := windows.WaitForSingleObject(s.event, ms)
	return err
}

func (s *wasapiSource) NextPacket() (Packet, error) {
	if s.hasPending {
		return Packet{}, fmt.Errorf("audio capture: previous packet not released")
	}

	size, err := s.capture.nextPacketSize()
	if err != nil {
		return Packet{}, fmt.Errorf("audio capture: next packet size: %w", err)
	}
	if size == 0 {
		return Packet{}, ErrNoPacket
	}

	data, frames, flags, err := s.capture.getBuffer()
	if err != nil {
		return Packet{}, fmt.Errorf("audio capture: get buffer: %w", err)
	}
	if frames == 0 {
		return Packet{}, ErrNoPacket
	}

	byteLen := int(frames) * int(s.format.BlockAlign())
	// Borrowed view into the endpoint's buffer; valid only until
	// ReleasePacket is called.
	view := unsafe.Slice((*byte)(data), byteLen)

	s.hasPending = true
	return Packet{Data: view, Frames: int(frames), Flags: flags}, nil
}

func (s *wasapiSource) ReleasePacket(frames int) error {
	s.hasPending = false
	if err := s.capture.releaseBuffer(uint32(frames)); err != nil {
		return fmt.Errorf("audio capture: release buffer: %w", err)
	}
	return nil
}

func (s *wasapiSource) Close() error {
	if s.started {
		if s.client != nil {
			_ = s.client.stop()
		}
		s.started = false
	}
	if s.capture != nil {
		s.capture.Release()
		s.capture = nil
	}
	if s.client != nil {
		s.client.Release()
		s.client = nil
	}
	if s.device != nil {
		s.device.Release()
		s.device = nil
	}
	if s.enumerator != nil {
		s.enumerator.Release()
		s.enumerator = nil
	}
	if s.event != 0 {
		windows.CloseHandle(s.event)
		s.event = 0
	}
	return nil
}
